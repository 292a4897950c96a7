package itsm

import (
	"time"
)

// Severity represents an incident severity level.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// ResultStatus represents the outcome of a mutating operation.
type ResultStatus string

const (
	ResultSuccess  ResultStatus = "success"
	ResultFailed   ResultStatus = "failed"
	ResultNoChange ResultStatus = "no_change"
)

// Issue is a provider-agnostic issue/ticket representation.
type Issue struct {
	Key         string                 `json:"key"                  yaml:"key"`
	Summary     string                 `json:"summary"              yaml:"summary"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	IssueType   string                 `json:"issue_type"           yaml:"issue_type"`
	Status      string                 `json:"status"               yaml:"status"`
	Assignee    string                 `json:"assignee,omitempty"   yaml:"assignee,omitempty"`
	Reporter    string                 `json:"reporter,omitempty"   yaml:"reporter,omitempty"`
	Labels      []string               `json:"labels,omitempty"     yaml:"labels,omitempty"`
	Priority    string                 `json:"priority,omitempty"   yaml:"priority,omitempty"`
	CreatedAt   *time.Time             `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt   *time.Time             `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	URL         string                 `json:"url,omitempty"        yaml:"url,omitempty"`
	ParentKey   string                 `json:"parent_key,omitempty" yaml:"parent_key,omitempty"`
	Provider    string                 `json:"provider,omitempty"   yaml:"provider,omitempty"`
	Raw         map[string]interface{} `json:"-"                    yaml:"-"`
}

// Page is a provider-agnostic wiki page representation.
type Page struct {
	ID        string                 `json:"id"                   yaml:"id"`
	Title     string                 `json:"title"                yaml:"title"`
	Content   string                 `json:"content,omitempty"    yaml:"content,omitempty"`
	Space     string                 `json:"space,omitempty"      yaml:"space,omitempty"`
	Version   int                    `json:"version"              yaml:"version"`
	Author    string                 `json:"author,omitempty"     yaml:"author,omitempty"`
	CreatedAt *time.Time             `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt *time.Time             `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	URL       string                 `json:"url,omitempty"        yaml:"url,omitempty"`
	ParentID  string                 `json:"parent_id,omitempty"  yaml:"parent_id,omitempty"`
	Provider  string                 `json:"provider,omitempty"   yaml:"provider,omitempty"`
	Raw       map[string]interface{} `json:"-"                    yaml:"-"`
}

// Incident is a provider-agnostic incident representation.
type Incident struct {
	Key          string                 `json:"key"                     yaml:"key"`
	Summary      string                 `json:"summary"                 yaml:"summary"`
	Description  string                 `json:"description,omitempty"   yaml:"description,omitempty"`
	Severity     Severity               `json:"severity"                yaml:"severity"`
	Status       string                 `json:"status"                  yaml:"status"`
	Service      string                 `json:"service,omitempty"       yaml:"service,omitempty"`
	Assignee     string                 `json:"assignee,omitempty"      yaml:"assignee,omitempty"`
	Reporter     string                 `json:"reporter,omitempty"      yaml:"reporter,omitempty"`
	Labels       []string               `json:"labels,omitempty"        yaml:"labels,omitempty"`
	CreatedAt    *time.Time             `json:"created_at,omitempty"    yaml:"created_at,omitempty"`
	UpdatedAt    *time.Time             `json:"updated_at,omitempty"    yaml:"updated_at,omitempty"`
	ResolvedAt   *time.Time             `json:"resolved_at,omitempty"   yaml:"resolved_at,omitempty"`
	Resolution   string                 `json:"resolution,omitempty"    yaml:"resolution,omitempty"`
	URL          string                 `json:"url,omitempty"           yaml:"url,omitempty"`
	LinkedIssues []string               `json:"linked_issues,omitempty" yaml:"linked_issues,omitempty"`
	Provider     string                 `json:"provider,omitempty"      yaml:"provider,omitempty"`
	Raw          map[string]interface{} `json:"-"                       yaml:"-"`
}

// Result reports the outcome of a mutating operation.
type Result struct {
	Status      ResultStatus           `json:"status"                 yaml:"status"`
	Message     string                 `json:"message,omitempty"      yaml:"message,omitempty"`
	ResourceID  string                 `json:"resource_id,omitempty"  yaml:"resource_id,omitempty"`
	ResourceURL string                 `json:"resource_url,omitempty" yaml:"resource_url,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"      yaml:"details,omitempty"`
}

// Success reports whether the operation succeeded or required no change.
func (r *Result) Success() bool {
	return r.Status == ResultSuccess || r.Status == ResultNoChange
}

// SLAStatus describes one SLA metric attached to an incident.
type SLAStatus struct {
	Name      string     `json:"name"                yaml:"name"`
	Target    *time.Time `json:"target,omitempty"    yaml:"target,omitempty"`
	Elapsed   int        `json:"elapsed,omitempty"   yaml:"elapsed,omitempty"`
	Remaining int        `json:"remaining,omitempty" yaml:"remaining,omitempty"`
	Breached  bool       `json:"breached"            yaml:"breached"`
	Paused    bool       `json:"paused"              yaml:"paused"`
}

// IssueCreateRequest describes a new issue.
type IssueCreateRequest struct {
	Summary     string                 `json:"summary"`
	Description string                 `json:"description,omitempty"`
	IssueType   string                 `json:"issue_type,omitempty"`
	Project     string                 `json:"project,omitempty"`
	Labels      []string               `json:"labels,omitempty"`
	ParentKey   string                 `json:"parent_key,omitempty"`
	Priority    string                 `json:"priority,omitempty"`
	Assignee    string                 `json:"assignee,omitempty"`
	Fields      map[string]interface{} `json:"fields,omitempty"`
}

// IssueUpdateRequest describes changes to an existing issue. Nil fields are
// left untouched; Labels replaces the full label set when non-nil.
type IssueUpdateRequest struct {
	Summary     string                 `json:"summary,omitempty"`
	Description string                 `json:"description,omitempty"`
	Labels      []string               `json:"labels,omitempty"`
	Fields      map[string]interface{} `json:"fields,omitempty"`
}

// IssueSearchOptions tunes an issue search.
type IssueSearchOptions struct {
	MaxResults int
	Fields     []string
}

// PageCreateRequest describes a new wiki page.
type PageCreateRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Space    string `json:"space,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
}

// PageUpdateRequest describes changes to an existing wiki page.
type PageUpdateRequest struct {
	Content string `json:"content"`
	Title   string `json:"title,omitempty"`
}

// PageSearchOptions tunes a page search.
type PageSearchOptions struct {
	Space string
	Limit int
}

// IncidentCreateRequest describes a new incident.
type IncidentCreateRequest struct {
	Summary     string                 `json:"summary"`
	Description string                 `json:"description,omitempty"`
	Severity    Severity               `json:"severity,omitempty"`
	Service     string                 `json:"service,omitempty"`
	Labels      []string               `json:"labels,omitempty"`
	Fields      map[string]interface{} `json:"fields,omitempty"`
}

// IncidentSearchOptions filters an incident search.
type IncidentSearchOptions struct {
	Query    string
	Status   string
	Severity Severity
	Limit    int
}
