package itsm

import (
	"context"
)

// Connector is the shared lifecycle contract for all capability interfaces.
// Connect validates credentials and connectivity; Close releases the
// adapter's HTTP session. Callers pair the two with defer:
//
//	tracker, err := itsm.GetIssueTracker("atlassian_jira", cfg)
//	if err != nil { ... }
//	if err := tracker.Connect(ctx); err != nil { ... }
//	defer tracker.Close()
type Connector interface {
	Connect(ctx context.Context) error
	Close() error
}

// IssueTracker is the abstract contract for issue/ticket tracking systems.
type IssueTracker interface {
	Connector

	// GetIssue returns the issue with the given key, or nil if it does not
	// exist.
	GetIssue(ctx context.Context, issueKey string) (*Issue, error)

	// CreateIssue creates a new issue and returns the created resource.
	CreateIssue(ctx context.Context, request *IssueCreateRequest) (*Issue, error)

	// Search finds issues matching a provider-native query (JQL for Jira).
	Search(ctx context.Context, query string, opts *IssueSearchOptions) ([]Issue, error)

	// Transition moves an issue to a new status.
	Transition(ctx context.Context, issueKey, status string) (*Result, error)

	// Comment adds a comment to an issue.
	Comment(ctx context.Context, issueKey, body string) (*Result, error)

	// LinkIssues links two issues together.
	LinkIssues(ctx context.Context, sourceKey, targetKey, linkType string) (*Result, error)

	// UpdateIssue applies field changes to an existing issue and returns the
	// refreshed resource.
	UpdateIssue(ctx context.Context, issueKey string, request *IssueUpdateRequest) (*Issue, error)

	// AddLabels adds labels to an issue without removing existing ones.
	AddLabels(ctx context.Context, issueKey string, labels []string) (*Result, error)
}

// WikiProvider is the abstract contract for wiki/documentation systems.
type WikiProvider interface {
	Connector

	// GetPage returns the page with the given ID, or nil if it does not exist.
	GetPage(ctx context.Context, pageID string) (*Page, error)

	// GetPageByPath returns the page with the given title within a space, or
	// nil if it does not exist.
	GetPageByPath(ctx context.Context, space, path string) (*Page, error)

	// CreatePage creates a new page and returns the created resource.
	CreatePage(ctx context.Context, request *PageCreateRequest) (*Page, error)

	// UpdatePage replaces a page's content (and optionally title).
	UpdatePage(ctx context.Context, pageID string, request *PageUpdateRequest) (*Page, error)

	// AppendToPage appends content to an existing page.
	AppendToPage(ctx context.Context, pageID, content string) (*Page, error)

	// Search finds pages matching a query, optionally scoped to a space.
	Search(ctx context.Context, query string, opts *PageSearchOptions) ([]Page, error)
}

// IncidentManager is the abstract contract for incident management systems.
type IncidentManager interface {
	Connector

	// GetIncident returns the incident with the given key, or nil if it does
	// not exist.
	GetIncident(ctx context.Context, incidentKey string) (*Incident, error)

	// CreateIncident creates a new incident and returns the created resource.
	CreateIncident(ctx context.Context, request *IncidentCreateRequest) (*Incident, error)

	// SearchIncidents finds incidents matching the given filters.
	SearchIncidents(ctx context.Context, opts *IncidentSearchOptions) ([]Incident, error)

	// ResolveIncident resolves an incident with resolution notes.
	ResolveIncident(ctx context.Context, incidentKey, resolution string) (*Result, error)

	// EscalateIncident raises an incident's severity.
	EscalateIncident(ctx context.Context, incidentKey string, severity Severity, reason string) (*Result, error)

	// LinkToIssue links an incident to an issue.
	LinkToIssue(ctx context.Context, incidentKey, issueKey string) (*Result, error)

	// AddComment adds a public or internal comment to an incident.
	AddComment(ctx context.Context, incidentKey, body string, internal bool) (*Result, error)

	// GetSLAStatus returns the SLA metrics attached to an incident.
	GetSLAStatus(ctx context.Context, incidentKey string) ([]SLAStatus, error)
}
