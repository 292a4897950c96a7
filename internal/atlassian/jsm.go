package atlassian

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/itsm/pkg/itsm"
)

// ProviderJSM is the registry name of the Jira Service Management incident
// adapter.
const ProviderJSM = "atlassian_jsm"

const jsmAPI = "/rest/servicedeskapi"

// JSM represents incident severity as request priority.
var severityToPriority = map[itsm.Severity]string{
	itsm.SeverityCritical: "Highest",
	itsm.SeverityHigh:     "High",
	itsm.SeverityMedium:   "Medium",
	itsm.SeverityLow:      "Low",
	itsm.SeverityInfo:     "Lowest",
}

var priorityToSeverity = map[string]itsm.Severity{
	"Highest": itsm.SeverityCritical,
	"High":    itsm.SeverityHigh,
	"Medium":  itsm.SeverityMedium,
	"Low":     itsm.SeverityLow,
	"Lowest":  itsm.SeverityInfo,
}

// Transition names or destination statuses that count as resolving.
var resolveWords = []string{"resolve", "done", "close", "complete"}

func init() {
	itsm.RegisterIncidentManager(ProviderJSM, func(cfg *itsm.Config) (itsm.IncidentManager, error) {
		return NewJSMAdapter(cfg)
	})
}

// JSMAdapter implements the IncidentManager interface against the Jira
// Service Management REST API, falling back to the plain Jira API where JSM
// has no equivalent endpoint.
type JSMAdapter struct {
	*client
	serviceDesk string
	requestType string
}

// NewJSMAdapter creates a JSM adapter. The default request type is
// "Incident".
func NewJSMAdapter(cfg *itsm.Config) (*JSMAdapter, error) {
	if cfg == nil {
		cfg = &itsm.Config{}
	}

	base, err := newClient(ProviderJSM, cfg)
	if err != nil {
		return nil, err
	}

	return &JSMAdapter{
		client:      base,
		serviceDesk: cfg.ServiceDesk,
		requestType: "Incident",
	}, nil
}

// Connect validates credentials against the Jira API.
func (m *JSMAdapter) Connect(ctx context.Context) error {
	return m.connect(ctx)
}

// GetIncident returns the incident with the given key, or nil if it does
// not exist. Incidents are Jira issues underneath, so the Jira issue
// endpoint serves the read.
func (m *JSMAdapter) GetIncident(ctx context.Context, incidentKey string) (*itsm.Incident, error) {
	query := url.Values{}
	query.Set("expand", "renderedFields")

	data, err := m.http.Get(ctx, jiraAPIv3+"/issue/"+incidentKey, query)
	if err != nil {
		if itsm.IsNotFound(err) {
			m.debug("incident not found", map[string]interface{}{"key": incidentKey})

			return nil, nil
		}

		return nil, err
	}

	return m.parseIncident(data), nil
}

// CreateIncident raises a new customer request in the service desk.
func (m *JSMAdapter) CreateIncident(ctx context.Context, request *itsm.IncidentCreateRequest) (*itsm.Incident, error) {
	serviceDesk := m.serviceDesk
	if sd, ok := request.Fields["service_desk"].(string); ok && sd != "" {
		serviceDesk = sd
	}

	if serviceDesk == "" {
		return nil, &itsm.ConfigError{
			Message:  "service desk is required, set a default service desk or provide one explicitly",
			Provider: m.provider,
			Details:  map[string]interface{}{"field": "service_desk"},
			Err:      itsm.ErrServiceDeskRequired,
		}
	}

	serviceDeskID := m.serviceDeskID(ctx, serviceDesk)

	requestType := m.requestType
	if rt, ok := request.Fields["request_type"].(string); ok && rt != "" {
		requestType = rt
	}

	requestTypeID := m.requestTypeID(ctx, serviceDeskID, requestType)

	severity := request.Severity
	if severity == "" {
		severity = itsm.SeverityMedium
	}

	fieldValues := map[string]interface{}{
		"summary":  request.Summary,
		"priority": map[string]interface{}{"name": priorityName(severity)},
	}

	if request.Description != "" {
		fieldValues["description"] = request.Description
	}

	if request.Service != "" {
		fieldValues["components"] = []interface{}{map[string]interface{}{"name": request.Service}}
	}

	if len(request.Labels) > 0 {
		fieldValues["labels"] = request.Labels
	}

	payload := map[string]interface{}{
		"serviceDeskId":      serviceDeskID,
		"requestTypeId":      requestTypeID,
		"requestFieldValues": fieldValues,
	}

	if reporter, ok := request.Fields["reporter_email"].(string); ok && reporter != "" {
		payload["raiseOnBehalfOf"] = reporter
	}

	m.debug("creating incident", map[string]interface{}{
		"service_desk": serviceDesk,
		"summary":      request.Summary,
	})

	data, err := m.http.Post(ctx, jsmAPI+"/request", payload)
	if err != nil {
		return nil, err
	}

	incidentKey := getString(data, "issueKey")
	m.info("created incident", map[string]interface{}{"key": incidentKey})

	created, err := m.GetIncident(ctx, incidentKey)
	if err != nil || created == nil {
		return &itsm.Incident{
			Key:      incidentKey,
			Summary:  request.Summary,
			Severity: severity,
			Status:   "Open",
			Labels:   request.Labels,
			URL:      m.browseURL(incidentKey),
			Provider: m.provider,
		}, nil
	}

	return created, nil
}

// SearchIncidents finds incidents via JQL built from the given filters. A
// structured query is embedded as-is; plain text becomes a text match.
func (m *JSMAdapter) SearchIncidents(ctx context.Context, opts *itsm.IncidentSearchOptions) ([]itsm.Incident, error) {
	if opts == nil {
		opts = &itsm.IncidentSearchOptions{}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	if limit > maxSearchResults {
		limit = maxSearchResults
	}

	jqlParts := []string{}

	if m.serviceDesk != "" {
		jqlParts = append(jqlParts, fmt.Sprintf("project = %q", m.serviceDesk))
	}

	if opts.Query != "" {
		if isStructuredQuery(opts.Query) {
			jqlParts = append(jqlParts, "("+opts.Query+")")
		} else {
			jqlParts = append(jqlParts, fmt.Sprintf("text ~ %q", opts.Query))
		}
	}

	if opts.Status != "" {
		jqlParts = append(jqlParts, fmt.Sprintf("status = %q", opts.Status))
	}

	if opts.Severity != "" {
		jqlParts = append(jqlParts, fmt.Sprintf("priority = %q", priorityName(opts.Severity)))
	}

	jqlParts = append(jqlParts, `type = "Service Request" OR type = "Incident"`)
	jql := strings.Join(jqlParts, " AND ")

	params := url.Values{}
	params.Set("jql", jql)
	params.Set("maxResults", strconv.Itoa(limit))
	params.Set("expand", "renderedFields")

	m.debug("searching incidents", map[string]interface{}{"jql": jql})

	data, err := m.http.Get(ctx, jiraAPIv3+"/search", params)
	if err != nil {
		return nil, err
	}

	raw := getSlice(data, "issues")
	incidents := make([]itsm.Incident, 0, len(raw))

	for _, item := range raw {
		incidentData, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		incidents = append(incidents, *m.parseIncident(incidentData))
	}

	return incidents, nil
}

// ResolveIncident records the resolution as an internal comment and moves
// the incident through its resolve transition. A workflow with no resolve
// transition is a failed Result, not an error.
func (m *JSMAdapter) ResolveIncident(ctx context.Context, incidentKey, resolution string) (*itsm.Result, error) {
	if _, err := m.AddComment(ctx, incidentKey, "Resolution: "+resolution, true); err != nil {
		return nil, err
	}

	data, err := m.http.Get(ctx, jiraAPIv3+"/issue/"+incidentKey+"/transitions", nil)
	if err != nil {
		return nil, err
	}

	transitions := getSlice(data, "transitions")

	var target map[string]interface{}

	for _, item := range transitions {
		transition, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		name := strings.ToLower(getString(transition, "name"))
		toStatus := strings.ToLower(getString(getMap(transition, "to"), "name"))

		for _, word := range resolveWords {
			if strings.Contains(name, word) || strings.Contains(toStatus, word) {
				target = transition

				break
			}
		}

		if target != nil {
			break
		}
	}

	if target == nil {
		available := make([]string, 0, len(transitions))

		for _, item := range transitions {
			if transition, ok := item.(map[string]interface{}); ok {
				available = append(available, getString(transition, "name"))
			}
		}

		return &itsm.Result{
			Status:     itsm.ResultFailed,
			Message:    fmt.Sprintf("no resolve transition available, available: %v", available),
			ResourceID: incidentKey,
			Details:    map[string]interface{}{"available_transitions": available},
		}, nil
	}

	payload := map[string]interface{}{
		"transition": map[string]interface{}{"id": getString(target, "id")},
	}

	if len(getMap(getMap(target, "fields"), "resolution")) > 0 {
		payload["fields"] = map[string]interface{}{
			"resolution": map[string]interface{}{"name": "Done"},
		}
	}

	if _, err := m.http.Post(ctx, jiraAPIv3+"/issue/"+incidentKey+"/transitions", payload); err != nil {
		return nil, err
	}

	m.info("resolved incident", map[string]interface{}{"key": incidentKey})

	return &itsm.Result{
		Status:      itsm.ResultSuccess,
		Message:     "incident resolved: " + truncate(resolution, 50),
		ResourceID:  incidentKey,
		ResourceURL: m.browseURL(incidentKey),
	}, nil
}

// EscalateIncident raises the incident's priority and records the reason as
// an internal comment.
func (m *JSMAdapter) EscalateIncident(ctx context.Context, incidentKey string, severity itsm.Severity, reason string) (*itsm.Result, error) {
	payload := map[string]interface{}{
		"fields": map[string]interface{}{
			"priority": map[string]interface{}{"name": priorityName(severity)},
		},
	}

	if _, err := m.http.Put(ctx, jiraAPIv3+"/issue/"+incidentKey, payload); err != nil {
		return nil, err
	}

	comment := "Incident escalated to " + string(severity)
	if reason != "" {
		comment += "\nReason: " + reason
	}

	if _, err := m.AddComment(ctx, incidentKey, comment, true); err != nil {
		return nil, err
	}

	m.info("escalated incident", map[string]interface{}{
		"key":      incidentKey,
		"severity": string(severity),
	})

	return &itsm.Result{
		Status:      itsm.ResultSuccess,
		Message:     "escalated to " + string(severity),
		ResourceID:  incidentKey,
		ResourceURL: m.browseURL(incidentKey),
	}, nil
}

// LinkToIssue relates an incident to a Jira issue.
func (m *JSMAdapter) LinkToIssue(ctx context.Context, incidentKey, issueKey string) (*itsm.Result, error) {
	payload := map[string]interface{}{
		"type":         map[string]interface{}{"name": "Relates"},
		"inwardIssue":  map[string]interface{}{"key": incidentKey},
		"outwardIssue": map[string]interface{}{"key": issueKey},
	}

	if _, err := m.http.Post(ctx, jiraAPIv3+"/issueLink", payload); err != nil {
		return nil, err
	}

	m.info("linked incident", map[string]interface{}{"incident": incidentKey, "issue": issueKey})

	return &itsm.Result{
		Status:     itsm.ResultSuccess,
		Message:    fmt.Sprintf("linked %s to %s", incidentKey, issueKey),
		ResourceID: incidentKey,
	}, nil
}

// AddComment adds a comment, internal or customer-visible. The JSM comment
// endpoint handles the visibility flag; a service desk that rejects it
// falls back to a plain Jira comment, which is always visible.
func (m *JSMAdapter) AddComment(ctx context.Context, incidentKey, body string, internal bool) (*itsm.Result, error) {
	payload := map[string]interface{}{
		"body":   body,
		"public": !internal,
	}

	_, err := m.http.Post(ctx, jsmAPI+"/request/"+incidentKey+"/comment", payload)
	if err != nil {
		var providerErr *itsm.ProviderError
		if !errors.As(err, &providerErr) {
			return nil, err
		}

		fallback := map[string]interface{}{"body": toADF(body)}
		if _, err := m.http.Post(ctx, jiraAPIv3+"/issue/"+incidentKey+"/comment", fallback); err != nil {
			return nil, err
		}
	}

	visibility := "public"
	if internal {
		visibility = "internal"
	}

	m.info("added comment", map[string]interface{}{"key": incidentKey, "visibility": visibility})

	return &itsm.Result{
		Status:      itsm.ResultSuccess,
		Message:     visibility + " comment added",
		ResourceID:  incidentKey,
		ResourceURL: m.browseURL(incidentKey),
	}, nil
}

// GetSLAStatus returns the SLA metrics for an incident. Requests without
// SLA data yield an empty slice rather than an error.
func (m *JSMAdapter) GetSLAStatus(ctx context.Context, incidentKey string) ([]itsm.SLAStatus, error) {
	data, err := m.http.Get(ctx, jsmAPI+"/request/"+incidentKey+"/sla", nil)
	if err != nil {
		var providerErr *itsm.ProviderError
		if itsm.IsNotFound(err) || errors.As(err, &providerErr) {
			m.debug("no SLA data", map[string]interface{}{"key": incidentKey})

			return []itsm.SLAStatus{}, nil
		}

		return nil, err
	}

	values := getSlice(data, "values")
	statuses := make([]itsm.SLAStatus, 0, len(values))

	for _, item := range values {
		sla, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		statuses = append(statuses, parseSLA(sla))
	}

	return statuses, nil
}

// parseSLA reads one SLA entry, preferring the ongoing cycle over the most
// recently completed one.
func parseSLA(sla map[string]interface{}) itsm.SLAStatus {
	cycle := getMap(sla, "ongoingCycle")

	if len(cycle) == 0 {
		if completed := getSlice(sla, "completedCycles"); len(completed) > 0 {
			if last, ok := completed[len(completed)-1].(map[string]interface{}); ok {
				cycle = last
			}
		}
	}

	name := getString(sla, "name")
	if name == "" {
		name = "Unknown SLA"
	}

	status := itsm.SLAStatus{
		Name:      name,
		Elapsed:   getInt(getMap(cycle, "elapsedTime"), "millis") / 1000,
		Remaining: getInt(getMap(cycle, "remainingTime"), "millis") / 1000,
		Breached:  getBool(cycle, "breached"),
		Paused:    getBool(cycle, "paused"),
	}

	goalMillis := getInt(getMap(cycle, "goalDuration"), "millis")
	startMillis := getInt(getMap(cycle, "startTime"), "epochMillis")

	if goalMillis > 0 && startMillis > 0 {
		target := time.UnixMilli(int64(startMillis + goalMillis))
		status.Target = &target
	}

	return status
}

// serviceDeskID resolves a service desk project key to its numeric ID. A
// value that is already numeric, or that cannot be resolved, passes
// through unchanged.
func (m *JSMAdapter) serviceDeskID(ctx context.Context, serviceDesk string) string {
	if isDigits(serviceDesk) {
		return serviceDesk
	}

	data, err := m.http.Get(ctx, jsmAPI+"/servicedesk", nil)
	if err == nil {
		for _, item := range getSlice(data, "values") {
			desk, ok := item.(map[string]interface{})
			if !ok {
				continue
			}

			if getString(desk, "projectKey") == serviceDesk {
				return stringID(desk["id"])
			}
		}
	}

	return serviceDesk
}

// requestTypeID resolves a request type name to its ID, case-insensitively.
// Unresolvable names fall back to the desk's first request type, then 1.
func (m *JSMAdapter) requestTypeID(ctx context.Context, serviceDeskID, requestType string) int {
	if isDigits(requestType) {
		id, _ := strconv.Atoi(requestType)

		return id
	}

	data, err := m.http.Get(ctx, jsmAPI+"/servicedesk/"+serviceDeskID+"/requesttype", nil)
	if err != nil {
		return 1
	}

	values := getSlice(data, "values")

	for _, item := range values {
		rt, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		if strings.EqualFold(getString(rt, "name"), requestType) {
			return requestTypeNumber(rt)
		}
	}

	if len(values) > 0 {
		if first, ok := values[0].(map[string]interface{}); ok {
			return requestTypeNumber(first)
		}
	}

	return 1
}

// requestTypeNumber reads a request type ID, which JSM returns as a string.
func requestTypeNumber(rt map[string]interface{}) int {
	if id := getInt(rt, "id"); id > 0 {
		return id
	}

	if id, err := strconv.Atoi(getString(rt, "id")); err == nil {
		return id
	}

	return 1
}

func (m *JSMAdapter) parseIncident(data map[string]interface{}) *itsm.Incident {
	fields := getMap(data, "fields")
	key := getString(data, "key")

	severity := itsm.SeverityMedium
	if mapped, ok := priorityToSeverity[getString(getMap(fields, "priority"), "name")]; ok {
		severity = mapped
	}

	incident := &itsm.Incident{
		Key:        key,
		Summary:    getString(fields, "summary"),
		Severity:   severity,
		Status:     getString(getMap(fields, "status"), "name"),
		Assignee:   personName(getMap(fields, "assignee")),
		Reporter:   personName(getMap(fields, "reporter")),
		Labels:     getStrings(fields, "labels"),
		CreatedAt:  parseTimestamp(getString(fields, "created")),
		UpdatedAt:  parseTimestamp(getString(fields, "updated")),
		ResolvedAt: parseTimestamp(getString(fields, "resolutiondate")),
		Resolution: getString(getMap(fields, "resolution"), "name"),
		URL:        m.browseURL(key),
		Provider:   m.provider,
		Raw:        data,
	}

	if description, ok := fields["description"].(map[string]interface{}); ok {
		incident.Description = fromADF(description)
	}

	if components := getSlice(fields, "components"); len(components) > 0 {
		if first, ok := components[0].(map[string]interface{}); ok {
			incident.Service = getString(first, "name")
		}
	}

	for _, item := range getSlice(fields, "issuelinks") {
		link, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		if outward := getString(getMap(link, "outwardIssue"), "key"); outward != "" {
			incident.LinkedIssues = append(incident.LinkedIssues, outward)
		}

		if inward := getString(getMap(link, "inwardIssue"), "key"); inward != "" {
			incident.LinkedIssues = append(incident.LinkedIssues, inward)
		}
	}

	return incident
}

func priorityName(severity itsm.Severity) string {
	if priority, ok := severityToPriority[severity]; ok {
		return priority
	}

	return "Medium"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	return s[:limit] + "..."
}
