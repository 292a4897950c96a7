package atlassian

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/itsm/pkg/itsm"
)

// ProviderJira is the registry name of the Jira issue tracker adapter.
const ProviderJira = "atlassian_jira"

const maxSearchResults = 100

func init() {
	itsm.RegisterIssueTracker(ProviderJira, func(cfg *itsm.Config) (itsm.IssueTracker, error) {
		return NewJiraAdapter(cfg)
	})
}

// JiraAdapter implements the IssueTracker interface against the Jira Cloud
// REST API v3.
type JiraAdapter struct {
	*client
	project string
}

// NewJiraAdapter creates a Jira adapter. Credentials are resolved from the
// config and the ambient sources; the connection itself is validated by
// Connect.
func NewJiraAdapter(cfg *itsm.Config) (*JiraAdapter, error) {
	if cfg == nil {
		cfg = &itsm.Config{}
	}

	base, err := newClient(ProviderJira, cfg)
	if err != nil {
		return nil, err
	}

	return &JiraAdapter{client: base, project: cfg.Project}, nil
}

// Connect validates credentials against the Jira API.
func (j *JiraAdapter) Connect(ctx context.Context) error {
	return j.connect(ctx)
}

// GetIssue returns the issue with the given key, or nil if it does not
// exist.
func (j *JiraAdapter) GetIssue(ctx context.Context, issueKey string) (*itsm.Issue, error) {
	query := url.Values{}
	query.Set("expand", "renderedFields")

	data, err := j.http.Get(ctx, jiraAPIv3+"/issue/"+issueKey, query)
	if err != nil {
		if itsm.IsNotFound(err) {
			j.debug("issue not found", map[string]interface{}{"key": issueKey})

			return nil, nil
		}

		return nil, err
	}

	return j.parseIssue(data), nil
}

// CreateIssue creates a new issue and returns it with server-populated
// fields.
func (j *JiraAdapter) CreateIssue(ctx context.Context, request *itsm.IssueCreateRequest) (*itsm.Issue, error) {
	project := request.Project
	if project == "" {
		project = j.project
	}

	if project == "" {
		return nil, &itsm.ConfigError{
			Message:  "project key is required, set a default project or provide one explicitly",
			Provider: j.provider,
			Details:  map[string]interface{}{"field": "project"},
			Err:      itsm.ErrProjectRequired,
		}
	}

	issueType := request.IssueType
	if issueType == "" {
		issueType = "Task"
	}

	fields := map[string]interface{}{
		"project":   map[string]interface{}{"key": project},
		"summary":   request.Summary,
		"issuetype": map[string]interface{}{"name": issueType},
	}

	if request.Description != "" {
		fields["description"] = toADF(request.Description)
	}

	if len(request.Labels) > 0 {
		fields["labels"] = request.Labels
	}

	if request.ParentKey != "" {
		fields["parent"] = map[string]interface{}{"key": request.ParentKey}
	}

	if request.Priority != "" {
		fields["priority"] = map[string]interface{}{"name": request.Priority}
	}

	if request.Assignee != "" {
		fields["assignee"] = assigneeField(request.Assignee)
	}

	for key, value := range request.Fields {
		fields[key] = value
	}

	j.debug("creating issue", map[string]interface{}{"project": project, "summary": request.Summary})

	data, err := j.http.Post(ctx, jiraAPIv3+"/issue", map[string]interface{}{"fields": fields})
	if err != nil {
		return nil, err
	}

	issueKey := getString(data, "key")
	j.info("created issue", map[string]interface{}{"key": issueKey})

	created, err := j.GetIssue(ctx, issueKey)
	if err != nil || created == nil {
		// The issue exists even if the follow-up fetch failed.
		return &itsm.Issue{
			Key:       issueKey,
			Summary:   request.Summary,
			IssueType: issueType,
			Status:    "To Do",
			Labels:    request.Labels,
			URL:       j.browseURL(issueKey),
			Provider:  j.provider,
		}, nil
	}

	return created, nil
}

// Search finds issues matching a JQL query. Results are capped at 100 per
// call.
func (j *JiraAdapter) Search(ctx context.Context, query string, opts *itsm.IssueSearchOptions) ([]itsm.Issue, error) {
	if opts == nil {
		opts = &itsm.IssueSearchOptions{}
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}

	if maxResults > maxSearchResults {
		maxResults = maxSearchResults
	}

	params := url.Values{}
	params.Set("jql", query)
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("expand", "renderedFields")

	if len(opts.Fields) > 0 {
		params.Set("fields", strings.Join(opts.Fields, ","))
	}

	j.debug("searching issues", map[string]interface{}{"jql": query})

	data, err := j.http.Get(ctx, jiraAPIv3+"/search", params)
	if err != nil {
		return nil, err
	}

	raw := getSlice(data, "issues")
	issues := make([]itsm.Issue, 0, len(raw))

	for _, item := range raw {
		issueData, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		issues = append(issues, *j.parseIssue(issueData))
	}

	return issues, nil
}

// Transition moves an issue to a new status. The target is matched
// case-insensitively against both transition names and their destination
// statuses; an unavailable target is a failed Result, not an error.
func (j *JiraAdapter) Transition(ctx context.Context, issueKey, status string) (*itsm.Result, error) {
	transitions, err := j.listTransitions(ctx, issueKey)
	if err != nil {
		return nil, err
	}

	target := findTransition(transitions, status)
	if target == nil {
		available := transitionNames(transitions)

		return &itsm.Result{
			Status:     itsm.ResultFailed,
			Message:    fmt.Sprintf("transition to %q not available, available: %v", status, available),
			ResourceID: issueKey,
			Details:    map[string]interface{}{"available_transitions": available},
		}, nil
	}

	payload := map[string]interface{}{
		"transition": map[string]interface{}{"id": getString(target, "id")},
	}

	if _, err := j.http.Post(ctx, jiraAPIv3+"/issue/"+issueKey+"/transitions", payload); err != nil {
		return nil, err
	}

	j.info("transitioned issue", map[string]interface{}{"key": issueKey, "status": status})

	return &itsm.Result{
		Status:      itsm.ResultSuccess,
		Message:     "transitioned to " + status,
		ResourceID:  issueKey,
		ResourceURL: j.browseURL(issueKey),
	}, nil
}

// Comment adds a comment to an issue.
func (j *JiraAdapter) Comment(ctx context.Context, issueKey, body string) (*itsm.Result, error) {
	payload := map[string]interface{}{"body": toADF(body)}

	if _, err := j.http.Post(ctx, jiraAPIv3+"/issue/"+issueKey+"/comment", payload); err != nil {
		return nil, err
	}

	j.info("added comment", map[string]interface{}{"key": issueKey})

	return &itsm.Result{
		Status:      itsm.ResultSuccess,
		Message:     "comment added",
		ResourceID:  issueKey,
		ResourceURL: j.browseURL(issueKey),
	}, nil
}

// LinkIssues links the source issue (outward) to the target issue (inward).
// An empty linkType defaults to "Relates".
func (j *JiraAdapter) LinkIssues(ctx context.Context, sourceKey, targetKey, linkType string) (*itsm.Result, error) {
	if linkType == "" {
		linkType = "Relates"
	}

	payload := map[string]interface{}{
		"type":         map[string]interface{}{"name": linkType},
		"outwardIssue": map[string]interface{}{"key": sourceKey},
		"inwardIssue":  map[string]interface{}{"key": targetKey},
	}

	if _, err := j.http.Post(ctx, jiraAPIv3+"/issueLink", payload); err != nil {
		return nil, err
	}

	j.info("linked issues", map[string]interface{}{
		"source": sourceKey,
		"target": targetKey,
		"type":   linkType,
	})

	return &itsm.Result{
		Status:     itsm.ResultSuccess,
		Message:    fmt.Sprintf("linked %s %s %s", sourceKey, strings.ToLower(linkType), targetKey),
		ResourceID: sourceKey,
	}, nil
}

// UpdateIssue applies field changes and returns the refreshed issue. A nil
// Labels slice leaves labels untouched; an empty one clears them.
func (j *JiraAdapter) UpdateIssue(ctx context.Context, issueKey string, request *itsm.IssueUpdateRequest) (*itsm.Issue, error) {
	fields := map[string]interface{}{}

	if request.Summary != "" {
		fields["summary"] = request.Summary
	}

	if request.Description != "" {
		fields["description"] = toADF(request.Description)
	}

	if request.Labels != nil {
		fields["labels"] = request.Labels
	}

	for key, value := range request.Fields {
		fields[key] = value
	}

	if len(fields) > 0 {
		if _, err := j.http.Put(ctx, jiraAPIv3+"/issue/"+issueKey, map[string]interface{}{"fields": fields}); err != nil {
			return nil, err
		}

		j.info("updated issue", map[string]interface{}{"key": issueKey})
	}

	updated, err := j.GetIssue(ctx, issueKey)
	if err != nil {
		return nil, err
	}

	if updated == nil {
		return nil, &itsm.ProviderError{
			Message:  "failed to retrieve updated issue " + issueKey,
			Provider: j.provider,
		}
	}

	return updated, nil
}

// AddLabels adds labels to an issue without removing existing ones.
func (j *JiraAdapter) AddLabels(ctx context.Context, issueKey string, labels []string) (*itsm.Result, error) {
	adds := make([]interface{}, 0, len(labels))
	for _, label := range labels {
		adds = append(adds, map[string]interface{}{"add": label})
	}

	payload := map[string]interface{}{
		"update": map[string]interface{}{"labels": adds},
	}

	if _, err := j.http.Put(ctx, jiraAPIv3+"/issue/"+issueKey, payload); err != nil {
		return nil, err
	}

	j.info("added labels", map[string]interface{}{"key": issueKey, "labels": labels})

	return &itsm.Result{
		Status:     itsm.ResultSuccess,
		Message:    "added labels: " + strings.Join(labels, ", "),
		ResourceID: issueKey,
	}, nil
}

// GetProject returns the raw project details for a project key.
func (j *JiraAdapter) GetProject(ctx context.Context, projectKey string) (map[string]interface{}, error) {
	return j.http.Get(ctx, jiraAPIv3+"/project/"+projectKey, nil)
}

func (j *JiraAdapter) listTransitions(ctx context.Context, issueKey string) ([]map[string]interface{}, error) {
	data, err := j.http.Get(ctx, jiraAPIv3+"/issue/"+issueKey+"/transitions", nil)
	if err != nil {
		return nil, err
	}

	raw := getSlice(data, "transitions")
	transitions := make([]map[string]interface{}, 0, len(raw))

	for _, item := range raw {
		if transition, ok := item.(map[string]interface{}); ok {
			transitions = append(transitions, transition)
		}
	}

	return transitions, nil
}

func findTransition(transitions []map[string]interface{}, status string) map[string]interface{} {
	for _, transition := range transitions {
		if strings.EqualFold(getString(transition, "name"), status) {
			return transition
		}

		if strings.EqualFold(getString(getMap(transition, "to"), "name"), status) {
			return transition
		}
	}

	return nil
}

func transitionNames(transitions []map[string]interface{}) []string {
	names := make([]string, 0, len(transitions))
	for _, transition := range transitions {
		names = append(names, getString(transition, "name"))
	}

	return names
}

func assigneeField(assignee string) map[string]interface{} {
	if strings.Contains(assignee, "@") {
		return map[string]interface{}{"emailAddress": assignee}
	}

	return map[string]interface{}{"accountId": assignee}
}

func (j *JiraAdapter) parseIssue(data map[string]interface{}) *itsm.Issue {
	fields := getMap(data, "fields")
	key := getString(data, "key")

	issue := &itsm.Issue{
		Key:       key,
		Summary:   getString(fields, "summary"),
		IssueType: getString(getMap(fields, "issuetype"), "name"),
		Status:    getString(getMap(fields, "status"), "name"),
		Assignee:  personName(getMap(fields, "assignee")),
		Reporter:  personName(getMap(fields, "reporter")),
		Labels:    getStrings(fields, "labels"),
		Priority:  getString(getMap(fields, "priority"), "name"),
		CreatedAt: parseTimestamp(getString(fields, "created")),
		UpdatedAt: parseTimestamp(getString(fields, "updated")),
		URL:       j.browseURL(key),
		ParentKey: getString(getMap(fields, "parent"), "key"),
		Provider:  j.provider,
		Raw:       data,
	}

	if description, ok := fields["description"].(map[string]interface{}); ok {
		issue.Description = fromADF(description)
	}

	return issue
}
