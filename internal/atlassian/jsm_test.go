package atlassian_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fivetwenty-io/itsm/internal/atlassian"
	"github.com/fivetwenty-io/itsm/pkg/itsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const incidentResponse = `{
	"key": "SD-100",
	"fields": {
		"summary": "Database down",
		"status": {"name": "Open"},
		"priority": {"name": "Highest"},
		"components": [{"name": "postgres"}],
		"labels": ["outage"],
		"created": "2024-03-01T02:00:00.000+0000",
		"resolutiondate": "2024-03-01T04:30:00.000+0000",
		"resolution": {"name": "Done"},
		"issuelinks": [
			{"outwardIssue": {"key": "PROJ-7"}},
			{"inwardIssue": {"key": "PROJ-9"}}
		],
		"description": {
			"type": "doc",
			"version": 1,
			"content": [
				{"type": "paragraph", "content": [{"type": "text", "text": "Primary is unreachable"}]}
			]
		}
	}
}`

func TestJSMGetIncident(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/issue/SD-100", r.URL.Path)
		_, _ = w.Write([]byte(incidentResponse))
	}))
	defer server.Close()

	jsm, err := atlassian.NewJSMAdapter(testConfig(server.URL))
	require.NoError(t, err)

	incident, err := jsm.GetIncident(context.Background(), "SD-100")

	require.NoError(t, err)
	require.NotNil(t, incident)
	assert.Equal(t, "SD-100", incident.Key)
	assert.Equal(t, "Database down", incident.Summary)
	assert.Equal(t, "Primary is unreachable", incident.Description)
	assert.Equal(t, itsm.SeverityCritical, incident.Severity)
	assert.Equal(t, "Open", incident.Status)
	assert.Equal(t, "postgres", incident.Service)
	assert.Equal(t, []string{"outage"}, incident.Labels)
	assert.Equal(t, "Done", incident.Resolution)
	assert.Equal(t, []string{"PROJ-7", "PROJ-9"}, incident.LinkedIssues)
	require.NotNil(t, incident.ResolvedAt)
	assert.Equal(t, "atlassian_jsm", incident.Provider)
}

func TestJSMGetIncidentNotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	jsm, err := atlassian.NewJSMAdapter(testConfig(server.URL))
	require.NoError(t, err)

	incident, err := jsm.GetIncident(context.Background(), "SD-999")

	require.NoError(t, err)
	assert.Nil(t, incident)
}

func TestJSMCreateIncidentRequiresServiceDesk(t *testing.T) {
	t.Parallel()

	jsm, err := atlassian.NewJSMAdapter(testConfig("https://example.atlassian.net"))
	require.NoError(t, err)

	_, err = jsm.CreateIncident(context.Background(), &itsm.IncidentCreateRequest{Summary: "no desk"})

	require.Error(t, err)
	assert.True(t, itsm.IsConfig(err))
	assert.ErrorIs(t, err, itsm.ErrServiceDeskRequired)
}

func TestJSMCreateIncident(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/servicedeskapi/servicedesk":
			_, _ = w.Write([]byte(`{"values": [{"id": "7", "projectKey": "SD"}]}`))

		case "/rest/servicedeskapi/servicedesk/7/requesttype":
			_, _ = w.Write([]byte(`{"values": [
				{"id": "25", "name": "Service Request"},
				{"id": "26", "name": "Incident"}
			]}`))

		case "/rest/servicedeskapi/request":
			body := decodeBody(t, r)
			assert.Equal(t, "7", body["serviceDeskId"])
			assert.Equal(t, float64(26), body["requestTypeId"])

			values, ok := body["requestFieldValues"].(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, "Database down", values["summary"])
			assert.Equal(t, map[string]interface{}{"name": "Highest"}, values["priority"])
			assert.Equal(t, []interface{}{map[string]interface{}{"name": "postgres"}}, values["components"])

			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"issueId": "10100", "issueKey": "SD-100"}`))

		default:
			_, _ = w.Write([]byte(incidentResponse))
		}
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.ServiceDesk = "SD"

	jsm, err := atlassian.NewJSMAdapter(cfg)
	require.NoError(t, err)

	incident, err := jsm.CreateIncident(context.Background(), &itsm.IncidentCreateRequest{
		Summary:  "Database down",
		Severity: itsm.SeverityCritical,
		Service:  "postgres",
	})

	require.NoError(t, err)
	require.NotNil(t, incident)
	assert.Equal(t, "SD-100", incident.Key)
	assert.Equal(t, itsm.SeverityCritical, incident.Severity)
}

func TestJSMSearchIncidentsBuildsJQL(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jql := r.URL.Query().Get("jql")
		assert.Contains(t, jql, `project = "SD"`)
		assert.Contains(t, jql, `status = "Open"`)
		assert.Contains(t, jql, `priority = "Highest"`)
		assert.Contains(t, jql, `type = "Service Request" OR type = "Incident"`)

		_, _ = w.Write([]byte(`{"issues": [` + incidentResponse + `]}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.ServiceDesk = "SD"

	jsm, err := atlassian.NewJSMAdapter(cfg)
	require.NoError(t, err)

	incidents, err := jsm.SearchIncidents(context.Background(), &itsm.IncidentSearchOptions{
		Status:   "Open",
		Severity: itsm.SeverityCritical,
	})

	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, "SD-100", incidents[0].Key)
}

func TestJSMSearchIncidentsTextQuery(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("jql"), `text ~ "database"`)
		_, _ = w.Write([]byte(`{"issues": []}`))
	}))
	defer server.Close()

	jsm, err := atlassian.NewJSMAdapter(testConfig(server.URL))
	require.NoError(t, err)

	_, err = jsm.SearchIncidents(context.Background(), &itsm.IncidentSearchOptions{Query: "database"})

	require.NoError(t, err)
}

func TestJSMResolveIncident(t *testing.T) {
	t.Parallel()

	var transitioned map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/rest/servicedeskapi/request/SD-100/comment":
			body := decodeBody(t, r)
			assert.Equal(t, false, body["public"])
			assert.Contains(t, body["body"], "Resolution:")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": "2000"}`))

		case r.Method == http.MethodGet:
			_, _ = w.Write([]byte(`{"transitions": [
				{"id": "21", "name": "Start Progress", "to": {"name": "In Progress"}},
				{"id": "41", "name": "Resolve this issue", "to": {"name": "Resolved"},
				 "fields": {"resolution": {"required": true}}}
			]}`))

		default:
			transitioned = decodeBody(t, r)
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	jsm, err := atlassian.NewJSMAdapter(testConfig(server.URL))
	require.NoError(t, err)

	result, err := jsm.ResolveIncident(context.Background(), "SD-100", "Failed over to replica")

	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, map[string]interface{}{"id": "41"}, transitioned["transition"])
	assert.Equal(t, map[string]interface{}{
		"resolution": map[string]interface{}{"name": "Done"},
	}, transitioned["fields"])
}

func TestJSMResolveIncidentNoTransition(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rest/servicedeskapi/request/SD-100/comment" {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": "2000"}`))

			return
		}

		_, _ = w.Write([]byte(`{"transitions": [
			{"id": "21", "name": "Start Progress", "to": {"name": "In Progress"}}
		]}`))
	}))
	defer server.Close()

	jsm, err := atlassian.NewJSMAdapter(testConfig(server.URL))
	require.NoError(t, err)

	result, err := jsm.ResolveIncident(context.Background(), "SD-100", "fixed")

	require.NoError(t, err)
	assert.Equal(t, itsm.ResultFailed, result.Status)
	assert.Contains(t, result.Message, "no resolve transition")
}

func TestJSMEscalateIncident(t *testing.T) {
	t.Parallel()

	var escalated map[string]interface{}

	var comment map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			escalated = decodeBody(t, r)
			w.WriteHeader(http.StatusNoContent)

			return
		}

		comment = decodeBody(t, r)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "2001"}`))
	}))
	defer server.Close()

	jsm, err := atlassian.NewJSMAdapter(testConfig(server.URL))
	require.NoError(t, err)

	result, err := jsm.EscalateIncident(context.Background(), "SD-100", itsm.SeverityCritical, "customer impact")

	require.NoError(t, err)
	assert.True(t, result.Success())

	fields, ok := escalated["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"name": "Highest"}, fields["priority"])
	assert.Contains(t, comment["body"], "customer impact")
}

func TestJSMAddCommentFallsBackToJiraAPI(t *testing.T) {
	t.Parallel()

	var fallback map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rest/servicedeskapi/request/SD-100/comment" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"errorMessage": "not a customer request"}`))

			return
		}

		assert.Equal(t, "/rest/api/3/issue/SD-100/comment", r.URL.Path)
		fallback = decodeBody(t, r)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "2002"}`))
	}))
	defer server.Close()

	jsm, err := atlassian.NewJSMAdapter(testConfig(server.URL))
	require.NoError(t, err)

	result, err := jsm.AddComment(context.Background(), "SD-100", "status update", false)

	require.NoError(t, err)
	assert.True(t, result.Success())

	adf, ok := fallback["body"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "doc", adf["type"])
}

func TestJSMLinkToIssue(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/issueLink", r.URL.Path)

		body := decodeBody(t, r)
		assert.Equal(t, map[string]interface{}{"name": "Relates"}, body["type"])
		assert.Equal(t, map[string]interface{}{"key": "SD-100"}, body["inwardIssue"])
		assert.Equal(t, map[string]interface{}{"key": "PROJ-7"}, body["outwardIssue"])

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	jsm, err := atlassian.NewJSMAdapter(testConfig(server.URL))
	require.NoError(t, err)

	result, err := jsm.LinkToIssue(context.Background(), "SD-100", "PROJ-7")

	require.NoError(t, err)
	assert.True(t, result.Success())
}

func TestJSMGetSLAStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/servicedeskapi/request/SD-100/sla", r.URL.Path)
		_, _ = w.Write([]byte(`{"values": [
			{
				"name": "Time to resolution",
				"ongoingCycle": {
					"breached": false,
					"paused": false,
					"goalDuration": {"millis": 14400000},
					"startTime": {"epochMillis": 1709258400000},
					"elapsedTime": {"millis": 3600000},
					"remainingTime": {"millis": 10800000}
				}
			},
			{
				"name": "Time to first response",
				"completedCycles": [
					{"breached": true, "elapsedTime": {"millis": 7200000}}
				]
			}
		]}`))
	}))
	defer server.Close()

	jsm, err := atlassian.NewJSMAdapter(testConfig(server.URL))
	require.NoError(t, err)

	statuses, err := jsm.GetSLAStatus(context.Background(), "SD-100")

	require.NoError(t, err)
	require.Len(t, statuses, 2)

	assert.Equal(t, "Time to resolution", statuses[0].Name)
	assert.False(t, statuses[0].Breached)
	assert.Equal(t, 3600, statuses[0].Elapsed)
	assert.Equal(t, 10800, statuses[0].Remaining)
	require.NotNil(t, statuses[0].Target)

	assert.Equal(t, "Time to first response", statuses[1].Name)
	assert.True(t, statuses[1].Breached)
	assert.Equal(t, 7200, statuses[1].Elapsed)
}

func TestJSMGetSLAStatusUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	jsm, err := atlassian.NewJSMAdapter(testConfig(server.URL))
	require.NoError(t, err)

	statuses, err := jsm.GetSLAStatus(context.Background(), "SD-100")

	require.NoError(t, err)
	assert.Empty(t, statuses)
}
