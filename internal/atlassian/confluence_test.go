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

const pageResponse = `{
	"id": "12345",
	"title": "Deploy Guide",
	"spaceId": 67890,
	"parentId": "11111",
	"createdAt": "2024-01-10T09:00:00Z",
	"version": {"number": 3, "authorId": "abc123", "createdAt": "2024-02-01T12:00:00Z"},
	"body": {"storage": {"value": "<p>Run the pipeline</p>"}},
	"_links": {"webui": "/spaces/DEVOPS/pages/12345"}
}`

func TestConfluenceGetPage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wiki/api/v2/pages/12345", r.URL.Path)
		assert.Equal(t, "storage", r.URL.Query().Get("body-format"))
		_, _ = w.Write([]byte(pageResponse))
	}))
	defer server.Close()

	wiki, err := atlassian.NewConfluenceAdapter(testConfig(server.URL))
	require.NoError(t, err)

	page, err := wiki.GetPage(context.Background(), "12345")

	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, "12345", page.ID)
	assert.Equal(t, "Deploy Guide", page.Title)
	assert.Equal(t, "<p>Run the pipeline</p>", page.Content)
	assert.Equal(t, "67890", page.Space)
	assert.Equal(t, 3, page.Version)
	assert.Equal(t, "abc123", page.Author)
	assert.Equal(t, "11111", page.ParentID)
	assert.Equal(t, server.URL+"/wiki/spaces/DEVOPS/pages/12345", page.URL)
	assert.Equal(t, "atlassian_confluence", page.Provider)
	require.NotNil(t, page.CreatedAt)
	require.NotNil(t, page.UpdatedAt)
}

func TestConfluenceGetPageNotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	wiki, err := atlassian.NewConfluenceAdapter(testConfig(server.URL))
	require.NoError(t, err)

	page, err := wiki.GetPage(context.Background(), "99999")

	require.NoError(t, err)
	assert.Nil(t, page)
}

func TestConfluenceGetPageByPath(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wiki/api/v2/spaces/DEVOPS/pages", r.URL.Path)
		assert.Equal(t, "Deploy Guide", r.URL.Query().Get("title"))
		_, _ = w.Write([]byte(`{"results": [` + pageResponse + `]}`))
	}))
	defer server.Close()

	wiki, err := atlassian.NewConfluenceAdapter(testConfig(server.URL))
	require.NoError(t, err)

	page, err := wiki.GetPageByPath(context.Background(), "DEVOPS", "Deploy Guide")

	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, "12345", page.ID)
}

func TestConfluenceGetPageByPathNoMatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer server.Close()

	wiki, err := atlassian.NewConfluenceAdapter(testConfig(server.URL))
	require.NoError(t, err)

	page, err := wiki.GetPageByPath(context.Background(), "DEVOPS", "Missing Page")

	require.NoError(t, err)
	assert.Nil(t, page)
}

func TestConfluenceCreatePageRequiresSpace(t *testing.T) {
	t.Parallel()

	wiki, err := atlassian.NewConfluenceAdapter(testConfig("https://example.atlassian.net"))
	require.NoError(t, err)

	_, err = wiki.CreatePage(context.Background(), &itsm.PageCreateRequest{
		Title:   "Orphan",
		Content: "<p>no space</p>",
	})

	require.Error(t, err)
	assert.True(t, itsm.IsConfig(err))
	assert.ErrorIs(t, err, itsm.ErrSpaceRequired)
}

func TestConfluenceCreatePage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/wiki/api/v2/spaces":
			assert.Equal(t, "DEVOPS", r.URL.Query().Get("keys"))
			_, _ = w.Write([]byte(`{"results": [{"id": 67890, "key": "DEVOPS"}]}`))

		case r.Method == http.MethodPost:
			assert.Equal(t, "/wiki/api/v2/pages", r.URL.Path)

			body := decodeBody(t, r)
			assert.Equal(t, "67890", body["spaceId"])
			assert.Equal(t, "current", body["status"])
			assert.Equal(t, "Deploy Guide", body["title"])
			assert.Equal(t, map[string]interface{}{
				"representation": "storage",
				"value":          "<p>Run the pipeline</p>",
			}, body["body"])

			_, _ = w.Write([]byte(`{"id": "12345"}`))

		default:
			_, _ = w.Write([]byte(pageResponse))
		}
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Space = "DEVOPS"

	wiki, err := atlassian.NewConfluenceAdapter(cfg)
	require.NoError(t, err)

	page, err := wiki.CreatePage(context.Background(), &itsm.PageCreateRequest{
		Title:   "Deploy Guide",
		Content: "<p>Run the pipeline</p>",
	})

	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, "12345", page.ID)
	assert.Equal(t, 3, page.Version)
}

func TestConfluenceUpdatePageBumpsVersion(t *testing.T) {
	t.Parallel()

	var updated map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			updated = decodeBody(t, r)
		}

		_, _ = w.Write([]byte(pageResponse))
	}))
	defer server.Close()

	wiki, err := atlassian.NewConfluenceAdapter(testConfig(server.URL))
	require.NoError(t, err)

	page, err := wiki.UpdatePage(context.Background(), "12345", &itsm.PageUpdateRequest{
		Content: "<p>Updated steps</p>",
	})

	require.NoError(t, err)
	require.NotNil(t, page)

	version, ok := updated["version"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(4), version["number"])
	// Title carried over from the current page.
	assert.Equal(t, "Deploy Guide", updated["title"])
}

func TestConfluenceUpdateMissingPage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	wiki, err := atlassian.NewConfluenceAdapter(testConfig(server.URL))
	require.NoError(t, err)

	_, err = wiki.UpdatePage(context.Background(), "99999", &itsm.PageUpdateRequest{Content: "x"})

	require.Error(t, err)
	assert.True(t, itsm.IsNotFound(err))
}

func TestConfluenceAppendToPage(t *testing.T) {
	t.Parallel()

	var updated map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			updated = decodeBody(t, r)
		}

		_, _ = w.Write([]byte(pageResponse))
	}))
	defer server.Close()

	wiki, err := atlassian.NewConfluenceAdapter(testConfig(server.URL))
	require.NoError(t, err)

	_, err = wiki.AppendToPage(context.Background(), "12345", "<h2>Rollback</h2>")

	require.NoError(t, err)

	body, ok := updated["body"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "<p>Run the pipeline</p><h2>Rollback</h2>", body["value"])
}

func TestConfluenceSearchTextQuery(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wiki/rest/api/content/search", r.URL.Path)
		assert.Equal(t, `text ~ "deployment guide" AND space = "DEVOPS"`, r.URL.Query().Get("cql"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))

		_, _ = w.Write([]byte(`{"results": [{
			"id": "12345",
			"title": "Deploy Guide",
			"space": {"key": "DEVOPS"},
			"version": {"number": 3, "when": "2024-02-01T12:00:00Z", "by": {"email": "author@example.com"}},
			"body": {"storage": {"value": "<p>Run the pipeline</p>"}},
			"_links": {"webui": "/spaces/DEVOPS/pages/12345"}
		}]}`))
	}))
	defer server.Close()

	wiki, err := atlassian.NewConfluenceAdapter(testConfig(server.URL))
	require.NoError(t, err)

	pages, err := wiki.Search(context.Background(), "deployment guide", &itsm.PageSearchOptions{Space: "DEVOPS"})

	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "Deploy Guide", pages[0].Title)
	assert.Equal(t, "DEVOPS", pages[0].Space)
	assert.Equal(t, "author@example.com", pages[0].Author)
}

func TestConfluenceSearchCQLPassthrough(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "type=page AND label=runbook", r.URL.Query().Get("cql"))
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer server.Close()

	wiki, err := atlassian.NewConfluenceAdapter(testConfig(server.URL))
	require.NoError(t, err)

	pages, err := wiki.Search(context.Background(), "type=page AND label=runbook", nil)

	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestConfluenceConnect(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wiki/api/v2/spaces", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer server.Close()

	wiki, err := atlassian.NewConfluenceAdapter(testConfig(server.URL))
	require.NoError(t, err)

	require.NoError(t, wiki.Connect(context.Background()))
	require.NoError(t, wiki.Close())
}

func TestConfluenceDeletePage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/wiki/api/v2/pages/12345", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	wiki, err := atlassian.NewConfluenceAdapter(testConfig(server.URL))
	require.NoError(t, err)

	require.NoError(t, wiki.DeletePage(context.Background(), "12345"))
}
