package atlassian

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/itsm/pkg/itsm"
)

// ProviderConfluence is the registry name of the Confluence wiki adapter.
const ProviderConfluence = "atlassian_confluence"

// Confluence REST API roots. CQL search only exists on the v1 API; all
// other operations use v2.
const (
	confluenceAPIv2 = "/wiki/api/v2"
	confluenceAPIv1 = "/wiki/rest/api"
)

func init() {
	itsm.RegisterWikiProvider(ProviderConfluence, func(cfg *itsm.Config) (itsm.WikiProvider, error) {
		return NewConfluenceAdapter(cfg)
	})
}

// ConfluenceAdapter implements the WikiProvider interface against the
// Confluence Cloud REST API.
type ConfluenceAdapter struct {
	*client
	space string
}

// NewConfluenceAdapter creates a Confluence adapter.
func NewConfluenceAdapter(cfg *itsm.Config) (*ConfluenceAdapter, error) {
	if cfg == nil {
		cfg = &itsm.Config{}
	}

	base, err := newClient(ProviderConfluence, cfg)
	if err != nil {
		return nil, err
	}

	return &ConfluenceAdapter{client: base, space: cfg.Space}, nil
}

// Connect validates credentials by listing spaces.
func (c *ConfluenceAdapter) Connect(ctx context.Context) error {
	if c.connected {
		return nil
	}

	query := url.Values{}
	query.Set("limit", "1")

	if _, err := c.http.Get(ctx, confluenceAPIv2+"/spaces", query); err != nil {
		return err
	}

	c.connected = true
	c.info("connected", map[string]interface{}{"base_url": c.http.BaseURL()})

	return nil
}

// GetPage returns the page with the given ID, or nil if it does not exist.
func (c *ConfluenceAdapter) GetPage(ctx context.Context, pageID string) (*itsm.Page, error) {
	query := url.Values{}
	query.Set("body-format", "storage")

	data, err := c.http.Get(ctx, confluenceAPIv2+"/pages/"+pageID, query)
	if err != nil {
		if itsm.IsNotFound(err) {
			c.debug("page not found", map[string]interface{}{"id": pageID})

			return nil, nil
		}

		return nil, err
	}

	return c.parsePage(data), nil
}

// GetPageByPath returns the page with the given title in a space, or nil if
// no page matches.
func (c *ConfluenceAdapter) GetPageByPath(ctx context.Context, space, path string) (*itsm.Page, error) {
	query := url.Values{}
	query.Set("title", path)
	query.Set("body-format", "storage")

	data, err := c.http.Get(ctx, confluenceAPIv2+"/spaces/"+space+"/pages", query)
	if err != nil {
		if itsm.IsNotFound(err) {
			return nil, nil
		}

		return nil, err
	}

	results := getSlice(data, "results")
	if len(results) == 0 {
		return nil, nil
	}

	pageData, ok := results[0].(map[string]interface{})
	if !ok {
		return nil, nil
	}

	return c.parsePage(pageData), nil
}

// CreatePage creates a new page in storage format and returns it with
// server-populated fields.
func (c *ConfluenceAdapter) CreatePage(ctx context.Context, request *itsm.PageCreateRequest) (*itsm.Page, error) {
	space := request.Space
	if space == "" {
		space = c.space
	}

	if space == "" {
		return nil, &itsm.ConfigError{
			Message:  "space key is required, set a default space or provide one explicitly",
			Provider: c.provider,
			Details:  map[string]interface{}{"field": "space"},
			Err:      itsm.ErrSpaceRequired,
		}
	}

	spaceID, err := c.spaceID(ctx, space)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"spaceId": spaceID,
		"status":  "current",
		"title":   request.Title,
		"body": map[string]interface{}{
			"representation": "storage",
			"value":          request.Content,
		},
	}

	if request.ParentID != "" {
		payload["parentId"] = request.ParentID
	}

	c.debug("creating page", map[string]interface{}{"space": space, "title": request.Title})

	data, err := c.http.Post(ctx, confluenceAPIv2+"/pages", payload)
	if err != nil {
		return nil, err
	}

	pageID := stringID(data["id"])
	c.info("created page", map[string]interface{}{"id": pageID, "title": request.Title})

	created, err := c.GetPage(ctx, pageID)
	if err != nil || created == nil {
		return &itsm.Page{
			ID:       pageID,
			Title:    request.Title,
			Content:  request.Content,
			Space:    space,
			Version:  1,
			Provider: c.provider,
		}, nil
	}

	return created, nil
}

// UpdatePage replaces a page's content, bumping the version number. The
// title is kept unless the request sets a new one.
func (c *ConfluenceAdapter) UpdatePage(ctx context.Context, pageID string, request *itsm.PageUpdateRequest) (*itsm.Page, error) {
	current, err := c.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}

	if current == nil {
		return nil, &itsm.NotFoundError{
			Message:  "page " + pageID + " not found",
			Provider: c.provider,
			Details:  map[string]interface{}{"resource_type": "page", "resource_id": pageID},
		}
	}

	title := request.Title
	if title == "" {
		title = current.Title
	}

	payload := map[string]interface{}{
		"id":     pageID,
		"status": "current",
		"title":  title,
		"body": map[string]interface{}{
			"representation": "storage",
			"value":          request.Content,
		},
		"version": map[string]interface{}{
			"number": current.Version + 1,
		},
	}

	c.debug("updating page", map[string]interface{}{
		"id":           pageID,
		"from_version": current.Version,
	})

	if _, err := c.http.Put(ctx, confluenceAPIv2+"/pages/"+pageID, payload); err != nil {
		return nil, err
	}

	c.info("updated page", map[string]interface{}{"id": pageID})

	updated, err := c.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}

	if updated == nil {
		return nil, &itsm.ProviderError{
			Message:  "failed to retrieve updated page " + pageID,
			Provider: c.provider,
		}
	}

	return updated, nil
}

// AppendToPage appends content to an existing page's body.
func (c *ConfluenceAdapter) AppendToPage(ctx context.Context, pageID, content string) (*itsm.Page, error) {
	current, err := c.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}

	if current == nil {
		return nil, &itsm.NotFoundError{
			Message:  "page " + pageID + " not found",
			Provider: c.provider,
			Details:  map[string]interface{}{"resource_type": "page", "resource_id": pageID},
		}
	}

	return c.UpdatePage(ctx, pageID, &itsm.PageUpdateRequest{
		Content: current.Content + content,
		Title:   current.Title,
	})
}

// Search finds pages via CQL. A plain-text query is wrapped in a text match;
// anything containing CQL operators is passed through as-is.
func (c *ConfluenceAdapter) Search(ctx context.Context, query string, opts *itsm.PageSearchOptions) ([]itsm.Page, error) {
	if opts == nil {
		opts = &itsm.PageSearchOptions{}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 25
	}

	if limit > maxSearchResults {
		limit = maxSearchResults
	}

	cqlParts := []string{}

	if isStructuredQuery(query) {
		cqlParts = append(cqlParts, query)
	} else {
		cqlParts = append(cqlParts, fmt.Sprintf("text ~ %q", query))
	}

	if opts.Space != "" {
		cqlParts = append(cqlParts, fmt.Sprintf("space = %q", opts.Space))
	}

	cql := strings.Join(cqlParts, " AND ")

	params := url.Values{}
	params.Set("cql", cql)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("expand", "space,version,body.storage")

	c.debug("searching pages", map[string]interface{}{"cql": cql})

	data, err := c.http.Get(ctx, confluenceAPIv1+"/content/search", params)
	if err != nil {
		return nil, err
	}

	raw := getSlice(data, "results")
	pages := make([]itsm.Page, 0, len(raw))

	for _, item := range raw {
		pageData, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		pages = append(pages, *c.parsePageV1(pageData))
	}

	return pages, nil
}

// GetPageChildren returns the direct children of a page.
func (c *ConfluenceAdapter) GetPageChildren(ctx context.Context, pageID string) ([]itsm.Page, error) {
	query := url.Values{}
	query.Set("body-format", "storage")

	data, err := c.http.Get(ctx, confluenceAPIv2+"/pages/"+pageID+"/children", query)
	if err != nil {
		return nil, err
	}

	raw := getSlice(data, "results")
	pages := make([]itsm.Page, 0, len(raw))

	for _, item := range raw {
		pageData, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		pages = append(pages, *c.parsePage(pageData))
	}

	return pages, nil
}

// DeletePage deletes a page.
func (c *ConfluenceAdapter) DeletePage(ctx context.Context, pageID string) error {
	if _, err := c.http.Delete(ctx, confluenceAPIv2+"/pages/"+pageID); err != nil {
		return err
	}

	c.info("deleted page", map[string]interface{}{"id": pageID})

	return nil
}

// AddLabels attaches labels to a page, one call per label.
func (c *ConfluenceAdapter) AddLabels(ctx context.Context, pageID string, labels []string) error {
	for _, label := range labels {
		payload := map[string]interface{}{"name": label}

		if _, err := c.http.Post(ctx, confluenceAPIv2+"/pages/"+pageID+"/labels", payload); err != nil {
			return err
		}
	}

	c.debug("added labels", map[string]interface{}{"id": pageID, "labels": labels})

	return nil
}

// spaceID resolves a space key to its numeric ID.
func (c *ConfluenceAdapter) spaceID(ctx context.Context, spaceKey string) (string, error) {
	query := url.Values{}
	query.Set("keys", spaceKey)

	data, err := c.http.Get(ctx, confluenceAPIv2+"/spaces", query)
	if err != nil {
		return "", err
	}

	results := getSlice(data, "results")
	if len(results) == 0 {
		return "", &itsm.NotFoundError{
			Message:  "space " + spaceKey + " not found",
			Provider: c.provider,
			Details:  map[string]interface{}{"resource_type": "space", "resource_id": spaceKey},
		}
	}

	spaceData, ok := results[0].(map[string]interface{})
	if !ok {
		return "", &itsm.ProviderError{
			Message:  "unexpected space listing shape",
			Provider: c.provider,
		}
	}

	return stringID(spaceData["id"]), nil
}

// isStructuredQuery detects queries that already carry CQL/JQL operators.
func isStructuredQuery(query string) bool {
	for _, op := range []string{"=", "~", "AND", "OR", "NOT", "ORDER BY"} {
		if strings.Contains(query, op) {
			return true
		}
	}

	return false
}

// stringID normalizes Confluence IDs, which arrive as either strings or
// JSON numbers depending on endpoint.
func stringID(value interface{}) string {
	switch id := value.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatInt(int64(id), 10)
	default:
		return ""
	}
}

func (c *ConfluenceAdapter) parsePage(data map[string]interface{}) *itsm.Page {
	version := getMap(data, "version")

	page := &itsm.Page{
		ID:        stringID(data["id"]),
		Title:     getString(data, "title"),
		Content:   getString(getMap(getMap(data, "body"), "storage"), "value"),
		Space:     stringID(data["spaceId"]),
		Version:   versionNumber(version),
		Author:    getString(version, "authorId"),
		CreatedAt: parseTimestamp(getString(data, "createdAt")),
		UpdatedAt: parseTimestamp(getString(version, "createdAt")),
		URL:       c.http.BaseURL() + "/wiki" + getString(getMap(data, "_links"), "webui"),
		ParentID:  stringID(data["parentId"]),
		Provider:  c.provider,
		Raw:       data,
	}

	return page
}

func (c *ConfluenceAdapter) parsePageV1(data map[string]interface{}) *itsm.Page {
	version := getMap(data, "version")

	author := getString(getMap(version, "by"), "email")
	if author == "" {
		author = getString(getMap(version, "by"), "displayName")
	}

	return &itsm.Page{
		ID:        stringID(data["id"]),
		Title:     getString(data, "title"),
		Content:   getString(getMap(getMap(data, "body"), "storage"), "value"),
		Space:     getString(getMap(data, "space"), "key"),
		Version:   versionNumber(version),
		Author:    author,
		CreatedAt: parseTimestamp(getString(getMap(data, "history"), "createdDate")),
		UpdatedAt: parseTimestamp(getString(version, "when")),
		URL:       c.http.BaseURL() + "/wiki" + getString(getMap(data, "_links"), "webui"),
		Provider:  c.provider,
		Raw:       data,
	}
}

func versionNumber(version map[string]interface{}) int {
	if number := getInt(version, "number"); number > 0 {
		return number
	}

	return 1
}
