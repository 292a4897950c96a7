// Package atlassian implements the issue tracking, wiki, and incident
// management capability interfaces on top of Atlassian Cloud (Jira,
// Confluence, Jira Service Management).
package atlassian

import (
	"context"
	"time"

	"github.com/fivetwenty-io/itsm/internal/auth"
	internalhttp "github.com/fivetwenty-io/itsm/internal/http"
	"github.com/fivetwenty-io/itsm/pkg/itsm"
)

// Jira REST API paths shared by the Jira and JSM adapters.
const (
	jiraAPIv3 = "/rest/api/3"

	probeServerInfo = jiraAPIv3 + "/serverInfo"
	probeMyself     = jiraAPIv3 + "/myself"
)

// client is the base shared by all Atlassian adapters: credential
// resolution, the retrying HTTP engine, and connection lifecycle.
type client struct {
	provider  string
	http      *internalhttp.Client
	logger    itsm.Logger
	connected bool
}

func newClient(provider string, cfg *itsm.Config) (*client, error) {
	if cfg == nil {
		cfg = &itsm.Config{}
	}

	resolver := auth.NewResolver(
		auth.WithService(cfg.Service),
		auth.WithResolverLogger(cfg.Logger, cfg.Debug))

	creds, err := resolver.Resolve(cfg.BaseURL, cfg.Email, cfg.APIToken)
	if err != nil {
		return nil, err
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = itsm.DefaultMaxRetries
	}

	backoffFactor := cfg.BackoffFactor
	if backoffFactor == 0 {
		backoffFactor = itsm.DefaultBackoffFactor
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = itsm.DefaultTimeout
	}

	opts := []internalhttp.Option{
		internalhttp.WithProvider(provider),
		internalhttp.WithTimeout(timeout),
		internalhttp.WithRetryConfig(maxRetries, backoffFactor),
		internalhttp.WithDebug(cfg.Debug),
	}

	if cfg.Logger != nil {
		opts = append(opts, internalhttp.WithLogger(cfg.Logger))
	}

	if cfg.UserAgent != "" {
		opts = append(opts, internalhttp.WithUserAgent(cfg.UserAgent))
	}

	if cfg.RetryWaitMax > 0 {
		opts = append(opts, internalhttp.WithRetryWaitMax(cfg.RetryWaitMax))
	}

	return &client{
		provider: provider,
		http:     internalhttp.NewClient(creds.BaseURL, &internalhttp.BasicAuth{Username: creds.Email, Password: creds.APIToken}, opts...),
		logger:   cfg.Logger,
	}, nil
}

// connect validates credentials against the Jira API. Reconnecting an
// already connected client is a no-op.
func (c *client) connect(ctx context.Context) error {
	if c.connected {
		return nil
	}

	if err := c.http.TestConnection(ctx, probeServerInfo, probeMyself); err != nil {
		return err
	}

	c.connected = true
	c.info("connected", map[string]interface{}{"base_url": c.http.BaseURL()})

	return nil
}

// Close releases pooled connections. The client stays usable; the next
// request opens fresh connections.
func (c *client) Close() error {
	c.http.CloseIdleConnections()
	c.connected = false

	return nil
}

func (c *client) browseURL(key string) string {
	return c.http.BaseURL() + "/browse/" + key
}

func (c *client) info(msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.Info(msg, fields)
	}
}

func (c *client) debug(msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, fields)
	}
}

// Map helpers for picking fields out of decoded JSON responses. Atlassian
// responses nest deeply; missing intermediate keys yield zero values rather
// than panics.

func getMap(m map[string]interface{}, key string) map[string]interface{} {
	if nested, ok := m[key].(map[string]interface{}); ok {
		return nested
	}

	return map[string]interface{}{}
}

func getSlice(m map[string]interface{}, key string) []interface{} {
	if items, ok := m[key].([]interface{}); ok {
		return items
	}

	return nil
}

func getString(m map[string]interface{}, key string) string {
	if value, ok := m[key].(string); ok {
		return value
	}

	return ""
}

func getInt(m map[string]interface{}, key string) int {
	switch value := m[key].(type) {
	case float64:
		return int(value)
	case int:
		return value
	default:
		return 0
	}
}

func getBool(m map[string]interface{}, key string) bool {
	value, _ := m[key].(bool)

	return value
}

func getStrings(m map[string]interface{}, key string) []string {
	items := getSlice(m, key)
	if len(items) == 0 {
		return nil
	}

	values := make([]string, 0, len(items))

	for _, item := range items {
		if s, ok := item.(string); ok {
			values = append(values, s)
		}
	}

	return values
}

// Jira timestamps come in two shapes depending on endpoint and tenant.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	time.RFC3339,
}

func parseTimestamp(value string) *time.Time {
	if value == "" {
		return nil
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return &ts
		}
	}

	return nil
}

// personName picks the identity for an assignee/reporter object, preferring
// the email address.
func personName(person map[string]interface{}) string {
	if len(person) == 0 {
		return ""
	}

	if email := getString(person, "emailAddress"); email != "" {
		return email
	}

	return getString(person, "displayName")
}
