// Package http provides the HTTP request engine shared by all adapters:
// bounded retries with exponential backoff, status-code-driven error
// classification, and rate-limit-aware waiting.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/itsm/pkg/itsm"
	"github.com/hashicorp/go-retryablehttp"
)

// Default client tuning.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultMaxRetries    = 3
	DefaultBackoffFactor = 2.0
	DefaultRetryWaitMax  = 30 * time.Second
)

// DefaultRetryableStatuses are the status codes that trigger a retry when
// budget remains.
var DefaultRetryableStatuses = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// BasicAuth carries the identity/secret pair sent as HTTP basic auth.
type BasicAuth struct {
	Username string
	Password string
}

// Request represents one logical API request.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Headers map[string]string

	// RetryableStatuses overrides the client's retryable status set for this
	// request only. 429 is always eligible for retry regardless of this set.
	RetryableStatuses []int
}

// Response represents an API response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Client is a retrying JSON HTTP client. Each Client owns one connection
// pool; it is not shared across adapter instances.
type Client struct {
	baseURL       string
	provider      string
	auth          *BasicAuth
	retryClient   *retryablehttp.Client
	userAgent     string
	logger        itsm.Logger
	debug         bool
	timeout       time.Duration
	maxRetries    int
	backoffFactor float64
	retryWaitMax  time.Duration
	retryable     map[int]bool
}

// Option is a functional option for configuring the client.
type Option func(*Client)

// WithProvider sets the provider tag attached to classified errors.
func WithProvider(name string) Option {
	return func(c *Client) {
		c.provider = name
	}
}

// WithLogger sets a logger for the client.
func WithLogger(logger itsm.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRetryConfig sets the retry budget and the exponential backoff factor.
// A request makes at most maxRetries+1 attempts.
func WithRetryConfig(maxRetries int, backoffFactor float64) Option {
	return func(c *Client) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}

		if backoffFactor >= 1.0 {
			c.backoffFactor = backoffFactor
		}
	}
}

// WithRetryWaitMax caps the delay slept between attempts.
func WithRetryWaitMax(max time.Duration) Option {
	return func(c *Client) {
		if max >= 0 {
			c.retryWaitMax = max
		}
	}
}

// WithRetryableStatuses replaces the default retryable status set.
func WithRetryableStatuses(statuses ...int) Option {
	return func(c *Client) {
		c.retryable = statusSet(statuses)
	}
}

// NewClient creates a new HTTP client for the given base URL. A trailing
// slash on baseURL is stripped.
func NewClient(baseURL string, auth *BasicAuth, opts ...Option) *Client {
	client := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		auth:          auth,
		timeout:       DefaultTimeout,
		maxRetries:    DefaultMaxRetries,
		backoffFactor: DefaultBackoffFactor,
		retryWaitMax:  DefaultRetryWaitMax,
		retryable:     statusSet(DefaultRetryableStatuses),
	}

	for _, opt := range opts {
		opt(client)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = &http.Client{Timeout: client.timeout}
	retryClient.RetryMax = client.maxRetries
	retryClient.RetryWaitMin = 0
	retryClient.RetryWaitMax = client.retryWaitMax
	retryClient.Logger = nil
	retryClient.CheckRetry = client.checkRetry
	retryClient.Backoff = client.backoff
	// Pass the last response through unclosed so Do can classify it.
	retryClient.ErrorHandler = func(resp *http.Response, err error, _ int) (*http.Response, error) {
		return resp, err
	}

	client.retryClient = retryClient

	return client
}

// CloseIdleConnections releases the client's pooled connections.
func (c *Client) CloseIdleConnections() {
	c.retryClient.HTTPClient.CloseIdleConnections()
}

// retryStatusKey carries the per-request retryable status set to checkRetry.
type retryStatusKey struct{}

// checkRetry decides whether one attempt's outcome is retryable. Terminal
// classifications (401, 403, 404, other 4xx) stop the loop immediately;
// 429 and the configured retryable statuses continue while budget remains.
func (c *Client) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	// Transport failure: timeout or connection error. Retry; exhaustion is
	// classified in Do.
	if err != nil {
		return true, nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return true, nil
	}

	retryable := c.retryable
	if override, ok := ctx.Value(retryStatusKey{}).(map[int]bool); ok {
		retryable = override
	}

	return retryable[resp.StatusCode], nil
}

// backoff computes the delay before the next attempt. For rate limiting the
// server-supplied Retry-After wins when parseable; everything else uses the
// exponential formula, capped at RetryWaitMax.
func (c *Client) backoff(min, max time.Duration, attempt int, resp *http.Response) time.Duration {
	delay := BackoffDelay(c.backoffFactor, attempt)

	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		if seconds, ok := retryAfterSeconds(resp.Header); ok {
			delay = time.Duration(seconds) * time.Second
		}
	}

	if delay > max {
		delay = max
	}

	if delay < min {
		delay = min
	}

	return delay
}

// BackoffDelay returns the exponential backoff delay for a 0-indexed
// attempt: backoffFactor^attempt seconds.
func BackoffDelay(backoffFactor float64, attempt int) time.Duration {
	return time.Duration(math.Pow(backoffFactor, float64(attempt)) * float64(time.Second))
}

// retryAfterSeconds reads an integer Retry-After header.
func retryAfterSeconds(headers http.Header) (int, bool) {
	value := headers.Get("Retry-After")
	if value == "" {
		return 0, false
	}

	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0, false
	}

	return seconds, true
}

// Do executes a request with retry handling and returns the response, or a
// classified error. A request either fully succeeds (2xx/3xx) or fails with
// exactly one of the itsm error types; there is no partial success.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	requestURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		requestURL += "?" + req.Query.Encode()
	}

	var rawBody []byte

	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}

		rawBody = encoded
	}

	if len(req.RetryableStatuses) > 0 {
		ctx = context.WithValue(ctx, retryStatusKey{}, statusSet(req.RetryableStatuses))
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, requestURL, rawBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")

	if rawBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	if c.auth != nil {
		httpReq.SetBasicAuth(c.auth.Username, c.auth.Password)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    requestURL,
		})
	}

	httpResp, err := c.retryClient.Do(httpReq)
	if err != nil {
		return nil, c.classifyTransportError(err, requestURL)
	}

	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &itsm.ConnectionError{
			Message:  "reading response body failed",
			Provider: c.provider,
			Details:  map[string]interface{}{"url": requestURL},
			Err:      err,
		}
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"method": req.Method,
			"path":   req.Path,
			"status": httpResp.StatusCode,
			"bytes":  len(body),
		})
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}

	if err := c.classifyStatus(resp, req.Path, requestURL); err != nil {
		return resp, err
	}

	return resp, nil
}

// classifyStatus maps an error status code to the error taxonomy. Retryable
// statuses only reach this point once the retry budget is exhausted.
func (c *Client) classifyStatus(resp *Response, path, requestURL string) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &itsm.AuthError{
			Message:  "authentication failed, check your credentials",
			Provider: c.provider,
			Details:  map[string]interface{}{"status_code": http.StatusUnauthorized},
		}

	case resp.StatusCode == http.StatusForbidden:
		return &itsm.AuthError{
			Message:  "access forbidden, check your permissions",
			Provider: c.provider,
			Details:  map[string]interface{}{"status_code": http.StatusForbidden, "url": requestURL},
		}

	case resp.StatusCode == http.StatusNotFound:
		return &itsm.NotFoundError{
			Message:  "resource not found: " + path,
			Provider: c.provider,
			Details:  map[string]interface{}{"status_code": http.StatusNotFound, "url": requestURL},
		}

	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter, ok := retryAfterSeconds(resp.Headers)
		if !ok {
			retryAfter = int(BackoffDelay(c.backoffFactor, c.maxRetries) / time.Second)
		}

		return &itsm.RateLimitError{
			Message:    "rate limit exceeded, try again later",
			RetryAfter: retryAfter,
			Provider:   c.provider,
			Details:    map[string]interface{}{"status_code": http.StatusTooManyRequests},
		}

	case resp.StatusCode >= http.StatusBadRequest:
		return &itsm.ProviderError{
			Message:    fmt.Sprintf("request failed: %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
			Body:       safeJSON(resp.Body),
			Provider:   c.provider,
			Details:    map[string]interface{}{"url": requestURL},
		}
	}

	return nil
}

// classifyTransportError wraps an exhausted transport failure, keeping the
// original error as cause and distinguishing timeouts from connection
// failures.
func (c *Client) classifyTransportError(err error, requestURL string) error {
	attempts := c.maxRetries + 1
	details := map[string]interface{}{"url": requestURL}

	if isTimeout(err) {
		details["timeout"] = c.timeout.String()

		return &itsm.ConnectionError{
			Message:  fmt.Sprintf("request timed out after %d attempts", attempts),
			Provider: c.provider,
			Details:  details,
			Err:      err,
		}
	}

	return &itsm.ConnectionError{
		Message:  fmt.Sprintf("connection failed after %d attempts", attempts),
		Provider: c.provider,
		Details:  details,
		Err:      err,
	}
}

func isTimeout(err error) bool {
	var netErr net.Error

	for unwrapped := err; unwrapped != nil; {
		if timeoutErr, ok := unwrapped.(net.Error); ok {
			netErr = timeoutErr

			break
		}

		u, ok := unwrapped.(interface{ Unwrap() error })
		if !ok {
			break
		}

		unwrapped = u.Unwrap()
	}

	return netErr != nil && netErr.Timeout()
}

// safeJSON parses a body as a JSON object, degrading to the raw text. Never
// fails; used to capture error bodies for diagnostics.
func safeJSON(body []byte) interface{} {
	var parsed map[string]interface{}

	if err := json.Unmarshal(body, &parsed); err != nil {
		return string(bytes.TrimSpace(body))
	}

	return parsed
}

func statusSet(statuses []int) map[int]bool {
	set := make(map[int]bool, len(statuses))
	for _, status := range statuses {
		set[status] = true
	}

	return set
}

// Get executes a GET request and parses the body as a JSON object.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (map[string]interface{}, error) {
	resp, err := c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return nil, err
	}

	return decodeObject(resp)
}

// Post executes a POST request. An empty-body success status yields an
// empty result.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (map[string]interface{}, error) {
	resp, err := c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
	if err != nil {
		return nil, err
	}

	if emptySuccess(resp) {
		return map[string]interface{}{}, nil
	}

	return decodeObject(resp)
}

// Put executes a PUT request. An empty-body success status yields an empty
// result.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (map[string]interface{}, error) {
	resp, err := c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
	if err != nil {
		return nil, err
	}

	if emptySuccess(resp) {
		return map[string]interface{}{}, nil
	}

	return decodeObject(resp)
}

// Delete executes a DELETE request. An empty-body success status yields nil
// rather than an empty object.
func (c *Client) Delete(ctx context.Context, path string) (map[string]interface{}, error) {
	resp, err := c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
	if err != nil {
		return nil, err
	}

	if emptySuccess(resp) {
		return nil, nil
	}

	return decodeObject(resp)
}

func emptySuccess(resp *Response) bool {
	return resp.StatusCode == http.StatusNoContent || len(resp.Body) == 0
}

func decodeObject(resp *Response) (map[string]interface{}, error) {
	if emptySuccess(resp) {
		return map[string]interface{}{}, nil
	}

	var result map[string]interface{}

	err := json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing response body: %w", err)
	}

	return result, nil
}

// TestConnection probes connectivity and credentials. The primary endpoint
// path differs by deployment, so a 404 falls back to the secondary "who am
// I" endpoint; a second 404 still confirms connectivity and auth.
func (c *Client) TestConnection(ctx context.Context, primaryPath, fallbackPath string) error {
	_, err := c.Get(ctx, primaryPath, nil)
	if err == nil {
		return nil
	}

	if !itsm.IsNotFound(err) {
		return err
	}

	_, err = c.Get(ctx, fallbackPath, nil)
	if err == nil || itsm.IsNotFound(err) {
		return nil
	}

	return err
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}
