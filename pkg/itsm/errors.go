package itsm

import (
	"errors"
	"fmt"
)

// Static errors carried as the cause of a ConfigError, for callers that
// branch with errors.Is instead of parsing messages.
var (
	ErrNoDefaultProvider   = errors.New("no default provider configured")
	ErrProviderNotFound    = errors.New("provider not found")
	ErrMissingCredentials  = errors.New("missing credentials")
	ErrProjectRequired     = errors.New("project key is required")
	ErrSpaceRequired       = errors.New("space key is required")
	ErrServiceDeskRequired = errors.New("service desk is required")
)

// ConfigError indicates unresolved configuration: credentials missing from
// every source, or a requested provider that is not registered. Err, when
// set, is one of the static errors above and is visible to errors.Is.
type ConfigError struct {
	Message  string
	Provider string
	Details  map[string]interface{}
	Err      error
}

func (e *ConfigError) Error() string {
	return formatMessage(e.Provider, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// AuthError indicates an authentication (401) or permission (403) failure.
// The two are distinguished via Details["status_code"].
type AuthError struct {
	Message  string
	Provider string
	Details  map[string]interface{}
}

func (e *AuthError) Error() string {
	return formatMessage(e.Provider, e.Message)
}

// NotFoundError indicates the requested resource does not exist (404).
type NotFoundError struct {
	Message  string
	Provider string
	Details  map[string]interface{}
}

func (e *NotFoundError) Error() string {
	return formatMessage(e.Provider, e.Message)
}

// RateLimitError indicates the rate limit budget was exhausted (429 on every
// allowed attempt). RetryAfter is the server-supplied or computed delay in
// seconds.
type RateLimitError struct {
	Message    string
	RetryAfter int
	Provider   string
	Details    map[string]interface{}
}

func (e *RateLimitError) Error() string {
	return formatMessage(e.Provider, e.Message)
}

// ConnectionError indicates the transport failed on every allowed attempt.
// The original transport error is preserved as the cause.
type ConnectionError struct {
	Message  string
	Provider string
	Details  map[string]interface{}
	Err      error
}

func (e *ConnectionError) Error() string {
	return formatMessage(e.Provider, e.Message)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ProviderError carries any other HTTP error status along with the
// best-effort parsed response body.
type ProviderError struct {
	Message    string
	StatusCode int
	Body       interface{}
	Provider   string
	Details    map[string]interface{}
}

func (e *ProviderError) Error() string {
	return formatMessage(e.Provider, e.Message)
}

func formatMessage(provider, message string) string {
	if provider != "" {
		return fmt.Sprintf("[%s] %s", provider, message)
	}

	return message
}

// IsConfig checks if the error is a configuration error.
func IsConfig(err error) bool {
	configErr := &ConfigError{}

	return errors.As(err, &configErr)
}

// IsAuthentication checks if the error is an authentication or permission failure.
func IsAuthentication(err error) bool {
	authErr := &AuthError{}

	return errors.As(err, &authErr)
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	notFoundErr := &NotFoundError{}

	return errors.As(err, &notFoundErr)
}

// IsRateLimit checks if the error is a rate limit error.
func IsRateLimit(err error) bool {
	rateLimitErr := &RateLimitError{}

	return errors.As(err, &rateLimitErr)
}

// IsConnection checks if the error is a connection error.
func IsConnection(err error) bool {
	connErr := &ConnectionError{}

	return errors.As(err, &connErr)
}
