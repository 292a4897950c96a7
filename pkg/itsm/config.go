package itsm

import (
	"time"
)

// Default client tuning values.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultMaxRetries    = 3
	DefaultBackoffFactor = 2.0
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents adapter configuration.
//
// Credentials (BaseURL, Email, APIToken) are optional overrides: any field
// left empty is resolved from the environment, the OS secret store, or a
// local .env file, in that order. Zero values for the tuning fields mean
// "use the default" (30s timeout, 3 retries, backoff factor 2.0).
type Config struct {
	// Explicit credential overrides. Highest-precedence resolution source.
	BaseURL  string
	Email    string
	APIToken string

	// Service is the secret store namespace used during credential
	// resolution. Empty means the adapter's default namespace.
	Service string

	// Provider-specific defaults.
	// Project: default project key for creating issues (issue trackers).
	Project string
	// Space: default space key for creating pages (wiki providers).
	Space string
	// ServiceDesk: default service desk for creating incidents.
	ServiceDesk string

	// HTTP tuning.
	Timeout       time.Duration
	MaxRetries    int
	BackoffFactor float64
	RetryWaitMax  time.Duration

	// Debug enables verbose HTTP request/response logging when a Logger is
	// provided.
	Debug bool
	// Logger: optional structured logger used by the HTTP layer and adapters.
	Logger Logger
	// UserAgent overrides the default User-Agent header.
	UserAgent string
}
