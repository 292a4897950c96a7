// Package auth resolves API credentials from explicit values, environment
// variables, the system secret store, and .env files, in that order.
package auth

import (
	"errors"
	"sort"
	"strings"

	"github.com/fivetwenty-io/itsm/pkg/itsm"
)

// DefaultService is the secret store service name used when none is given.
const DefaultService = "itsm-atlassian"

// Environment variables consulted during resolution.
const (
	EnvBaseURL  = "JIRA_BASE_URL"
	EnvEmail    = "JIRA_USER_EMAIL"
	EnvAPIToken = "JIRA_API_TOKEN"
)

// Secret store keys, one per credential field.
const (
	KeyBaseURL  = "base_url"
	KeyEmail    = "user_email"
	KeyAPIToken = "api_token"
)

// Credentials is a fully resolved set of API credentials.
type Credentials struct {
	BaseURL  string
	Email    string
	APIToken string
}

// Resolver resolves credentials from the four supported sources. Each field
// resolves independently, so a partial explicit config can be completed from
// the environment or the store.
type Resolver struct {
	service string
	store   Store
	environ func(string) string
	logger  itsm.Logger
	debug   bool
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithService sets the secret store service name.
func WithService(service string) ResolverOption {
	return func(r *Resolver) {
		if service != "" {
			r.service = service
		}
	}
}

// WithStore replaces the system secret store.
func WithStore(store Store) ResolverOption {
	return func(r *Resolver) {
		r.store = store
	}
}

// WithEnviron replaces the environment lookup function.
func WithEnviron(environ func(string) string) ResolverOption {
	return func(r *Resolver) {
		r.environ = environ
	}
}

// WithResolverLogger sets a logger for debug output.
func WithResolverLogger(logger itsm.Logger, debug bool) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
		r.debug = debug
	}
}

// NewResolver creates a credential resolver backed by the system secret
// store.
func NewResolver(opts ...ResolverOption) *Resolver {
	resolver := &Resolver{
		service: DefaultService,
		store:   SystemStore{},
		environ: envLookup,
	}

	for _, opt := range opts {
		opt(resolver)
	}

	return resolver
}

// Resolve fills each credential field from the highest-priority source that
// has it: explicit value, environment variable, secret store, then the
// nearest .env file. Missing fields are reported together in a single
// error.
func (r *Resolver) Resolve(baseURL, email, apiToken string) (*Credentials, error) {
	var dotenv map[string]string

	loadDotenv := func() map[string]string {
		if dotenv == nil {
			dotenv = r.readDotenv()
		}

		return dotenv
	}

	resolve := func(explicit, envVar string) string {
		if explicit != "" {
			return explicit
		}

		if value := r.environ(envVar); value != "" {
			return value
		}

		if value := r.storeGet(storeKey(envVar)); value != "" {
			return value
		}

		return loadDotenv()[envVar]
	}

	creds := &Credentials{
		BaseURL:  resolve(baseURL, EnvBaseURL),
		Email:    resolve(email, EnvEmail),
		APIToken: resolve(apiToken, EnvAPIToken),
	}

	var missing []string

	if creds.BaseURL == "" {
		missing = append(missing, "base_url")
	}

	if creds.Email == "" {
		missing = append(missing, "email")
	}

	if creds.APIToken == "" {
		missing = append(missing, "api_token")
	}

	if len(missing) > 0 {
		sort.Strings(missing)

		return nil, &itsm.ConfigError{
			Message: "missing credentials: " + strings.Join(missing, ", ") +
				". Provide them explicitly, via environment variables, the system keyring, or a .env file",
			Details: map[string]interface{}{"missing": missing},
			Err:     itsm.ErrMissingCredentials,
		}
	}

	creds.BaseURL = strings.TrimRight(creds.BaseURL, "/")

	return creds, nil
}

// Save writes all three credential fields to the secret store. Fields are
// written independently; the first failure aborts.
func (r *Resolver) Save(creds *Credentials) error {
	entries := []struct {
		key   string
		value string
	}{
		{KeyBaseURL, creds.BaseURL},
		{KeyEmail, creds.Email},
		{KeyAPIToken, creds.APIToken},
	}

	for _, entry := range entries {
		if err := r.store.Set(r.service, entry.key, entry.value); err != nil {
			return &itsm.ConfigError{
				Message: "saving credentials to secret store failed: " + err.Error(),
				Details: map[string]interface{}{"service": r.service, "key": entry.key},
			}
		}
	}

	return nil
}

// Delete removes all stored credential fields. Keys that are already absent
// are skipped.
func (r *Resolver) Delete() error {
	for _, key := range []string{KeyBaseURL, KeyEmail, KeyAPIToken} {
		err := r.store.Delete(r.service, key)
		if err != nil && !errors.Is(err, ErrStoreKeyNotFound) {
			return &itsm.ConfigError{
				Message: "deleting credentials from secret store failed: " + err.Error(),
				Details: map[string]interface{}{"service": r.service, "key": key},
			}
		}
	}

	return nil
}

// storeGet reads one key from the secret store, swallowing failures. A
// locked or absent keyring must not break resolution from other sources.
func (r *Resolver) storeGet(key string) string {
	value, err := r.store.Get(r.service, key)
	if err != nil {
		if r.debug && r.logger != nil && !errors.Is(err, ErrStoreKeyNotFound) {
			r.logger.Debug("secret store lookup failed", map[string]interface{}{
				"service": r.service,
				"key":     key,
				"error":   err.Error(),
			})
		}

		return ""
	}

	return value
}

func (r *Resolver) readDotenv() map[string]string {
	values, err := FindDotenv("")
	if err != nil {
		if r.debug && r.logger != nil {
			r.logger.Debug("reading .env file failed", map[string]interface{}{
				"error": err.Error(),
			})
		}

		return map[string]string{}
	}

	return values
}

func storeKey(envVar string) string {
	switch envVar {
	case EnvBaseURL:
		return KeyBaseURL
	case EnvEmail:
		return KeyEmail
	default:
		return KeyAPIToken
	}
}
