package itsm

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

// Constructor builds an adapter instance from configuration.
type Constructor[T any] func(config *Config) (T, error)

// Capability names used for registry listings and default-provider lookup.
const (
	CapabilityIssueTracker    = "issue_tracker"
	CapabilityWiki            = "wiki"
	CapabilityIncidentManager = "incidents"
)

// Environment variables naming the default provider per capability.
const (
	EnvIssueTrackerProvider    = "ITSM_ISSUE_TRACKER_PROVIDER"
	EnvWikiProvider            = "ITSM_WIKI_PROVIDER"
	EnvIncidentManagerProvider = "ITSM_INCIDENTS_PROVIDER"
)

// registry is a process-wide mapping from provider name to constructor for
// one capability interface. Registration happens from adapter package init
// functions; reads may come from concurrent callers, so all access is
// mutex-guarded.
type registry[T any] struct {
	mu         sync.RWMutex
	capability string
	envVar     string
	entries    map[string]Constructor[T]
}

func newRegistry[T any](capability, envVar string) *registry[T] {
	return &registry[T]{
		capability: capability,
		envVar:     envVar,
		entries:    make(map[string]Constructor[T]),
	}
}

// register adds a constructor under the given provider name. A duplicate
// name is a programmer error: two adapter packages claiming the same name
// would make lookups import-order-dependent, so it panics, matching the
// database/sql driver registration convention.
func (r *registry[T]) register(name string, constructor Constructor[T]) {
	if name == "" {
		panic(fmt.Sprintf("itsm: %s adapter registered with empty name", r.capability))
	}

	if constructor == nil {
		panic(fmt.Sprintf("itsm: %s adapter %q registered with nil constructor", r.capability, name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		panic(fmt.Sprintf("itsm: %s adapter %q registered twice", r.capability, name))
	}

	r.entries[name] = constructor
}

// get resolves the provider name (falling back to the capability's
// environment variable) and constructs a fresh adapter instance. Every call
// constructs a new instance; callers own its lifecycle.
func (r *registry[T]) get(provider string, config *Config) (T, error) {
	var zero T

	if provider == "" {
		provider = os.Getenv(r.envVar)
	}

	if provider == "" {
		return zero, &ConfigError{
			Message: fmt.Sprintf("no default %s provider configured: set %s or specify the provider explicitly",
				r.capability, r.envVar),
			Err: ErrNoDefaultProvider,
		}
	}

	r.mu.RLock()
	constructor, ok := r.entries[provider]
	r.mu.RUnlock()

	if !ok {
		return zero, &ConfigError{
			Message: fmt.Sprintf("%s provider %q not found, available: %v",
				r.capability, provider, r.list()),
			Provider: provider,
			Err:      ErrProviderNotFound,
		}
	}

	if config == nil {
		config = &Config{}
	}

	return constructor(config)
}

// list returns the registered provider names in sorted order.
func (r *registry[T]) list() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

var (
	issueTrackers    = newRegistry[IssueTracker](CapabilityIssueTracker, EnvIssueTrackerProvider)
	wikiProviders    = newRegistry[WikiProvider](CapabilityWiki, EnvWikiProvider)
	incidentManagers = newRegistry[IncidentManager](CapabilityIncidentManager, EnvIncidentManagerProvider)
)

// RegisterIssueTracker registers an issue tracker adapter constructor.
// Intended to be called from adapter package init functions; panics on a
// duplicate name.
func RegisterIssueTracker(name string, constructor Constructor[IssueTracker]) {
	issueTrackers.register(name, constructor)
}

// RegisterWikiProvider registers a wiki provider adapter constructor.
func RegisterWikiProvider(name string, constructor Constructor[WikiProvider]) {
	wikiProviders.register(name, constructor)
}

// RegisterIncidentManager registers an incident manager adapter constructor.
func RegisterIncidentManager(name string, constructor Constructor[IncidentManager]) {
	incidentManagers.register(name, constructor)
}

// GetIssueTracker constructs a fresh issue tracker adapter. An empty
// provider falls back to ITSM_ISSUE_TRACKER_PROVIDER; an unset variable is a
// ConfigError.
func GetIssueTracker(provider string, config *Config) (IssueTracker, error) {
	return issueTrackers.get(provider, config)
}

// GetWikiProvider constructs a fresh wiki provider adapter.
func GetWikiProvider(provider string, config *Config) (WikiProvider, error) {
	return wikiProviders.get(provider, config)
}

// GetIncidentManager constructs a fresh incident manager adapter.
func GetIncidentManager(provider string, config *Config) (IncidentManager, error) {
	return incidentManagers.get(provider, config)
}

// ListAdapters returns the registered provider names per capability.
func ListAdapters() map[string][]string {
	return map[string][]string{
		CapabilityIssueTracker:    issueTrackers.list(),
		CapabilityWiki:            wikiProviders.list(),
		CapabilityIncidentManager: incidentManagers.list(),
	}
}
