// Package itsmclient is the batteries-included entry point: importing it
// registers the bundled Atlassian adapters, and its constructors resolve,
// build, and connect adapters in one call.
//
//	tracker, err := itsmclient.ConnectIssueTracker(ctx, "atlassian_jira", &itsm.Config{Project: "OPS"})
//	if err != nil {
//		return err
//	}
//	defer tracker.Close()
package itsmclient

import (
	"context"

	// Bundled adapters register themselves on import.
	_ "github.com/fivetwenty-io/itsm/internal/atlassian"
	"github.com/fivetwenty-io/itsm/pkg/itsm"
)

// NewIssueTracker constructs an issue tracker adapter without connecting.
// An empty provider falls back to ITSM_ISSUE_TRACKER_PROVIDER.
func NewIssueTracker(provider string, cfg *itsm.Config) (itsm.IssueTracker, error) {
	return itsm.GetIssueTracker(provider, cfg)
}

// NewWikiProvider constructs a wiki provider adapter without connecting.
func NewWikiProvider(provider string, cfg *itsm.Config) (itsm.WikiProvider, error) {
	return itsm.GetWikiProvider(provider, cfg)
}

// NewIncidentManager constructs an incident manager adapter without
// connecting.
func NewIncidentManager(provider string, cfg *itsm.Config) (itsm.IncidentManager, error) {
	return itsm.GetIncidentManager(provider, cfg)
}

// ConnectIssueTracker constructs an issue tracker and validates the
// connection. The caller owns the adapter and must Close it.
func ConnectIssueTracker(ctx context.Context, provider string, cfg *itsm.Config) (itsm.IssueTracker, error) {
	tracker, err := itsm.GetIssueTracker(provider, cfg)
	if err != nil {
		return nil, err
	}

	if err := tracker.Connect(ctx); err != nil {
		_ = tracker.Close()

		return nil, err
	}

	return tracker, nil
}

// ConnectWikiProvider constructs a wiki provider and validates the
// connection.
func ConnectWikiProvider(ctx context.Context, provider string, cfg *itsm.Config) (itsm.WikiProvider, error) {
	wiki, err := itsm.GetWikiProvider(provider, cfg)
	if err != nil {
		return nil, err
	}

	if err := wiki.Connect(ctx); err != nil {
		_ = wiki.Close()

		return nil, err
	}

	return wiki, nil
}

// ConnectIncidentManager constructs an incident manager and validates the
// connection.
func ConnectIncidentManager(ctx context.Context, provider string, cfg *itsm.Config) (itsm.IncidentManager, error) {
	incidents, err := itsm.GetIncidentManager(provider, cfg)
	if err != nil {
		return nil, err
	}

	if err := incidents.Connect(ctx); err != nil {
		_ = incidents.Close()

		return nil, err
	}

	return incidents, nil
}

// Providers returns the registered provider names per capability.
func Providers() map[string][]string {
	return itsm.ListAdapters()
}
