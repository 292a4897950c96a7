// Package itsm defines provider-agnostic contracts for IT service
// management platforms: issue tracking, wiki/documentation, and incident
// management.
//
// Adapters for concrete vendors implement the IssueTracker, WikiProvider,
// and IncidentManager interfaces and register themselves by name in the
// package registry. Callers resolve a provider name to an adapter instance
// without depending on any vendor package:
//
//	tracker, err := itsm.GetIssueTracker("atlassian_jira", &itsm.Config{Project: "ITI"})
//	if err != nil {
//		return err
//	}
//	if err := tracker.Connect(ctx); err != nil {
//		return err
//	}
//	defer tracker.Close()
//
//	issue, err := tracker.GetIssue(ctx, "ITI-220")
//
// Use the pkg/itsmclient package as the entry point in applications: it
// links in the bundled adapters so their registrations run.
//
// Every Get call constructs a fresh adapter with its own HTTP session;
// instances are not cached or shared. Errors raised by adapters belong to a
// small classified taxonomy (ConfigError, AuthError, NotFoundError,
// RateLimitError, ConnectionError, ProviderError) with errors.As-based
// helpers such as IsNotFound.
package itsm
