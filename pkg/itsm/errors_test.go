package itsm_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fivetwenty-io/itsm/pkg/itsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessagesCarryProviderPrefix(t *testing.T) {
	t.Parallel()

	err := &itsm.NotFoundError{Message: "resource not found: /x", Provider: "atlassian_jira"}

	assert.Equal(t, "[atlassian_jira] resource not found: /x", err.Error())
}

func TestErrorMessagesWithoutProvider(t *testing.T) {
	t.Parallel()

	err := &itsm.ConfigError{Message: "missing credentials: api_token"}

	assert.Equal(t, "missing credentials: api_token", err.Error())
}

func TestConfigErrorExposesCause(t *testing.T) {
	t.Parallel()

	err := &itsm.ConfigError{
		Message: "missing credentials: api_token",
		Err:     itsm.ErrMissingCredentials,
	}

	assert.ErrorIs(t, err, itsm.ErrMissingCredentials)
	assert.NotErrorIs(t, err, itsm.ErrProviderNotFound)
}

func TestErrorClassifiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		matches func(error) bool
	}{
		{"config", &itsm.ConfigError{Message: "m"}, itsm.IsConfig},
		{"auth", &itsm.AuthError{Message: "m"}, itsm.IsAuthentication},
		{"not found", &itsm.NotFoundError{Message: "m"}, itsm.IsNotFound},
		{"rate limit", &itsm.RateLimitError{Message: "m"}, itsm.IsRateLimit},
		{"connection", &itsm.ConnectionError{Message: "m"}, itsm.IsConnection},
	}

	classifiers := []func(error) bool{
		itsm.IsConfig,
		itsm.IsAuthentication,
		itsm.IsNotFound,
		itsm.IsRateLimit,
		itsm.IsConnection,
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.True(t, tc.matches(tc.err))

			// Exactly one classifier matches each error type.
			matched := 0

			for _, classify := range classifiers {
				if classify(tc.err) {
					matched++
				}
			}

			assert.Equal(t, 1, matched)
		})
	}
}

func TestClassifiersMatchWrappedErrors(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("fetching issue: %w", &itsm.AuthError{Message: "authentication failed"})

	assert.True(t, itsm.IsAuthentication(wrapped))
	assert.False(t, itsm.IsNotFound(wrapped))
}

func TestConnectionErrorUnwrapsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	err := &itsm.ConnectionError{
		Message:  "connection failed after 4 attempts",
		Provider: "atlassian_jira",
		Err:      cause,
	}

	require.ErrorIs(t, err, cause)
	assert.True(t, itsm.IsConnection(err))
}

func TestAuthErrorDistinguishesStatusCodes(t *testing.T) {
	t.Parallel()

	unauthorized := &itsm.AuthError{
		Message: "authentication failed",
		Details: map[string]interface{}{"status_code": 401},
	}
	forbidden := &itsm.AuthError{
		Message: "access forbidden",
		Details: map[string]interface{}{"status_code": 403},
	}

	assert.Equal(t, 401, unauthorized.Details["status_code"])
	assert.Equal(t, 403, forbidden.Details["status_code"])
}

func TestRateLimitErrorCarriesRetryAfter(t *testing.T) {
	t.Parallel()

	err := &itsm.RateLimitError{Message: "rate limit exceeded", RetryAfter: 30}

	var rateErr *itsm.RateLimitError

	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 30, rateErr.RetryAfter)
}

func TestResultSuccess(t *testing.T) {
	t.Parallel()

	assert.True(t, (&itsm.Result{Status: itsm.ResultSuccess}).Success())
	assert.True(t, (&itsm.Result{Status: itsm.ResultNoChange}).Success())
	assert.False(t, (&itsm.Result{Status: itsm.ResultFailed}).Success())
}
