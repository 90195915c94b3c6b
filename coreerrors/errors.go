// Package coreerrors defines the error taxonomy shared by every storecore
// component. All sentinels are matched with errors.Is; wrapping with
// fmt.Errorf("...: %w", err) is the expected propagation style.
package coreerrors

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks locally rejected input. No network call was made
	// and no state changed. Concrete violations are *ValidationError values
	// that unwrap to this sentinel.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized is a 401 before the refresh-and-retry cycle ran.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is a 403. It is terminal: the request is never retried.
	ErrForbidden = errors.New("forbidden")
	// ErrSessionExpired is a 401 that survived one refresh-and-retry cycle,
	// or a refresh that failed outright. The session is gone.
	ErrSessionExpired = errors.New("session expired")
	// ErrSocialAuth covers any provider-side failure during social login.
	ErrSocialAuth = errors.New("social authentication failed")
	// ErrInvalidCredentials is the server rejecting a well-formed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTimeout is a request that exceeded its deadline.
	ErrTimeout = errors.New("request timed out")
	// ErrConnectionFailed is a transport-level failure before any response.
	ErrConnectionFailed = errors.New("connection failed")
	// ErrServerError is a 5xx response.
	ErrServerError = errors.New("server error")
	// ErrPersistCorrupt marks a persisted blob that failed to decode.
	// Loads recover from it internally; it surfaces only in logs.
	ErrPersistCorrupt = errors.New("persisted state corrupt")
	// ErrPersistWrite marks a failed durable write. The in-memory state is
	// kept; the failure is reported, never re-thrown.
	ErrPersistWrite = errors.New("persist write failed")
	// ErrUnknownProvider is a social login against an unregistered provider.
	ErrUnknownProvider = errors.New("unknown social provider")
	// ErrCoreNotReady is returned when operations run before Build.
	ErrCoreNotReady = errors.New("core not initialized")
)

// ValidationError carries the first violated rule for a rejected input.
// Validation is fail-fast: one error per rejection, never an aggregate.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Rule)
}

// Unwrap lets callers match with errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidation builds the fail-fast violation for field breaking rule.
func NewValidation(field, rule string) *ValidationError {
	return &ValidationError{Field: field, Rule: rule}
}
