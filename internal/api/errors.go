package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the backend failure taxonomy. Callers classify with
// errors.Is; raw status codes never leave this package.
var (
	// ErrAuthRequired means the backend wants a (fresh) bearer token.
	// Deferrable operations queue locally instead of failing.
	ErrAuthRequired = errors.New("api: authentication required")

	// ErrNetworkUnreachable means the backend could not be reached at all.
	ErrNetworkUnreachable = errors.New("api: network unreachable")

	// ErrAlreadyCompleted means today's daily challenge is already done.
	// A business outcome, not a failure; surfaced as a distinct result.
	ErrAlreadyCompleted = errors.New("api: daily challenge already completed")

	// ErrServerRejected is the generic non-retryable server failure.
	ErrServerRejected = errors.New("api: server rejected request")

	// ErrNotFound means the referenced session does not exist server-side.
	ErrNotFound = errors.New("api: not found")
)

// ErrSessionExpired wraps ErrAuthRequired: an expired session is handled
// exactly like a missing one.
var ErrSessionExpired = fmt.Errorf("session expired: %w", ErrAuthRequired)

// classifyStatus maps an HTTP status code to the taxonomy.
func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrAuthRequired
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrAlreadyCompleted
	case status >= 400:
		return fmt.Errorf("%w: status %d", ErrServerRejected, status)
	}
	return nil
}

// classifyTransport maps a transport-level error to the taxonomy. Every
// failure to complete the round trip, timeouts included, counts as the
// network being unreachable.
func classifyTransport(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrNetworkUnreachable, err)
}
