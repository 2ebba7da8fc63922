package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRateLimited indicates the provider rejected the call with a rate limit
	ErrRateLimited = errors.New("llm: rate limited")

	// ErrUnauthorized indicates the provider rejected the call's credentials
	ErrUnauthorized = errors.New("llm: unauthorized")
)

// StatusError wraps a non-2xx provider response
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Unwrap maps rate-limit and auth statuses onto the package sentinels so
// callers can branch with errors.Is.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}
	return nil
}
