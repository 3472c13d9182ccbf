package crossref

import (
	"errors"
	"fmt"
)

// Common errors returned by the lookup clients.
var (
	// ErrNotFound indicates the work is unknown to the service.
	ErrNotFound = errors.New("work not found")

	// ErrRateLimited indicates the service rejected the request for rate.
	ErrRateLimited = errors.New("lookup rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with lookup service")

	// ErrInvalidResponse indicates an unexpected response body.
	ErrInvalidResponse = errors.New("invalid response from lookup service")

	// ErrUnsupported indicates an identifier type the client cannot look up.
	ErrUnsupported = errors.New("unsupported identifier type")
)

// APIError represents an unexpected HTTP status from a lookup service.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	ID         string // For context in work-related errors
}

func (e *APIError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s API error (status %d): %s (id: %s)", e.Service, e.StatusCode, e.Message, e.ID)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Message)
}

// IsNotFound returns true if the error indicates a work was not found.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// outcome labels err for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsNotFound(err):
		return "not_found"
	case IsRateLimited(err):
		return "rate_limited"
	default:
		return "error"
	}
}
