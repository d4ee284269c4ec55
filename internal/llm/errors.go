package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// Provider error kinds. Every provider failure is wrapped in exactly one of
// these sentinels so callers can branch on kind without inspecting provider
// response shapes.
var (
	// ErrAuth indicates an invalid or missing API key. Never retried.
	ErrAuth = errors.New("provider authentication failed")

	// ErrRateLimit indicates the provider throttled the request. Retried
	// with a longer backoff.
	ErrRateLimit = errors.New("provider rate limit exceeded")

	// ErrProviderConfig indicates a bad model name or malformed request.
	// Never retried.
	ErrProviderConfig = errors.New("provider configuration error")

	// ErrUnavailable indicates a transient provider or network failure.
	// Retried with standard backoff.
	ErrUnavailable = errors.New("provider unavailable")
)

// classifyStatus maps an HTTP status code to a provider error kind.
func classifyStatus(status int, body string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", ErrAuth, status, body)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d: %s", ErrRateLimit, status, body)
	case status == http.StatusNotFound || status == http.StatusBadRequest:
		return fmt.Errorf("%w: status %d: %s", ErrProviderConfig, status, body)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, status, body)
	}
}

// Retryable reports whether the error kind is worth retrying.
// Auth and config errors are permanent; everything else is transient.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuth) || errors.Is(err, ErrProviderConfig) {
		return false
	}
	return true
}
