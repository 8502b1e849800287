package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrConfigMissing indicates that required configuration is absent.
	// The run must abort before any network activity with exit code 2.
	ErrConfigMissing = errors.New("configuration missing")

	// ErrFetchFailed indicates that an HTTP fetch exhausted its retries.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrDeliveryFailed indicates that the webhook rejected the digest.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrNoCandidates indicates that every source came back empty or failed.
	ErrNoCandidates = errors.New("no candidates from any source")
)

// FetchError provides details about a GET that failed after all retries.
// It is fatal for the call site but callers treat it as "source unavailable"
// and continue with a reduced candidate set.
type FetchError struct {
	URL     string
	LastErr error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("failed GET %s: %v", e.URL, e.LastErr)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *FetchError) Unwrap() error {
	return ErrFetchFailed
}

// DeliveryError provides details about a rejected webhook delivery.
type DeliveryError struct {
	StatusCode int

	// Body is an excerpt of the response body, truncated by the caller.
	Body string
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook delivery failed: HTTP %d %s", e.StatusCode, e.Body)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *DeliveryError) Unwrap() error {
	return ErrDeliveryFailed
}

// NewFetchError creates a new FetchError.
func NewFetchError(url string, lastErr error) *FetchError {
	return &FetchError{URL: url, LastErr: lastErr}
}

// NewDeliveryError creates a new DeliveryError.
func NewDeliveryError(statusCode int, body string) *DeliveryError {
	return &DeliveryError{StatusCode: statusCode, Body: body}
}
