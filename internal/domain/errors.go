package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingCredential is returned when a request carries no upstream credential.
var ErrMissingCredential = errors.New("missing key")

// ValidationError reports a malformed chat request.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

// UpstreamError reports a provider that refused a request before streaming.
// StatusCode is zero when the provider never answered (network failure).
type UpstreamError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps an error from the relay pipeline to the HTTP status the
// relay answers with.
func HTTPStatus(err error) int {
	if errors.Is(err, ErrMissingCredential) {
		return http.StatusUnauthorized
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest
	}

	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) && upstreamErr.StatusCode >= http.StatusBadRequest {
		return upstreamErr.StatusCode
	}

	return http.StatusInternalServerError
}
