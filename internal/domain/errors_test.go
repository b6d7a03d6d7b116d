package domain_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/ember/internal/domain"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "missing credential", err: domain.ErrMissingCredential, expected: http.StatusUnauthorized},
		{name: "wrapped missing credential", err: fmt.Errorf("open: %w", domain.ErrMissingCredential), expected: http.StatusUnauthorized},
		{name: "validation", err: &domain.ValidationError{Reason: "bad role"}, expected: http.StatusBadRequest},
		{name: "upstream status mirrored", err: &domain.UpstreamError{StatusCode: http.StatusTooManyRequests}, expected: http.StatusTooManyRequests},
		{name: "upstream without status", err: &domain.UpstreamError{Err: errors.New("dial tcp: refused")}, expected: http.StatusInternalServerError},
		{name: "anything else", err: errors.New("boom"), expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, domain.HTTPStatus(tt.err))
		})
	}
}

func TestUpstreamError_Message(t *testing.T) {
	t.Run("should prefer the provider message", func(t *testing.T) {
		err := &domain.UpstreamError{StatusCode: 404, Message: "Model not found", Err: errors.New("raw")}
		require.Equal(t, "Model not found", err.Error())
	})

	t.Run("should unwrap the cause", func(t *testing.T) {
		cause := errors.New("raw")
		err := &domain.UpstreamError{Err: cause}
		require.ErrorIs(t, err, cause)
		require.Equal(t, "raw", err.Error())
	})
}
