package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"argus/internal/testutil"
)

func TestWrap(t *testing.T) {
	t.Run("wraps error with context", func(t *testing.T) {
		baseErr := New("base error")
		wrapped := Wrap(baseErr, "additional context")

		testutil.AssertTrue(t, Is(wrapped, baseErr), "should unwrap to base error")
		testutil.AssertEqual(t, wrapped.Error(), "additional context: base error", "message")
	})

	t.Run("returns nil when wrapping nil", func(t *testing.T) {
		testutil.AssertTrue(t, Wrap(nil, "context") == nil, "wrapping nil should return nil")
		testutil.AssertTrue(t, Wrapf(nil, "context %d", 1) == nil, "wrapping nil should return nil")
	})

	t.Run("multiple wraps preserve chain", func(t *testing.T) {
		wrapped := Wrap(Wrapf(ErrTimeout, "layer %d", 1), "layer 2")

		testutil.AssertTrue(t, IsTimeout(wrapped), "should unwrap to ErrTimeout")
		testutil.AssertEqual(t, wrapped.Error(), "layer 2: layer 1: operation timed out", "message")
	})
}

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusOK, nil},
		{http.StatusMovedPermanently, nil},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusGone, ErrNotFound},
		{http.StatusTooManyRequests, ErrRateLimit},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusGatewayTimeout, ErrTimeout},
		{http.StatusBadGateway, ErrServiceUnavailable},
		{http.StatusInternalServerError, ErrServiceUnavailable},
		{http.StatusBadRequest, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.code), func(t *testing.T) {
			testutil.AssertEqual(t, FromHTTPStatus(tt.code), tt.want, "mapped error")
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", ErrTimeout, true},
		{"rate limit wrapped", Wrap(ErrRateLimit, "crt.sh"), true},
		{"service unavailable", ErrServiceUnavailable, true},
		{"not found", ErrNotFound, false},
		{"unauthorized", Wrap(ErrUnauthorized, "api key"), false},
		{"invalid response", ErrInvalidResponse, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"unknown", New("boom"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertEqual(t, IsRetryable(tt.err), tt.want, "retryable")
		})
	}
}
