package client

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"testing"
	"time"

	"resumectl/internal/errors"
)

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{attempt: 1, min: time.Second, max: 1100 * time.Millisecond},
		{attempt: 2, min: 2 * time.Second, max: 2200 * time.Millisecond},
		{attempt: 3, min: 4 * time.Second, max: 4400 * time.Millisecond},
		{attempt: 10, min: maxBackoff, max: maxBackoff},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt %d", tt.attempt), func(t *testing.T) {
			for range 20 {
				got := backoffDelay(tt.attempt)
				if got < tt.min || got > tt.max {
					t.Fatalf("backoffDelay(%d) = %v, want within [%v, %v]", tt.attempt, got, tt.min, tt.max)
				}
			}
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "too many requests", err: &StatusError{StatusCode: 429}, want: true},
		{name: "bad gateway", err: &StatusError{StatusCode: 502}, want: true},
		{name: "service unavailable", err: &StatusError{StatusCode: 503}, want: true},
		{name: "gateway timeout", err: &StatusError{StatusCode: 504}, want: true},
		{name: "internal server error", err: &StatusError{StatusCode: 500}, want: false},
		{name: "not found", err: &StatusError{StatusCode: 404}, want: false},
		{name: "connection refused", err: &url.Error{Op: "Get", URL: "http://x", Err: &net.OpError{Op: "dial", Err: fmt.Errorf("connection refused")}}, want: true},
		{name: "context canceled", err: &url.Error{Op: "Get", URL: "http://x", Err: context.Canceled}, want: false},
		{name: "missing token", err: &url.Error{Op: "Get", URL: "http://x", Err: errors.NewAuthError(errors.ErrCodeMissingToken, "not logged in", nil)}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.want {
				t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCountsAsFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "server error", err: &StatusError{StatusCode: 500}, want: true},
		{name: "client error", err: &StatusError{StatusCode: 422}, want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "local error", err: errors.NewValidationError(errors.ErrCodeInvalidRequest, "bad", nil), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countsAsFailure(tt.err); got != tt.want {
				t.Errorf("countsAsFailure(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDecodeStatusError(t *testing.T) {
	statusErr := decodeStatusError(400, []byte(`{"timestamp":"2025-03-01T10:00:00","message":"Job description is required","details":"uri=/api"}`))
	if statusErr.StatusCode != 400 || statusErr.Message != "Job description is required" {
		t.Errorf("unexpected decode: %+v", statusErr)
	}

	plain := decodeStatusError(502, []byte("<html>Bad Gateway</html>"))
	if plain.Message != "<html>Bad Gateway</html>" {
		t.Errorf("non-JSON body should be kept as message, got %q", plain.Message)
	}
}
