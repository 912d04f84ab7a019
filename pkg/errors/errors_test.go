package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
)

func TestRequestFailedErrorCarriesStatus(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := NewRequestFailedError("openai", 502, cause)

	if err.StatusCode != 502 {
		t.Fatalf("expected status 502, got %d", err.StatusCode)
	}
	if !stderrors.Is(err, cause) {
		t.Fatalf("expected cause to be unwrappable")
	}
	if StatusOf(fmt.Errorf("wrapped: %w", err)) != 502 {
		t.Fatalf("expected StatusOf to see through wrapping")
	}
}

func TestIsAuthFailure(t *testing.T) {
	cases := []struct {
		status int
		want   bool
	}{
		{401, true},
		{403, true},
		{404, false},
		{500, false},
		{0, false},
	}

	for _, tc := range cases {
		err := NewRequestFailedError("openai", tc.status, nil)
		if got := IsAuthFailure(err); got != tc.want {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.want, got)
		}
	}

	if IsAuthFailure(fmt.Errorf("plain")) {
		t.Fatalf("plain errors are never auth failures")
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"network", NewRequestFailedError("openai", 0, context.DeadlineExceeded), true},
		{"rate limit", NewRequestFailedError("openai", 429, nil), true},
		{"server", NewRequestFailedError("openai", 503, nil), true},
		{"bad request", NewRequestFailedError("openai", 400, nil), false},
		{"auth", NewRequestFailedError("openai", 401, nil), false},
		{"circuit", ErrCircuitOpen, false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestAppErrorMessage(t *testing.T) {
	err := NewToolError("tools/call failed", "browser.browser_search", 500, fmt.Errorf("timeout"))
	if err.Error() != "tools/call failed: timeout" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if err.Code != CodeToolError {
		t.Fatalf("unexpected code: %s", err.Code)
	}
}
