package dispatch

import (
	"errors"
	"testing"
	"time"
)

func TestRetryPolicyDelays(t *testing.T) {
	policy := DefaultRetryPolicy()

	if got := policy.NextDelay(1); got != 2*time.Second {
		t.Errorf("expected 2s after attempt 1, got %v", got)
	}
	if got := policy.NextDelay(2); got != 4*time.Second {
		t.Errorf("expected 4s after attempt 2, got %v", got)
	}
	if got := policy.NextDelay(3); got != 8*time.Second {
		t.Errorf("expected 8s after attempt 3, got %v", got)
	}
}

func TestRetryPolicyMaxDelayCap(t *testing.T) {
	policy := DefaultRetryPolicy()
	if got := policy.NextDelay(10); got != 30*time.Second {
		t.Errorf("expected cap at 30s, got %v", got)
	}
}

func TestRetryPolicyBudget(t *testing.T) {
	policy := DefaultRetryPolicy()
	err := errors.New("timeout")

	if !policy.ShouldRetry(err, 1) {
		t.Error("attempt 1 should be retryable")
	}
	if !policy.ShouldRetry(err, 2) {
		t.Error("attempt 2 should be retryable")
	}
	if policy.ShouldRetry(err, 3) {
		t.Error("attempt 3 exhausts the budget")
	}
}

func TestRetryPolicyClassification(t *testing.T) {
	policy := DefaultRetryPolicy()

	for _, msg := range []string{"connection refused", "timeout waiting", "x API returned status 503", "rate limit hit"} {
		if !policy.ShouldRetry(errors.New(msg), 1) {
			t.Errorf("expected %q to be retryable", msg)
		}
	}

	for _, msg := range []string{"unauthorized", "invalid content", "x API returned status 401", "malformed payload"} {
		if policy.ShouldRetry(errors.New(msg), 1) {
			t.Errorf("expected %q to fail fast", msg)
		}
	}

	// Unknown errors default to retryable.
	if !policy.ShouldRetry(errors.New("something odd"), 1) {
		t.Error("unknown errors should default to retryable")
	}

	if policy.ShouldRetry(nil, 1) {
		t.Error("nil error should not be retryable")
	}
}
