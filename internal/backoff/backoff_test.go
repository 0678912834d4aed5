package backoff

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"RefScreener/internal/source"
)

func TestDoRetriesExactlyMaxAttempts(t *testing.T) {
	t.Parallel()

	policy := Policy{BaseDelay: time.Millisecond, MaxAttempts: 2, Multiplier: 2.0}

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return fmt.Errorf("provider returned 429: %w", source.ErrRateLimited)
	})
	if err == nil {
		t.Fatalf("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Fatalf("expected 1 initial + 2 retries = 3 calls, got %d", calls)
	}
	if !errors.Is(err, source.ErrRateLimited) {
		t.Fatalf("last error lost its classification: %v", err)
	}
}

func TestDoStopsOnTerminalError(t *testing.T) {
	t.Parallel()

	policy := Policy{BaseDelay: time.Millisecond, MaxAttempts: 5, Multiplier: 2.0}

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return source.ErrNotFound
	})
	if !errors.Is(err, source.ErrNotFound) {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("terminal errors must not be retried, got %d calls", calls)
	}
}

func TestDoSucceedsMidway(t *testing.T) {
	t.Parallel()

	policy := Policy{BaseDelay: time.Millisecond, MaxAttempts: 3, Multiplier: 2.0}

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		if calls < 2 {
			return source.ErrUnavailable
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestDoHonorsContext(t *testing.T) {
	t.Parallel()

	policy := Policy{BaseDelay: time.Minute, MaxAttempts: 3, Multiplier: 2.0}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := policy.Do(ctx, func() error { return source.ErrUnavailable })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
