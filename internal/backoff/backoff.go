// Package backoff evaluates an abstract retry policy for provider calls.
package backoff

import (
	"context"
	"time"

	"RefScreener/internal/source"
)

// Policy describes retry with exponential backoff. MaxAttempts counts the
// additional retries after the first call, so a call runs at most
// 1+MaxAttempts times.
type Policy struct {
	BaseDelay   time.Duration
	MaxAttempts int
	Multiplier  float64
}

// Default matches the provider etiquette the screeners were tuned for.
func Default() Policy {
	return Policy{
		BaseDelay:   time.Second,
		MaxAttempts: 2,
		Multiplier:  2.0,
	}
}

// Do executes op, retrying retryable failures per the policy. It respects
// context cancellation during backoff sleeps and returns the last error once
// attempts are exhausted.
func (p Policy) Do(ctx context.Context, op func() error) error {
	err := op()
	if err == nil || !source.Retryable(err) {
		return err
	}

	delay := p.BaseDelay
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * p.Multiplier)

		err = op()
		if err == nil || !source.Retryable(err) {
			return err
		}
	}

	return err
}
