// Package retry provides bounded retries with capped exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DelayHinter lets an error suggest the wait before the next attempt, e.g. an
// HTTP 429 response carrying a Retry-After header.
type DelayHinter interface {
	DelayHint() (time.Duration, bool)
}

// Policy bounds retries for one collaborator: a total attempt count and a
// backoff schedule that doubles from Delay up to MaxDelay.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	MaxDelay    time.Duration
}

// Do runs op up to MaxAttempts times. It stops early when op succeeds, when
// retryable reports the error as permanent, or when ctx is done during
// backoff. A nil retryable treats every error as transient. The last error is
// wrapped once attempts are exhausted.
func (p Policy) Do(ctx context.Context, retryable func(error) bool, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := p.backoff(attempt)

			// An explicit server hint overrides the schedule.
			var hinter DelayHinter
			if errors.As(lastErr, &hinter) {
				if d, ok := hinter.DelayHint(); ok && d > 0 {
					backoff = d
				}
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if retryable != nil && !retryable(err) {
			return err
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// backoff returns the wait before the given attempt (attempt >= 1).
func (p Policy) backoff(attempt int) time.Duration {
	d := p.Delay * time.Duration(1<<uint(attempt-1))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}
