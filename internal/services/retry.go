package services

import (
	"context"
	"time"
)

// RetryPolicy bounds how often an operation is attempted and how long to wait
// between attempts. The zero value means a single attempt with no backoff.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// sleep is replaced in tests to avoid real backoff waits.
var sleep = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs fn until it succeeds or the policy's attempts are exhausted. The
// last error is returned. Context cancellation stops retrying immediately.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt < attempts {
			if err := sleep(ctx, p.Backoff); err != nil {
				return lastErr
			}
		}
	}
	return lastErr
}
