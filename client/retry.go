package client

import (
	"context"
	"time"
)

// retryState is the per-request retry counter. It is never mutated; next returns a new value.
type retryState struct {
	attempt     int
	maxAttempts int
}

func newRetryState(maxRetries int) retryState {
	return retryState{attempt: 0, maxAttempts: maxRetries}
}

func (r retryState) canRetry() bool {
	return r.attempt < r.maxAttempts
}

func (r retryState) next() retryState {
	return retryState{attempt: r.attempt + 1, maxAttempts: r.maxAttempts}
}

// backoff returns base * 2^attempt.
func (r retryState) backoff(base time.Duration) time.Duration {
	return base * time.Duration(1<<uint(r.attempt))
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
