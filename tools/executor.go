// Request Executor with Retry Logic.
//
// Information Hiding:
// - Retry strategy implementation hidden
// - Backoff algorithm hidden
// - Error classification logic hidden

package tools

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// DefaultRetries is the number of extra attempts for idempotent requests.
const DefaultRetries = 2

// Executor runs an operation with retry and exponential backoff.
// Only transient failures are retried: transport errors and 5xx responses.
type Executor struct {
	retries   int
	baseDelay time.Duration
	maxDelay  time.Duration
}

// NewExecutor creates an executor allowing up to retries extra attempts.
func NewExecutor(retries int) *Executor {
	if retries < 0 {
		retries = 0
	}
	return &Executor{
		retries:   retries,
		baseDelay: 100 * time.Millisecond,
		maxDelay:  5 * time.Second,
	}
}

// Do runs op until it succeeds, fails permanently or attempts run out.
func (e *Executor) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= e.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.calculateBackoff(attempt)):
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		if !shouldRetry(err) || ctx.Err() != nil {
			return err
		}
		lastErr = err
	}

	if e.retries == 0 {
		return lastErr
	}
	return fmt.Errorf("failed after %d attempts: %w", e.retries+1, lastErr)
}

// calculateBackoff returns the backoff duration for the given attempt.
func (e *Executor) calculateBackoff(attempt int) time.Duration {
	delay := e.baseDelay * time.Duration(1<<attempt)
	if delay > e.maxDelay {
		delay = e.maxDelay
	}
	return delay
}

// shouldRetry determines if an error is retryable.
func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// http.Client failures are *url.Error, which implements net.Error.
	return false
}
