package tools

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastExecutor(retries int) *Executor {
	e := NewExecutor(retries)
	e.baseDelay = time.Millisecond
	e.maxDelay = 5 * time.Millisecond
	return e
}

func TestExecutorRetriesTransientErrors(t *testing.T) {
	attempts := 0
	err := fastExecutor(2).Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("connection refused")}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestExecutorRetries5xx(t *testing.T) {
	attempts := 0
	err := fastExecutor(1).Do(context.Background(), func(context.Context) error {
		attempts++
		return &StatusError{Code: 503}
	})

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.True(t, IsStatus(err, 503))
	assert.Contains(t, err.Error(), "failed after 2 attempts")
}

func TestExecutorDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	err := fastExecutor(3).Do(context.Background(), func(context.Context) error {
		attempts++
		return &StatusError{Code: 404, Body: `{"detail":"Not found"}`}
	})

	assert.True(t, IsStatus(err, 404))
	assert.Equal(t, 1, attempts)
}

func TestExecutorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := fastExecutor(5).Do(ctx, func(context.Context) error {
		attempts++
		cancel()
		return &net.OpError{Op: "read", Err: errors.New("reset")}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestBackoffIsCapped(t *testing.T) {
	e := NewExecutor(10)
	assert.Equal(t, 200*time.Millisecond, e.calculateBackoff(1))
	assert.Equal(t, 5*time.Second, e.calculateBackoff(9))
}

func TestStatusErrorMessage(t *testing.T) {
	assert.Equal(t, "404 Not Found", (&StatusError{Code: 404}).Error())
	assert.Equal(t, `401 Unauthorized: {"detail":"x"}`, (&StatusError{Code: 401, Body: `{"detail":"x"}` + "\n"}).Error())
}
