package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetry(3), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_ExhaustsAndWrapsLastError(t *testing.T) {
	last := errors.New("still down")
	attempts := 0
	err := Retry(context.Background(), fastRetry(2), func() error {
		attempts++
		return last
	})

	assert.ErrorIs(t, err, last)
	assert.Equal(t, 3, attempts, "initial attempt plus two retries")
}

func TestRetry_ShouldRetryStopsEarly(t *testing.T) {
	cfg := fastRetry(5)
	cfg.ShouldRetry = IsRetryable

	attempts := 0
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		return ValidationError("bad input", nil)
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithResult_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RetryWithResult(ctx, fastRetry(3), func() (string, error) {
		return "unreachable", nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryWithResult_ReturnsValue(t *testing.T) {
	got, err := RetryWithResult(context.Background(), fastRetry(1), func() ([]float32, error) {
		return []float32{1, 2}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, got)
}
