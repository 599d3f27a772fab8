package errors

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		calls++
		if calls < 3 {
			return stderrors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsRetries(t *testing.T) {
	cfg := fastRetryConfig()
	calls := 0
	sentinel := stderrors.New("always fails")

	err := Retry(context.Background(), cfg, func() error {
		calls++
		return sentinel
	})

	require.Error(t, err)
	assert.Equal(t, cfg.MaxRetries+1, calls)
	assert.ErrorIs(t, err, sentinel)
}

func TestRetry_ContextCancelledBeforeAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, fastRetryConfig(), func() error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestRetry_ContextCancelledDuringWait(t *testing.T) {
	cfg := RetryConfig{
		MaxRetries:   5,
		InitialDelay: time.Second,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Retry(ctx, cfg, func() error {
		calls++
		return stderrors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetry_ShouldRetryStopsEarly(t *testing.T) {
	cfg := fastRetryConfig()
	cfg.ShouldRetry = IsRetryable

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return New(ErrCodeAPIAuth, "bad key")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, ErrCodeAPIAuth, GetCode(err))
}

func TestRetry_ShouldRetryKeepsRetryableGoing(t *testing.T) {
	cfg := fastRetryConfig()
	cfg.ShouldRetry = IsRetryable

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		if calls < 2 {
			return New(ErrCodeAPIRateLimited, "slow down")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryWithResult_ReturnsValue(t *testing.T) {
	calls := 0
	result, err := RetryWithResult(context.Background(), fastRetryConfig(), func() ([]float32, error) {
		calls++
		if calls < 2 {
			return nil, stderrors.New("transient")
		}
		return []float32{0.1, 0.2}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, result)
	assert.Equal(t, 2, calls)
}

func TestRetryWithResult_ZeroValueOnFailure(t *testing.T) {
	result, err := RetryWithResult(context.Background(), fastRetryConfig(), func() (string, error) {
		return "partial", stderrors.New("nope")
	})

	require.Error(t, err)
	assert.Empty(t, result)
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.InitialDelay)
	assert.Equal(t, 16*time.Second, cfg.MaxDelay)
	assert.Equal(t, 2.0, cfg.Multiplier)
}
