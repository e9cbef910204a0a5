package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestWithBackoffSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), nil, fastConfig(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithBackoffGivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	failure := errors.New("still broken")
	err := WithBackoff(context.Background(), nil, fastConfig(), func() error {
		attempts++
		return failure
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.ErrorIs(t, err, failure)
}

func TestWithBackoffStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := WithBackoff(ctx, nil, Config{MaxAttempts: 5, BaseDelay: time.Minute, MaxDelay: time.Minute}, func() error {
		attempts++
		cancel()
		return errors.New("transient")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts, "cancellation during the backoff wait must not spawn another attempt")
}

func TestWithBackoffZeroConfigFallsBackToDefaults(t *testing.T) {
	err := WithBackoff(context.Background(), nil, Config{}, func() error {
		return nil
	})
	require.NoError(t, err)
}
