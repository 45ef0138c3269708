// ABOUTME: Unit tests for the backoff/retry helper.

package retry

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsWithoutRetry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultPolicy(), func(error) bool { return true }, func(attempt int) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	policy := Policy{MaxAttempts: 3, Base: time.Millisecond, Factor: 2}
	err := Do(context.Background(), policy, func(error) bool { return true }, func(attempt int) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	sentinel := errors.New("not retryable")
	err := Do(context.Background(), DefaultPolicy(), func(error) bool { return false }, func(attempt int) error {
		calls++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	policy := Policy{MaxAttempts: 3, Base: time.Millisecond, Factor: 2}
	sentinel := errors.New("persistent")
	err := Do(context.Background(), policy, func(error) bool { return true }, func(attempt int) error {
		calls++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestDo_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	policy := Policy{MaxAttempts: 3, Base: time.Second, Factor: 2}
	calls := 0
	err := Do(ctx, policy, func(error) bool { return true }, func(attempt int) error {
		calls++
		return errors.New("fail")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestPolicy_DelayGrowsExponentially(t *testing.T) {
	p := Policy{MaxAttempts: 5, Base: time.Second, Factor: 2}
	rng := rand.New(rand.NewSource(1))
	d0 := p.Delay(0, rng)
	d1 := p.Delay(1, rng)
	assert.Greater(t, d1, d0)
}
