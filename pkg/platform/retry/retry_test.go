package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rolesync/pkg/platform/sentinel"
)

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestDo(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := fastPolicy(3).Do(ctx, func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("flaky")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns last error when attempts are exhausted", func(t *testing.T) {
		calls := 0
		err := fastPolicy(2).Do(ctx, func(context.Context) error {
			calls++
			return fmt.Errorf("attempt %d", calls)
		})
		require.EqualError(t, err, "attempt 2")
		assert.Equal(t, 2, calls)
	})

	t.Run("once never retries", func(t *testing.T) {
		calls := 0
		err := Once().Do(ctx, func(context.Context) error {
			calls++
			return errors.New("boom")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("zero attempts behaves like once", func(t *testing.T) {
		calls := 0
		_ = Policy{}.Do(ctx, func(context.Context) error {
			calls++
			return errors.New("boom")
		})
		assert.Equal(t, 1, calls)
	})

	t.Run("permanent errors stop immediately", func(t *testing.T) {
		calls := 0
		invalid := fmt.Errorf("claims too large: %w", sentinel.ErrInvalidInput)
		err := fastPolicy(5).Do(ctx, func(context.Context) error {
			calls++
			return invalid
		})
		require.ErrorIs(t, err, sentinel.ErrInvalidInput)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		calls := 0
		err := Policy{MaxAttempts: 10, InitialInterval: 50 * time.Millisecond}.Do(cctx, func(context.Context) error {
			calls++
			cancel()
			return errors.New("unavailable")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(fmt.Errorf("wrap: %w", sentinel.ErrInvalidInput)))
	assert.True(t, IsPermanent(context.Canceled))
	assert.False(t, IsPermanent(sentinel.ErrUnavailable))
	assert.False(t, IsPermanent(errors.New("network")))
}
