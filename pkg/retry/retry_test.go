package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBusy = errors.New("busy")

func fast(opts ...Option) []Option {
	return append([]Option{WithInitialDelay(time.Millisecond), WithMaxDelay(time.Millisecond), WithJitter(0)}, opts...)
}

func TestDo_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := New(fast(WithMaxAttempts(5))...).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errBusy)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustedRetryableIsUnwrapped(t *testing.T) {
	calls := 0
	err := New(fast(WithMaxAttempts(2))...).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Retryable(errBusy)
	})

	assert.Equal(t, errBusy, err)
	assert.Equal(t, 2, calls)
}

func TestDo_StopsOnPlainError(t *testing.T) {
	calls := 0
	err := New(fast()...).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errBusy
	})

	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, 1, calls)
}

func TestDo_PermanentUnwraps(t *testing.T) {
	calls := 0
	err := New(fast(WithRetryIf(func(error) bool { return true }))...).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(errBusy)
	})

	assert.Equal(t, errBusy, err)
	assert.Equal(t, 1, calls)
	assert.True(t, IsPermanent(Permanent(errBusy)))
	assert.False(t, IsRetryable(Permanent(errBusy)))
	assert.Nil(t, Permanent(nil))
	assert.Nil(t, Retryable(nil))
}

func TestDo_RetryIfAndExhaustion(t *testing.T) {
	calls := 0
	var retried []int
	r := New(fast(
		WithMaxAttempts(4),
		WithRetryIf(func(err error) bool { return errors.Is(err, errBusy) }),
		WithOnRetry(func(attempt int, err error, delay time.Duration) { retried = append(retried, attempt) }),
	)...)
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errBusy
	})

	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []int{1, 2, 3}, retried)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := New().Do(ctx, func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestLockRetrierAttempts(t *testing.T) {
	r := LockRetrier(100*time.Millisecond, 25*time.Millisecond)
	assert.Equal(t, 5, r.config.MaxAttempts)

	r = LockRetrier(time.Second, 0)
	assert.Equal(t, 1, r.config.MaxAttempts)
}

func TestConnectRetrier(t *testing.T) {
	var retries []int
	r := ConnectRetrier(3, func(attempt int, _ error, _ time.Duration) {
		retries = append(retries, attempt)
	})

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)

	calls = 0
	err = r.Do(context.Background(), func(context.Context) error {
		calls++
		return context.DeadlineExceeded
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)

	calls = 0
	err = r.Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(errBusy)
	})
	assert.Equal(t, errBusy, err)
	assert.Equal(t, 1, calls)
}
