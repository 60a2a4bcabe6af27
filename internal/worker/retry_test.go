package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextDelay(t *testing.T) {
	tests := []struct {
		name    string
		policy  RetryPolicy
		attempt int
		want    time.Duration
	}{
		{name: "defaults", policy: RetryPolicy{}, attempt: 1, want: time.Second},
		{name: "exponential", policy: RetryPolicy{InitialDelay: 100 * time.Millisecond, BackoffFactor: 2}, attempt: 3, want: 400 * time.Millisecond},
		{name: "clamped", policy: RetryPolicy{InitialDelay: time.Second, MaxDelay: 3 * time.Second}, attempt: 5, want: 3 * time.Second},
		{name: "attempt below one", policy: RetryPolicy{InitialDelay: time.Second}, attempt: 0, want: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.NextDelay(tt.attempt))
		})
	}
}

func TestDo(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

	t.Run("SucceedsAfterRetry", func(t *testing.T) {
		calls := 0
		var retried []int
		err := policy.Do(context.Background(), func(context.Context) error {
			calls++
			if calls < 2 {
				return errors.New("flaky")
			}
			return nil
		}, func(attempt int, _ time.Duration, _ error) { retried = append(retried, attempt) })

		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.Equal(t, []int{1}, retried)
	})

	t.Run("ReturnsLastError", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), func(context.Context) error {
			calls++
			return errors.New("down")
		}, nil)

		assert.EqualError(t, err, "down")
		assert.Equal(t, 3, calls)
	})

	t.Run("StopsWhenContextDone", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := RetryPolicy{MaxRetries: 10, InitialDelay: time.Hour}.Do(ctx, func(context.Context) error {
			calls++
			return errors.New("down")
		}, nil)

		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("ZeroRetriesRunsOnce", func(t *testing.T) {
		calls := 0
		_ = RetryPolicy{}.Do(context.Background(), func(context.Context) error {
			calls++
			return errors.New("x")
		}, nil)
		assert.Equal(t, 1, calls)
	})
}
