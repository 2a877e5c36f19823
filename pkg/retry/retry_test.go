package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoll_StopsWhenDone(t *testing.T) {
	calls := 0
	v, err := Poll(context.Background(), Policy{Interval: time.Millisecond, MaxAttempts: 10},
		func(context.Context) (int, error) {
			calls++
			return calls, nil
		},
		func(v int) bool { return v == 4 },
	)

	require.NoError(t, err)
	assert.Equal(t, 4, v)
	assert.Equal(t, 4, calls)
}

func TestPoll_ExhaustedReturnsLastValue(t *testing.T) {
	calls := 0
	v, err := Poll(context.Background(), Policy{Interval: time.Millisecond, MaxAttempts: 3},
		func(context.Context) (string, error) {
			calls++
			return "pending", nil
		},
		func(v string) bool { return v == "success" },
	)

	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, "pending", v)
	assert.Equal(t, 3, calls)
}

func TestPoll_StepErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := Poll(context.Background(), Policy{Interval: time.Millisecond, MaxAttempts: 5},
		func(context.Context) (int, error) {
			calls++
			return 0, boom
		},
		func(int) bool { return false },
	)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestPoll_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Poll(ctx, Policy{Interval: time.Hour, MaxAttempts: 5},
		func(context.Context) (int, error) {
			calls++
			cancel()
			return 0, nil
		},
		func(int) bool { return false },
	)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestPoll_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, err := Poll(context.Background(), Policy{Interval: time.Millisecond},
		func(context.Context) (int, error) {
			calls++
			return 0, nil
		},
		func(int) bool { return false },
	)

	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 1, calls)
}
