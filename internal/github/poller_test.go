package github

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/repolens/internal/models"
)

// recordSleep captures requested delays without waiting
func recordSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

// scripted returns ErrComputing for the first n calls, then data
func scripted(n int, data []models.WeeklyBucket, calls *int) func(context.Context) ([]models.WeeklyBucket, error) {
	return func(ctx context.Context) ([]models.WeeklyBucket, error) {
		*calls++
		if *calls <= n {
			return nil, ErrComputing
		}
		return data, nil
	}
}

func TestPollReadyOnThirdAttempt(t *testing.T) {
	var calls int
	var delays []time.Duration
	data := []models.WeeklyBucket{{Week: 1700352000, Additions: 10, Deletions: 2}}

	policy := CodeFrequencyPolicy()
	policy.Sleep = recordSleep(&delays)

	res, err := Poll(scripted(2, data, &calls), policy)(context.Background())
	require.NoError(t, err)

	assert.False(t, res.Computing)
	assert.Equal(t, data, res.Data)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, delays)
}

func TestPollExhaustionIsNotAnError(t *testing.T) {
	tests := []struct {
		name   string
		policy RetryPolicy
		delays []time.Duration
	}{
		{
			name:   "code frequency",
			policy: CodeFrequencyPolicy(),
			delays: []time.Duration{2 * time.Second, 2 * time.Second},
		},
		{
			name:   "contributor stats",
			policy: ContributorStatsPolicy(),
			delays: []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 4 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			var delays []time.Duration
			tt.policy.Sleep = recordSleep(&delays)

			res, err := Poll(scripted(100, nil, &calls), tt.policy)(context.Background())
			require.NoError(t, err)

			assert.True(t, res.Computing)
			assert.Empty(t, res.Data)
			assert.Equal(t, tt.policy.MaxAttempts, calls)
			assert.Equal(t, tt.policy.MaxAttempts, res.Attempts)
			assert.Equal(t, tt.delays, delays)
		})
	}
}

func TestPollReturnsOtherErrorsImmediately(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	call := func(ctx context.Context) (int, error) {
		calls++
		return 0, boom
	}

	res, err := Poll(call, ContributorStatsPolicy())(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, res.Computing)
	assert.Equal(t, 1, calls)
}

func TestPollStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	call := func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, ErrComputing
	}

	// Default sleep: a real 1h wait that must be interrupted
	policy := RetryPolicy{MaxAttempts: 3, Backoff: FixedBackoff(time.Hour)}

	start := time.Now()
	_, err := Poll(call, policy)(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestBackoffs(t *testing.T) {
	fixed := FixedBackoff(2 * time.Second)
	assert.Equal(t, 2*time.Second, fixed(1))
	assert.Equal(t, 2*time.Second, fixed(4))

	linear := LinearBackoff(time.Second)
	assert.Equal(t, time.Second, linear(1))
	assert.Equal(t, 3*time.Second, linear(3))
}

func TestPollDefaultsToSingleAttempt(t *testing.T) {
	calls := 0
	call := func(ctx context.Context) (string, error) {
		calls++
		return "", ErrComputing
	}

	res, err := Poll(call, RetryPolicy{})(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Computing)
	assert.Equal(t, 1, calls)
}
