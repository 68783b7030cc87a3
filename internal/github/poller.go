package github

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// StatResult is the outcome of a polled statistics call.
// Computing with empty Data is a normal terminal state, not a failure.
type StatResult[T any] struct {
	Data      T
	Computing bool
	// Fallback is set when Data came from a lower-fidelity source
	Fallback bool
	Attempts int
}

// Backoff returns the delay before the next attempt. attempt starts at 1.
type Backoff func(attempt int) time.Duration

// FixedBackoff waits the same delay between every attempt
func FixedBackoff(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// LinearBackoff waits attempt * step
func LinearBackoff(step time.Duration) Backoff {
	return func(attempt int) time.Duration { return time.Duration(attempt) * step }
}

// RetryPolicy bounds how long a statistics call is polled
type RetryPolicy struct {
	MaxAttempts int
	Backoff     Backoff

	// Sleep overrides the wait between attempts (tests). It must return
	// early with the context error when ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// CodeFrequencyPolicy polls code frequency 3 times, 2s apart
func CodeFrequencyPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: FixedBackoff(2 * time.Second)}
}

// ContributorStatsPolicy polls contributor stats 5 times with a linear
// backoff, since GitHub takes longer to compute them
func ContributorStatsPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, Backoff: LinearBackoff(time.Second)}
}

// Poll wraps call so that ErrComputing is retried according to policy.
// Attempts run sequentially. Once MaxAttempts calls all returned
// ErrComputing, the wrapped call yields StatResult{Computing: true} and
// a nil error. Any other error is returned as is.
func Poll[T any](call func(ctx context.Context) (T, error), policy RetryPolicy) func(ctx context.Context) (StatResult[T], error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoff := policy.Backoff
	if backoff == nil {
		backoff = FixedBackoff(0)
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	return func(ctx context.Context) (StatResult[T], error) {
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			data, err := call(ctx)
			if err == nil {
				return StatResult[T]{Data: data, Attempts: attempt}, nil
			}
			if !errors.Is(err, ErrComputing) {
				return StatResult[T]{Attempts: attempt}, err
			}
			if attempt == maxAttempts {
				break
			}

			delay := backoff(attempt)
			slog.Debug("statistics still computing, retrying",
				"component", "poller",
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"delay", delay)

			if err := sleep(ctx, delay); err != nil {
				return StatResult[T]{Attempts: attempt}, err
			}
		}

		return StatResult[T]{Computing: true, Attempts: maxAttempts}, nil
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
