// Package budget implements a request budget shared across processes
// through Redis, so several repolens instances behind one egress IP do
// not exhaust GitHub's anonymous quota independently.
package budget

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/rohankatakam/repolens/internal/errors"
	"github.com/rohankatakam/repolens/internal/logging"
)

const (
	DefaultLimit  = 60
	DefaultWindow = time.Hour
	DefaultPrefix = "repolens:budget"
)

// Options configures a Limiter
type Options struct {
	// Limit is the number of requests allowed per window
	Limit int64
	// Window is the fixed window length; keys are aligned to multiples of it
	Window time.Duration
	// MaxWait is how long Wait may block for the next window before giving up
	MaxWait time.Duration
	// Prefix namespaces the Redis keys
	Prefix string
	// FailOpen lets calls through when Redis is unreachable
	FailOpen bool
}

// DefaultOptions returns a 60/hour budget that fails open
func DefaultOptions() Options {
	return Options{
		Limit:    DefaultLimit,
		Window:   DefaultWindow,
		Prefix:   DefaultPrefix,
		FailOpen: true,
	}
}

// Limiter counts requests in fixed windows stored in Redis
type Limiter struct {
	redis  *redis.Client
	opts   Options
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	logger *slog.Logger
}

// reserveScript increments the window counter and sets its expiry on
// first use, atomically across processes
var reserveScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	return count
`)

// NewLimiter connects to Redis at redisURL (redis://host:port/db) and
// verifies the connection
func NewLimiter(ctx context.Context, redisURL string, opts Options) (*Limiter, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", redisOpts.Addr, err)
	}

	return NewLimiterWithClient(client, opts), nil
}

// NewLimiterWithClient wraps an existing client
func NewLimiterWithClient(client *redis.Client, opts Options) *Limiter {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}

	return &Limiter{
		redis:  client,
		opts:   opts,
		now:    time.Now,
		sleep:  sleepContext,
		logger: logging.Component("budget"),
	}
}

// Wait reserves one request from the current window. When the window is
// spent it waits for the next one if that is within MaxWait, and returns a
// RateLimited error otherwise.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return apperrors.Timeout(err)
		}

		count, reset, err := l.reserve(ctx)
		if err != nil {
			if l.opts.FailOpen {
				l.logger.Warn("budget check failed, allowing request", "error", err)
				return nil
			}
			return apperrors.UpstreamUnavailable(err, "Request budget unavailable")
		}

		if count <= l.opts.Limit {
			return nil
		}

		if reset > l.opts.MaxWait {
			l.logger.Warn("request budget exhausted",
				"used", count,
				"limit", l.opts.Limit,
				"resets_in", reset)
			return apperrors.RateLimited(fmt.Errorf("request budget exhausted: %d/%d, resets in %s",
				count-1, l.opts.Limit, reset.Round(time.Second)))
		}

		l.logger.Debug("request budget spent, waiting for next window", "wait", reset)
		if err := l.sleep(ctx, reset); err != nil {
			return apperrors.Timeout(err)
		}
	}
}

// reserve counts one request and returns the window's count and the time
// until the window closes
func (l *Limiter) reserve(ctx context.Context) (int64, time.Duration, error) {
	key, remaining := l.windowKey(l.now())

	count, err := reserveScript.Run(ctx, l.redis, []string{key}, remaining.Milliseconds()+1).Int64()
	if err != nil {
		return 0, 0, fmt.Errorf("budget redis operation failed: %w", err)
	}
	return count, remaining, nil
}

// windowKey returns the key for the window containing t and the time
// left until that window closes
func (l *Limiter) windowKey(t time.Time) (string, time.Duration) {
	start := t.Truncate(l.opts.Window)
	remaining := start.Add(l.opts.Window).Sub(t)
	if remaining <= 0 {
		remaining = time.Millisecond
	}
	return fmt.Sprintf("%s:%d", l.opts.Prefix, start.Unix()), remaining
}

// Usage returns the number of requests counted in the current window
func (l *Limiter) Usage(ctx context.Context) (int64, error) {
	key, _ := l.windowKey(l.now())
	n, err := l.redis.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get budget usage: %w", err)
	}
	return n, nil
}

// Close closes the Redis connection
func (l *Limiter) Close() error {
	if l.redis != nil {
		return l.redis.Close()
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
