package main

import (
	"context"

	"github.com/rohankatakam/repolens/internal/aggregator"
	"github.com/rohankatakam/repolens/internal/budget"
	"github.com/rohankatakam/repolens/internal/cache"
	"github.com/rohankatakam/repolens/internal/config"
	"github.com/rohankatakam/repolens/internal/github"
)

// newService builds the cached analysis service from configuration.
// The returned cleanup releases the budget's Redis connection, if any.
func newService(ctx context.Context, c *config.Config) (*aggregator.CachedService, func()) {
	opts := github.Options{
		BaseURL:   c.GitHub.BaseURL,
		RateLimit: c.GitHub.RateLimit,
		Burst:     c.GitHub.Burst,
	}

	cleanup := func() {}
	if c.Budget.RedisURL != "" {
		limiter, err := budget.NewLimiter(ctx, c.Budget.RedisURL, budget.Options{
			Limit:    int64(c.Budget.RequestsPerHour),
			Window:   c.Budget.Window,
			FailOpen: true,
		})
		if err != nil {
			// the budget is advisory; GitHub still enforces its own quota
			logger.WithError(err).Warn("Request budget disabled")
		} else {
			logger.WithField("limit", c.Budget.RequestsPerHour).Debug("Request budget enabled")
			opts.Budget = limiter
			cleanup = func() { _ = limiter.Close() }
		}
	}

	svc := aggregator.NewCachedService(aggregator.GitHubFactory(opts), serviceOptions(c))
	return svc, cleanup
}

func serviceOptions(c *config.Config) aggregator.ServiceOptions {
	reports := cache.Config{
		TTL:             c.Cache.TTL,
		Capacity:        c.Cache.Capacity,
		CleanupInterval: c.Cache.CleanupInterval,
		Name:            "reports",
	}
	stats := reports
	stats.Capacity = c.Cache.StatsCapacity
	stats.Name = "code_frequency"

	return aggregator.ServiceOptions{
		Reports: reports,
		Stats:   stats,
		Analysis: aggregator.Config{
			CommitLimit: c.Analysis.CommitLimit,
			SampleSize:  c.Analysis.SampleSize,
			MaxWorkers:  c.Analysis.MaxWorkers,
			CodeFrequencyPolicy: github.RetryPolicy{
				MaxAttempts: c.Analysis.CodeFrequencyAttempts,
				Backoff:     github.FixedBackoff(c.Analysis.CodeFrequencyBackoff),
			},
			ContributorStatsPolicy: github.RetryPolicy{
				MaxAttempts: c.Analysis.ContributorStatsAttempts,
				Backoff:     github.LinearBackoff(c.Analysis.ContributorStatsBackoff),
			},
		},
		FlightTimeout: c.Analysis.FlightTimeout,
	}
}

// validate fails on configuration errors and logs warnings
func validate(c *config.Config, ctx config.ValidationContext) error {
	result := c.Validate(ctx)
	for _, w := range result.Warnings {
		logger.Warn(w)
	}
	if result.HasErrors() {
		return result
	}
	return nil
}
