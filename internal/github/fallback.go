package github

import (
	"context"
	"log/slog"

	"github.com/rohankatakam/repolens/internal/models"
)

// ContributorsCall produces a contributor ranking
type ContributorsCall func(ctx context.Context) ([]models.ContributorSummary, error)

// WithFallback wraps a polled contributor-stats call. When the primary
// call never finishes computing, or fails for a reason other than
// cancellation, the simple contributor list is fetched once instead.
// Fallback entries have empty Weeks: weekly granularity is unavailable,
// not zero.
func WithFallback(
	primary func(ctx context.Context) (StatResult[[]models.ContributorSummary], error),
	fallback ContributorsCall,
) func(ctx context.Context) (StatResult[[]models.ContributorSummary], error) {
	return func(ctx context.Context) (StatResult[[]models.ContributorSummary], error) {
		res, err := primary(ctx)
		if err == nil && !res.Computing {
			return res, nil
		}
		if err != nil && IsContextError(err) {
			return res, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}

		reason := "computing"
		if err != nil {
			reason = err.Error()
		}
		slog.Debug("falling back to contributor list",
			"component", "fallback",
			"reason", reason,
			"attempts", res.Attempts)

		list, ferr := fallback(ctx)
		if ferr != nil {
			return res, ferr
		}

		for i := range list {
			list[i].Weeks = []models.WeeklyBucket{}
		}

		return StatResult[[]models.ContributorSummary]{
			Data:     list,
			Fallback: true,
			Attempts: res.Attempts,
		}, nil
	}
}
