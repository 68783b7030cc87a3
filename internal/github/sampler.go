package github

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/repolens/internal/models"
)

// Sampling defaults
const (
	DefaultSampleSize = 50
	DefaultMaxWorkers = 10
)

// DetailFunc fetches the detail of one commit
type DetailFunc func(ctx context.Context, sha string) (models.CommitDetail, error)

// SampleOptions bounds the detail fan-out
type SampleOptions struct {
	SampleSize int
	MaxWorkers int
}

// SampleCommitDetails fetches detail for the first SampleSize commits
// concurrently. The result has exactly one entry per sampled commit, in
// the same order as commits. A failed fetch yields a zero CommitDetail
// and does not affect the others. The only error returned is the
// context's, once it is done.
func SampleCommitDetails(ctx context.Context, commits []models.CommitSummary, fetch DetailFunc, opts SampleOptions) ([]models.CommitDetail, error) {
	size := opts.SampleSize
	if size <= 0 {
		size = DefaultSampleSize
	}
	if size > len(commits) {
		size = len(commits)
	}
	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = DefaultMaxWorkers
	}

	details := make([]models.CommitDetail, size)

	var g errgroup.Group
	g.SetLimit(workers)

	for i := 0; i < size; i++ {
		i, sha := i, commits[i].SHA
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			detail, err := fetch(ctx, sha)
			if err != nil {
				slog.Debug("commit detail unavailable",
					"component", "sampler",
					"sha", sha,
					"error", err)
				return nil
			}
			details[i] = detail
			return nil
		})
	}

	// Workers never return errors
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return details, err
	}
	return details, nil
}
