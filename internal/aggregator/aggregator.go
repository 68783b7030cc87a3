package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/repolens/internal/cache"
	apperrors "github.com/rohankatakam/repolens/internal/errors"
	"github.com/rohankatakam/repolens/internal/github"
	"github.com/rohankatakam/repolens/internal/logging"
	"github.com/rohankatakam/repolens/internal/models"
)

// Upstream is the GitHub surface an analysis needs.
// *github.Client implements it.
type Upstream interface {
	Repository(ctx context.Context, id models.RepoIdentifier) (models.RepoMetadata, error)
	Languages(ctx context.Context, id models.RepoIdentifier) (map[string]int, error)
	Commits(ctx context.Context, id models.RepoIdentifier, limit int) ([]models.CommitSummary, error)
	CommitDetail(ctx context.Context, id models.RepoIdentifier, sha string) (models.CommitDetail, error)
	CodeFrequency(ctx context.Context, id models.RepoIdentifier) ([]models.WeeklyBucket, error)
	ContributorStats(ctx context.Context, id models.RepoIdentifier) ([]models.ContributorSummary, error)
	Contributors(ctx context.Context, id models.RepoIdentifier) ([]models.ContributorSummary, error)
	UserRepos(ctx context.Context) ([]models.UserRepo, error)
}

var _ Upstream = (*github.Client)(nil)

// UpstreamFactory returns an Upstream bound to credential.
// An empty credential means anonymous access.
type UpstreamFactory func(credential string) (Upstream, error)

// GitHubFactory builds anonymous or authenticated GitHub clients sharing opts.
// opts.Budget models the host's anonymous quota, so authenticated clients
// (which spend the caller's own quota) skip it.
func GitHubFactory(opts github.Options) UpstreamFactory {
	return func(credential string) (Upstream, error) {
		o := opts
		if credential != "" {
			o.Budget = nil
		}
		return github.NewClient(credential, o)
	}
}

// Config tunes one analysis
type Config struct {
	// CommitLimit caps the commit list (most recent first)
	CommitLimit int
	// SampleSize caps how many commits get a detail fetch
	SampleSize int
	MaxWorkers int

	CodeFrequencyPolicy    github.RetryPolicy
	ContributorStatsPolicy github.RetryPolicy
}

// DefaultConfig returns the standard analysis limits
func DefaultConfig() Config {
	return Config{
		CommitLimit:            50,
		SampleSize:             github.DefaultSampleSize,
		MaxWorkers:             github.DefaultMaxWorkers,
		CodeFrequencyPolicy:    github.CodeFrequencyPolicy(),
		ContributorStatsPolicy: github.ContributorStatsPolicy(),
	}
}

// CacheStatus tells callers whether a report was served from the cache
type CacheStatus struct {
	Hit bool
	Age time.Duration
}

// Aggregator turns a repository identifier into an AnalysisReport
type Aggregator struct {
	upstream UpstreamFactory
	reports  *cache.Cache[*models.AnalysisReport]
	config   Config
	now      func() time.Time
	logger   *slog.Logger
}

// New creates an Aggregator. reports may be nil to disable caching.
func New(upstream UpstreamFactory, reports *cache.Cache[*models.AnalysisReport], config Config) *Aggregator {
	return &Aggregator{
		upstream: upstream,
		reports:  reports,
		config:   config,
		now:      time.Now,
		logger:   logging.Component("aggregator"),
	}
}

// Analyze runs a full analysis. Only identifier validation and the
// metadata fetch can fail the call; every other section degrades to
// empty. Returned errors are *errors.Error.
func (a *Aggregator) Analyze(ctx context.Context, credential, input string) (*models.AnalysisReport, error) {
	report, _, err := a.AnalyzeWithStatus(ctx, credential, input)
	return report, err
}

// AnalyzeWithStatus is Analyze plus the cache outcome
func (a *Aggregator) AnalyzeWithStatus(ctx context.Context, credential, input string) (*models.AnalysisReport, CacheStatus, error) {
	run := &analysis{
		id:     uuid.NewString(),
		state:  StateResolvingIdentifier,
		logger: a.logger,
	}
	run.logger = run.logger.With("analysis_id", run.id)

	id, err := models.ParseIdentifier(input)
	if err != nil {
		run.fail(err)
		return nil, CacheStatus{}, err
	}
	run.logger = run.logger.With("repo", id.String())

	authenticated := credential != ""
	key := id.CacheKey()

	if !authenticated && a.reports != nil {
		run.transition(StateCheckingCache)
		if report, ok, age := a.reports.Get(key); ok {
			run.transition(StateDone)
			run.logger.Info("served from cache", "age", age.Round(time.Second))
			return report, CacheStatus{Hit: true, Age: age}, nil
		}
	}

	run.transition(StateFetchingMetadata)
	upstream, err := a.upstream(credential)
	if err != nil {
		err = apperrors.Wrap(err, apperrors.KindInternal, "Failed to create GitHub client")
		run.fail(err)
		return nil, CacheStatus{}, err
	}

	meta, err := upstream.Repository(ctx, id)
	if err != nil {
		err = fatal(err)
		run.fail(err)
		return nil, CacheStatus{}, err
	}

	if meta.Private && !authenticated {
		run.transition(StateAccessDenied)
		return nil, CacheStatus{}, apperrors.AccessDenied().WithContext("repo", id.String())
	}

	run.transition(StateFanningOutDetail)
	s := a.fanOut(ctx, upstream, id, run.logger)

	if err := ctx.Err(); err != nil {
		err = apperrors.Timeout(err)
		run.fail(err)
		return nil, CacheStatus{}, err
	}

	run.transition(StateMerging)
	report := buildReport(run.id, meta, s, a.now())

	if !authenticated && a.reports != nil {
		run.transition(StateCachingResult)
		a.reports.Set(key, report)
	}

	run.transition(StateDone)
	run.logger.Info("analysis complete",
		"commits", len(report.Commits),
		"languages", len(report.Languages),
		"contributors", len(report.Contributors),
		"code_frequency_computing", report.CodeFrequencyComputing,
		"contributors_fallback", report.ContributorsFallback)

	return report, CacheStatus{}, nil
}

// sections holds the fan-out results before merging
type sections struct {
	languages     map[string]int
	commits       []models.CommitSummary
	details       []models.CommitDetail
	codeFrequency github.StatResult[[]models.WeeklyBucket]
	contributors  github.StatResult[[]models.ContributorSummary]
}

// fanOut fetches the four independent sections concurrently. A failed
// section is logged and left empty; it never fails the analysis.
func (a *Aggregator) fanOut(ctx context.Context, up Upstream, id models.RepoIdentifier, logger *slog.Logger) sections {
	var s sections
	var g errgroup.Group

	g.Go(func() error {
		langs, err := up.Languages(ctx, id)
		if err != nil {
			logger.Warn("languages unavailable", "error", err)
			return nil
		}
		s.languages = langs
		return nil
	})

	g.Go(func() error {
		commits, err := up.Commits(ctx, id, a.config.CommitLimit)
		if err != nil {
			logger.Warn("commits unavailable", "error", err)
			return nil
		}
		s.commits = commits

		fetch := func(ctx context.Context, sha string) (models.CommitDetail, error) {
			return up.CommitDetail(ctx, id, sha)
		}
		details, err := github.SampleCommitDetails(ctx, commits, fetch, github.SampleOptions{
			SampleSize: a.config.SampleSize,
			MaxWorkers: a.config.MaxWorkers,
		})
		if err != nil {
			logger.Warn("commit sampling interrupted", "error", err)
		}
		s.details = details
		return nil
	})

	g.Go(func() error {
		poll := github.Poll(func(ctx context.Context) ([]models.WeeklyBucket, error) {
			return up.CodeFrequency(ctx, id)
		}, a.config.CodeFrequencyPolicy)

		res, err := poll(ctx)
		if err != nil {
			logger.Warn("code frequency unavailable", "error", err, "attempts", res.Attempts)
			return nil
		}
		s.codeFrequency = res
		return nil
	})

	g.Go(func() error {
		stats := github.Poll(func(ctx context.Context) ([]models.ContributorSummary, error) {
			return up.ContributorStats(ctx, id)
		}, a.config.ContributorStatsPolicy)
		simple := func(ctx context.Context) ([]models.ContributorSummary, error) {
			return up.Contributors(ctx, id)
		}

		res, err := github.WithFallback(stats, simple)(ctx)
		if err != nil {
			logger.Warn("contributors unavailable", "error", err, "attempts", res.Attempts)
			s.contributors = github.StatResult[[]models.ContributorSummary]{Computing: res.Computing}
			return nil
		}
		s.contributors = res
		return nil
	})

	// Branches swallow their own errors
	_ = g.Wait()
	return s
}

// fatal normalizes a metadata failure into the error taxonomy
func fatal(err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if github.IsContextError(err) {
		return apperrors.Timeout(err)
	}
	return apperrors.UpstreamUnavailable(err, "Failed to analyze repository")
}
