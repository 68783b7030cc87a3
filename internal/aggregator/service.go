package aggregator

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rohankatakam/repolens/internal/cache"
	apperrors "github.com/rohankatakam/repolens/internal/errors"
	"github.com/rohankatakam/repolens/internal/github"
	"github.com/rohankatakam/repolens/internal/logging"
	"github.com/rohankatakam/repolens/internal/models"
)

// DefaultFlightTimeout bounds a shared unauthenticated analysis
const DefaultFlightTimeout = 2 * time.Minute

// CachedService is the entry point used by the HTTP, MCP and CLI
// surfaces. It adds duplicate-request suppression for anonymous
// analyses, a standalone code-frequency lookup with its own cache, and
// repository listing for authenticated users.
type CachedService struct {
	agg      *Aggregator
	upstream UpstreamFactory
	stats    *cache.Cache[models.CodeFrequencyResult]
	policy   github.RetryPolicy
	group    singleflight.Group
	timeout  time.Duration
	logger   *slog.Logger
}

// ServiceOptions configures a CachedService
type ServiceOptions struct {
	Reports  cache.Config
	Stats    cache.Config
	Analysis Config
	// FlightTimeout bounds a shared anonymous analysis, which outlives
	// the cancellation of any single caller
	FlightTimeout time.Duration
}

// DefaultServiceOptions returns 100 cached reports and 50 cached
// code-frequency results, both kept for 10 minutes
func DefaultServiceOptions() ServiceOptions {
	stats := cache.DefaultConfig()
	stats.Capacity = 50
	stats.Name = "code_frequency"

	return ServiceOptions{
		Reports:       cache.DefaultConfig(),
		Stats:         stats,
		Analysis:      DefaultConfig(),
		FlightTimeout: DefaultFlightTimeout,
	}
}

// NewCachedService wires caches and an Aggregator around upstream
func NewCachedService(upstream UpstreamFactory, opts ServiceOptions) *CachedService {
	if opts.FlightTimeout <= 0 {
		opts.FlightTimeout = DefaultFlightTimeout
	}

	reports := cache.New[*models.AnalysisReport](opts.Reports)
	return &CachedService{
		agg:      New(upstream, reports, opts.Analysis),
		upstream: upstream,
		stats:    cache.New[models.CodeFrequencyResult](opts.Stats),
		policy:   opts.Analysis.CodeFrequencyPolicy,
		timeout:  opts.FlightTimeout,
		logger:   logging.Component("service"),
	}
}

// Aggregator exposes the underlying aggregator
func (s *CachedService) Aggregator() *Aggregator {
	return s.agg
}

type flightResult struct {
	report *models.AnalysisReport
	status CacheStatus
}

// Analyze runs or reuses an analysis. Concurrent anonymous requests for
// the same repository share one upstream fan-out.
func (s *CachedService) Analyze(ctx context.Context, credential, input string) (*models.AnalysisReport, CacheStatus, error) {
	if credential != "" {
		return s.agg.AnalyzeWithStatus(ctx, credential, input)
	}

	id, err := models.ParseIdentifier(input)
	if err != nil {
		return nil, CacheStatus{}, err
	}

	ch := s.group.DoChan(id.CacheKey(), func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		report, status, err := s.agg.AnalyzeWithStatus(flightCtx, "", input)
		if err != nil {
			return nil, err
		}
		return flightResult{report: report, status: status}, nil
	})

	select {
	case <-ctx.Done():
		return nil, CacheStatus{}, apperrors.Timeout(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, CacheStatus{}, res.Err
		}
		if res.Shared {
			s.logger.Debug("joined in-flight analysis", "repo", id.String())
		}
		out := res.Val.(flightResult)
		return out.report, out.status, nil
	}
}

// CodeFrequency returns weekly additions and deletions for a repository.
// Anonymous results are cached only when non-empty, so a repository whose
// statistics were still computing is asked again next time.
func (s *CachedService) CodeFrequency(ctx context.Context, credential, input string) (models.CodeFrequencyResult, CacheStatus, error) {
	id, err := models.ParseIdentifier(input)
	if err != nil {
		return models.CodeFrequencyResult{}, CacheStatus{}, err
	}

	key := id.CacheKey()
	anonymous := credential == ""

	if anonymous {
		if cached, ok, age := s.stats.Get(key); ok && len(cached.Data) > 0 {
			return cached, CacheStatus{Hit: true, Age: age}, nil
		}
	}

	upstream, err := s.upstream(credential)
	if err != nil {
		return models.CodeFrequencyResult{}, CacheStatus{}, apperrors.Wrap(err, apperrors.KindInternal, "Failed to create GitHub client")
	}

	poll := github.Poll(func(ctx context.Context) ([]models.WeeklyBucket, error) {
		return upstream.CodeFrequency(ctx, id)
	}, s.policy)

	res, err := poll(ctx)
	if err != nil {
		return models.CodeFrequencyResult{}, CacheStatus{}, fatal(err)
	}

	result := models.CodeFrequencyResult{Data: res.Data, Computing: res.Computing}
	if result.Data == nil {
		result.Data = []models.WeeklyBucket{}
	}

	if anonymous && len(result.Data) > 0 {
		s.stats.Set(key, result)
	}
	return result, CacheStatus{}, nil
}

// UserRepos lists repositories visible to the credential's owner
func (s *CachedService) UserRepos(ctx context.Context, credential string) ([]models.UserRepo, error) {
	if credential == "" {
		return nil, apperrors.New(apperrors.KindAccessDenied, "Sign in with GitHub to list your repositories.")
	}

	upstream, err := s.upstream(credential)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindInternal, "Failed to create GitHub client")
	}

	repos, err := upstream.UserRepos(ctx)
	if err != nil {
		return nil, fatal(err)
	}
	if repos == nil {
		repos = []models.UserRepo{}
	}
	return repos, nil
}

// CacheSizes reports how many entries each cache holds
func (s *CachedService) CacheSizes() (reports, stats int) {
	return s.agg.reports.Len(), s.stats.Len()
}
