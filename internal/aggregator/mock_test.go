package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/rohankatakam/repolens/internal/cache"
	"github.com/rohankatakam/repolens/internal/models"
)

// MockUpstream is a mock implementation of Upstream for testing.
type MockUpstream struct {
	mock.Mock
}

var _ Upstream = &MockUpstream{} // Compile-time check

func (m *MockUpstream) Repository(ctx context.Context, id models.RepoIdentifier) (models.RepoMetadata, error) {
	args := m.Called(ctx, id)
	meta, _ := args.Get(0).(models.RepoMetadata)
	return meta, args.Error(1)
}

func (m *MockUpstream) Languages(ctx context.Context, id models.RepoIdentifier) (map[string]int, error) {
	args := m.Called(ctx, id)
	langs, _ := args.Get(0).(map[string]int)
	return langs, args.Error(1)
}

func (m *MockUpstream) Commits(ctx context.Context, id models.RepoIdentifier, limit int) ([]models.CommitSummary, error) {
	args := m.Called(ctx, id, limit)
	commits, _ := args.Get(0).([]models.CommitSummary)
	return commits, args.Error(1)
}

func (m *MockUpstream) CommitDetail(ctx context.Context, id models.RepoIdentifier, sha string) (models.CommitDetail, error) {
	args := m.Called(ctx, id, sha)
	detail, _ := args.Get(0).(models.CommitDetail)
	return detail, args.Error(1)
}

func (m *MockUpstream) CodeFrequency(ctx context.Context, id models.RepoIdentifier) ([]models.WeeklyBucket, error) {
	args := m.Called(ctx, id)
	weeks, _ := args.Get(0).([]models.WeeklyBucket)
	return weeks, args.Error(1)
}

func (m *MockUpstream) ContributorStats(ctx context.Context, id models.RepoIdentifier) ([]models.ContributorSummary, error) {
	args := m.Called(ctx, id)
	contributors, _ := args.Get(0).([]models.ContributorSummary)
	return contributors, args.Error(1)
}

func (m *MockUpstream) Contributors(ctx context.Context, id models.RepoIdentifier) ([]models.ContributorSummary, error) {
	args := m.Called(ctx, id)
	contributors, _ := args.Get(0).([]models.ContributorSummary)
	return contributors, args.Error(1)
}

func (m *MockUpstream) UserRepos(ctx context.Context) ([]models.UserRepo, error) {
	args := m.Called(ctx)
	repos, _ := args.Get(0).([]models.UserRepo)
	return repos, args.Error(1)
}

var widget = models.RepoIdentifier{Owner: "acme", Name: "widget"}

// recordingFactory hands out the same mock and remembers credentials
type recordingFactory struct {
	mu          sync.Mutex
	upstream    *MockUpstream
	credentials []string
}

func (f *recordingFactory) New(credential string) (Upstream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credentials = append(f.credentials, credential)
	return f.upstream, nil
}

func noSleep(context.Context, time.Duration) error { return nil }

// testConfig keeps production attempt counts but never sleeps
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.CodeFrequencyPolicy.Sleep = noSleep
	cfg.ContributorStatsPolicy.Sleep = noSleep
	return cfg
}

func newTestAggregator(up *MockUpstream) (*Aggregator, *recordingFactory, *cache.Cache[*models.AnalysisReport]) {
	factory := &recordingFactory{upstream: up}
	reports := cache.New[*models.AnalysisReport](cache.Config{TTL: 10 * time.Minute, Capacity: 100, Name: "test"})
	return New(factory.New, reports, testConfig()), factory, reports
}

func publicRepo() models.RepoMetadata {
	return models.RepoMetadata{
		Name:          "widget",
		FullName:      "acme/widget",
		DefaultBranch: "main",
		Stars:         42,
	}
}

func sampleCommits() []models.CommitSummary {
	return []models.CommitSummary{
		{SHA: "c1", Message: "Add parser", Author: "jane"},
		{SHA: "c2", Message: "Fix tests", Author: "bob"},
		{SHA: "c3", Message: "Remove legacy", Author: "jane"},
	}
}

func sampleWeeks() []models.WeeklyBucket {
	return []models.WeeklyBucket{
		{Week: 1700352000, Additions: 100, Deletions: 20},
		{Week: 1700956800, Additions: 5, Deletions: 1},
	}
}

func sampleContributors() []models.ContributorSummary {
	return []models.ContributorSummary{
		{Author: "jane", Total: 30, Weeks: []models.WeeklyBucket{{Week: 1700352000, Commits: 30}}},
		{Author: "bob", Total: 5, Weeks: []models.WeeklyBucket{{Week: 1700352000, Commits: 5}}},
	}
}

// expectHealthyRepo sets up every upstream call for a public repository
func expectHealthyRepo(up *MockUpstream) {
	up.On("Repository", mock.Anything, widget).Return(publicRepo(), nil)
	up.On("Languages", mock.Anything, widget).Return(map[string]int{"Go": 300, "Shell": 100}, nil)
	up.On("Commits", mock.Anything, widget, 50).Return(sampleCommits(), nil)
	up.On("CommitDetail", mock.Anything, widget, "c1").Return(models.CommitDetail{Additions: 100, Deletions: 10, Files: 3}, nil)
	up.On("CommitDetail", mock.Anything, widget, "c2").Return(models.CommitDetail{Additions: 20, Deletions: 5, Files: 1}, nil)
	up.On("CommitDetail", mock.Anything, widget, "c3").Return(models.CommitDetail{Additions: 0, Deletions: 40, Files: 2}, nil)
	up.On("CodeFrequency", mock.Anything, widget).Return(sampleWeeks(), nil)
	up.On("ContributorStats", mock.Anything, widget).Return(sampleContributors(), nil)
}
