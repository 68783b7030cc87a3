package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/rohankatakam/repolens/internal/errors"
	"github.com/rohankatakam/repolens/internal/github"
	"github.com/rohankatakam/repolens/internal/models"
)

func TestAnalyzeHealthyRepository(t *testing.T) {
	up := &MockUpstream{}
	expectHealthyRepo(up)
	agg, _, _ := newTestAggregator(up)

	report, status, err := agg.AnalyzeWithStatus(context.Background(), "", "https://github.com/acme/widget")
	require.NoError(t, err)
	up.AssertExpectations(t)

	assert.False(t, status.Hit)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "acme/widget", report.Repo.FullName)
	assert.False(t, report.RequiresAuth)

	require.Len(t, report.LanguagePercentages, 2)
	assert.Equal(t, "Go", report.LanguagePercentages[0].Name)
	assert.InDelta(t, 75.0, report.LanguagePercentages[0].Percentage, 1e-9)
	assert.InDelta(t, 25.0, report.LanguagePercentages[1].Percentage, 1e-9)
	assert.Equal(t, "#00ADD8", report.LanguagePercentages[0].Color)

	require.Len(t, report.Commits, 3)
	assert.Equal(t, "c1", report.Commits[0].SHA)
	assert.Equal(t, 100, report.Commits[0].Additions)
	assert.Equal(t, 40, report.Commits[2].Deletions)

	assert.Equal(t, 120, report.TotalAdditions)
	assert.Equal(t, 55, report.TotalDeletions)
	assert.Equal(t, 65, report.TotalLines)

	assert.Equal(t, sampleWeeks(), report.CodeFrequency)
	assert.False(t, report.CodeFrequencyComputing)
	assert.Equal(t, sampleContributors(), report.Contributors)
	assert.False(t, report.ContributorsFallback)
	up.AssertNotCalled(t, "Contributors", mock.Anything, mock.Anything)
}

func TestAnalyzeInvalidIdentifier(t *testing.T) {
	up := &MockUpstream{}
	agg, factory, _ := newTestAggregator(up)

	_, err := agg.Analyze(context.Background(), "", "not a repo")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidIdentifier))
	assert.False(t, apperrors.RequiresAuth(err))
	assert.Empty(t, factory.credentials)
	up.AssertExpectations(t)
}

func TestAnalyzePrivateWithoutCredential(t *testing.T) {
	up := &MockUpstream{}
	meta := publicRepo()
	meta.Private = true
	up.On("Repository", mock.Anything, widget).Return(meta, nil).Once()

	agg, _, reports := newTestAggregator(up)

	report, err := agg.Analyze(context.Background(), "", "acme/widget")
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAccessDenied))
	assert.True(t, apperrors.RequiresAuth(err))

	// Only the metadata call happened
	up.AssertExpectations(t)
	assert.Len(t, up.Calls, 1)
	assert.Equal(t, 0, reports.Len())
}

func TestAnalyzePrivateWithCredentialIsNotCached(t *testing.T) {
	up := &MockUpstream{}
	meta := publicRepo()
	meta.Private = true
	up.On("Repository", mock.Anything, widget).Return(meta, nil)
	up.On("Languages", mock.Anything, widget).Return(map[string]int{"Go": 10}, nil)
	up.On("Commits", mock.Anything, widget, 50).Return([]models.CommitSummary{}, nil)
	up.On("CodeFrequency", mock.Anything, widget).Return(sampleWeeks(), nil)
	up.On("ContributorStats", mock.Anything, widget).Return(sampleContributors(), nil)

	agg, factory, reports := newTestAggregator(up)

	report, err := agg.Analyze(context.Background(), "token", "acme/widget")
	require.NoError(t, err)
	assert.True(t, report.IsPrivate)
	assert.Equal(t, 0, reports.Len())

	_, status, err := agg.AnalyzeWithStatus(context.Background(), "token", "acme/widget")
	require.NoError(t, err)
	assert.False(t, status.Hit)
	up.AssertNumberOfCalls(t, "Repository", 2)
	assert.Equal(t, []string{"token", "token"}, factory.credentials)
}

func TestAnalyzeCacheHitMakesNoUpstreamCalls(t *testing.T) {
	up := &MockUpstream{}
	expectHealthyRepo(up)
	agg, factory, _ := newTestAggregator(up)

	first, status, err := agg.AnalyzeWithStatus(context.Background(), "", "acme/widget")
	require.NoError(t, err)
	assert.False(t, status.Hit)
	callsAfterFirst := len(up.Calls)

	// Different spelling, same normalized key
	second, status, err := agg.AnalyzeWithStatus(context.Background(), "", "https://github.com/Acme/Widget.git")
	require.NoError(t, err)
	assert.True(t, status.Hit)
	assert.Same(t, first, second)
	assert.Len(t, up.Calls, callsAfterFirst)
	assert.Len(t, factory.credentials, 1)
}

func TestAnalyzeCodeFrequencyReadyOnThirdAttempt(t *testing.T) {
	up := &MockUpstream{}
	up.On("Repository", mock.Anything, widget).Return(publicRepo(), nil)
	up.On("Languages", mock.Anything, widget).Return(map[string]int{}, nil)
	up.On("Commits", mock.Anything, widget, 50).Return([]models.CommitSummary{}, nil)
	up.On("CodeFrequency", mock.Anything, widget).Return(nil, github.ErrComputing).Twice()
	up.On("CodeFrequency", mock.Anything, widget).Return(sampleWeeks(), nil).Once()
	up.On("ContributorStats", mock.Anything, widget).Return(sampleContributors(), nil)

	agg, _, _ := newTestAggregator(up)

	report, err := agg.Analyze(context.Background(), "", "acme/widget")
	require.NoError(t, err)

	up.AssertNumberOfCalls(t, "CodeFrequency", 3)
	assert.NotEmpty(t, report.CodeFrequency)
	assert.False(t, report.CodeFrequencyComputing)
}

func TestAnalyzeCodeFrequencyStillComputing(t *testing.T) {
	up := &MockUpstream{}
	up.On("Repository", mock.Anything, widget).Return(publicRepo(), nil)
	up.On("Languages", mock.Anything, widget).Return(map[string]int{}, nil)
	up.On("Commits", mock.Anything, widget, 50).Return([]models.CommitSummary{}, nil)
	up.On("CodeFrequency", mock.Anything, widget).Return(nil, github.ErrComputing)
	up.On("ContributorStats", mock.Anything, widget).Return(sampleContributors(), nil)

	agg, _, _ := newTestAggregator(up)

	report, err := agg.Analyze(context.Background(), "", "acme/widget")
	require.NoError(t, err)

	up.AssertNumberOfCalls(t, "CodeFrequency", 3)
	assert.Empty(t, report.CodeFrequency)
	assert.True(t, report.CodeFrequencyComputing)
}

func TestAnalyzeContributorsFallback(t *testing.T) {
	up := &MockUpstream{}
	up.On("Repository", mock.Anything, widget).Return(publicRepo(), nil)
	up.On("Languages", mock.Anything, widget).Return(map[string]int{}, nil)
	up.On("Commits", mock.Anything, widget, 50).Return([]models.CommitSummary{}, nil)
	up.On("CodeFrequency", mock.Anything, widget).Return(sampleWeeks(), nil)
	up.On("ContributorStats", mock.Anything, widget).Return(nil, github.ErrComputing)
	up.On("Contributors", mock.Anything, widget).Return([]models.ContributorSummary{
		{Author: "jane", Total: 120, Weeks: []models.WeeklyBucket{}},
		{Author: "bob", Total: 4, Weeks: []models.WeeklyBucket{}},
	}, nil).Once()

	agg, _, _ := newTestAggregator(up)

	report, err := agg.Analyze(context.Background(), "", "acme/widget")
	require.NoError(t, err)
	up.AssertExpectations(t)

	up.AssertNumberOfCalls(t, "ContributorStats", 5)
	assert.True(t, report.ContributorsFallback)
	require.Len(t, report.Contributors, 2)
	for _, c := range report.Contributors {
		assert.Empty(t, c.Weeks)
	}
	assert.Equal(t, 120, report.Contributors[0].Total)
}

func TestAnalyzeSectionFailuresDegradeToEmpty(t *testing.T) {
	up := &MockUpstream{}
	boom := apperrors.UpstreamUnavailable(errors.New("502 bad gateway"), "GitHub request failed")
	up.On("Repository", mock.Anything, widget).Return(publicRepo(), nil)
	up.On("Languages", mock.Anything, widget).Return(nil, boom)
	up.On("Commits", mock.Anything, widget, 50).Return(nil, boom)
	up.On("CodeFrequency", mock.Anything, widget).Return(nil, boom)
	up.On("ContributorStats", mock.Anything, widget).Return(nil, boom)
	up.On("Contributors", mock.Anything, widget).Return(nil, boom)

	agg, _, reports := newTestAggregator(up)

	report, err := agg.Analyze(context.Background(), "", "acme/widget")
	require.NoError(t, err)

	assert.Empty(t, report.Languages)
	assert.Empty(t, report.LanguagePercentages)
	assert.Empty(t, report.Commits)
	assert.Empty(t, report.CodeFrequency)
	assert.Empty(t, report.Contributors)
	assert.False(t, report.CodeFrequencyComputing)
	assert.Equal(t, 0, report.TotalLines)
	assert.Equal(t, 1, reports.Len())

	// Empty sections still serialize as collections, not null
	raw, err := json.Marshal(report)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, field := range []string{"languages", "languagePercentages", "commits", "codeFrequency", "contributors"} {
		assert.NotNil(t, decoded[field], field)
	}
}

func TestAnalyzeCommitDetailFailuresAreZeroed(t *testing.T) {
	up := &MockUpstream{}
	up.On("Repository", mock.Anything, widget).Return(publicRepo(), nil)
	up.On("Languages", mock.Anything, widget).Return(map[string]int{}, nil)
	up.On("Commits", mock.Anything, widget, 50).Return(sampleCommits(), nil)
	up.On("CommitDetail", mock.Anything, widget, "c1").Return(models.CommitDetail{Additions: 10, Deletions: 2, Files: 1}, nil)
	up.On("CommitDetail", mock.Anything, widget, "c2").Return(nil, errors.New("timeout"))
	up.On("CommitDetail", mock.Anything, widget, "c3").Return(models.CommitDetail{Additions: 1, Deletions: 30, Files: 1}, nil)
	up.On("CodeFrequency", mock.Anything, widget).Return(sampleWeeks(), nil)
	up.On("ContributorStats", mock.Anything, widget).Return(sampleContributors(), nil)

	agg, _, _ := newTestAggregator(up)

	report, err := agg.Analyze(context.Background(), "", "acme/widget")
	require.NoError(t, err)

	require.Len(t, report.Commits, 3)
	assert.Equal(t, models.CommitDetail{}, report.Commits[1].CommitDetail)
	assert.Equal(t, "c2", report.Commits[1].SHA)
	assert.Equal(t, 11, report.TotalAdditions)
	assert.Equal(t, 32, report.TotalDeletions)
	// Net change is negative, so gross additions are reported
	assert.Equal(t, 11, report.TotalLines)
}

func TestAnalyzeMetadataFailures(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		kind         apperrors.Kind
		requiresAuth bool
	}{
		{"not found", apperrors.NotFoundOrPrivate(errors.New("404")), apperrors.KindNotFoundOrPrivate, true},
		{"rate limited", apperrors.RateLimited(errors.New("403")), apperrors.KindRateLimited, true},
		{"unclassified", errors.New("connection reset"), apperrors.KindUpstreamUnavailable, false},
		{"cancelled", context.Canceled, apperrors.KindTimeout, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &MockUpstream{}
			up.On("Repository", mock.Anything, widget).Return(nil, tt.err)
			agg, _, reports := newTestAggregator(up)

			_, err := agg.Analyze(context.Background(), "", "acme/widget")
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperrors.GetKind(err))
			assert.Equal(t, tt.requiresAuth, apperrors.RequiresAuth(err))
			assert.Len(t, up.Calls, 1)
			assert.Equal(t, 0, reports.Len())
		})
	}
}

func TestAnalyzeCancelledDuringFanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	up := &MockUpstream{}
	up.On("Repository", mock.Anything, widget).Return(publicRepo(), nil)
	up.On("Languages", mock.Anything, widget).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, context.Canceled)
	up.On("Commits", mock.Anything, widget, 50).Return([]models.CommitSummary{}, nil).Maybe()
	up.On("CodeFrequency", mock.Anything, widget).Return(sampleWeeks(), nil).Maybe()
	up.On("ContributorStats", mock.Anything, widget).Return(sampleContributors(), nil).Maybe()
	up.On("Contributors", mock.Anything, widget).Return(nil, context.Canceled).Maybe()

	agg, _, reports := newTestAggregator(up)

	report, err := agg.Analyze(ctx, "", "acme/widget")
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, apperrors.IsKind(err, apperrors.KindTimeout))
	assert.Equal(t, 0, reports.Len(), "partial results must not be cached")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "checking_cache", StateCheckingCache.String())
	assert.Equal(t, "access_denied", StateAccessDenied.String())
	assert.Equal(t, "unknown", State(99).String())
}
