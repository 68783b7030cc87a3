package github

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/repolens/internal/models"
)

func makeCommits(n int) []models.CommitSummary {
	commits := make([]models.CommitSummary, n)
	for i := range commits {
		commits[i] = models.CommitSummary{SHA: fmt.Sprintf("sha-%d", i)}
	}
	return commits
}

// detailFor derives a distinct detail from the commit index
func detailFor(i int) models.CommitDetail {
	return models.CommitDetail{Additions: i + 1, Deletions: i, Files: 1}
}

func TestSampleKeepsOrderAndZeroesFailures(t *testing.T) {
	commits := makeCommits(20)
	failing := map[string]bool{"sha-1": true, "sha-4": true, "sha-17": true}

	fetch := func(ctx context.Context, sha string) (models.CommitDetail, error) {
		// Finish out of order
		time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
		if failing[sha] {
			return models.CommitDetail{}, errors.New("upstream error")
		}
		var i int
		fmt.Sscanf(sha, "sha-%d", &i)
		return detailFor(i), nil
	}

	details, err := SampleCommitDetails(context.Background(), commits, fetch, SampleOptions{SampleSize: 20, MaxWorkers: 4})
	require.NoError(t, err)
	require.Len(t, details, 20)

	for i, d := range details {
		if failing[commits[i].SHA] {
			assert.Equal(t, models.CommitDetail{}, d, "index %d should be zero-valued", i)
			continue
		}
		assert.Equal(t, detailFor(i), d, "index %d", i)
	}
}

func TestSampleAllFail(t *testing.T) {
	fetch := func(ctx context.Context, sha string) (models.CommitDetail, error) {
		return models.CommitDetail{}, errors.New("nope")
	}

	details, err := SampleCommitDetails(context.Background(), makeCommits(5), fetch, SampleOptions{})
	require.NoError(t, err)
	require.Len(t, details, 5)
	for _, d := range details {
		assert.Zero(t, d)
	}
}

func TestSampleCapsSampleSize(t *testing.T) {
	var calls atomic.Int32
	fetch := func(ctx context.Context, sha string) (models.CommitDetail, error) {
		calls.Add(1)
		return models.CommitDetail{Files: 1}, nil
	}

	details, err := SampleCommitDetails(context.Background(), makeCommits(80), fetch, SampleOptions{SampleSize: 50})
	require.NoError(t, err)
	assert.Len(t, details, 50)
	assert.Equal(t, int32(50), calls.Load())
}

func TestSampleEmpty(t *testing.T) {
	fetch := func(ctx context.Context, sha string) (models.CommitDetail, error) {
		t.Fatal("fetch should not be called")
		return models.CommitDetail{}, nil
	}

	details, err := SampleCommitDetails(context.Background(), nil, fetch, SampleOptions{})
	require.NoError(t, err)
	assert.Empty(t, details)
}

func TestSampleBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	fetch := func(ctx context.Context, sha string) (models.CommitDetail, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return models.CommitDetail{}, nil
	}

	_, err := SampleCommitDetails(context.Background(), makeCommits(30), fetch, SampleOptions{MaxWorkers: 3})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestSampleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetch := func(ctx context.Context, sha string) (models.CommitDetail, error) {
		return models.CommitDetail{Files: 1}, nil
	}

	details, err := SampleCommitDetails(ctx, makeCommits(10), fetch, SampleOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, details, 10)
}
