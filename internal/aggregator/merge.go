package aggregator

import (
	"sort"
	"time"

	"github.com/rohankatakam/repolens/internal/models"
)

// LanguagePercentages converts byte counts into shares of the total,
// largest first. All shares are 0 when the total is 0.
func LanguagePercentages(languages map[string]int) []models.LanguageShare {
	total := 0
	for _, bytes := range languages {
		total += bytes
	}

	shares := make([]models.LanguageShare, 0, len(languages))
	for name, bytes := range languages {
		pct := 0.0
		if total > 0 {
			pct = float64(bytes) / float64(total) * 100
		}
		shares = append(shares, models.LanguageShare{
			Name:       name,
			Bytes:      bytes,
			Percentage: pct,
			Color:      models.LanguageColor(name),
		})
	}

	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Bytes != shares[j].Bytes {
			return shares[i].Bytes > shares[j].Bytes
		}
		return shares[i].Name < shares[j].Name
	})
	return shares
}

// TotalLines approximates the size of recent change. Net change is used
// when positive, otherwise gross additions, so the figure is never
// negative.
func TotalLines(additions, deletions int) int {
	if net := additions - deletions; net > 0 {
		return net
	}
	return additions
}

// buildReport merges fan-out sections into a report. Every collection in
// the result is non-nil so an empty section serializes as [] or {}.
func buildReport(id string, meta models.RepoMetadata, s sections, now time.Time) *models.AnalysisReport {
	languages := make(map[string]int, len(s.languages))
	for name, bytes := range s.languages {
		languages[name] = bytes
	}

	commits := make([]models.Commit, len(s.commits))
	totalAdditions, totalDeletions := 0, 0
	for i, summary := range s.commits {
		commits[i].CommitSummary = summary
		if i < len(s.details) {
			commits[i].CommitDetail = s.details[i]
			totalAdditions += s.details[i].Additions
			totalDeletions += s.details[i].Deletions
		}
	}

	codeFrequency := s.codeFrequency.Data
	if codeFrequency == nil {
		codeFrequency = []models.WeeklyBucket{}
	}
	contributors := s.contributors.Data
	if contributors == nil {
		contributors = []models.ContributorSummary{}
	}

	return &models.AnalysisReport{
		ID:                     id,
		Repo:                   meta,
		Languages:              languages,
		LanguagePercentages:    LanguagePercentages(languages),
		Commits:                commits,
		CodeFrequency:          codeFrequency,
		Contributors:           contributors,
		CodeFrequencyComputing: s.codeFrequency.Computing,
		ContributorsComputing:  s.contributors.Computing,
		ContributorsFallback:   s.contributors.Fallback,
		TotalAdditions:         totalAdditions,
		TotalDeletions:         totalDeletions,
		TotalLines:             TotalLines(totalAdditions, totalDeletions),
		IsPrivate:              meta.Private,
		RequiresAuth:           false,
		AnalyzedAt:             now.UTC(),
	}
}
