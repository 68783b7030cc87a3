package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rohankatakam/repolens/internal/models"
)

// AnalyzeRepositoryName is the registered tool name
const AnalyzeRepositoryName = "repolens.analyze_repository"

const (
	defaultTopLanguages    = 5
	defaultTopContributors = 5
)

// AnalyzeRepositoryTool implements the repolens.analyze_repository tool
type AnalyzeRepositoryTool struct {
	analyzer   Analyzer
	credential string
}

// NewAnalyzeRepositoryTool creates the tool. credential is the server's
// own token; empty means anonymous.
func NewAnalyzeRepositoryTool(analyzer Analyzer, credential string) *AnalyzeRepositoryTool {
	return &AnalyzeRepositoryTool{analyzer: analyzer, credential: credential}
}

// RepositorySummary is the compact form returned when summary_only is set
type RepositorySummary struct {
	Repo            string                      `json:"repo"`
	Description     string                      `json:"description,omitempty"`
	Stars           int                         `json:"stars"`
	Forks           int                         `json:"forks"`
	OpenIssues      int                         `json:"openIssues"`
	Private         bool                        `json:"private"`
	TopLanguages    []models.LanguageShare      `json:"topLanguages"`
	TopContributors []models.ContributorSummary `json:"topContributors"`
	RecentCommits   int                         `json:"recentCommits"`
	TotalAdditions  int                         `json:"totalAdditions"`
	TotalDeletions  int                         `json:"totalDeletions"`
	TotalLines      int                         `json:"totalLines"`
	StatsComputing  bool                        `json:"statsComputing"`
	Cached          bool                        `json:"cached"`
}

// Definition describes the tool and its arguments
func (t *AnalyzeRepositoryTool) Definition() mcp.Tool {
	return mcp.NewTool(AnalyzeRepositoryName,
		mcp.WithDescription("Analyze a GitHub repository: metadata, languages, recent commits with line counts, weekly code frequency and contributors."),
		mcp.WithString("repo", mcp.Description("Repository as owner/name or a github.com URL."), mcp.Required()),
		mcp.WithBoolean("summary_only", mcp.Description("Return headline numbers instead of the full report.")),
		mcp.WithNumber("max_commits", mcp.Description("Trim the commit list to this many entries.")),
	)
}

// Handle runs an analysis
func (t *AnalyzeRepositoryTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo := request.GetString("repo", "")
	if repo == "" {
		return mcp.NewToolResultError("repo is required"), nil
	}

	report, status, err := t.analyzer.Analyze(ctx, t.credential, repo)
	if err != nil {
		return failure(err)
	}

	if request.GetBool("summary_only", false) {
		return jsonResult(summarize(report, status.Hit))
	}

	// the cached report is shared; trim a copy
	out := *report
	if limit := request.GetInt("max_commits", 0); limit > 0 && len(out.Commits) > limit {
		out.Commits = out.Commits[:limit]
	}
	return jsonResult(out)
}

func summarize(r *models.AnalysisReport, cached bool) RepositorySummary {
	langs := r.LanguagePercentages
	if len(langs) > defaultTopLanguages {
		langs = langs[:defaultTopLanguages]
	}

	contributors := make([]models.ContributorSummary, 0, defaultTopContributors)
	for _, c := range r.Contributors {
		if len(contributors) == defaultTopContributors {
			break
		}
		// weekly buckets are noise in a summary
		c.Weeks = nil
		contributors = append(contributors, c)
	}

	return RepositorySummary{
		Repo:            r.Repo.FullName,
		Description:     r.Repo.Description,
		Stars:           r.Repo.Stars,
		Forks:           r.Repo.Forks,
		OpenIssues:      r.Repo.OpenIssues,
		Private:         r.IsPrivate,
		TopLanguages:    langs,
		TopContributors: contributors,
		RecentCommits:   len(r.Commits),
		TotalAdditions:  r.TotalAdditions,
		TotalDeletions:  r.TotalDeletions,
		TotalLines:      r.TotalLines,
		StatsComputing:  r.CodeFrequencyComputing || r.ContributorsComputing,
		Cached:          cached,
	}
}
