package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/time/rate"

	apperrors "github.com/rohankatakam/repolens/internal/errors"
	"github.com/rohankatakam/repolens/internal/logging"
	"github.com/rohankatakam/repolens/internal/models"
)

const (
	// GitHub caps list endpoints at 100 items per page
	maxPerPage = 100
	// Authenticated repo listing stops after this many pages (500 repos)
	maxUserRepoPages = 5

	unknownAuthor = "Unknown"
)

// RequestBudget gates upstream calls beyond the local pacing limiter,
// e.g. a quota shared by several processes
type RequestBudget interface {
	Wait(ctx context.Context) error
}

// Options configures a Client
type Options struct {
	// BaseURL overrides the API endpoint (GitHub Enterprise, tests)
	BaseURL string
	// RateLimit is the client-side pacing in requests per second; <= 0 disables pacing
	RateLimit float64
	Burst     int

	HTTPClient *http.Client
	Budget     RequestBudget
}

// DefaultOptions returns pacing suitable for a single analysis fan-out
func DefaultOptions() Options {
	return Options{
		RateLimit: 10,
		Burst:     10,
	}
}

// Client wraps the GitHub API client with rate limiting.
// A Client is bound to one credential; create one per caller token.
type Client struct {
	client        *github.Client
	rateLimiter   *rate.Limiter
	budget        RequestBudget
	authenticated bool
	logger        *slog.Logger
}

// NewClient creates a GitHub client. An empty token yields an anonymous
// client, which works for public repositories at a lower upstream quota.
func NewClient(token string, opts Options) (*Client, error) {
	client := github.NewClient(opts.HTTPClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	if opts.BaseURL != "" {
		base, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		if !strings.HasSuffix(base.Path, "/") {
			base.Path += "/"
		}
		client.BaseURL = base
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		client:        client,
		rateLimiter:   rate.NewLimiter(limit, burst),
		budget:        opts.Budget,
		authenticated: token != "",
		logger:        logging.Component("github"),
	}, nil
}

// Authenticated reports whether the client carries a credential
func (c *Client) Authenticated() bool {
	return c.authenticated
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return apperrors.Timeout(fmt.Errorf("rate limiter: %w", err))
	}
	if c.budget != nil {
		if err := c.budget.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Repository gets repository metadata
func (c *Client) Repository(ctx context.Context, id models.RepoIdentifier) (models.RepoMetadata, error) {
	if err := c.wait(ctx); err != nil {
		return models.RepoMetadata{}, err
	}

	repo, resp, err := c.client.Repositories.Get(ctx, id.Owner, id.Name)
	c.logRateLimit(resp)
	if err != nil {
		return models.RepoMetadata{}, Classify(err)
	}

	return models.RepoMetadata{
		Name:          repo.GetName(),
		FullName:      repo.GetFullName(),
		Description:   repo.GetDescription(),
		URL:           repo.GetHTMLURL(),
		Stars:         repo.GetStargazersCount(),
		Forks:         repo.GetForksCount(),
		Watchers:      repo.GetWatchersCount(),
		OpenIssues:    repo.GetOpenIssuesCount(),
		DefaultBranch: repo.GetDefaultBranch(),
		Language:      repo.GetLanguage(),
		CreatedAt:     repo.GetCreatedAt().Time,
		UpdatedAt:     repo.GetUpdatedAt().Time,
		PushedAt:      repo.GetPushedAt().Time,
		Size:          repo.GetSize(),
		Private:       repo.GetPrivate(),
	}, nil
}

// Languages returns bytes of code per language
func (c *Client) Languages(ctx context.Context, id models.RepoIdentifier) (map[string]int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	langs, resp, err := c.client.Repositories.ListLanguages(ctx, id.Owner, id.Name)
	c.logRateLimit(resp)
	if err != nil {
		return nil, Classify(err)
	}
	if langs == nil {
		langs = map[string]int{}
	}
	return langs, nil
}

// Commits lists the most recent commits, newest first, capped at limit
func (c *Client) Commits(ctx context.Context, id models.RepoIdentifier, limit int) ([]models.CommitSummary, error) {
	if limit <= 0 || limit > maxPerPage {
		limit = maxPerPage
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	opts := &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: limit},
	}
	commits, resp, err := c.client.Repositories.ListCommits(ctx, id.Owner, id.Name, opts)
	c.logRateLimit(resp)
	if err != nil {
		return nil, Classify(err)
	}

	if len(commits) > limit {
		commits = commits[:limit]
	}

	summaries := make([]models.CommitSummary, 0, len(commits))
	for _, commit := range commits {
		author := commit.GetCommit().GetAuthor().GetName()
		if author == "" {
			author = unknownAuthor
		}
		summaries = append(summaries, models.CommitSummary{
			SHA:          commit.GetSHA(),
			Message:      firstLine(commit.GetCommit().GetMessage()),
			Author:       author,
			AuthorAvatar: commit.GetAuthor().GetAvatarURL(),
			Date:         commit.GetCommit().GetAuthor().GetDate().Time,
		})
	}
	return summaries, nil
}

// CommitDetail fetches line and file stats for one commit
func (c *Client) CommitDetail(ctx context.Context, id models.RepoIdentifier, sha string) (models.CommitDetail, error) {
	if err := c.wait(ctx); err != nil {
		return models.CommitDetail{}, err
	}

	commit, resp, err := c.client.Repositories.GetCommit(ctx, id.Owner, id.Name, sha, nil)
	c.logRateLimit(resp)
	if err != nil {
		return models.CommitDetail{}, Classify(err)
	}

	return models.CommitDetail{
		Additions: commit.GetStats().GetAdditions(),
		Deletions: commit.GetStats().GetDeletions(),
		Files:     len(commit.Files),
	}, nil
}

// CodeFrequency returns weekly additions and deletions.
// Returns ErrComputing while GitHub is still building the statistics.
func (c *Client) CodeFrequency(ctx context.Context, id models.RepoIdentifier) ([]models.WeeklyBucket, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	weeks, resp, err := c.client.Repositories.ListCodeFrequency(ctx, id.Owner, id.Name)
	c.logRateLimit(resp)
	if err != nil {
		return nil, Classify(err)
	}

	buckets := make([]models.WeeklyBucket, 0, len(weeks))
	for _, w := range weeks {
		buckets = append(buckets, models.WeeklyBucket{
			Week:      w.GetWeek().Unix(),
			Additions: w.GetAdditions(),
			// GitHub reports deletions as negative numbers
			Deletions: abs(w.GetDeletions()),
		})
	}
	return buckets, nil
}

// ContributorStats returns per-contributor weekly activity, top contributors first.
// Returns ErrComputing while GitHub is still building the statistics.
func (c *Client) ContributorStats(ctx context.Context, id models.RepoIdentifier) ([]models.ContributorSummary, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	stats, resp, err := c.client.Repositories.ListContributorsStats(ctx, id.Owner, id.Name)
	c.logRateLimit(resp)
	if err != nil {
		return nil, Classify(err)
	}

	contributors := make([]models.ContributorSummary, 0, len(stats))
	for _, s := range stats {
		weeks := make([]models.WeeklyBucket, 0, len(s.Weeks))
		for _, w := range s.Weeks {
			weeks = append(weeks, models.WeeklyBucket{
				Week:      w.GetWeek().Unix(),
				Additions: w.GetAdditions(),
				Deletions: w.GetDeletions(),
				Commits:   w.GetCommits(),
			})
		}
		contributors = append(contributors, models.ContributorSummary{
			Author: loginOrUnknown(s.GetAuthor().GetLogin()),
			Avatar: s.GetAuthor().GetAvatarURL(),
			Total:  s.GetTotal(),
			Weeks:  weeks,
		})
	}

	sortByTotal(contributors)
	return contributors, nil
}

// Contributors lists lifetime contribution counts. It is always
// synchronous, so entries carry no weekly data.
func (c *Client) Contributors(ctx context.Context, id models.RepoIdentifier) ([]models.ContributorSummary, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	opts := &github.ListContributorsOptions{
		ListOptions: github.ListOptions{PerPage: maxPerPage},
	}
	list, resp, err := c.client.Repositories.ListContributors(ctx, id.Owner, id.Name, opts)
	c.logRateLimit(resp)
	if err != nil {
		return nil, Classify(err)
	}

	contributors := make([]models.ContributorSummary, 0, len(list))
	for _, contributor := range list {
		contributors = append(contributors, models.ContributorSummary{
			Author: loginOrUnknown(contributor.GetLogin()),
			Avatar: contributor.GetAvatarURL(),
			Total:  contributor.GetContributions(),
			Weeks:  []models.WeeklyBucket{},
		})
	}

	sortByTotal(contributors)
	return contributors, nil
}

// UserRepos lists repositories visible to the authenticated user, most
// recently updated first, capped at 500
func (c *Client) UserRepos(ctx context.Context) ([]models.UserRepo, error) {
	if !c.authenticated {
		return nil, apperrors.New(apperrors.KindAccessDenied, "Sign in with GitHub to list your repositories.")
	}

	opts := &github.RepositoryListByAuthenticatedUserOptions{
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: maxPerPage, Page: 1},
	}

	var repos []models.UserRepo
	for opts.Page <= maxUserRepoPages {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		page, resp, err := c.client.Repositories.ListByAuthenticatedUser(ctx, opts)
		c.logRateLimit(resp)
		if err != nil {
			return nil, Classify(err)
		}

		for _, r := range page {
			updated := r.GetUpdatedAt().Time
			if updated.IsZero() {
				updated = time.Now()
			}
			repos = append(repos, models.UserRepo{
				ID:          r.GetID(),
				Name:        r.GetName(),
				FullName:    r.GetFullName(),
				Description: r.GetDescription(),
				URL:         r.GetHTMLURL(),
				Stars:       r.GetStargazersCount(),
				Private:     r.GetPrivate(),
				Language:    r.GetLanguage(),
				UpdatedAt:   updated,
			})
		}

		if len(page) < maxPerPage {
			break
		}
		opts.Page++
	}

	c.logger.Debug("listed user repositories", "count", len(repos), "pages", opts.Page)
	return repos, nil
}

// logRateLimit warns when the upstream quota is running low
func (c *Client) logRateLimit(resp *github.Response) {
	if resp == nil {
		return
	}

	remaining := resp.Rate.Remaining
	limit := resp.Rate.Limit
	if limit == 0 {
		return
	}

	if remaining < limit/10 {
		c.logger.Warn("rate limit low",
			"remaining", remaining,
			"limit", limit,
			"reset", resp.Rate.Reset.Time,
			"authenticated", c.authenticated)
	}
}

func firstLine(message string) string {
	line, _, _ := strings.Cut(message, "\n")
	return strings.TrimRight(line, "\r")
}

func loginOrUnknown(login string) string {
	if login == "" {
		return unknownAuthor
	}
	return login
}

func sortByTotal(contributors []models.ContributorSummary) {
	sort.SliceStable(contributors, func(i, j int) bool {
		return contributors[i].Total > contributors[j].Total
	})
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
