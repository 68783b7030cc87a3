package models

import (
	"time"
)

// RepoMetadata is a snapshot of repository attributes fetched once per analysis
type RepoMetadata struct {
	Name          string    `json:"name"`
	FullName      string    `json:"fullName"`
	Description   string    `json:"description"`
	URL           string    `json:"url"`
	Stars         int       `json:"stars"`
	Forks         int       `json:"forks"`
	Watchers      int       `json:"watchers"`
	OpenIssues    int       `json:"openIssues"`
	DefaultBranch string    `json:"defaultBranch"`
	Language      string    `json:"language,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	PushedAt      time.Time `json:"pushedAt"`
	Size          int       `json:"size"`
	Private       bool      `json:"private"`
}

// CommitSummary is one entry of the commit list
type CommitSummary struct {
	SHA          string    `json:"sha"`
	Message      string    `json:"message"` // first line only
	Author       string    `json:"author"`
	AuthorAvatar string    `json:"authorAvatar"`
	Date         time.Time `json:"date"`
}

// CommitDetail holds the per-commit stats fetched separately.
// All fields are zero when the detail fetch failed.
type CommitDetail struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Files     int `json:"files"`
}

// Commit pairs a summary with its sampled detail
type Commit struct {
	CommitSummary
	CommitDetail
}

// WeeklyBucket is one week of code-frequency or contributor activity.
// Week is the unix timestamp (seconds) of the start of the week.
type WeeklyBucket struct {
	Week      int64 `json:"week"`
	Additions int   `json:"additions"`
	Deletions int   `json:"deletions"`
	Commits   int   `json:"commits"`
}

// WeekStart returns the start of the bucket as a time
func (b WeeklyBucket) WeekStart() time.Time {
	return time.Unix(b.Week, 0).UTC()
}

// ContributorSummary ranks one contributor.
// An empty Weeks slice means weekly granularity was unavailable, not zero activity.
type ContributorSummary struct {
	Author string         `json:"author"`
	Avatar string         `json:"avatar"`
	Total  int            `json:"total"`
	Weeks  []WeeklyBucket `json:"weeks"`
}

// LanguageShare is one entry of the derived language breakdown
type LanguageShare struct {
	Name       string  `json:"name"`
	Bytes      int     `json:"bytes"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// AnalysisReport is the merged aggregate returned to callers.
// It is never mutated after Analyze returns.
type AnalysisReport struct {
	ID                  string               `json:"id"`
	Repo                RepoMetadata         `json:"repo"`
	Languages           map[string]int       `json:"languages"`
	LanguagePercentages []LanguageShare      `json:"languagePercentages"`
	Commits             []Commit             `json:"commits"`
	CodeFrequency       []WeeklyBucket       `json:"codeFrequency"`
	Contributors        []ContributorSummary `json:"contributors"`

	// Async sections that never finished computing upstream
	CodeFrequencyComputing bool `json:"codeFrequencyComputing"`
	ContributorsComputing  bool `json:"contributorsComputing"`
	// Contributors came from the lifetime contributor list (no weekly data)
	ContributorsFallback bool `json:"contributorsFallback"`

	TotalAdditions int       `json:"totalAdditions"`
	TotalDeletions int       `json:"totalDeletions"`
	TotalLines     int       `json:"totalLines"`
	IsPrivate      bool      `json:"isPrivate"`
	RequiresAuth   bool      `json:"requiresAuth"`
	AnalyzedAt     time.Time `json:"analyzedAt"`
}

// CodeFrequencyResult is the standalone code-frequency response
type CodeFrequencyResult struct {
	Data      []WeeklyBucket `json:"data"`
	Computing bool           `json:"computing"`
}

// UserRepo is a repository visible to the authenticated user
type UserRepo struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	FullName    string    `json:"fullName"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Stars       int       `json:"stars"`
	Private     bool      `json:"private"`
	Language    string    `json:"language"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
