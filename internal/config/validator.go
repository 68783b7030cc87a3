package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rohankatakam/repolens/internal/logging"
)

// ValidationContext specifies which entry point is being configured
type ValidationContext string

const (
	// ValidationContextAnalyze - one-shot CLI analysis
	ValidationContextAnalyze ValidationContext = "analyze"
	// ValidationContextServe - HTTP API server
	ValidationContextServe ValidationContext = "serve"
	// ValidationContextRepos - listing the signed-in user's repositories requires a token
	ValidationContextRepos ValidationContext = "repos"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}

	return sb.String()
}

// Validate checks the configuration for the given entry point
func (c *Config) Validate(ctx ValidationContext) *ValidationResult {
	result := &ValidationResult{Valid: true}

	c.validateGitHub(ctx, result)
	c.validateCache(result)
	c.validateAnalysis(result)

	if ctx == ValidationContextServe {
		c.validateServer(result)
		c.validateBudget(result)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		result.AddError("logging.level: %v", err)
	}
	if f := strings.ToLower(c.Logging.Format); f != "" && f != "text" && f != "json" {
		result.AddError("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return result
}

func (c *Config) validateGitHub(ctx ValidationContext, result *ValidationResult) {
	if c.GitHub.Token == "" {
		if ctx == ValidationContextRepos {
			result.AddError("a GitHub token is required (set GITHUB_TOKEN or run: repolens login)")
		} else {
			result.AddWarning("no GitHub token configured; anonymous requests are limited to 60 per hour and private repositories are unavailable")
		}
	}

	if c.GitHub.BaseURL != "" {
		u, err := url.Parse(c.GitHub.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			result.AddError("github.base_url is not a valid URL: %q", c.GitHub.BaseURL)
		}
	}

	if c.GitHub.RateLimit < 0 {
		result.AddError("github.rate_limit must be >= 0")
	}
	if c.GitHub.RateLimit > 0 && c.GitHub.Burst < 1 {
		result.AddError("github.burst must be >= 1 when a rate limit is set")
	}
}

func (c *Config) validateCache(result *ValidationResult) {
	if c.Cache.TTL <= 0 {
		result.AddError("cache.ttl must be positive")
	}
	if c.Cache.Capacity < 0 || c.Cache.StatsCapacity < 0 {
		result.AddError("cache capacities must be >= 0")
	}
	if c.Cache.Capacity == 0 {
		result.AddWarning("cache.capacity is 0; the report cache is unbounded")
	}
}

func (c *Config) validateAnalysis(result *ValidationResult) {
	a := c.Analysis
	if a.CommitLimit < 1 || a.CommitLimit > 100 {
		result.AddError("analysis.commit_limit must be between 1 and 100")
	}
	if a.SampleSize < 0 {
		result.AddError("analysis.sample_size must be >= 0")
	}
	if a.SampleSize > a.CommitLimit {
		result.AddWarning("analysis.sample_size (%d) exceeds commit_limit (%d)", a.SampleSize, a.CommitLimit)
	}
	if a.MaxWorkers < 1 {
		result.AddError("analysis.max_workers must be >= 1")
	}
	if a.CodeFrequencyAttempts < 1 || a.ContributorStatsAttempts < 1 {
		result.AddError("poll attempts must be >= 1")
	}
	if a.CodeFrequencyBackoff < 0 || a.ContributorStatsBackoff < 0 {
		result.AddError("poll backoffs must be >= 0")
	}
}

func (c *Config) validateServer(result *ValidationResult) {
	if c.Server.Address == "" {
		result.AddError("server.address is required")
	}
	if c.Server.RequestTimeout <= 0 {
		result.AddError("server.request_timeout must be positive")
	}
}

func (c *Config) validateBudget(result *ValidationResult) {
	if c.Budget.RedisURL == "" {
		return
	}
	if _, err := url.Parse(c.Budget.RedisURL); err != nil {
		result.AddError("budget.redis_url is not a valid URL: %v", err)
	}
	if c.Budget.RequestsPerHour < 1 {
		result.AddError("budget.requests_per_hour must be >= 1")
	}
	if c.Budget.Window <= 0 {
		result.AddError("budget.window must be positive")
	}
}
