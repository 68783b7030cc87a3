package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for repolens
type Config struct {
	GitHub   GitHubConfig   `yaml:"github" mapstructure:"github"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Budget   BudgetConfig   `yaml:"budget" mapstructure:"budget"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
}

// GitHubConfig controls the upstream client
type GitHubConfig struct {
	Token       string  `yaml:"token,omitempty" mapstructure:"token"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second, 0 = unlimited
	Burst       int     `yaml:"burst" mapstructure:"burst"`
	UseKeychain bool    `yaml:"use_keychain" mapstructure:"use_keychain"`
}

// CacheConfig sizes the report and code-frequency caches
type CacheConfig struct {
	TTL             time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Capacity        int           `yaml:"capacity" mapstructure:"capacity"`
	StatsCapacity   int           `yaml:"stats_capacity" mapstructure:"stats_capacity"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// AnalysisConfig bounds a single analysis
type AnalysisConfig struct {
	CommitLimit   int           `yaml:"commit_limit" mapstructure:"commit_limit"`
	SampleSize    int           `yaml:"sample_size" mapstructure:"sample_size"`
	MaxWorkers    int           `yaml:"max_workers" mapstructure:"max_workers"`
	FlightTimeout time.Duration `yaml:"flight_timeout" mapstructure:"flight_timeout"`

	CodeFrequencyAttempts    int           `yaml:"code_frequency_attempts" mapstructure:"code_frequency_attempts"`
	CodeFrequencyBackoff     time.Duration `yaml:"code_frequency_backoff" mapstructure:"code_frequency_backoff"`
	ContributorStatsAttempts int           `yaml:"contributor_stats_attempts" mapstructure:"contributor_stats_attempts"`
	ContributorStatsBackoff  time.Duration `yaml:"contributor_stats_backoff" mapstructure:"contributor_stats_backoff"` // multiplied by attempt
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Address      string        `yaml:"address" mapstructure:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	// RequestTimeout caps a single analysis request
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

// BudgetConfig enables a Redis-backed budget for anonymous upstream calls,
// shared by every process behind the same egress IP. Off when RedisURL is empty.
type BudgetConfig struct {
	RedisURL        string        `yaml:"redis_url,omitempty" mapstructure:"redis_url"`
	RequestsPerHour int           `yaml:"requests_per_hour" mapstructure:"requests_per_hour"`
	Window          time.Duration `yaml:"window" mapstructure:"window"`
}

// LoggingConfig controls slog output
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text or json
	File   string `yaml:"file,omitempty" mapstructure:"file"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		GitHub: GitHubConfig{
			RateLimit:   10,
			Burst:       10,
			UseKeychain: true,
		},
		Cache: CacheConfig{
			TTL:             10 * time.Minute,
			Capacity:        100,
			StatsCapacity:   50,
			CleanupInterval: time.Minute,
		},
		Analysis: AnalysisConfig{
			CommitLimit:              50,
			SampleSize:               50,
			MaxWorkers:               10,
			FlightTimeout:            2 * time.Minute,
			CodeFrequencyAttempts:    3,
			CodeFrequencyBackoff:     2 * time.Second,
			ContributorStatsAttempts: 5,
			ContributorStatsBackoff:  time.Second,
		},
		Server: ServerConfig{
			Address:        ":8080",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   90 * time.Second,
			RequestTimeout: 60 * time.Second,
		},
		Budget: BudgetConfig{
			RequestsPerHour: 60,
			Window:          time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from file, .env files and environment.
// Precedence, lowest first: defaults, config file, REPOLENS_* env, well-known env.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, Default())

	v.SetEnvPrefix("REPOLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// Every key has a default, so AutomaticEnv sees all of them at Unmarshal
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(expandPath(configPath))
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".repolens")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".repolens"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("github.token", d.GitHub.Token)
	v.SetDefault("github.base_url", d.GitHub.BaseURL)
	v.SetDefault("github.rate_limit", d.GitHub.RateLimit)
	v.SetDefault("github.burst", d.GitHub.Burst)
	v.SetDefault("github.use_keychain", d.GitHub.UseKeychain)

	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.capacity", d.Cache.Capacity)
	v.SetDefault("cache.stats_capacity", d.Cache.StatsCapacity)
	v.SetDefault("cache.cleanup_interval", d.Cache.CleanupInterval)

	v.SetDefault("analysis.commit_limit", d.Analysis.CommitLimit)
	v.SetDefault("analysis.sample_size", d.Analysis.SampleSize)
	v.SetDefault("analysis.max_workers", d.Analysis.MaxWorkers)
	v.SetDefault("analysis.flight_timeout", d.Analysis.FlightTimeout)
	v.SetDefault("analysis.code_frequency_attempts", d.Analysis.CodeFrequencyAttempts)
	v.SetDefault("analysis.code_frequency_backoff", d.Analysis.CodeFrequencyBackoff)
	v.SetDefault("analysis.contributor_stats_attempts", d.Analysis.ContributorStatsAttempts)
	v.SetDefault("analysis.contributor_stats_backoff", d.Analysis.ContributorStatsBackoff)

	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)

	v.SetDefault("budget.redis_url", d.Budget.RedisURL)
	v.SetDefault("budget.requests_per_hour", d.Budget.RequestsPerHour)
	v.SetDefault("budget.window", d.Budget.Window)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
}

// applyEnvOverrides maps the conventional variable names that do not
// carry the REPOLENS_ prefix
func applyEnvOverrides(cfg *Config) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHub.Token = token
	}
	if url := os.Getenv("GITHUB_API_URL"); url != "" {
		cfg.GitHub.BaseURL = url
	}
	if rate := os.Getenv("GITHUB_RATE_LIMIT"); rate != "" {
		if r, err := strconv.ParseFloat(rate, 64); err == nil {
			cfg.GitHub.RateLimit = r
		}
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Budget.RedisURL = url
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Address = ":" + port
	}
}

// ResolveGitHubToken applies the keychain to GitHub.Token. The
// environment beats the keychain, which beats the config file.
func (c *Config) ResolveGitHubToken(km *KeyringManager) {
	if !c.GitHub.UseKeychain || km == nil {
		return
	}
	if os.Getenv("GITHUB_TOKEN") != "" || os.Getenv("REPOLENS_GITHUB_TOKEN") != "" {
		return
	}
	if token, err := km.GetGitHubToken(); err == nil && token != "" {
		c.GitHub.Token = token
	}
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The token is never written; it belongs in the keychain or environment
	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("github", map[string]interface{}{
		"base_url":     c.GitHub.BaseURL,
		"rate_limit":   c.GitHub.RateLimit,
		"burst":        c.GitHub.Burst,
		"use_keychain": c.GitHub.UseKeychain,
	})
	v.Set("cache", map[string]interface{}{
		"ttl":              c.Cache.TTL.String(),
		"capacity":         c.Cache.Capacity,
		"stats_capacity":   c.Cache.StatsCapacity,
		"cleanup_interval": c.Cache.CleanupInterval.String(),
	})
	v.Set("analysis", map[string]interface{}{
		"commit_limit":               c.Analysis.CommitLimit,
		"sample_size":                c.Analysis.SampleSize,
		"max_workers":                c.Analysis.MaxWorkers,
		"flight_timeout":             c.Analysis.FlightTimeout.String(),
		"code_frequency_attempts":    c.Analysis.CodeFrequencyAttempts,
		"code_frequency_backoff":     c.Analysis.CodeFrequencyBackoff.String(),
		"contributor_stats_attempts": c.Analysis.ContributorStatsAttempts,
		"contributor_stats_backoff":  c.Analysis.ContributorStatsBackoff.String(),
	})
	v.Set("server", map[string]interface{}{
		"address":         c.Server.Address,
		"read_timeout":    c.Server.ReadTimeout.String(),
		"write_timeout":   c.Server.WriteTimeout.String(),
		"request_timeout": c.Server.RequestTimeout.String(),
	})
	v.Set("budget", map[string]interface{}{
		"redis_url":         c.Budget.RedisURL,
		"requests_per_hour": c.Budget.RequestsPerHour,
		"window":            c.Budget.Window.String(),
	})
	v.Set("logging", map[string]interface{}{
		"level":  c.Logging.Level,
		"format": c.Logging.Format,
		"file":   c.Logging.File,
	})

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// DefaultPath returns ~/.repolens/config.yaml
func DefaultPath() string {
	return expandPath("~/.repolens/config.yaml")
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
