package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/rohankatakam/repolens/internal/logging"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "RepoLens"

	// KeyringGitHubTokenItem is the key for the GitHub token
	KeyringGitHubTokenItem = "github-token"
)

// KeyringManager handles secure credential storage in the OS keychain
type KeyringManager struct {
	logger *slog.Logger
}

// NewKeyringManager creates a new keyring manager
func NewKeyringManager() *KeyringManager {
	return &KeyringManager{
		logger: logging.Component("keyring"),
	}
}

// GetGitHubToken retrieves the GitHub token from the OS keychain.
// A missing entry is not an error.
func (km *KeyringManager) GetGitHubToken() (string, error) {
	token, err := keyring.Get(KeyringService, KeyringGitHubTokenItem)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		km.logger.Error("failed to get GitHub token from keychain", "error", err)
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}

	km.logger.Debug("github token retrieved from keychain")
	return token, nil
}

// SetGitHubToken stores the GitHub token in the OS keychain
func (km *KeyringManager) SetGitHubToken(token string) error {
	if token == "" {
		return fmt.Errorf("github token cannot be empty")
	}

	if err := keyring.Set(KeyringService, KeyringGitHubTokenItem, token); err != nil {
		km.logger.Error("failed to save GitHub token to keychain", "error", err)
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}

	km.logger.Info("github token saved to keychain", "service", KeyringService)
	return nil
}

// DeleteGitHubToken removes the GitHub token; deleting a missing token succeeds
func (km *KeyringManager) DeleteGitHubToken() error {
	err := keyring.Delete(KeyringService, KeyringGitHubTokenItem)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	if err != nil {
		km.logger.Error("failed to delete GitHub token from keychain", "error", err)
		return fmt.Errorf("failed to delete from OS keychain: %w", err)
	}

	km.logger.Info("github token deleted from keychain")
	return nil
}

// IsAvailable reports whether the OS keychain can be used.
// Headless systems without a secret service return false.
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, "test-availability")
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return true
	}
	km.logger.Debug("keychain not available", "error", err)
	return false
}

// TokenSource describes where the effective GitHub token comes from
type TokenSource string

const (
	TokenSourceEnv      TokenSource = "env"
	TokenSourceKeychain TokenSource = "keychain"
	TokenSourceConfig   TokenSource = "config"
	TokenSourceNone     TokenSource = "none"
)

// GitHubTokenSource reports the token source using the same precedence
// as Load plus ResolveGitHubToken: env, keychain, config file
func (km *KeyringManager) GitHubTokenSource(fileToken string) TokenSource {
	if os.Getenv("GITHUB_TOKEN") != "" || os.Getenv("REPOLENS_GITHUB_TOKEN") != "" {
		return TokenSourceEnv
	}
	if token, _ := km.GetGitHubToken(); token != "" {
		return TokenSourceKeychain
	}
	if fileToken != "" {
		return TokenSourceConfig
	}
	return TokenSourceNone
}

// MaskToken masks a token for display: "ghp_abc...wxyz"
func MaskToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	if len(token) < 12 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", token[:7], token[len(token)-4:])
}
