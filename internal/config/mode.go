package config

import (
	"os"
	"strings"
)

// DeploymentMode represents the context repolens is running in
type DeploymentMode string

const (
	// ModeLocal is an interactive terminal session
	ModeLocal DeploymentMode = "local"

	// ModeCI is a pipeline: credentials from the environment only, no prompts
	ModeCI DeploymentMode = "ci"
)

// DetectMode determines the deployment context from the environment.
// REPOLENS_MODE overrides detection.
func DetectMode() DeploymentMode {
	if mode := os.Getenv("REPOLENS_MODE"); mode != "" {
		switch strings.ToLower(mode) {
		case "ci", "cicd":
			return ModeCI
		case "local", "dev", "development":
			return ModeLocal
		}
	}

	if isCI() {
		return ModeCI
	}
	return ModeLocal
}

func isCI() bool {
	ciEnvVars := []string{
		"CI",
		"CONTINUOUS_INTEGRATION",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"CIRCLECI",
		"BUILDKITE",
		"JENKINS_URL",
		"TF_BUILD",
	}

	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return true
		}
	}
	return false
}

// String returns the string representation of the mode
func (m DeploymentMode) String() string {
	return string(m)
}

// AllowsInteractivePrompts returns true if prompting on the terminal is allowed
func (m DeploymentMode) AllowsInteractivePrompts() bool {
	return m == ModeLocal
}

// UsesKeychain returns false in CI, where no secret service is expected
func (m DeploymentMode) UsesKeychain() bool {
	return m == ModeLocal
}
