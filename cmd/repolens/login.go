package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/repolens/internal/config"
)

const verifyTimeout = 30 * time.Second

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a GitHub token in the OS keychain",
	Long: `Prompt for a GitHub personal access token, verify it against the API
and store it in the OS keychain. Later commands pick it up automatically.

A token raises the rate limit to 5,000 requests per hour and allows
analyzing private repositories the token can read.

In CI use the GITHUB_TOKEN environment variable instead.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the GitHub token from the OS keychain",
	Long: `Delete the stored GitHub token. Tokens set through GITHUB_TOKEN or the
config file are not affected.`,
	Args: cobra.NoArgs,
	RunE: runLogout,
}

func init() {
	loginCmd.Flags().Bool("no-verify", false, "Store the token without checking it against GitHub")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	km := config.NewKeyringManager()
	if !km.IsAvailable() {
		return fmt.Errorf("OS keychain is not available; set GITHUB_TOKEN instead")
	}

	out := cmd.OutOrStdout()
	token, err := config.PromptGitHubToken(out)
	if err != nil {
		return err
	}

	if noVerify, _ := cmd.Flags().GetBool("no-verify"); !noVerify {
		ctx, cancel := context.WithTimeout(contextOrBackground(cmd.Context()), verifyTimeout)
		defer cancel()

		svc, cleanup := newService(ctx, cfg)
		defer cleanup()

		repos, err := svc.UserRepos(ctx, token)
		if err != nil {
			return fmt.Errorf("token rejected: %w", err)
		}
		logger.WithField("repos", len(repos)).Debug("Token verified")
	}

	if err := km.SetGitHubToken(token); err != nil {
		return err
	}

	fmt.Fprintln(out, "✓ GitHub token saved to keychain")
	fmt.Fprintf(out, "  %s\n", config.MaskToken(token))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	km := config.NewKeyringManager()

	token, err := km.GetGitHubToken()
	if err != nil {
		return err
	}
	if token == "" {
		fmt.Fprintln(out, "⚠️  No token stored in keychain")
		return nil
	}

	if err := km.DeleteGitHubToken(); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}

	fmt.Fprintln(out, "✓ GitHub token removed from keychain")
	if source := km.GitHubTokenSource(cfg.GitHub.Token); source != config.TokenSourceNone {
		fmt.Fprintf(out, "  A token is still configured via %s\n", source)
	}
	return nil
}
