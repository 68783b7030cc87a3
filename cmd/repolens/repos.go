package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/repolens/internal/config"
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List repositories visible to the signed-in user",
	Long: `List up to 100 repositories the configured GitHub token can see,
most recently updated first. Requires a token.`,
	Args: cobra.NoArgs,
	RunE: runRepos,
}

func init() {
	reposCmd.Flags().StringP("output", "o", formatTable, "Output format: table, json, yaml")
}

func runRepos(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("output")
	if err := checkFormat(format); err != nil {
		return err
	}
	if cfg.GitHub.Token == "" {
		return errors.New("not authenticated: run 'repolens login' or set GITHUB_TOKEN")
	}
	if err := validate(cfg, config.ValidationContextRepos); err != nil {
		return err
	}

	ctx := contextOrBackground(cmd.Context())
	svc, cleanup := newService(ctx, cfg)
	defer cleanup()

	repos, err := svc.UserRepos(ctx, cfg.GitHub.Token)
	if err != nil {
		return err
	}

	if format != formatTable {
		return writeStructured(cmd.OutOrStdout(), format, repos)
	}
	return renderUserRepos(cmd.OutOrStdout(), repos)
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
