package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/repolens/internal/config"
	"github.com/rohankatakam/repolens/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run as an MCP server over stdio",
	Long: `Speak the Model Context Protocol on stdin/stdout so AI assistants can
call RepoLens as tools:

  repolens.analyze_repository   full or summarized analysis
  repolens.code_frequency       weekly additions and deletions

Logs go to stderr. Tool calls use the configured GitHub token.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	if err := validate(cfg, config.ValidationContextAnalyze); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, cleanup := newService(ctx, cfg)
	defer cleanup()

	server := mcp.NewServer(svc, cfg.GitHub.Token, svc.CacheSizes)

	logger.Debug("MCP server ready on stdio")
	if err := mcp.Serve(ctx, server, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
