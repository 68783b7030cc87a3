package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/repolens/internal/api"
	"github.com/rohankatakam/repolens/internal/config"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis HTTP API",
	Long: `Start the HTTP API:

  POST /api/repo         analyze a repository ({"repoUrl": "..."})
  POST /api/repo/stats   code frequency ({"owner", "repo", "type": "codeFrequency"})
  GET  /api/user/repos   repositories of the bearer token's user
  GET  /health           liveness and cache sizes

Requests carrying "Authorization: Bearer <token>" use that token;
anonymous requests share the in-memory caches and, when budget.redis_url
is set, a Redis-backed hourly request budget.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.address)")
	serveCmd.Flags().StringSlice("cors-origin", nil, "Allowed CORS origin (repeatable)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Address = addr
	}
	origins, _ := cmd.Flags().GetStringSlice("cors-origin")

	if err := validate(cfg, config.ValidationContextServe); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, cleanup := newService(ctx, cfg)
	defer cleanup()

	server := api.NewServer(svc, api.Config{
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowOrigins:   origins,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(cfg.Server.Address)
	}()

	logger.WithFields(logrus.Fields{
		"addr":          cfg.Server.Address,
		"authenticated": cfg.GitHub.Token != "",
		"budget":        cfg.Budget.RedisURL != "",
	}).Info("RepoLens API listening")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
