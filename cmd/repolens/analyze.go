package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/repolens/internal/config"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <owner/repo | github URL>",
	Short: "Analyze a GitHub repository",
	Long: `Fetch metadata, languages, recent commits, weekly code frequency and
contributor activity for one repository and print the merged report.

Without a GitHub token only public repositories can be analyzed and the
anonymous rate limit applies. Use 'repolens login' or GITHUB_TOKEN.`,
	Example: `  repolens analyze golang/go
  repolens analyze https://github.com/spf13/cobra --output json
  repolens analyze spf13/viper --code-frequency`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringP("output", "o", formatTable, "Output format: table, json, yaml")
	analyzeCmd.Flags().Bool("code-frequency", false, "Only fetch the weekly code-frequency series")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("output")
	frequencyOnly, _ := cmd.Flags().GetBool("code-frequency")
	if err := checkFormat(format); err != nil {
		return err
	}
	if err := validate(cfg, config.ValidationContextAnalyze); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, cleanup := newService(ctx, cfg)
	defer cleanup()

	out := cmd.OutOrStdout()
	input := args[0]

	if frequencyOnly {
		res, _, err := svc.CodeFrequency(ctx, cfg.GitHub.Token, input)
		if err != nil {
			return err
		}
		if format != formatTable {
			return writeStructured(out, format, res)
		}
		return renderCodeFrequency(out, input, res)
	}

	logger.WithField("repo", input).Debug("Analyzing repository")
	report, status, err := svc.Analyze(ctx, cfg.GitHub.Token, input)
	if err != nil {
		return err
	}
	logger.WithField("source", cacheNote(status.Hit, status.Age)).Debug("Analysis complete")

	if format != formatTable {
		return writeStructured(out, format, report)
	}
	if err := renderReport(out, report); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}
