package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/repolens/internal/config"
	"github.com/rohankatakam/repolens/internal/logging"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
)

func main() {
	defer logging.Close()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "repolens",
	Short: "RepoLens - GitHub repository analytics",
	Long: `RepoLens aggregates GitHub repository metadata, languages, recent
commits, weekly code frequency and contributor activity into one report.

Run it once from the terminal, serve it over HTTP, or expose it to an
MCP client over stdio.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// CLI chatter goes through logrus; library packages log through slog
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}

		if err := initLogging(cfg.Logging); err != nil {
			logger.WithError(err).Warn("Failed to initialize logging")
		}

		if config.DetectMode().UsesKeychain() {
			cfg.ResolveGitHubToken(config.NewKeyringManager())
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .repolens/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(`RepoLens {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(reposCmd)
	rootCmd.AddCommand(configCmd)
}

// initLogging installs the slog default used by the internal packages.
// Output stays on stderr so stdout is free for reports and MCP frames.
func initLogging(lc config.LoggingConfig) error {
	level, err := logging.ParseLevel(lc.Level)
	if err != nil {
		return err
	}
	if verbose {
		level = logging.DEBUG
	}

	return logging.Initialize(logging.Config{
		Level:      level,
		Output:     os.Stderr,
		OutputFile: lc.File,
		JSONFormat: lc.Format == "json",
	})
}
