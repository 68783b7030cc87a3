package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/repolens/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage RepoLens configuration",
	Long:  `View, create and check RepoLens configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, config file, .env files,
environment variables and the keychain have been applied. The GitHub
token is masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with default values",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration for a command",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	configShowCmd.Flags().StringP("output", "o", formatYAML, "Output format: json, yaml")
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")
	configValidateCmd.Flags().String("for", string(config.ValidationContextServe), "Command to validate for: analyze, serve, repos")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("output")
	if format == formatTable {
		return fmt.Errorf("config show supports json or yaml")
	}
	if err := checkFormat(format); err != nil {
		return err
	}

	shown := *cfg
	shown.GitHub.Token = config.MaskToken(cfg.GitHub.Token)

	out := cmd.OutOrStdout()
	if err := writeStructured(out, format, shown); err != nil {
		return err
	}

	if format == formatYAML {
		source := config.NewKeyringManager().GitHubTokenSource(cfg.GitHub.Token)
		fmt.Fprintf(out, "# token source: %s, mode: %s\n", source, config.DetectMode())
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.DefaultPath()
	if len(args) == 1 {
		path = args[0]
	}

	force, _ := cmd.Flags().GetBool("force")
	if !force && fileExists(path) {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	target, _ := cmd.Flags().GetString("for")
	ctx := config.ValidationContext(target)
	switch ctx {
	case config.ValidationContextAnalyze, config.ValidationContextServe, config.ValidationContextRepos:
	default:
		return fmt.Errorf("unknown command %q (analyze, serve, repos)", target)
	}

	if err := validate(cfg, ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
	return nil
}
