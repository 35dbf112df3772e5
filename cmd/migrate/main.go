package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tendant/simple-content-migrate/internal/logging"
	"github.com/tendant/simple-content-migrate/pkg/migrate/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	_ = godotenv.Load()

	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewRootCommand creates the migrate CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Legacy content migration tool",
		Long: `Imports legacy content from CSV exports.

Inline images in rich text are copied into managed storage and replaced with
media embeds. Configuration is read from the environment (and .env).`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewUploadCommand())
	rootCmd.AddCommand(NewRewriteCommand())
	rootCmd.AddCommand(NewListCommand())

	return rootCmd
}

// loadConfig reads the environment and installs the default logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}
