package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/scribe/internal/config"
	"github.com/aretw0/scribe/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "Scribe turns chat messages into native checklists",
	Long: `Scribe watches chat messages that look like task lists and, once the author
reacts with a confirming emoji, replies with a native checklist.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to the config file (default scribe.yaml if present)")
	rootCmd.PersistentFlags().String("log-level", "", "Override log_level (debug, info, warn, error)")
}

// loadConfig reads the config named by --config and builds the stderr logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(level), nil
}
