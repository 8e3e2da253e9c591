// Package handlers wires the CLI commands to the pipeline, store, and server.
package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"trendpulse/internal/config"
	"trendpulse/internal/logger"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "trendpulse",
		Short: "Periodic trend aggregation and daily report pipeline",
		Long: `Trendpulse - Trend Intelligence Pipeline

Aggregates items from configured sources, normalizes tags against a fixed
taxonomy, clusters by theme, and publishes a daily trends report with an
AI-generated (or heuristic) insight.

Core workflows:
  • Serve: HTTP API plus the periodic scan scheduler
  • Scan: one-shot scan from the command line
  • Aliases: inspect or replace the tag alias table

Examples:
  # Start the API server with the scheduler
  trendpulse serve

  # Run a single scan without the AI stage
  trendpulse scan --no-ai

  # Show the current alias table
  trendpulse aliases list`,
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .trendpulse.yaml)")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewScanCmd())
	rootCmd.AddCommand(NewAliasesCmd())

	cobra.OnInitialize(initConfig)

	return rootCmd
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		// Don't exit - allow running with just environment variables
		return
	}
	logger.SetLevel(cfg.App.LogLevel)
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
