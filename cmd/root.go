// Package cmd provides the vita CLI commands.
//
// Commands:
//   - serve: HTTP API server with SSE streaming
//   - ingest: scrape reference pages into the knowledge base
//   - migrate: apply database migrations
//   - version: show build information
//
// Signal handling and graceful shutdown are implemented via context
// cancellation.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vitaai/vita/internal/config"
	"github.com/vitaai/vita/internal/log"
)

var rootCmd = &cobra.Command{
	Use:           "vita",
	Short:         "Vita - grounded medical question answering service",
	Long:          "Vita answers health questions grounded in a curated knowledge base,\nretrieved by vector similarity and generated with the Gemini API.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// loadConfig loads configuration and installs the configured logger as
// the process default.
func loadConfig() (*config.Config, log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	slog.SetDefault(logger)

	return cfg, logger, nil
}
