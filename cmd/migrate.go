package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vitaai/vita/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if err := db.Migrate(cfg.PostgresURL()); err != nil {
				return fmt.Errorf("applying migrations: %w", err)
			}
			logger.Info("migrations applied")
			return nil
		},
	}
}
