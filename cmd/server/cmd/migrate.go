package cmd

import (
	"go-journal-app/internal/data"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		log.Info("Applying database migrations...")
		if err := data.ApplyMigrations(cfg.DB.Driver, cfg.DB.DSN, cfg.DB.Migrations); err != nil {
			return err
		}
		log.Info("Migrations applied successfully.")
		return nil
	},
}
