package cmd

import (
	"github.com/producthunt/apiserver/config"
	"github.com/producthunt/apiserver/internal/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg)
		defer func() { _ = logger.Sync() }()

		if err := db.MigrateUp(cfg.Database); err != nil {
			return err
		}
		logger.Info("migrations applied", zap.String("database", cfg.Database.DBName))
		return nil
	},
}

var migrateDownSteps int

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg)
		defer func() { _ = logger.Sync() }()

		if err := db.MigrateDown(cfg.Database, migrateDownSteps); err != nil {
			return err
		}
		logger.Info("migrations rolled back", zap.Int("steps", migrateDownSteps))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateDownCmd.Flags().IntVar(&migrateDownSteps, "steps", 1, "number of migrations to roll back")
}
