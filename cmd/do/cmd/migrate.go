package cmd

import (
	"fmt"
	"log/slog"

	"github.com/foodrescue/foodrescue/internal/db"
	"github.com/spf13/cobra"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(true)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(false)
		},
	})

	return cmd
}

func runMigrate(up bool) error {
	cfg := loadConfig()

	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() { _ = db.Close(database) }()

	if up {
		err = db.RunMigrations(database.DB, cfg.DBDriver)
		if err != nil {
			return err
		}
		slog.Info("migrations applied", "driver", cfg.DBDriver)
		return nil
	}

	err = db.MigrateDown(database.DB, cfg.DBDriver)
	if err != nil {
		return err
	}
	slog.Info("rolled back one migration", "driver", cfg.DBDriver)
	return nil
}
