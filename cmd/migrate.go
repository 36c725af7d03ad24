/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
)

var (
	migrationsPath string
	downSteps      int
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Applies or reverts the postgres schema. The badger store needs no
migrations.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		migrator, logger, err := newMigrator()
		if err != nil {
			return err
		}
		defer func() {
			_, _ = migrator.Close()
		}()

		if err := migrator.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				logger.Info("schema already up to date")
				return nil
			}
			return fmt.Errorf("migrate up failed: %w", err)
		}
		logMigrationVersion(migrator, logger)
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert migrations",
	Long:  `Reverts the given number of migrations, or all of them with --steps=0.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		migrator, logger, err := newMigrator()
		if err != nil {
			return err
		}
		defer func() {
			_, _ = migrator.Close()
		}()

		if downSteps > 0 {
			err = migrator.Steps(-downSteps)
		} else {
			err = migrator.Down()
		}
		if err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				logger.Info("nothing to revert")
				return nil
			}
			return fmt.Errorf("migrate down failed: %w", err)
		}
		logMigrationVersion(migrator, logger)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)

	migrateCmd.PersistentFlags().StringVar(&migrationsPath, "path", "internal/db/migrations", "directory holding the migration files")
	migrateDownCmd.Flags().IntVar(&downSteps, "steps", 1, "number of migrations to revert, 0 reverts all")
}

func newMigrator() (*migrate.Migrate, *slog.Logger, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	migrator, err := migrate.New("file://"+migrationsPath, cfg.Database.URL())
	if err != nil {
		return nil, nil, fmt.Errorf("init migrator failed: %w", err)
	}
	return migrator, logger, nil
}

func logMigrationVersion(migrator *migrate.Migrate, logger *slog.Logger) {
	version, dirty, err := migrator.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("schema reverted to empty")
			return
		}
		logger.Warn("failed to read schema version", slog.Any("error", err))
		return
	}
	logger.Info("schema migrated", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
}
