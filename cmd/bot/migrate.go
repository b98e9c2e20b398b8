package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/bookwyrm/bookwyrm/internal/database"
	"github.com/bookwyrm/bookwyrm/internal/database/migrations"
	"github.com/bookwyrm/bookwyrm/internal/setup/config"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var (
	ErrNameRequired = errors.New("NAME argument required")
	ErrNotPostgres  = errors.New("migrations only apply to the postgres backend")
)

// migrateCommand manages the PostgreSQL schema.
func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Database schema management",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize migration tables",
				Action: withMigrator(func(ctx context.Context, _ *cli.Command, migrator *migrate.Migrator, _ *zap.Logger) error {
					return migrator.Init(ctx)
				}),
			},
			{
				Name:  "up",
				Usage: "Run pending migrations",
				Action: withMigrator(func(ctx context.Context, _ *cli.Command, migrator *migrate.Migrator, logger *zap.Logger) error {
					if err := migrator.Init(ctx); err != nil {
						return err
					}

					if err := migrator.Lock(ctx); err != nil {
						return err
					}
					defer migrator.Unlock(ctx) //nolint:errcheck

					group, err := migrator.Migrate(ctx)
					if err != nil {
						return err
					}

					if group.IsZero() {
						logger.Info("No new migrations to run (database is up to date)")
						return nil
					}

					logger.Info("Successfully migrated", zap.String("group", group.String()))
					return nil
				}),
			},
			{
				Name:  "rollback",
				Usage: "Rollback the last migration group",
				Action: withMigrator(func(ctx context.Context, _ *cli.Command, migrator *migrate.Migrator, logger *zap.Logger) error {
					if err := migrator.Lock(ctx); err != nil {
						return err
					}
					defer migrator.Unlock(ctx) //nolint:errcheck

					group, err := migrator.Rollback(ctx)
					if err != nil {
						return err
					}

					if group.IsZero() {
						logger.Info("No groups to roll back")
						return nil
					}

					logger.Info("Successfully rolled back", zap.String("group", group.String()))
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "Show migration status",
				Action: withMigrator(func(ctx context.Context, _ *cli.Command, migrator *migrate.Migrator, logger *zap.Logger) error {
					ms, err := migrator.MigrationsWithStatus(ctx)
					if err != nil {
						return err
					}

					logger.Info("Migration status",
						zap.String("migrations", ms.String()),
						zap.String("unapplied", ms.Unapplied().String()),
						zap.String("last_group", ms.LastGroup().String()),
					)
					return nil
				}),
			},
			{
				Name:      "create",
				Usage:     "Create a new Go migration file",
				ArgsUsage: "NAME",
				Action: withMigrator(func(ctx context.Context, c *cli.Command, migrator *migrate.Migrator, logger *zap.Logger) error {
					if c.Args().Len() != 1 {
						return ErrNameRequired
					}

					mf, err := migrator.CreateGoMigration(ctx, c.Args().First())
					if err != nil {
						return err
					}

					logger.Info("Created Go migration",
						zap.String("name", mf.Name),
						zap.String("path", mf.Path),
					)
					return nil
				}),
			},
		},
	}
}

type migratorAction func(ctx context.Context, c *cli.Command, migrator *migrate.Migrator, logger *zap.Logger) error

// withMigrator opens the database without the startup migration check.
func withMigrator(action migratorAction) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		cfg, _, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if cfg.Common.Storage.Backend != config.StorageBackendPostgres {
			return fmt.Errorf("%w: storage backend is %q", ErrNotPostgres, cfg.Common.Storage.Backend)
		}

		logger, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		db := database.Open(&cfg.Common.PostgreSQL)
		defer db.Close()

		return action(ctx, c, migrate.NewMigrator(db, migrations.Migrations), logger)
	}
}
