package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	activitymigrations "github.com/Black-And-White-Club/activity-bot/app/modules/activity/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/activity-bot/config"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/attr"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := newApp().Run(os.Args); err != nil {
		logger.Error("Migration command failed", attr.Error(err))
		os.Exit(1)
	}
}

// migratorAction is a command body that needs the activity migrator.
type migratorAction func(c *cli.Context, m *migrate.Migrator) error

func newApp() *cli.App {
	return &cli.App{
		Name:  "bun",
		Usage: "manage the activity database schema",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to the configuration file"},
		},
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "apply pending migrations",
				Action: withMigrator(up),
			},
			{
				Name:   "rollback",
				Usage:  "revert the last migration group",
				Action: withMigrator(rollback),
			},
			{
				Name:   "status",
				Usage:  "list applied and pending migrations",
				Action: withMigrator(status),
			},
			{
				Name:      "create",
				Usage:     "create a Go migration, or up and down SQL files with --sql",
				ArgsUsage: "<name words...>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "sql", Usage: "write SQL files instead of a Go file"},
				},
				Action: withMigrator(create),
			},
		},
	}
}

// withMigrator opens the configured database for the duration of one command.
func withMigrator(fn migratorAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Read(c.String("config"))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres dsn (DATABASE_URL) not set")
		}
		db := bun.NewDB(sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN))), pgdialect.New())
		defer db.Close()
		return fn(c, activitymigrations.NewMigrator(db))
	}
}

func up(c *cli.Context, m *migrate.Migrator) error {
	group, err := activitymigrations.Up(c.Context, m)
	if err != nil {
		return err
	}
	if group.IsZero() {
		fmt.Fprintln(c.App.Writer, "schema is up to date")
		return nil
	}
	fmt.Fprintf(c.App.Writer, "migrated to %s\n", group)
	return nil
}

func rollback(c *cli.Context, m *migrate.Migrator) error {
	group, err := activitymigrations.Rollback(c.Context, m)
	if err != nil {
		return err
	}
	if group.IsZero() {
		fmt.Fprintln(c.App.Writer, "nothing to roll back")
		return nil
	}
	fmt.Fprintf(c.App.Writer, "rolled back %s\n", group)
	return nil
}

func status(c *cli.Context, m *migrate.Migrator) error {
	ms, err := m.MigrationsWithStatus(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "applied: %s\npending: %s\n", ms.Applied(), ms.Unapplied())
	return nil
}

func create(c *cli.Context, m *migrate.Migrator) error {
	name, err := migrationName(c.Args().Slice())
	if err != nil {
		return err
	}
	var files []*migrate.MigrationFile
	if c.Bool("sql") {
		files, err = m.CreateSQLMigrations(c.Context, name)
	} else {
		var mf *migrate.MigrationFile
		mf, err = m.CreateGoMigration(c.Context, name)
		files = []*migrate.MigrationFile{mf}
	}
	if err != nil {
		return err
	}
	for _, mf := range files {
		fmt.Fprintf(c.App.Writer, "created %s (%s)\n", mf.Name, mf.Path)
	}
	return nil
}

// migrationName joins the words of a migration name into a snake_case file
// suffix.
func migrationName(words []string) (string, error) {
	var parts []string
	for _, w := range words {
		for _, f := range strings.Fields(w) {
			parts = append(parts, strings.ToLower(f))
		}
	}
	if len(parts) == 0 {
		return "", errors.New("migration name is required")
	}
	return strings.Join(parts, "_"), nil
}
