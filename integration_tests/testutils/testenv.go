// Package testutils starts the containers shared by the integration tests.
package testutils

import (
	"context"
	"database/sql"
	"testing"

	activitymigrations "github.com/Black-And-White-Club/activity-bot/app/modules/activity/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/activity-bot/integration_tests/containers"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// TestEnvironment holds a migrated Postgres database.
type TestEnvironment struct {
	Ctx         context.Context
	PgContainer *postgres.PostgresContainer
	DSN         string
	DB          *bun.DB
}

// SkipIfShort skips container tests under -short.
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
}

// NewTestEnvironment starts Postgres, applies the activity migrations and
// registers cleanup on t.
func NewTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	SkipIfShort(t)
	ctx := context.Background()

	pgContainer, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		t.Fatalf("failed to setup postgres container: %v", err)
	}
	t.Cleanup(func() { _ = pgContainer.Terminate(context.Background()) })

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })

	if err := runMigrations(ctx, db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return &TestEnvironment{Ctx: ctx, PgContainer: pgContainer, DSN: dsn, DB: db}
}

func runMigrations(ctx context.Context, db *bun.DB) error {
	_, err := activitymigrations.Up(ctx, activitymigrations.NewMigrator(db))
	return err
}

// Reset empties the users table.
func (env *TestEnvironment) Reset(t *testing.T) {
	t.Helper()
	if _, err := env.DB.ExecContext(env.Ctx, "TRUNCATE TABLE users"); err != nil {
		t.Fatalf("failed to truncate users: %v", err)
	}
}
