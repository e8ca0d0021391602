package activitymigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// NewMigrator returns a migrator over the activity schema.
func NewMigrator(db *bun.DB) *migrate.Migrator {
	return migrate.NewMigrator(db, Migrations)
}

// Up creates the bookkeeping tables when missing and applies every pending
// migration while holding the migration lock. The returned group is zero
// when the schema was already current.
func Up(ctx context.Context, m *migrate.Migrator) (*migrate.MigrationGroup, error) {
	if err := m.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to init migrations: %w", err)
	}
	if err := m.Lock(ctx); err != nil {
		return nil, fmt.Errorf("failed to lock migrations: %w", err)
	}
	defer m.Unlock(ctx) //nolint:errcheck

	group, err := m.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return group, nil
}

// Rollback reverts the most recent migration group under the migration lock.
func Rollback(ctx context.Context, m *migrate.Migrator) (*migrate.MigrationGroup, error) {
	if err := m.Lock(ctx); err != nil {
		return nil, fmt.Errorf("failed to lock migrations: %w", err)
	}
	defer m.Unlock(ctx) //nolint:errcheck

	group, err := m.Rollback(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to roll back: %w", err)
	}
	return group, nil
}
