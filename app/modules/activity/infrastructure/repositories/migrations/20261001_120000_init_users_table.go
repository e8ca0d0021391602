package activitymigrations

import (
	"context"
	"fmt"

	activitydb "github.com/Black-And-White-Club/activity-bot/app/modules/activity/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating users table...")

		if _, err := db.NewCreateTable().
			Model((*activitydb.User)(nil)).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}

		stmts := []string{
			`ALTER TABLE users DROP CONSTRAINT IF EXISTS users_activity_score_check`,
			`ALTER TABLE users ADD CONSTRAINT users_activity_score_check CHECK (activity_score >= 0)`,
			`CREATE INDEX IF NOT EXISTS idx_users_last_message_at ON users (last_message_at)`,
			`CREATE INDEX IF NOT EXISTS idx_users_leaderboard ON users (activity_score DESC, first_seen_at ASC)`,
		}
		for _, stmt := range stmts {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("users migration %q: %w", stmt, err)
			}
		}

		fmt.Println("Users table created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping users table...")

		if _, err := db.NewDropTable().Model((*activitydb.User)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}

		fmt.Println("Users table dropped successfully!")
		return nil
	})
}
