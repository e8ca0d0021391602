package activitydb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Impl implements Repository on Postgres through bun.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new activity repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// GetUser retrieves a user by platform id.
func (r *Impl) GetUser(ctx context.Context, db bun.IDB, userID string) (*User, error) {
	db = r.resolveDB(db)
	user := new(User)
	err := db.NewSelect().
		Model(user).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("activitydb.GetUser: %w", err)
	}
	return user, nil
}

// LockUser reads the user row FOR UPDATE, serializing writers on that user
// until the surrounding transaction ends.
func (r *Impl) LockUser(ctx context.Context, db bun.IDB, userID string) (*User, error) {
	db = r.resolveDB(db)
	user := new(User)
	err := db.NewSelect().
		Model(user).
		Where("user_id = ?", userID).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("activitydb.LockUser: %w", err)
	}
	return user, nil
}

// EnsureUser inserts a zero-score row; an existing row is left untouched.
func (r *Impl) EnsureUser(ctx context.Context, db bun.IDB, userID string) (bool, error) {
	db = r.resolveDB(db)
	res, err := db.NewInsert().
		Model(&User{UserID: userID}).
		ExcludeColumn("first_seen_at", "last_message_at").
		On("CONFLICT (user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("activitydb.EnsureUser: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("activitydb.EnsureUser: rows affected: %w", err)
	}
	return n > 0, nil
}

// RemoveUser deletes a user row. Deleting an absent user is not an error.
func (r *Impl) RemoveUser(ctx context.Context, db bun.IDB, userID string) (bool, error) {
	db = r.resolveDB(db)
	res, err := db.NewDelete().
		Model((*User)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("activitydb.RemoveUser: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("activitydb.RemoveUser: rows affected: %w", err)
	}
	return n > 0, nil
}

// IncrementScore adds delta in one statement, clamping at zero. Only a
// positive delta moves last_message_at.
func (r *Impl) IncrementScore(ctx context.Context, db bun.IDB, userID string, delta int64, now time.Time) (ScoreChange, error) {
	db = r.resolveDB(db)
	var change ScoreChange
	err := db.NewRaw(`
		UPDATE users AS u
		SET activity_score = GREATEST(0, u.activity_score + ?),
			last_message_at = CASE WHEN ? > 0 THEN ? ELSE u.last_message_at END
		FROM (SELECT user_id, activity_score FROM users WHERE user_id = ? FOR UPDATE) AS prev
		WHERE u.user_id = prev.user_id
		RETURNING prev.activity_score AS old_score, u.activity_score AS new_score`,
		delta, delta, now, userID,
	).Scan(ctx, &change)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ScoreChange{}, ErrNotFound
		}
		return ScoreChange{}, fmt.Errorf("activitydb.IncrementScore: %w", err)
	}
	return change, nil
}

// SetScore overwrites the score, clamping at zero.
func (r *Impl) SetScore(ctx context.Context, db bun.IDB, userID string, value int64) (ScoreChange, error) {
	db = r.resolveDB(db)
	if value < 0 {
		value = 0
	}
	var change ScoreChange
	err := db.NewRaw(`
		UPDATE users AS u
		SET activity_score = ?
		FROM (SELECT user_id, activity_score FROM users WHERE user_id = ? FOR UPDATE) AS prev
		WHERE u.user_id = prev.user_id
		RETURNING prev.activity_score AS old_score, u.activity_score AS new_score`,
		value, userID,
	).Scan(ctx, &change)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ScoreChange{}, ErrNotFound
		}
		return ScoreChange{}, fmt.Errorf("activitydb.SetScore: %w", err)
	}
	return change, nil
}

// ListInactiveSince returns users with no scoring message at or after cutoff.
func (r *Impl) ListInactiveSince(ctx context.Context, db bun.IDB, cutoff time.Time) ([]*User, error) {
	db = r.resolveDB(db)
	var users []*User
	err := db.NewSelect().
		Model(&users).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("last_message_at IS NULL").WhereOr("last_message_at < ?", cutoff)
		}).
		OrderExpr("user_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("activitydb.ListInactiveSince: %w", err)
	}
	return users, nil
}

// TopUsers returns the highest scores; ties go to the earliest first_seen_at.
func (r *Impl) TopUsers(ctx context.Context, db bun.IDB, limit int) ([]*User, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	db = r.resolveDB(db)
	var users []*User
	err := db.NewSelect().
		Model(&users).
		OrderExpr("activity_score DESC, first_seen_at ASC, user_id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("activitydb.TopUsers: %w", err)
	}
	return users, nil
}

// ListUserIDs returns every tracked user id.
func (r *Impl) ListUserIDs(ctx context.Context, db bun.IDB) ([]string, error) {
	db = r.resolveDB(db)
	var ids []string
	err := db.NewSelect().
		Model((*User)(nil)).
		Column("user_id").
		OrderExpr("user_id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("activitydb.ListUserIDs: %w", err)
	}
	return ids, nil
}

// ServerTime reads now() from Postgres.
func (r *Impl) ServerTime(ctx context.Context, db bun.IDB) (time.Time, error) {
	db = r.resolveDB(db)
	var now time.Time
	if err := db.NewRaw("SELECT now()").Scan(ctx, &now); err != nil {
		return time.Time{}, fmt.Errorf("activitydb.ServerTime: %w", err)
	}
	return now, nil
}
