package activitydb

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Repository defines the persistence contract for activity scores.
//
// Error semantics:
//   - ErrNotFound: the user row does not exist (GetUser, IncrementScore, SetScore)
//   - other errors: infrastructure failures
//
// A nil db falls back to the repository's own connection.
type Repository interface {
	GetUser(ctx context.Context, db bun.IDB, userID string) (*User, error)
	// LockUser is GetUser with a row lock; db must be a transaction.
	LockUser(ctx context.Context, db bun.IDB, userID string) (*User, error)
	// EnsureUser inserts the user if absent and reports whether a row was created.
	EnsureUser(ctx context.Context, db bun.IDB, userID string) (bool, error)
	// RemoveUser deletes the user and reports whether a row existed.
	RemoveUser(ctx context.Context, db bun.IDB, userID string) (bool, error)

	IncrementScore(ctx context.Context, db bun.IDB, userID string, delta int64, now time.Time) (ScoreChange, error)
	SetScore(ctx context.Context, db bun.IDB, userID string, value int64) (ScoreChange, error)

	ListInactiveSince(ctx context.Context, db bun.IDB, cutoff time.Time) ([]*User, error)
	TopUsers(ctx context.Context, db bun.IDB, limit int) ([]*User, error)
	ListUserIDs(ctx context.Context, db bun.IDB) ([]string, error)

	// ServerTime is the store's clock, used by cooldown and decay.
	ServerTime(ctx context.Context, db bun.IDB) (time.Time, error)
}
