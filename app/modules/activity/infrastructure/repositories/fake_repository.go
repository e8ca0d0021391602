package activitydb

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// FakeRepository is a programmable Repository for tests. Unset hooks return
// zero values.
type FakeRepository struct {
	GetUserFn           func(ctx context.Context, db bun.IDB, userID string) (*User, error)
	LockUserFn          func(ctx context.Context, db bun.IDB, userID string) (*User, error)
	EnsureUserFn        func(ctx context.Context, db bun.IDB, userID string) (bool, error)
	RemoveUserFn        func(ctx context.Context, db bun.IDB, userID string) (bool, error)
	IncrementScoreFn    func(ctx context.Context, db bun.IDB, userID string, delta int64, now time.Time) (ScoreChange, error)
	SetScoreFn          func(ctx context.Context, db bun.IDB, userID string, value int64) (ScoreChange, error)
	ListInactiveSinceFn func(ctx context.Context, db bun.IDB, cutoff time.Time) ([]*User, error)
	TopUsersFn          func(ctx context.Context, db bun.IDB, limit int) ([]*User, error)
	ListUserIDsFn       func(ctx context.Context, db bun.IDB) ([]string, error)
	ServerTimeFn        func(ctx context.Context, db bun.IDB) (time.Time, error)

	trace []string
}

// Trace returns the names of the methods called, in order.
func (f *FakeRepository) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeRepository) record(step string) { f.trace = append(f.trace, step) }

func (f *FakeRepository) GetUser(ctx context.Context, db bun.IDB, userID string) (*User, error) {
	f.record("GetUser")
	if f.GetUserFn != nil {
		return f.GetUserFn(ctx, db, userID)
	}
	return nil, ErrNotFound
}

func (f *FakeRepository) LockUser(ctx context.Context, db bun.IDB, userID string) (*User, error) {
	f.record("LockUser")
	if f.LockUserFn != nil {
		return f.LockUserFn(ctx, db, userID)
	}
	if f.GetUserFn != nil {
		return f.GetUserFn(ctx, db, userID)
	}
	return nil, ErrNotFound
}

func (f *FakeRepository) EnsureUser(ctx context.Context, db bun.IDB, userID string) (bool, error) {
	f.record("EnsureUser")
	if f.EnsureUserFn != nil {
		return f.EnsureUserFn(ctx, db, userID)
	}
	return false, nil
}

func (f *FakeRepository) RemoveUser(ctx context.Context, db bun.IDB, userID string) (bool, error) {
	f.record("RemoveUser")
	if f.RemoveUserFn != nil {
		return f.RemoveUserFn(ctx, db, userID)
	}
	return false, nil
}

func (f *FakeRepository) IncrementScore(ctx context.Context, db bun.IDB, userID string, delta int64, now time.Time) (ScoreChange, error) {
	f.record("IncrementScore")
	if f.IncrementScoreFn != nil {
		return f.IncrementScoreFn(ctx, db, userID, delta, now)
	}
	return ScoreChange{}, nil
}

func (f *FakeRepository) SetScore(ctx context.Context, db bun.IDB, userID string, value int64) (ScoreChange, error) {
	f.record("SetScore")
	if f.SetScoreFn != nil {
		return f.SetScoreFn(ctx, db, userID, value)
	}
	return ScoreChange{}, nil
}

func (f *FakeRepository) ListInactiveSince(ctx context.Context, db bun.IDB, cutoff time.Time) ([]*User, error) {
	f.record("ListInactiveSince")
	if f.ListInactiveSinceFn != nil {
		return f.ListInactiveSinceFn(ctx, db, cutoff)
	}
	return nil, nil
}

func (f *FakeRepository) TopUsers(ctx context.Context, db bun.IDB, limit int) ([]*User, error) {
	f.record("TopUsers")
	if f.TopUsersFn != nil {
		return f.TopUsersFn(ctx, db, limit)
	}
	return nil, nil
}

func (f *FakeRepository) ListUserIDs(ctx context.Context, db bun.IDB) ([]string, error) {
	f.record("ListUserIDs")
	if f.ListUserIDsFn != nil {
		return f.ListUserIDsFn(ctx, db)
	}
	return nil, nil
}

func (f *FakeRepository) ServerTime(ctx context.Context, db bun.IDB) (time.Time, error) {
	f.record("ServerTime")
	if f.ServerTimeFn != nil {
		return f.ServerTimeFn(ctx, db)
	}
	return time.Time{}, nil
}

var _ Repository = (*FakeRepository)(nil)
