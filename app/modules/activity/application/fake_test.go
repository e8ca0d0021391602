package activityservice

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	activitydb "github.com/Black-And-White-Club/activity-bot/app/modules/activity/infrastructure/repositories"
	rankdomain "github.com/Black-And-White-Club/activity-bot/app/modules/rank/domain"
	roleservice "github.com/Black-And-White-Club/activity-bot/app/modules/roles/application"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/metrics"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"
)

// memStore backs a FakeRepository with a map and a settable clock.
type memStore struct {
	mu    sync.Mutex
	now   time.Time
	users map[string]*activitydb.User
}

func newMemStore(now time.Time) *memStore {
	return &memStore{now: now, users: map[string]*activitydb.User{}}
}

func (m *memStore) advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func (m *memStore) put(u activitydb.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := u
	m.users[u.UserID] = &cp
}

func (m *memStore) score(id string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u.ActivityScore
	}
	return -1
}

func (m *memStore) repo() *activitydb.FakeRepository {
	get := func(_ context.Context, _ bun.IDB, id string) (*activitydb.User, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		u, ok := m.users[id]
		if !ok {
			return nil, activitydb.ErrNotFound
		}
		cp := *u
		return &cp, nil
	}
	return &activitydb.FakeRepository{
		GetUserFn:  get,
		LockUserFn: get,
		EnsureUserFn: func(_ context.Context, _ bun.IDB, id string) (bool, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			if _, ok := m.users[id]; ok {
				return false, nil
			}
			m.users[id] = &activitydb.User{UserID: id, FirstSeenAt: m.now}
			return true, nil
		},
		RemoveUserFn: func(_ context.Context, _ bun.IDB, id string) (bool, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			_, ok := m.users[id]
			delete(m.users, id)
			return ok, nil
		},
		IncrementScoreFn: func(_ context.Context, _ bun.IDB, id string, delta int64, now time.Time) (activitydb.ScoreChange, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			u, ok := m.users[id]
			if !ok {
				return activitydb.ScoreChange{}, activitydb.ErrNotFound
			}
			old := u.ActivityScore
			u.ActivityScore = max(0, old+delta)
			if delta > 0 {
				t := now
				u.LastMessageAt = &t
			}
			return activitydb.ScoreChange{OldScore: old, NewScore: u.ActivityScore}, nil
		},
		SetScoreFn: func(_ context.Context, _ bun.IDB, id string, value int64) (activitydb.ScoreChange, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			u, ok := m.users[id]
			if !ok {
				return activitydb.ScoreChange{}, activitydb.ErrNotFound
			}
			old := u.ActivityScore
			u.ActivityScore = max(0, value)
			return activitydb.ScoreChange{OldScore: old, NewScore: u.ActivityScore}, nil
		},
		ListInactiveSinceFn: func(_ context.Context, _ bun.IDB, cutoff time.Time) ([]*activitydb.User, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			var out []*activitydb.User
			for _, u := range m.users {
				if u.LastMessageAt == nil || u.LastMessageAt.Before(cutoff) {
					cp := *u
					out = append(out, &cp)
				}
			}
			sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
			return out, nil
		},
		TopUsersFn: func(_ context.Context, _ bun.IDB, limit int) ([]*activitydb.User, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			var out []*activitydb.User
			for _, u := range m.users {
				cp := *u
				out = append(out, &cp)
			}
			sort.Slice(out, func(i, j int) bool {
				a, b := out[i], out[j]
				if a.ActivityScore != b.ActivityScore {
					return a.ActivityScore > b.ActivityScore
				}
				if !a.FirstSeenAt.Equal(b.FirstSeenAt) {
					return a.FirstSeenAt.Before(b.FirstSeenAt)
				}
				return a.UserID < b.UserID
			})
			if len(out) > limit {
				out = out[:limit]
			}
			return out, nil
		},
		ListUserIDsFn: func(_ context.Context, _ bun.IDB) ([]string, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			var ids []string
			for id := range m.users {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			return ids, nil
		},
		ServerTimeFn: func(context.Context, bun.IDB) (time.Time, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			return m.now, nil
		},
	}
}

// fakeReconciler records transitions and returns a canned result.
type fakeReconciler struct {
	mu          sync.Mutex
	transitions []roleservice.Transition
	softFail    bool
}

func (f *fakeReconciler) Reconcile(_ context.Context, t roleservice.Transition) roleservice.ReconcileResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitions = append(f.transitions, t)
	res := roleservice.ReconcileResult{UserID: t.UserID, Changed: true}
	if f.softFail {
		res.SoftFailures = []roleservice.SoftFailure{{Step: roleservice.StepAddRole}}
	}
	return res
}

func (f *fakeReconciler) calls() []roleservice.Transition {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]roleservice.Transition, len(f.transitions))
	copy(out, f.transitions)
	return out
}

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testLadder(t *testing.T) *rankdomain.Ladder {
	t.Helper()
	l, err := rankdomain.NewLadder(rankdomain.FillDefaults([]rankdomain.Tier{
		{RoleHandle: "bronze"}, {RoleHandle: "iron"}, {RoleHandle: "steel"}, {RoleHandle: "mithril"},
		{RoleHandle: "adamant"}, {RoleHandle: "rune"}, {RoleHandle: "dragon"}, {RoleHandle: "torva"},
	}))
	if err != nil {
		t.Fatalf("NewLadder: %v", err)
	}
	return l
}

func newTestService(t *testing.T, repo activitydb.Repository, rec Reconciler, cfg Config) *ActivityService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := noop.NewTracerProvider().Tracer("test")
	return NewActivityService(repo, testLadder(t), rec, logger, metrics.NoOp{}, tracer, nil, cfg)
}
