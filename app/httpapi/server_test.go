package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	activityservice "github.com/Black-And-White-Club/activity-bot/app/modules/activity/application"
	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
	"github.com/Black-And-White-Club/activity-bot/internal/results"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testSecret = "test-secret"

type fakeQueries struct {
	entries   []activityservice.LeaderboardEntry
	users     map[platform.UserID]activityservice.UserView
	inactive  []activityservice.InactiveUser
	gotLimit  int
	gotCutoff time.Time
}

func (f *fakeQueries) Leaderboard(_ context.Context, limit int) ([]activityservice.LeaderboardEntry, error) {
	f.gotLimit = limit
	return f.entries, nil
}

func (f *fakeQueries) GetUser(_ context.Context, id platform.UserID) (results.OperationResult[activityservice.UserView, activityservice.Failure], error) {
	if u, ok := f.users[id]; ok {
		return results.SuccessResult[activityservice.UserView, activityservice.Failure](u), nil
	}
	return results.FailureResult[activityservice.UserView](activityservice.Failure{Code: activityservice.FailureUserNotFound, Message: "User not found"}), nil
}

func (f *fakeQueries) InactivityReport(_ context.Context, cutoff time.Time) ([]activityservice.InactiveUser, error) {
	f.gotCutoff = cutoff
	return f.inactive, nil
}

func newTestServer(q *fakeQueries) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(Config{JWTSecret: testSecret, RateLimit: 100, RateBurst: 100}, q, prometheus.NewRegistry(), logger)
}

func authed(t *testing.T, method, path string) *http.Request {
	t.Helper()
	token, err := NewTokenValidator(testSecret).Issue("dashboard", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func sampleEntries() []activityservice.LeaderboardEntry {
	return []activityservice.LeaderboardEntry{
		{Position: 1, UserID: "a", Score: 300, Tier: "Iron"},
		{Position: 2, UserID: "b", Score: 12, Tier: "Bronze"},
	}
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	s := newTestServer(&fakeQueries{})
	for _, path := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(&fakeQueries{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil)
	other, err := NewTokenValidator("other-secret").Issue("x", time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+other)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenValidator_Expired(t *testing.T) {
	v := NewTokenValidator(testSecret)
	token, err := v.Issue("x", -time.Minute)
	require.NoError(t, err)
	_, err = v.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestLeaderboardJSON(t *testing.T) {
	q := &fakeQueries{entries: sampleEntries()}
	s := newTestServer(q)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, authed(t, http.MethodGet, "/api/v1/leaderboard?limit=5"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, q.gotLimit)

	var items []leaderboardItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Equal(t, []leaderboardItem{
		{Position: 1, UserID: "a", Score: 300, Rank: "Iron"},
		{Position: 2, UserID: "b", Score: 12, Rank: "Bronze"},
	}, items)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, authed(t, http.MethodGet, "/api/v1/leaderboard?limit=ten"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeaderboardChartIsPNG(t *testing.T) {
	s := newTestServer(&fakeQueries{entries: sampleEntries()})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, authed(t, http.MethodGet, "/api/v1/leaderboard.png"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	_, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	assert.NoError(t, err)
}

func TestLeaderboardSheet(t *testing.T) {
	s := newTestServer(&fakeQueries{entries: sampleEntries()})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, authed(t, http.MethodGet, "/api/v1/leaderboard.xlsx"))
	require.Equal(t, http.StatusOK, rec.Code)

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(leaderboardSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Position", "User ID", "Score", "Rank"}, rows[0])
	assert.Equal(t, []string{"1", "a", "300", "Iron"}, rows[1])
}

func TestUserEndpoint(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestServer(&fakeQueries{users: map[platform.UserID]activityservice.UserView{
		"42": {UserID: "42", Score: 7, FirstSeenAt: first, Tier: "Bronze"},
	}})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, authed(t, http.MethodGet, "/api/v1/users/42"))
	require.Equal(t, http.StatusOK, rec.Code)
	var got userItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(7), got.Score)
	assert.True(t, got.FirstSeenAt.Equal(first))

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, authed(t, http.MethodGet, "/api/v1/users/99"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInactiveEndpoint(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	q := &fakeQueries{inactive: []activityservice.InactiveUser{{UserID: "a", DaysInactive: 20, LastMessageAt: now.AddDate(0, 0, -20)}}}
	s := newTestServer(q)
	s.now = func() time.Time { return now }

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, authed(t, http.MethodGet, "/api/v1/inactive?since=30"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, q.gotCutoff.Equal(now.AddDate(0, 0, -30)))

	var items []inactiveItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, 20, items[0].DaysInactive)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, authed(t, http.MethodGet, "/api/v1/inactive?since=gibberish+words"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewClientLimiter(0, 1, time.Minute)
	h := RateLimitMiddleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	serve := func(subject string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if subject != "" {
			req = req.WithContext(context.WithValue(req.Context(), subjectKey{}, subject))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, serve("").Code)
	second := serve("")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Empty(t, second.Header().Get("Retry-After"), "a bucket that never refills has no retry hint")

	// same address, but an authenticated caller has its own bucket
	assert.Equal(t, http.StatusNoContent, serve("dashboard").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve("dashboard").Code)
}

func TestRateLimitMiddleware_RetryAfter(t *testing.T) {
	limiter := NewClientLimiter(0.5, 1, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	h := RateLimitMiddleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	// the refused request did not spend the refilling token
	now = now.Add(2 * time.Second)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestClientLimiter_SweepsIdleBuckets(t *testing.T) {
	limiter := NewClientLimiter(1, 1, 10*time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for _, key := range []string{"addr:10.0.0.1", "addr:10.0.0.2", "sub:dashboard"} {
		limiter.Allow(key)
	}
	now = now.Add(5 * time.Minute)
	limiter.Allow("addr:10.0.0.1")
	assert.Equal(t, 3, limiter.clients(), "no sweep before the idle ttl has passed")

	now = now.Add(6 * time.Minute)
	limiter.Allow("sub:reporter")
	assert.Equal(t, 2, limiter.clients())
}
