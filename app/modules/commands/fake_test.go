package commandhandlers

import (
	"context"
	"io"
	"log/slog"
	"time"

	activityservice "github.com/Black-And-White-Club/activity-bot/app/modules/activity/application"
	applicationservice "github.com/Black-And-White-Club/activity-bot/app/modules/applications/application"
	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
	"github.com/Black-And-White-Club/activity-bot/internal/results"
	"go.opentelemetry.io/otel/trace/noop"
)

type fakeActivity struct {
	LeaderboardFn  func(ctx context.Context, limit int) ([]activityservice.LeaderboardEntry, error)
	CurrentScoreFn func(ctx context.Context, userID platform.UserID) (results.OperationResult[int64, activityservice.Failure], error)
	RankProgressFn func(ctx context.Context, userID platform.UserID) (results.OperationResult[activityservice.RankView, activityservice.Failure], error)
	InactivityFn   func(ctx context.Context, cutoff time.Time) ([]activityservice.InactiveUser, error)
	GetUserFn      func(ctx context.Context, userID platform.UserID) (results.OperationResult[activityservice.UserView, activityservice.Failure], error)
	DeleteUserFn   func(ctx context.Context, userID platform.UserID) (results.OperationResult[bool, activityservice.Failure], error)
	SetScoreFn     func(ctx context.Context, userID platform.UserID, value int64) (results.OperationResult[activityservice.ScoreUpdate, activityservice.Failure], error)
}

func (f *fakeActivity) Leaderboard(ctx context.Context, limit int) ([]activityservice.LeaderboardEntry, error) {
	if f.LeaderboardFn != nil {
		return f.LeaderboardFn(ctx, limit)
	}
	return nil, nil
}

func (f *fakeActivity) CurrentScore(ctx context.Context, userID platform.UserID) (results.OperationResult[int64, activityservice.Failure], error) {
	if f.CurrentScoreFn != nil {
		return f.CurrentScoreFn(ctx, userID)
	}
	return results.FailureResult[int64](activityservice.Failure{Code: activityservice.FailureUserNotFound}), nil
}

func (f *fakeActivity) RankProgress(ctx context.Context, userID platform.UserID) (results.OperationResult[activityservice.RankView, activityservice.Failure], error) {
	if f.RankProgressFn != nil {
		return f.RankProgressFn(ctx, userID)
	}
	return results.FailureResult[activityservice.RankView](activityservice.Failure{Code: activityservice.FailureUserNotFound}), nil
}

func (f *fakeActivity) InactivityReport(ctx context.Context, cutoff time.Time) ([]activityservice.InactiveUser, error) {
	if f.InactivityFn != nil {
		return f.InactivityFn(ctx, cutoff)
	}
	return nil, nil
}

func (f *fakeActivity) GetUser(ctx context.Context, userID platform.UserID) (results.OperationResult[activityservice.UserView, activityservice.Failure], error) {
	if f.GetUserFn != nil {
		return f.GetUserFn(ctx, userID)
	}
	return results.FailureResult[activityservice.UserView](activityservice.Failure{Code: activityservice.FailureUserNotFound}), nil
}

func (f *fakeActivity) DeleteUser(ctx context.Context, userID platform.UserID) (results.OperationResult[bool, activityservice.Failure], error) {
	if f.DeleteUserFn != nil {
		return f.DeleteUserFn(ctx, userID)
	}
	return results.SuccessResult[bool, activityservice.Failure](false), nil
}

func (f *fakeActivity) SetScore(ctx context.Context, userID platform.UserID, value int64) (results.OperationResult[activityservice.ScoreUpdate, activityservice.Failure], error) {
	if f.SetScoreFn != nil {
		return f.SetScoreFn(ctx, userID, value)
	}
	return results.SuccessResult[activityservice.ScoreUpdate, activityservice.Failure](activityservice.ScoreUpdate{UserID: userID, NewScore: value}), nil
}

type fakeApplications struct {
	posted    int
	opened    []platform.InteractionRef
	submitted []applicationservice.Submission
	decisions []applicationservice.Decision

	ResolveFn func(ctx context.Context, d applicationservice.Decision) (results.OperationResult[applicationservice.Resolution, applicationservice.Failure], error)
}

func (f *fakeApplications) PostJoinMessage(context.Context) (platform.MessageID, error) {
	f.posted++
	return "lobby-1", nil
}

func (f *fakeApplications) OpenApplication(_ context.Context, ref platform.InteractionRef) error {
	f.opened = append(f.opened, ref)
	return nil
}

func (f *fakeApplications) SubmitApplication(_ context.Context, sub applicationservice.Submission) error {
	f.submitted = append(f.submitted, sub)
	return nil
}

func (f *fakeApplications) Resolve(ctx context.Context, d applicationservice.Decision) (results.OperationResult[applicationservice.Resolution, applicationservice.Failure], error) {
	f.decisions = append(f.decisions, d)
	if f.ResolveFn != nil {
		return f.ResolveFn(ctx, d)
	}
	accept, applicant, _ := applicationservice.ParseDecision(d.CustomID)
	return results.SuccessResult[applicationservice.Resolution, applicationservice.Failure](applicationservice.Resolution{
		ApplicantID: applicant,
		Accepted:    accept,
	}), nil
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestHandlers(act *fakeActivity, apps *fakeApplications, client *platform.FakeClient, cfg Config) *CommandHandlers {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewCommandHandlers(act, apps, client, cfg, logger, noop.NewTracerProvider().Tracer("test"))
	h.now = func() time.Time { return testNow }
	return h
}
