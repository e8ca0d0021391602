package commandhandlers

import (
	"context"
	"time"

	activityservice "github.com/Black-And-White-Club/activity-bot/app/modules/activity/application"
	applicationservice "github.com/Black-And-White-Club/activity-bot/app/modules/applications/application"
	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
	"github.com/Black-And-White-Club/activity-bot/internal/results"
)

// Activity is the part of the activity service the commands use.
type Activity interface {
	Leaderboard(ctx context.Context, limit int) ([]activityservice.LeaderboardEntry, error)
	CurrentScore(ctx context.Context, userID platform.UserID) (results.OperationResult[int64, activityservice.Failure], error)
	RankProgress(ctx context.Context, userID platform.UserID) (results.OperationResult[activityservice.RankView, activityservice.Failure], error)
	InactivityReport(ctx context.Context, cutoff time.Time) ([]activityservice.InactiveUser, error)
	GetUser(ctx context.Context, userID platform.UserID) (results.OperationResult[activityservice.UserView, activityservice.Failure], error)
	DeleteUser(ctx context.Context, userID platform.UserID) (results.OperationResult[bool, activityservice.Failure], error)
	SetScore(ctx context.Context, userID platform.UserID, value int64) (results.OperationResult[activityservice.ScoreUpdate, activityservice.Failure], error)
}

// Applications is the join application flow.
type Applications interface {
	PostJoinMessage(ctx context.Context) (platform.MessageID, error)
	OpenApplication(ctx context.Context, ref platform.InteractionRef) error
	SubmitApplication(ctx context.Context, sub applicationservice.Submission) error
	Resolve(ctx context.Context, d applicationservice.Decision) (results.OperationResult[applicationservice.Resolution, applicationservice.Failure], error)
}

var (
	_ Activity     = (*activityservice.ActivityService)(nil)
	_ Applications = (*applicationservice.ApplicationService)(nil)
)
