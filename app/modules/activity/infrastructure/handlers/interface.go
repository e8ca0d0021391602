package activityhandlers

import (
	"context"

	activityevents "github.com/Black-And-White-Club/activity-bot/app/events/activity"
	activityservice "github.com/Black-And-White-Club/activity-bot/app/modules/activity/application"
	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
	"github.com/Black-And-White-Club/activity-bot/internal/handlerwrapper"
)

// Handlers defines the activity event handlers.
type Handlers interface {
	// HandleMessageReceived scores a chat message.
	HandleMessageReceived(ctx context.Context, payload *activityevents.MessageReceivedPayloadV1) ([]handlerwrapper.Result, error)
	HandleMemberJoined(ctx context.Context, payload *activityevents.MemberPayloadV1) ([]handlerwrapper.Result, error)
	HandleMemberLeft(ctx context.Context, payload *activityevents.MemberPayloadV1) ([]handlerwrapper.Result, error)
	// HandleMembersSync tracks every listed member, pruning the rest when asked.
	HandleMembersSync(ctx context.Context, payload *activityevents.MembersSyncPayloadV1) ([]handlerwrapper.Result, error)
}

// Service is the part of the activity service driven by bus events.
type Service interface {
	IngestMessage(ctx context.Context, msg activityservice.MessageReceived) (activityservice.IngestResult, error)
	MemberJoined(ctx context.Context, userID platform.UserID) (bool, error)
	MemberLeft(ctx context.Context, userID platform.UserID) (bool, error)
	SyncMembers(ctx context.Context, members []platform.UserID, prune bool) (activityservice.SyncReport, error)
}
