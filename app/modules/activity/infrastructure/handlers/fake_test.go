package activityhandlers

import (
	"context"

	activityservice "github.com/Black-And-White-Club/activity-bot/app/modules/activity/application"
	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
)

// FakeActivityService programs Service for handler tests.
type FakeActivityService struct {
	IngestMessageFunc func(ctx context.Context, msg activityservice.MessageReceived) (activityservice.IngestResult, error)
	MemberJoinedFunc  func(ctx context.Context, userID platform.UserID) (bool, error)
	MemberLeftFunc    func(ctx context.Context, userID platform.UserID) (bool, error)
	SyncMembersFunc   func(ctx context.Context, members []platform.UserID, prune bool) (activityservice.SyncReport, error)

	joined []platform.UserID
	left   []platform.UserID
}

func (f *FakeActivityService) IngestMessage(ctx context.Context, msg activityservice.MessageReceived) (activityservice.IngestResult, error) {
	if f.IngestMessageFunc != nil {
		return f.IngestMessageFunc(ctx, msg)
	}
	return activityservice.IngestResult{Outcome: activityservice.OutcomeScored}, nil
}

func (f *FakeActivityService) MemberJoined(ctx context.Context, userID platform.UserID) (bool, error) {
	f.joined = append(f.joined, userID)
	if f.MemberJoinedFunc != nil {
		return f.MemberJoinedFunc(ctx, userID)
	}
	return true, nil
}

func (f *FakeActivityService) MemberLeft(ctx context.Context, userID platform.UserID) (bool, error) {
	f.left = append(f.left, userID)
	if f.MemberLeftFunc != nil {
		return f.MemberLeftFunc(ctx, userID)
	}
	return true, nil
}

func (f *FakeActivityService) SyncMembers(ctx context.Context, members []platform.UserID, prune bool) (activityservice.SyncReport, error) {
	if f.SyncMembersFunc != nil {
		return f.SyncMembersFunc(ctx, members, prune)
	}
	return activityservice.SyncReport{Seen: len(members)}, nil
}
