package activityservice

import (
	"context"
	"errors"
	"fmt"

	activitydb "github.com/Black-And-White-Club/activity-bot/app/modules/activity/infrastructure/repositories"
	roleservice "github.com/Black-And-White-Club/activity-bot/app/modules/roles/application"
	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/attr"
	"github.com/Black-And-White-Club/activity-bot/internal/results"
)

// SetScore overwrites a member's score and reconciles their roles from the
// real previous score. Negative values are rejected.
func (s *ActivityService) SetScore(ctx context.Context, userID platform.UserID, value int64) (results.OperationResult[ScoreUpdate, Failure], error) {
	return withTelemetry(s, ctx, "SetScore", userID, func(ctx context.Context) (results.OperationResult[ScoreUpdate, Failure], error) {
		if value < 0 {
			return results.FailureResult[ScoreUpdate](Failure{
				Code:    FailureInvalidInput,
				UserID:  userID,
				Message: "Score must not be negative",
			}), nil
		}

		change, err := s.repo.SetScore(ctx, nil, string(userID), value)
		if errors.Is(err, activitydb.ErrNotFound) {
			return notFound[ScoreUpdate](userID), nil
		}
		if err != nil {
			return results.OperationResult[ScoreUpdate, Failure]{}, err
		}
		s.metrics.RecordScoreChange(ctx, "admin", change.NewScore-change.OldScore)

		update := ScoreUpdate{UserID: userID, OldScore: change.OldScore, NewScore: change.NewScore}
		if !s.ladder.SameTier(change.OldScore, change.NewScore) {
			rec := s.reconciler.Reconcile(ctx, roleservice.Transition{
				UserID:   userID,
				OldScore: change.OldScore,
				NewScore: change.NewScore,
			})
			update.Reconcile = &rec
		}
		return results.SuccessResult[ScoreUpdate, Failure](update), nil
	})
}

// DeleteUser removes a member's record. Deleting an unknown member succeeds.
func (s *ActivityService) DeleteUser(ctx context.Context, userID platform.UserID) (results.OperationResult[bool, Failure], error) {
	return withTelemetry(s, ctx, "DeleteUser", userID, func(ctx context.Context) (results.OperationResult[bool, Failure], error) {
		existed, err := s.repo.RemoveUser(ctx, nil, string(userID))
		if err != nil {
			return results.OperationResult[bool, Failure]{}, err
		}
		return results.SuccessResult[bool, Failure](existed), nil
	})
}

// MemberJoined starts tracking a member. Repeated joins are no-ops.
func (s *ActivityService) MemberJoined(ctx context.Context, userID platform.UserID) (bool, error) {
	created, err := s.repo.EnsureUser(ctx, nil, string(userID))
	if err != nil {
		return false, fmt.Errorf("MemberJoined: %w", err)
	}
	if created {
		s.logger.InfoContext(ctx, "Tracking new member", attr.UserID(userID))
	}
	return created, nil
}

// MemberLeft stops tracking a member. Their stored score is dropped.
func (s *ActivityService) MemberLeft(ctx context.Context, userID platform.UserID) (bool, error) {
	existed, err := s.repo.RemoveUser(ctx, nil, string(userID))
	if err != nil {
		return false, fmt.Errorf("MemberLeft: %w", err)
	}
	if existed {
		s.logger.InfoContext(ctx, "Stopped tracking member", attr.UserID(userID))
	}
	return existed, nil
}

// SyncMembers ensures every listed member is tracked. With prune set,
// tracked users missing from the list are removed.
func (s *ActivityService) SyncMembers(ctx context.Context, members []platform.UserID, prune bool) (SyncReport, error) {
	report := SyncReport{Seen: len(members)}
	present := make(map[string]struct{}, len(members))

	for _, m := range members {
		present[string(m)] = struct{}{}
		created, err := s.repo.EnsureUser(ctx, nil, string(m))
		if err != nil {
			return report, fmt.Errorf("SyncMembers: ensure %s: %w", m, err)
		}
		if created {
			report.Created++
		}
	}

	if prune {
		ids, err := s.repo.ListUserIDs(ctx, nil)
		if err != nil {
			return report, fmt.Errorf("SyncMembers: list: %w", err)
		}
		for _, id := range ids {
			if _, ok := present[id]; ok {
				continue
			}
			removed, err := s.repo.RemoveUser(ctx, nil, id)
			if err != nil {
				return report, fmt.Errorf("SyncMembers: remove %s: %w", id, err)
			}
			if removed {
				report.Removed++
			}
		}
	}

	s.logger.InfoContext(ctx, "Member sync completed",
		attr.Int("seen", report.Seen),
		attr.Int("created", report.Created),
		attr.Int("removed", report.Removed),
	)
	return report, nil
}
