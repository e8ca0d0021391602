package activityservice

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	activitydb "github.com/Black-And-White-Club/activity-bot/app/modules/activity/infrastructure/repositories"
	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/attr"
	"github.com/Black-And-White-Club/activity-bot/internal/results"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

func notFound[S any](userID platform.UserID) results.OperationResult[S, Failure] {
	return results.FailureResult[S](Failure{
		Code:    FailureUserNotFound,
		UserID:  userID,
		Message: "User not found",
	})
}

func (s *ActivityService) view(u *activitydb.User) UserView {
	v := UserView{
		UserID:        platform.UserID(u.UserID),
		Score:         u.ActivityScore,
		FirstSeenAt:   u.FirstSeenAt,
		LastMessageAt: u.LastMessageAt,
	}
	if tier, ok := s.ladder.TierFor(u.ActivityScore); ok {
		v.Tier = tier.Name
	}
	return v
}

// GetUser returns the stored record for a member.
func (s *ActivityService) GetUser(ctx context.Context, userID platform.UserID) (results.OperationResult[UserView, Failure], error) {
	return withTelemetry(s, ctx, "GetUser", userID, func(ctx context.Context) (results.OperationResult[UserView, Failure], error) {
		u, err := s.repo.GetUser(ctx, nil, string(userID))
		if errors.Is(err, activitydb.ErrNotFound) {
			return notFound[UserView](userID), nil
		}
		if err != nil {
			return results.OperationResult[UserView, Failure]{}, err
		}
		return results.SuccessResult[UserView, Failure](s.view(u)), nil
	})
}

// CurrentScore returns a member's activity score.
func (s *ActivityService) CurrentScore(ctx context.Context, userID platform.UserID) (results.OperationResult[int64, Failure], error) {
	return withTelemetry(s, ctx, "CurrentScore", userID, func(ctx context.Context) (results.OperationResult[int64, Failure], error) {
		u, err := s.repo.GetUser(ctx, nil, string(userID))
		if errors.Is(err, activitydb.ErrNotFound) {
			return notFound[int64](userID), nil
		}
		if err != nil {
			return results.OperationResult[int64, Failure]{}, err
		}
		return results.SuccessResult[int64, Failure](u.ActivityScore), nil
	})
}

// RankProgress reports how far a member is toward the next tier.
func (s *ActivityService) RankProgress(ctx context.Context, userID platform.UserID) (results.OperationResult[RankView, Failure], error) {
	return withTelemetry(s, ctx, "RankProgress", userID, func(ctx context.Context) (results.OperationResult[RankView, Failure], error) {
		u, err := s.repo.GetUser(ctx, nil, string(userID))
		if errors.Is(err, activitydb.ErrNotFound) {
			return notFound[RankView](userID), nil
		}
		if err != nil {
			return results.OperationResult[RankView, Failure]{}, err
		}
		return results.SuccessResult[RankView, Failure](RankView{
			UserID:   userID,
			Progress: s.ladder.Progress(u.ActivityScore),
		}), nil
	})
}

// Leaderboard returns the top members. A non-positive limit means the
// default; larger limits are capped.
func (s *ActivityService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}
	users, err := s.repo.TopUsers(ctx, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("Leaderboard: %w", err)
	}
	entries := make([]LeaderboardEntry, len(users))
	for i, u := range users {
		v := s.view(u)
		entries[i] = LeaderboardEntry{Position: i + 1, UserID: v.UserID, Score: v.Score, Tier: v.Tier}
	}
	return entries, nil
}

// InactivityReport lists members whose last scoring message is before
// cutoff, oldest first. Members with no activity yet, or with a timestamp
// after the store's clock, are left out.
func (s *ActivityService) InactivityReport(ctx context.Context, cutoff time.Time) ([]InactiveUser, error) {
	now, err := s.repo.ServerTime(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("InactivityReport: %w", err)
	}
	users, err := s.repo.ListInactiveSince(ctx, nil, cutoff)
	if err != nil {
		return nil, fmt.Errorf("InactivityReport: %w", err)
	}

	report := make([]InactiveUser, 0, len(users))
	skipped := 0
	for _, u := range users {
		last, ok := u.LastActivity()
		if !ok || last.After(now) {
			skipped++
			continue
		}
		report = append(report, InactiveUser{
			UserID:        platform.UserID(u.UserID),
			Score:         u.ActivityScore,
			LastMessageAt: last,
			DaysInactive:  int(now.Sub(last) / (24 * time.Hour)),
		})
	}
	if skipped > 0 {
		s.logger.WarnContext(ctx, "Inactivity report skipped users without a usable activity time",
			attr.Int("skipped", skipped),
			attr.Time("cutoff", cutoff),
		)
	}

	slices.SortStableFunc(report, func(a, b InactiveUser) int {
		return a.LastMessageAt.Compare(b.LastMessageAt)
	})
	return report, nil
}
