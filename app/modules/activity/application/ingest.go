package activityservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	activitydb "github.com/Black-And-White-Club/activity-bot/app/modules/activity/infrastructure/repositories"
	roleservice "github.com/Black-And-White-Club/activity-bot/app/modules/roles/application"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/attr"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	minTokens     = 3
	minLongTokens = 3
	longTokenLen  = 3
)

// QualifyingContent reports whether content passes the quality filter: at
// least three whitespace separated tokens, three of them three or more
// characters long.
func QualifyingContent(content string) bool {
	tokens := strings.Fields(content)
	if len(tokens) < minTokens {
		return false
	}
	long := 0
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) >= longTokenLen {
			long++
			if long >= minLongTokens {
				return true
			}
		}
	}
	return false
}

// InCooldown reports whether now is still inside the cooldown that started
// at the last scoring message.
func InCooldown(last *time.Time, now time.Time, cooldown time.Duration) bool {
	if last == nil {
		return false
	}
	return now.Before(last.Add(cooldown))
}

// IngestMessage scores one chat message. Dropped messages are not errors;
// the Outcome says why they were dropped.
func (s *ActivityService) IngestMessage(ctx context.Context, msg MessageReceived) (IngestResult, error) {
	ctx, span := s.tracer.Start(ctx, "IngestMessage", trace.WithAttributes(
		attribute.String("user_id", string(msg.UserID)),
		attribute.String("channel_id", string(msg.ChannelID)),
	))
	defer span.End()

	result, err := s.ingest(ctx, msg)
	if err != nil {
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "Failed to ingest message",
			attr.UserID(msg.UserID),
			attr.String("channel_id", string(msg.ChannelID)),
			attr.ExtractCorrelationID(ctx),
			attr.Error(err),
		)
		return IngestResult{}, fmt.Errorf("IngestMessage: %w", err)
	}

	span.SetAttributes(attribute.String("outcome", string(result.Outcome)))
	s.metrics.RecordMessageOutcome(ctx, string(result.Outcome))
	if result.Outcome == OutcomeScored {
		s.metrics.RecordScoreChange(ctx, "message", result.NewScore-result.OldScore)
	}
	return result, nil
}

func (s *ActivityService) ingest(ctx context.Context, msg MessageReceived) (IngestResult, error) {
	if msg.IsBot {
		return IngestResult{Outcome: OutcomeBot}, nil
	}
	if s.cfg.Env == "dev" && msg.UserID != s.cfg.OwnerID {
		return IngestResult{Outcome: OutcomeDevFiltered}, nil
	}
	if _, ok := s.excluded[msg.ChannelID]; ok {
		return IngestResult{Outcome: OutcomeExcludedChannel}, nil
	}

	result, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (IngestResult, error) {
		now, err := s.repo.ServerTime(ctx, db)
		if err != nil {
			return IngestResult{}, err
		}

		user, err := s.repo.LockUser(ctx, db, string(msg.UserID))
		if errors.Is(err, activitydb.ErrNotFound) {
			return IngestResult{Outcome: OutcomeUnknownUser}, nil
		}
		if err != nil {
			return IngestResult{}, err
		}

		if InCooldown(user.LastMessageAt, now, s.cfg.Cooldown) {
			return IngestResult{Outcome: OutcomeCooldown, OldScore: user.ActivityScore, NewScore: user.ActivityScore}, nil
		}
		if !QualifyingContent(msg.Content) {
			return IngestResult{Outcome: OutcomeLowQuality, OldScore: user.ActivityScore, NewScore: user.ActivityScore}, nil
		}

		change, err := s.repo.IncrementScore(ctx, db, string(msg.UserID), 1, now)
		if errors.Is(err, activitydb.ErrNotFound) {
			return IngestResult{Outcome: OutcomeUnknownUser}, nil
		}
		if err != nil {
			return IngestResult{}, err
		}
		return IngestResult{Outcome: OutcomeScored, OldScore: change.OldScore, NewScore: change.NewScore}, nil
	})
	if err != nil {
		return IngestResult{}, err
	}

	// Roles change only after the score is committed.
	if result.Outcome == OutcomeScored && !s.ladder.SameTier(result.OldScore, result.NewScore) {
		rec := s.reconciler.Reconcile(ctx, roleservice.Transition{
			UserID:          msg.UserID,
			OldScore:        result.OldScore,
			NewScore:        result.NewScore,
			AnnounceChannel: msg.ChannelID,
		})
		result.Reconcile = &rec
	}
	return result, nil
}
