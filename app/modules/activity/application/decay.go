package activityservice

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	activitydb "github.com/Black-And-White-Club/activity-bot/app/modules/activity/infrastructure/repositories"
	roleservice "github.com/Black-And-White-Club/activity-bot/app/modules/roles/application"
	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/attr"
)

// DecayAmount is max(1, ceil(score*rate)), never more than score itself.
func DecayAmount(score int64, rate float64) int64 {
	if score <= 0 {
		return 0
	}
	reduction := int64(math.Ceil(float64(score) * rate))
	if reduction < 1 {
		reduction = 1
	}
	if reduction > score {
		reduction = score
	}
	return reduction
}

// RunDecay lowers the score of every member idle since the cutoff who holds
// a tier. One member failing never stops the scan; a done ctx stops it
// between members.
func (s *ActivityService) RunDecay(ctx context.Context) (DecayReport, error) {
	ctx, span := s.tracer.Start(ctx, "RunDecay")
	defer span.End()

	start := time.Now()
	var report DecayReport
	defer func() {
		report.Duration = time.Since(start)
		s.metrics.RecordDecayRun(ctx, report.Scanned, report.Decayed, report.Failed, report.Duration)
	}()

	now, err := s.repo.ServerTime(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return report, fmt.Errorf("RunDecay: server time: %w", err)
	}
	report.Now = now
	report.Cutoff = now.Add(-s.cfg.DecayGrace)

	users, err := s.repo.ListInactiveSince(ctx, nil, report.Cutoff)
	if err != nil {
		span.RecordError(err)
		return report, fmt.Errorf("RunDecay: list inactive: %w", err)
	}

	for _, u := range users {
		if err := ctx.Err(); err != nil {
			s.logger.WarnContext(ctx, "Decay pass interrupted",
				attr.Int("scanned", report.Scanned),
				attr.Int("remaining", len(users)-report.Scanned),
			)
			return report, err
		}
		report.Scanned++
		s.decayUser(ctx, u, &report)
	}

	s.logger.InfoContext(ctx, "Decay pass completed",
		attr.Time("cutoff", report.Cutoff),
		attr.Int("scanned", report.Scanned),
		attr.Int("decayed", report.Decayed),
		attr.Int("reconciled", report.Reconciled),
		attr.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *ActivityService) decayUser(ctx context.Context, u *activitydb.User, report *DecayReport) {
	if _, ok := s.ladder.TierFor(u.ActivityScore); !ok {
		return
	}
	reduction := DecayAmount(u.ActivityScore, s.cfg.DecayRate)
	if reduction == 0 {
		return
	}

	change, err := s.repo.SetScore(ctx, nil, u.UserID, u.ActivityScore-reduction)
	if errors.Is(err, activitydb.ErrNotFound) {
		// left between the scan and the write
		return
	}
	if err != nil {
		report.Failed++
		s.logger.ErrorContext(ctx, "Failed to decay user",
			attr.UserID(u.UserID),
			attr.Int64("score", u.ActivityScore),
			attr.Error(err),
		)
		return
	}
	report.Decayed++
	s.metrics.RecordScoreChange(ctx, "decay", change.NewScore-change.OldScore)

	if s.ladder.SameTier(change.OldScore, change.NewScore) {
		return
	}
	report.Reconciled++
	rec := s.reconciler.Reconcile(ctx, roleservice.Transition{
		UserID:   platform.UserID(u.UserID),
		OldScore: change.OldScore,
		NewScore: change.NewScore,
		Timeout:  s.cfg.ReconcileTimeout,
	})
	if !rec.OK() {
		report.Failed++
	}
}
