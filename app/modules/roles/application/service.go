package roleservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	rankdomain "github.com/Black-And-White-Club/activity-bot/app/modules/rank/domain"
	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/attr"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	defaultCallTimeout = 10 * time.Second
	announceTimeout    = 10 * time.Second
)

// Config tunes the reconciler.
type Config struct {
	// CallTimeout bounds one reconciliation, all platform calls included.
	CallTimeout time.Duration
	// RateLimit throttles platform calls per second; zero disables throttling.
	RateLimit float64
	Burst     int
}

// RoleService keeps each member's rank role in line with their score. It is
// the only writer of rank roles.
type RoleService struct {
	ladder    *rankdomain.Ladder
	roles     platform.RoleClient
	messenger platform.Messenger
	logger    *slog.Logger
	metrics   metrics.RoleMetrics
	tracer    trace.Tracer
	limiter   *rate.Limiter
	timeout   time.Duration

	inflight sync.WaitGroup
}

// NewRoleService creates a RoleService.
func NewRoleService(
	ladder *rankdomain.Ladder,
	roles platform.RoleClient,
	messenger platform.Messenger,
	logger *slog.Logger,
	metrics metrics.RoleMetrics,
	tracer trace.Tracer,
	cfg Config,
) *RoleService {
	s := &RoleService{
		ladder:    ladder,
		roles:     roles,
		messenger: messenger,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		timeout:   cfg.CallTimeout,
	}
	if s.timeout <= 0 {
		s.timeout = defaultCallTimeout
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s
}

// Reconcile moves the member from the tier of OldScore to the tier of
// NewScore. The work is detached from ctx cancellation so that shutdown
// never leaves a member with the old role removed and the new one missing.
func (s *RoleService) Reconcile(ctx context.Context, t Transition) ReconcileResult {
	from, hasFrom := s.ladder.TierFor(t.OldScore)
	to, hasTo := s.ladder.TierFor(t.NewScore)

	result := ReconcileResult{UserID: t.UserID, FromTier: from.Name, ToTier: to.Name}
	if s.ladder.SameTier(t.OldScore, t.NewScore) {
		return result
	}
	result.Changed = true
	result.Promoted = hasTo && (!hasFrom || to.Requirement > from.Requirement)

	s.inflight.Add(1)
	defer s.inflight.Done()

	timeout := s.timeout
	if t.Timeout > 0 {
		timeout = t.Timeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "RoleService.Reconcile", trace.WithAttributes(
		attribute.String("user_id", string(t.UserID)),
		attribute.String("from_tier", from.Name),
		attribute.String("to_tier", to.Name),
	))
	defer span.End()

	var target platform.RoleHandle
	if hasTo {
		target = to.RoleHandle
	}

	s.applyRoles(ctx, t.UserID, target, &result)

	if !result.OK() {
		span.SetStatus(codes.Error, result.FailureSummary())
		s.logger.WarnContext(ctx, "Role reconciliation finished with soft failures",
			attr.UserID(t.UserID),
			attr.String("from_tier", from.Name),
			attr.String("to_tier", to.Name),
			attr.String("failures", result.FailureSummary()),
			attr.ExtractCorrelationID(ctx),
		)
	} else {
		s.logger.InfoContext(ctx, "Role reconciliation completed",
			attr.UserID(t.UserID),
			attr.String("from_tier", from.Name),
			attr.String("to_tier", to.Name),
			attr.Int("removed", len(result.Removed)),
			attr.String("added", string(result.Added)),
		)
	}
	s.metrics.RecordReconciliation(ctx, result.Outcome())

	if result.Promoted && !result.MemberGone && t.AnnounceChannel != "" {
		s.announce(ctx, t.UserID, t.AnnounceChannel, to.Name)
	}
	return result
}

func (s *RoleService) applyRoles(ctx context.Context, userID platform.UserID, target platform.RoleHandle, result *ReconcileResult) {
	held, err := s.listRoles(ctx, userID)
	live := err == nil
	switch {
	case errors.Is(err, platform.ErrMemberNotFound):
		result.MemberGone = true
		return
	case err != nil:
		// Without the live roles every ladder role is a removal candidate.
		result.SoftFailures = append(result.SoftFailures, SoftFailure{Step: StepListRoles, Err: err})
		held = s.ladder.RoleHandles()
	}

	targetHeld := false
	for _, role := range held {
		if !s.ladder.IsRankRole(role) {
			continue
		}
		if role == target {
			targetHeld = live
			continue
		}
		err := s.call(ctx, "remove_role", func(ctx context.Context) error {
			return s.roles.RemoveRole(ctx, userID, role)
		})
		switch {
		case err == nil, errors.Is(err, platform.ErrRoleNotHeld):
			result.Removed = append(result.Removed, role)
		case errors.Is(err, platform.ErrMemberNotFound):
			result.MemberGone = true
			return
		default:
			result.SoftFailures = append(result.SoftFailures, SoftFailure{Step: StepRemoveRole, Role: role, Err: err})
		}
	}

	if target == "" || targetHeld {
		return
	}
	err = s.call(ctx, "add_role", func(ctx context.Context) error {
		return s.roles.AddRole(ctx, userID, target)
	})
	switch {
	case err == nil:
		result.Added = target
	case errors.Is(err, platform.ErrMemberNotFound):
		result.MemberGone = true
	default:
		result.SoftFailures = append(result.SoftFailures, SoftFailure{Step: StepAddRole, Role: target, Err: err})
	}
}

func (s *RoleService) listRoles(ctx context.Context, userID platform.UserID) ([]platform.RoleHandle, error) {
	var held []platform.RoleHandle
	err := s.call(ctx, "list_roles", func(ctx context.Context) error {
		var err error
		held, err = s.roles.ListRoles(ctx, userID)
		return err
	})
	return held, err
}

// announce sends the promotion message without holding up the caller.
func (s *RoleService) announce(ctx context.Context, userID platform.UserID, channel platform.ChannelID, tierName string) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), announceTimeout)
		defer cancel()

		msg := platform.OutgoingMessage{
			Content:       fmt.Sprintf("<@%s> congratulations on the promotion to %s!", userID, tierName),
			AllowMentions: true,
		}
		err := s.call(ctx, "announce", func(ctx context.Context) error {
			_, err := s.messenger.SendMessage(ctx, channel, msg)
			return err
		})
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to announce promotion",
				attr.UserID(userID),
				attr.String("channel_id", string(channel)),
				attr.Error(err),
			)
		}
	}()
}

// call waits for the rate limiter, then runs fn and records it.
func (s *RoleService) call(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			s.metrics.RecordPlatformCall(ctx, name, false, 0)
			return fmt.Errorf("rate limiter: %w", err)
		}
	}
	start := time.Now()
	err := fn(ctx)
	s.metrics.RecordPlatformCall(ctx, name, err == nil || errors.Is(err, platform.ErrRoleNotHeld), time.Since(start))
	return err
}

// Wait blocks until in-flight reconciliations and announcements finish or
// ctx is done.
func (s *RoleService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
