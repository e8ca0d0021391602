package activityservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	activitydb "github.com/Black-And-White-Club/activity-bot/app/modules/activity/infrastructure/repositories"
	rankdomain "github.com/Black-And-White-Club/activity-bot/app/modules/rank/domain"
	roleservice "github.com/Black-And-White-Club/activity-bot/app/modules/roles/application"
	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/attr"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/metrics"
	"github.com/Black-And-White-Club/activity-bot/internal/results"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Reconciler applies tier changes to platform roles.
type Reconciler interface {
	Reconcile(ctx context.Context, t roleservice.Transition) roleservice.ReconcileResult
}

// Config holds the scoring policy.
type Config struct {
	// Env "dev" scores only OwnerID.
	Env     string
	OwnerID platform.UserID

	Cooldown         time.Duration
	ExcludedChannels []platform.ChannelID

	DecayRate        float64
	DecayGrace       time.Duration
	ReconcileTimeout time.Duration
}

const (
	DefaultCooldown         = 5 * time.Second
	DefaultDecayRate        = 0.01
	DefaultReconcileTimeout = 10 * time.Second
)

// ActivityService scores messages, decays idle members and answers rank queries.
type ActivityService struct {
	repo       activitydb.Repository
	ladder     *rankdomain.Ladder
	reconciler Reconciler
	logger     *slog.Logger
	metrics    metrics.ActivityMetrics
	tracer     trace.Tracer
	db         *bun.DB

	cfg      Config
	excluded map[platform.ChannelID]struct{}
}

// NewActivityService creates a new ActivityService.
func NewActivityService(
	repo activitydb.Repository,
	ladder *rankdomain.Ladder,
	reconciler Reconciler,
	logger *slog.Logger,
	metrics metrics.ActivityMetrics,
	tracer trace.Tracer,
	db *bun.DB,
	cfg Config,
) *ActivityService {
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}
	if cfg.DecayRate <= 0 {
		cfg.DecayRate = DefaultDecayRate
	}
	if cfg.ReconcileTimeout <= 0 {
		cfg.ReconcileTimeout = DefaultReconcileTimeout
	}
	excluded := make(map[platform.ChannelID]struct{}, len(cfg.ExcludedChannels))
	for _, c := range cfg.ExcludedChannels {
		excluded[c] = struct{}{}
	}
	return &ActivityService{
		repo:       repo,
		ladder:     ladder,
		reconciler: reconciler,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
		db:         db,
		cfg:        cfg,
		excluded:   excluded,
	}
}

// operationFunc is the generic signature for service operation functions.
type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *ActivityService,
	ctx context.Context,
	operationName string,
	userID platform.UserID,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	ctx, span := s.tracer.Start(ctx, operationName, trace.WithAttributes(
		attribute.String("operation", operationName),
		attribute.String("user_id", string(userID)),
	))
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, time.Since(startTime))
	}()

	s.logger.DebugContext(ctx, operationName+" triggered",
		attr.String("operation", operationName),
		attr.UserID(userID),
		attr.ExtractCorrelationID(ctx),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.UserID(userID),
				attr.ExtractCorrelationID(ctx),
				attr.Error(err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName)
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.UserID(userID),
			attr.Error(wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName)
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.UserID(userID),
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.logger.DebugContext(ctx, operationName+" completed successfully",
			attr.String("operation", operationName),
			attr.UserID(userID),
			attr.ExtractCorrelationID(ctx),
		)
		s.metrics.RecordOperationSuccess(ctx, operationName)
	}

	return result, nil
}

// runInTx runs fn inside a transaction. Without a database handle (tests) fn
// gets a nil IDB and the repository falls back to its own connection.
func runInTx[T any](
	s *ActivityService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (T, error),
) (T, error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var out T
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		out, txErr = fn(ctx, tx)
		return txErr
	})
	return out, err
}
