package activityhandlers

import (
	"context"
	"log/slog"

	activityevents "github.com/Black-And-White-Club/activity-bot/app/events/activity"
	activityservice "github.com/Black-And-White-Club/activity-bot/app/modules/activity/application"
	roleservice "github.com/Black-And-White-Club/activity-bot/app/modules/roles/application"
	"github.com/Black-And-White-Club/activity-bot/internal/handlerwrapper"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/attr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ActivityHandlers implements Handlers.
type ActivityHandlers struct {
	service Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewActivityHandlers creates a new ActivityHandlers instance.
func NewActivityHandlers(service Service, logger *slog.Logger, tracer trace.Tracer) Handlers {
	return &ActivityHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}

func (h *ActivityHandlers) HandleMessageReceived(ctx context.Context, payload *activityevents.MessageReceivedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "ActivityHandlers.HandleMessageReceived", trace.WithAttributes(
		attribute.String("user_id", string(payload.AuthorID)),
		attribute.String("channel_id", string(payload.ChannelID)),
	))
	defer span.End()

	res, err := h.service.IngestMessage(ctx, activityservice.MessageReceived{
		MessageID: payload.MessageID,
		UserID:    payload.AuthorID,
		ChannelID: payload.ChannelID,
		Content:   payload.Content,
		IsBot:     payload.IsBot,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("outcome", string(res.Outcome)))

	if res.Reconcile == nil {
		return nil, nil
	}
	return []handlerwrapper.Result{rankChanged(*res.Reconcile, res.OldScore, res.NewScore, "message")}, nil
}

func (h *ActivityHandlers) HandleMemberJoined(ctx context.Context, payload *activityevents.MemberPayloadV1) ([]handlerwrapper.Result, error) {
	if payload.IsBot {
		return nil, nil
	}
	created, err := h.service.MemberJoined(ctx, payload.UserID)
	if err != nil {
		return nil, err
	}
	h.logger.InfoContext(ctx, "Member joined",
		attr.UserID(payload.UserID),
		attr.Bool("created", created),
		attr.ExtractCorrelationID(ctx),
	)
	return nil, nil
}

func (h *ActivityHandlers) HandleMemberLeft(ctx context.Context, payload *activityevents.MemberPayloadV1) ([]handlerwrapper.Result, error) {
	if payload.IsBot {
		return nil, nil
	}
	existed, err := h.service.MemberLeft(ctx, payload.UserID)
	if err != nil {
		return nil, err
	}
	h.logger.InfoContext(ctx, "Member left",
		attr.UserID(payload.UserID),
		attr.Bool("existed", existed),
		attr.ExtractCorrelationID(ctx),
	)
	return nil, nil
}

func (h *ActivityHandlers) HandleMembersSync(ctx context.Context, payload *activityevents.MembersSyncPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "ActivityHandlers.HandleMembersSync", trace.WithAttributes(
		attribute.Int("members", len(payload.UserIDs)),
		attribute.Bool("prune", payload.Prune),
	))
	defer span.End()

	report, err := h.service.SyncMembers(ctx, payload.UserIDs, payload.Prune)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	h.logger.InfoContext(ctx, "Member list synced",
		attr.Int("seen", report.Seen),
		attr.Int("created", report.Created),
		attr.Int("removed", report.Removed),
	)
	return nil, nil
}

func rankChanged(rec roleservice.ReconcileResult, oldScore, newScore int64, source string) handlerwrapper.Result {
	return handlerwrapper.Result{
		Topic: activityevents.RankChangedV1,
		Payload: &activityevents.RankChangedPayloadV1{
			UserID:   rec.UserID,
			OldScore: oldScore,
			NewScore: newScore,
			FromTier: rec.FromTier,
			ToTier:   rec.ToTier,
			Source:   source,
			RolesOK:  rec.OK(),
		},
	}
}
