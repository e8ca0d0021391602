package commandrouter

import (
	"context"
	"log/slog"

	activityevents "github.com/Black-And-White-Club/activity-bot/app/events/activity"
	"github.com/Black-And-White-Club/activity-bot/internal/handlerwrapper"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"
)

// InteractionHandler answers interaction events.
type InteractionHandler interface {
	HandleInteraction(ctx context.Context, payload *activityevents.InteractionPayloadV1) ([]handlerwrapper.Result, error)
}

// CommandRouter registers the interaction handler on a Watermill router.
type CommandRouter struct {
	logger     *slog.Logger
	router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	metrics    metrics.HandlerMetrics
	tracer     trace.Tracer
}

// NewCommandRouter creates a new CommandRouter.
func NewCommandRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	metrics metrics.HandlerMetrics,
	tracer trace.Tracer,
) *CommandRouter {
	return &CommandRouter{
		logger:     logger,
		router:     router,
		subscriber: subscriber,
		publisher:  publisher,
		metrics:    metrics,
		tracer:     tracer,
	}
}

// Configure sets up the router with handlers.
func (r *CommandRouter) Configure(_ context.Context, handler InteractionHandler) error {
	name := "commands." + activityevents.InteractionReceivedV1
	r.router.AddHandler(
		name,
		activityevents.InteractionReceivedV1,
		r.subscriber,
		"",
		r.publisher,
		handlerwrapper.WrapTransformingTyped(name, r.logger, r.tracer, r.metrics, handler.HandleInteraction),
	)
	r.logger.Info("Command handlers registered", slog.String("subject", activityevents.InteractionReceivedV1))
	return nil
}
