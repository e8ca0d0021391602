package activityrouter

import (
	"context"
	"log/slog"

	activityevents "github.com/Black-And-White-Club/activity-bot/app/events/activity"
	activityhandlers "github.com/Black-And-White-Club/activity-bot/app/modules/activity/infrastructure/handlers"
	"github.com/Black-And-White-Club/activity-bot/internal/handlerwrapper"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"
)

// ActivityRouter handles Watermill handler registration for activity events.
type ActivityRouter struct {
	logger     *slog.Logger
	router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	metrics    metrics.HandlerMetrics
	tracer     trace.Tracer
}

// NewActivityRouter creates a new ActivityRouter.
func NewActivityRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	metrics metrics.HandlerMetrics,
	tracer trace.Tracer,
) *ActivityRouter {
	return &ActivityRouter{
		logger:     logger,
		router:     router,
		subscriber: subscriber,
		publisher:  publisher,
		metrics:    metrics,
		tracer:     tracer,
	}
}

// Configure sets up the router with handlers.
func (r *ActivityRouter) Configure(_ context.Context, handlers activityhandlers.Handlers) error {
	r.registerHandlers(handlers)
	return nil
}

// handlerDeps bundles dependencies for handler registration.
type handlerDeps struct {
	router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    metrics.HandlerMetrics
}

func (r *ActivityRouter) registerHandlers(handlers activityhandlers.Handlers) {
	deps := handlerDeps{
		router:     r.router,
		subscriber: r.subscriber,
		publisher:  r.publisher,
		logger:     r.logger,
		tracer:     r.tracer,
		metrics:    r.metrics,
	}

	r.logger.Info("Registering activity module handlers",
		slog.String("message_subject", activityevents.MessageReceivedV1),
		slog.String("sync_subject", activityevents.MembersSyncV1),
	)

	registerHandler(deps, activityevents.MessageReceivedV1, handlers.HandleMessageReceived)
	registerHandler(deps, activityevents.MemberJoinedV1, handlers.HandleMemberJoined)
	registerHandler(deps, activityevents.MemberLeftV1, handlers.HandleMemberLeft)
	registerHandler(deps, activityevents.MembersSyncV1, handlers.HandleMembersSync)

	r.logger.Info("Activity module handlers registered successfully")
}

// registerHandler is a generic function for type-safe Watermill handler
// registration. Produced messages carry their subject in metadata, so the
// handler's publish topic is left empty.
func registerHandler[T any](
	deps handlerDeps,
	topic string,
	handler func(context.Context, *T) ([]handlerwrapper.Result, error),
) {
	handlerName := "activity." + topic

	deps.router.AddHandler(
		handlerName,
		topic,
		deps.subscriber,
		"",
		deps.publisher,
		handlerwrapper.WrapTransformingTyped(
			handlerName,
			deps.logger,
			deps.tracer,
			deps.metrics,
			handler,
		),
	)
}

// Close shuts down the router.
func (r *ActivityRouter) Close() error {
	return r.router.Close()
}
