// Package handlerwrapper adapts typed event handlers to watermill handler
// functions: payload decoding, tracing, logging, metrics and encoding of the
// messages a handler wants published.
package handlerwrapper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/activity-bot/internal/observability/attr"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/metrics"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MetadataTopic names the subject a produced message is published to.
const MetadataTopic = "topic"

// Result is one message a handler wants published.
type Result struct {
	Topic    string
	Payload  any
	Metadata map[string]string
}

// WrapTransformingTyped decodes the message payload into T, runs handler and
// turns its results into messages. Undecodable payloads are logged and
// acknowledged; handler errors are returned so the router can retry.
func WrapTransformingTyped[T any](
	name string,
	logger *slog.Logger,
	tracer trace.Tracer,
	m metrics.HandlerMetrics,
	handler func(context.Context, *T) ([]Result, error),
) message.HandlerFunc {
	if m == nil {
		m = metrics.NoOp{}
	}
	return func(msg *message.Message) ([]*message.Message, error) {
		start := time.Now()
		correlationID := msg.Metadata.Get(middleware.CorrelationIDMetadataKey)
		ctx := attr.WithCorrelationID(msg.Context(), correlationID)

		ctx, span := tracer.Start(ctx, name, trace.WithAttributes(
			attribute.String("message.uuid", msg.UUID),
			attribute.String("correlation_id", correlationID),
		))
		defer span.End()

		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			span.RecordError(err)
			logger.ErrorContext(ctx, "Dropping undecodable message",
				attr.String("handler", name),
				attr.String("message_id", msg.UUID),
				attr.CorrelationIDFromMsg(msg),
				attr.Error(err),
			)
			m.RecordHandler(ctx, name, "malformed", time.Since(start))
			return nil, nil
		}

		results, err := handler(ctx, payload)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.ErrorContext(ctx, "Handler failed",
				attr.String("handler", name),
				attr.String("message_id", msg.UUID),
				attr.CorrelationIDFromMsg(msg),
				attr.Error(err),
			)
			m.RecordHandler(ctx, name, "failure", time.Since(start))
			return nil, err
		}

		out := make([]*message.Message, 0, len(results))
		for _, r := range results {
			produced, err := newMessage(r, correlationID)
			if err != nil {
				span.RecordError(err)
				m.RecordHandler(ctx, name, "failure", time.Since(start))
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			out = append(out, produced)
		}

		m.RecordHandler(ctx, name, "success", time.Since(start))
		logger.DebugContext(ctx, "Handler completed",
			attr.String("handler", name),
			attr.Int("produced", len(out)),
			attr.ExtractCorrelationID(ctx),
		)
		return out, nil
	}
}

func newMessage(r Result, correlationID string) (*message.Message, error) {
	if r.Topic == "" {
		return nil, fmt.Errorf("result has no topic")
	}
	body, err := json.Marshal(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", r.Topic, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), body)
	for k, v := range r.Metadata {
		msg.Metadata.Set(k, v)
	}
	msg.Metadata.Set(MetadataTopic, r.Topic)
	if correlationID != "" {
		middleware.SetCorrelationID(correlationID, msg)
	}
	return msg, nil
}
