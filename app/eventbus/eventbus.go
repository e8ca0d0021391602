// Package eventbus connects the bot to NATS JetStream through watermill.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Black-And-White-Club/activity-bot/internal/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Config describes the NATS connection and consumers.
type Config struct {
	URL string
	// ConsumerGroup is shared by replicas so each message is handled once.
	ConsumerGroup    string
	SubscribersCount int
	AckWait          time.Duration
	Auth             Auth
}

// EventBus publishes and subscribes to JetStream subjects.
type EventBus interface {
	message.Publisher
	message.Subscriber
	EnsureStream(ctx context.Context, name string, subjects []string) error
	Conn() *nc.Conn
}

// Bus is the watermill-nats backed EventBus.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	js         jetstream.JetStream
	natsConn   *nc.Conn
	logger     *slog.Logger

	streamMu sync.Mutex
	streams  map[string]bool
}

// NewEventBus connects to NATS and builds the watermill publisher and
// subscriber. Streams are not provisioned automatically; call EnsureStream.
func NewEventBus(ctx context.Context, cfg Config, logger *slog.Logger) (*Bus, error) {
	authOpts, err := ConnectOptions(cfg.Auth)
	if err != nil {
		return nil, err
	}
	natsOptions := append([]nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.Timeout(30 * time.Second),
		nc.ReconnectWait(time.Second),
		nc.MaxReconnects(-1),
	}, authOpts...)

	natsConn, err := nc.Connect(cfg.URL, natsOptions...)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to connect to NATS", slog.Any("error", err))
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(natsConn)
	if err != nil {
		natsConn.Close()
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	watermillLogger := watermill.NewSlogLogger(logger)
	marshaler := &nats.NATSMarshaler{}

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:         cfg.URL,
			NatsOptions: natsOptions,
			Marshaler:   marshaler,
			JetStream: nats.JetStreamConfig{
				Disabled:      false,
				AutoProvision: false,
				TrackMsgId:    true,
			},
		},
		watermillLogger,
	)
	if err != nil {
		natsConn.Close()
		return nil, fmt.Errorf("failed to create watermill publisher: %w", err)
	}

	group := cfg.ConsumerGroup
	if group == "" {
		group = "activity-bot"
	}
	count := cfg.SubscribersCount
	if count < 1 {
		count = 1
	}
	ackWait := cfg.AckWait
	if ackWait <= 0 {
		ackWait = 30 * time.Second
	}

	subscriber, err := nats.NewSubscriber(
		nats.SubscriberConfig{
			URL:              cfg.URL,
			QueueGroupPrefix: group,
			SubscribersCount: count,
			CloseTimeout:     30 * time.Second,
			AckWaitTimeout:   ackWait,
			NatsOptions:      natsOptions,
			Unmarshaler:      marshaler,
			JetStream: nats.JetStreamConfig{
				Disabled:      false,
				AutoProvision: false,
				DurablePrefix: group,
				SubscribeOptions: []nc.SubOpt{
					nc.DeliverAll(),
					nc.AckExplicit(),
				},
			},
		},
		watermillLogger,
	)
	if err != nil {
		natsConn.Close()
		_ = publisher.Close()
		return nil, fmt.Errorf("failed to create watermill subscriber: %w", err)
	}

	return &Bus{
		publisher:  publisher,
		subscriber: subscriber,
		js:         js,
		natsConn:   natsConn,
		logger:     logger,
		streams:    make(map[string]bool),
	}, nil
}

// Publish sends messages to topic. An empty topic publishes each message to
// the subject in its handlerwrapper.MetadataTopic metadata, which is how
// router handlers choose their output subject.
func (b *Bus) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		subject := topic
		if subject == "" {
			subject = msg.Metadata.Get(handlerwrapper.MetadataTopic)
		}
		if subject == "" {
			return fmt.Errorf("message %s has no topic", msg.UUID)
		}
		if err := b.publisher.Publish(subject, msg); err != nil {
			return fmt.Errorf("publish to %s: %w", subject, err)
		}
		b.logger.Debug("Message published",
			slog.String("subject", subject),
			slog.String("message_id", msg.UUID),
		)
	}
	return nil
}

// Subscribe consumes topic through the durable queue group.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.subscriber.Subscribe(ctx, topic)
}

// Conn exposes the raw connection for request/reply clients.
func (b *Bus) Conn() *nc.Conn { return b.natsConn }

// EnsureStream creates the stream or adds missing subjects to it.
func (b *Bus) EnsureStream(ctx context.Context, name string, subjects []string) error {
	b.streamMu.Lock()
	defer b.streamMu.Unlock()

	if b.streams[name] {
		return nil
	}

	stream, err := b.js.Stream(ctx, name)
	switch {
	case errors.Is(err, jetstream.ErrStreamNotFound):
		_, err = b.js.CreateStream(ctx, jetstream.StreamConfig{
			Name:      name,
			Subjects:  subjects,
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    7 * 24 * time.Hour,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", name, err)
		}
		b.logger.Info("Stream created", slog.String("stream_name", name), slog.Any("subjects", subjects))
	case err != nil:
		return fmt.Errorf("failed to look up stream %s: %w", name, err)
	default:
		info, err := stream.Info(ctx)
		if err != nil {
			return fmt.Errorf("failed to get stream info: %w", err)
		}
		missing := false
		for _, s := range subjects {
			if !slices.Contains(info.Config.Subjects, s) {
				info.Config.Subjects = append(info.Config.Subjects, s)
				missing = true
			}
		}
		if missing {
			if _, err := b.js.UpdateStream(ctx, info.Config); err != nil {
				return fmt.Errorf("failed to update stream %s: %w", name, err)
			}
			b.logger.Info("Stream updated with new subjects", slog.String("stream_name", name))
		}
	}

	b.streams[name] = true
	return nil
}

// Close closes the watermill publisher, subscriber and NATS connection.
func (b *Bus) Close() error {
	var errs []error
	if err := b.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if err := b.subscriber.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close subscriber: %w", err))
	}
	b.natsConn.Close()
	return errors.Join(errs...)
}
