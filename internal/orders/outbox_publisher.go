package orders

import (
	"context"
	"log/slog"
	"time"

	"github.com/fjod/go_shop/pkg/tracing"
	"github.com/segmentio/kafka-go"
)

const TopicOrderPlaced = "order-placed"

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type PublishObserver interface {
	OrderPublished()
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// OutboxPublisher relays committed order events to Kafka. Delivery is at
// least once: an event is marked only after the broker accepted it.
type OutboxPublisher struct {
	repo      OutboxStore
	writer    MessageWriter
	log       *slog.Logger
	observer  PublishObserver
	eventTick time.Duration
	batchSize int
}

func NewOutboxPublisher(repo OutboxStore, writer MessageWriter, observer PublishObserver, log *slog.Logger) *OutboxPublisher {
	return &OutboxPublisher{
		repo:      repo,
		writer:    writer,
		log:       log,
		observer:  observer,
		eventTick: time.Second,
		batchSize: 100,
	}
}

func (p *OutboxPublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.eventTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.publishPending(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// publishPending returns how many events were published.
func (p *OutboxPublisher) publishPending(ctx context.Context) int {
	events, err := p.repo.GetUnpublishedEvents(ctx, p.batchSize)
	if err != nil {
		p.log.ErrorContext(ctx, "failed to fetch outbox events", "error", err)
		return 0
	}

	published := 0
	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.log.ErrorContext(ctx, "failed to publish outbox event", "event_id", event.ID, "error", err)
			// keep per-aggregate ordering: later events wait for the next tick
			return published
		}
		if err := p.repo.MarkEventPublished(ctx, event.ID); err != nil {
			p.log.ErrorContext(ctx, "failed to mark outbox event", "event_id", event.ID, "error", err)
			return published
		}
		published++
		if p.observer != nil {
			p.observer.OrderPublished()
		}
	}
	return published
}

func (p *OutboxPublisher) publish(ctx context.Context, event *OutboxEvent) error {
	headers := []kafka.Header{{Key: "event_type", Value: []byte(event.EventType)}}
	msg := kafka.Message{
		Key:     []byte(event.AggregateID.String()),
		Value:   event.Payload,
		Headers: tracing.InjectKafkaHeaders(ctx, headers),
	}
	return p.writer.WriteMessages(ctx, msg)
}
