package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/orders"
	"github.com/fjod/go_shop/pkg/tracing"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const ConsumerGroup = "invoice-renderer"

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderLoader reads orders without an ownership check; the worker acts for
// the system, not for a user.
type OrderLoader interface {
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}

type Deduper interface {
	Key(scope, id string) string
	Seen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

type Prerenderer interface {
	Prerender(ctx context.Context, order *domain.Order) error
}

func NewKafkaReader(topic string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  ConsumerGroup,
		MaxBytes: 10e6, // 10MB
	})
}

// Consumer pre-renders invoices for newly placed orders so the first
// download is already on disk.
type Consumer struct {
	reader   MessageReader
	orders   OrderLoader
	invoices Prerenderer
	dedup    Deduper
	log      *slog.Logger
}

func NewConsumer(reader MessageReader, orders OrderLoader, invoices Prerenderer, dedup Deduper, log *slog.Logger) *Consumer {
	return &Consumer{reader: reader, orders: orders, invoices: invoices, dedup: dedup, log: log}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			c.log.ErrorContext(ctx, "error reading message", "error", err)
			continue
		}

		msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
		if err := c.handle(msgCtx, msg); err != nil {
			c.log.ErrorContext(msgCtx, "invoice prerender failed",
				"partition", msg.Partition, "offset", msg.Offset, "error", err)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.ErrorContext(ctx, "commit failed", "offset", msg.Offset, "error", err)
		}
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Error("error closing kafka reader", "error", err)
	}
}

// handle returns an error only for failures worth retrying. Malformed
// messages and vanished orders are logged and skipped.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	if t := tracing.HeaderValue(msg.Headers, "event_type"); t != "" && t != orders.EventTypeOrderPlaced {
		return nil
	}

	var event orders.OrderPlacedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.log.WarnContext(ctx, "skipping malformed order event", "offset", msg.Offset, "error", err)
		return nil
	}

	key := c.dedup.Key("invoice", event.OrderID.String())
	seen, err := c.dedup.Seen(ctx, key)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if seen {
		c.log.DebugContext(ctx, "invoice already rendered", "order_id", event.OrderID)
		return nil
	}

	if err := c.render(ctx, event.OrderID); err != nil {
		if forgetErr := c.dedup.Forget(ctx, key); forgetErr != nil {
			err = errors.Join(err, forgetErr)
		}
		return err
	}
	c.log.InfoContext(ctx, "invoice prerendered", "order_id", event.OrderID)
	return nil
}

func (c *Consumer) render(ctx context.Context, orderID uuid.UUID) error {
	order, err := c.orders.GetOrderByID(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		c.log.WarnContext(ctx, "order from event not found", "order_id", orderID)
		return nil
	}
	if err != nil {
		return err
	}
	return c.invoices.Prerender(ctx, order)
}
