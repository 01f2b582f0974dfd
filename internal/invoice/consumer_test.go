package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/orders"
	"github.com/fjod/go_shop/pkg/idempotency"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeduper(t *testing.T) *idempotency.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return idempotency.NewStore(client, time.Hour)
}

func placedMessage(t *testing.T, order *domain.Order) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(orders.NewOrderPlacedEvent(order))
	require.NoError(t, err)
	return kafka.Message{
		Key:     []byte(order.ID.String()),
		Value:   payload,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(orders.EventTypeOrderPlaced)}},
	}
}

// runUntilDrained runs the consumer until every queued message was fetched
// and handled.
func runUntilDrained(t *testing.T, c *Consumer, reader *fakeReader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()

	select {
	case <-reader.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain messages")
	}
	cancel()
	<-done
}

func TestConsumer_PrerendersPlacedOrders(t *testing.T) {
	order := scenarioOrder()
	reader := newFakeReader(placedMessage(t, order))
	renderer := &recordingPrerenderer{}

	c := NewConsumer(reader, newFakeOrders(order), renderer, newDeduper(t), testLogger())
	runUntilDrained(t, c, reader)

	assert.Equal(t, []uuid.UUID{order.ID}, renderer.renders())
	assert.Equal(t, 1, reader.commitCount())
}

func TestConsumer_DuplicateEventsRenderOnce(t *testing.T) {
	order := scenarioOrder()
	msg := placedMessage(t, order)
	reader := newFakeReader(msg, msg, msg)
	renderer := &recordingPrerenderer{}

	c := NewConsumer(reader, newFakeOrders(order), renderer, newDeduper(t), testLogger())
	runUntilDrained(t, c, reader)

	assert.Len(t, renderer.renders(), 1)
	assert.Equal(t, 3, reader.commitCount())
}

func TestConsumer_FailureForgetsKeySoRedeliveryRetries(t *testing.T) {
	order := scenarioOrder()
	msg := placedMessage(t, order)
	reader := newFakeReader(msg, msg)
	renderer := &recordingPrerenderer{failures: 1}

	c := NewConsumer(reader, newFakeOrders(order), renderer, newDeduper(t), testLogger())
	runUntilDrained(t, c, reader)

	assert.Equal(t, []uuid.UUID{order.ID}, renderer.renders())
	// the failed attempt is not committed
	assert.Equal(t, 1, reader.commitCount())
}

func TestConsumer_SkipsMalformedAndForeignMessages(t *testing.T) {
	reader := newFakeReader(
		kafka.Message{Value: []byte("{not json")},
		kafka.Message{
			Value:   []byte(`{"order_id":"` + uuid.NewString() + `"}`),
			Headers: []kafka.Header{{Key: "event_type", Value: []byte("order.shipped")}},
		},
	)
	renderer := &recordingPrerenderer{}

	c := NewConsumer(reader, newFakeOrders(), renderer, newDeduper(t), testLogger())
	runUntilDrained(t, c, reader)

	assert.Empty(t, renderer.renders())
	assert.Equal(t, 2, reader.commitCount())
}

func TestConsumer_MissingOrderIsSkipped(t *testing.T) {
	order := scenarioOrder()
	reader := newFakeReader(placedMessage(t, order))
	renderer := &recordingPrerenderer{}

	c := NewConsumer(reader, newFakeOrders(), renderer, newDeduper(t), testLogger())
	runUntilDrained(t, c, reader)

	assert.Empty(t, renderer.renders())
	assert.Equal(t, 1, reader.commitCount())
}

func TestConsumer_LookupFailureIsNotCommitted(t *testing.T) {
	order := scenarioOrder()
	reader := newFakeReader(placedMessage(t, order))
	loader := newFakeOrders(order)
	loader.err = errors.New("connection reset")
	renderer := &recordingPrerenderer{}

	c := NewConsumer(reader, loader, renderer, newDeduper(t), testLogger())
	runUntilDrained(t, c, reader)

	assert.Empty(t, renderer.renders())
	assert.Zero(t, reader.commitCount())
}

func TestConsumer_CloseClosesReader(t *testing.T) {
	reader := newFakeReader()
	NewConsumer(reader, newFakeOrders(), &recordingPrerenderer{}, newDeduper(t), testLogger()).Close()
	assert.True(t, reader.closed)
}
