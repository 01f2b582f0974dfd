package orders

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type memoryRepository struct {
	mu      sync.Mutex
	orders  map[uuid.UUID]*domain.Order
	byCheck map[string]uuid.UUID
	events  []*OutboxEvent
	err     error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		orders:  make(map[uuid.UUID]*domain.Order),
		byCheck: make(map[string]uuid.UUID),
	}
}

func (m *memoryRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.byCheck[order.CheckoutID]; ok {
		return ErrDuplicateCheckout
	}
	m.orders[order.ID] = order
	m.byCheck[order.CheckoutID] = order.ID
	m.events = append(m.events, &OutboxEvent{ID: int64(len(m.events) + 1), AggregateID: order.ID, EventType: EventTypeOrderPlaced})
	return nil
}

func (m *memoryRepository) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.NotFoundf("order %s", id)
	}
	return o, nil
}

func (m *memoryRepository) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, o := range m.orders {
		if o.Customer.ID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type memoryOutbox struct {
	mu        sync.Mutex
	events    []*OutboxEvent
	published map[int64]bool
	fetchErr  error
}

func (m *memoryOutbox) GetUnpublishedEvents(_ context.Context, limit int) ([]*OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	var out []*OutboxEvent
	for _, e := range m.events {
		if !m.published[e.ID] && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryOutbox) MarkEventPublished(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[id] = true
	return nil
}

func (m *memoryOutbox) publishedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

type recordingWriter struct {
	msgs   []kafka.Message
	failAt int // 1-based message index to fail on, 0 never
}

var errBrokerDown = errors.New("broker down")

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, msg := range msgs {
		if w.failAt != 0 && len(w.msgs)+1 == w.failAt {
			return errBrokerDown
		}
		w.msgs = append(w.msgs, msg)
	}
	return nil
}

type countingObserver struct{ n int }

func (c *countingObserver) OrderPublished() { c.n++ }
