package invoice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type fakeOrders struct {
	orders map[uuid.UUID]*domain.Order
	err    error
}

func newFakeOrders(orders ...*domain.Order) *fakeOrders {
	f := &fakeOrders{orders: make(map[uuid.UUID]*domain.Order)}
	for _, o := range orders {
		f.orders[o.ID] = o
	}
	return f
}

func (f *fakeOrders) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	o, ok := f.orders[id]
	if !ok {
		return nil, domain.NotFoundf("order %s", id)
	}
	return o, nil
}

func (f *fakeOrders) GetByID(ctx context.Context, id uuid.UUID, userID string) (*domain.Order, error) {
	o, err := f.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Customer.ID != userID {
		return nil, domain.ErrUnauthorized
	}
	return o, nil
}

type failingRenderer struct{}

func (r failingRenderer) Render(Document, io.Writer) error {
	return errors.New("renderer exploded")
}

// partialRenderer writes some bytes before failing.
type partialRenderer struct{}

func (partialRenderer) Render(_ Document, w io.Writer) error {
	if _, err := w.Write([]byte("%PDF-1.3 half")); err != nil {
		return err
	}
	return errors.New("ran out of ink")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("client went away")
}

// gatedWriter holds its first write until release is closed.
type gatedWriter struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	mu      sync.Mutex
	buf     []byte
}

func newGatedWriter() *gatedWriter {
	return &gatedWriter{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedWriter) Write(p []byte) (int, error) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	g.mu.Lock()
	defer g.mu.Unlock()
	g.buf = append(g.buf, p...)
	return len(p), nil
}

func (g *gatedWriter) bytes() []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buf
}

type countingObserver struct {
	mu       sync.Mutex
	triggers map[string]int
}

func (o *countingObserver) InvoiceRendered(trigger string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.triggers == nil {
		o.triggers = make(map[string]int)
	}
	o.triggers[trigger]++
}

func (o *countingObserver) count(trigger string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.triggers[trigger]
}

// fakeReader hands out queued messages and then blocks until ctx is done.
type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []kafka.Message
	drained   chan struct{}
	closed    bool
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{messages: msgs, drained: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return msg, nil
	}
	select {
	case <-r.drained:
	default:
		close(r.drained)
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) commitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type recordingPrerenderer struct {
	mu       sync.Mutex
	rendered []uuid.UUID
	failures int
}

func (p *recordingPrerenderer) Prerender(_ context.Context, order *domain.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("disk full")
	}
	p.rendered = append(p.rendered, order.ID)
	return nil
}

func (p *recordingPrerenderer) renders() []uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uuid.UUID(nil), p.rendered...)
}
