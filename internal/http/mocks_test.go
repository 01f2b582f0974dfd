package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fjod/go_shop/internal/cart"
	"github.com/fjod/go_shop/internal/checkout"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

type fakeCatalog struct {
	mu       sync.Mutex
	products map[int64]*domain.Product
	nextID   int64
	err      error
}

func newFakeCatalog(products ...*domain.Product) *fakeCatalog {
	c := &fakeCatalog{products: make(map[int64]*domain.Product), nextID: 100}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *fakeCatalog) ListProducts(_ context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	var out []*domain.Product
	for _, p := range c.products {
		if filter.UserID == "" || p.UserID == filter.UserID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *fakeCatalog) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, domain.NotFoundf("product %d", id)
	}
	return p, nil
}

func (c *fakeCatalog) CreateProduct(_ context.Context, p *domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.Title == "" {
		return &domain.ValidationError{Field: "title", Reason: "must be at least 3 characters"}
	}
	p.ID = c.nextID
	c.nextID++
	c.products[p.ID] = p
	return nil
}

func (c *fakeCatalog) UpdateProduct(_ context.Context, p *domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.products[p.ID]
	if !ok {
		return domain.NotFoundf("product %d", p.ID)
	}
	if existing.UserID != p.UserID {
		return domain.ErrUnauthorized
	}
	c.products[p.ID] = p
	return nil
}

func (c *fakeCatalog) DeleteProduct(_ context.Context, id int64, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.products[id]
	if !ok {
		return domain.NotFoundf("product %d", id)
	}
	if existing.UserID != userID {
		return domain.ErrUnauthorized
	}
	delete(c.products, id)
	return nil
}

type fakeCart struct {
	mu      sync.Mutex
	items   map[string][]cart.ViewLine
	catalog *fakeCatalog
	viewErr error
}

func newFakeCart(catalog *fakeCatalog) *fakeCart {
	return &fakeCart{items: make(map[string][]cart.ViewLine), catalog: catalog}
}

func (f *fakeCart) View(_ context.Context, userID string) (*cart.View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.viewErr != nil {
		return nil, f.viewErr
	}
	v := &cart.View{UserID: userID, Lines: append([]cart.ViewLine{}, f.items[userID]...), Total: decimal.Zero}
	for _, l := range v.Lines {
		v.Total = v.Total.Add(l.Subtotal)
	}
	return v, nil
}

func (f *fakeCart) AddItem(ctx context.Context, userID string, productID int64) error {
	p, err := f.catalog.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := f.items[userID]
	for i := range lines {
		if lines[i].Product.ID == productID {
			lines[i].Quantity++
			lines[i].Subtotal = lines[i].Product.Price.Mul(decimal.NewFromInt(int64(lines[i].Quantity)))
			return nil
		}
	}
	f.items[userID] = append(lines, cart.ViewLine{
		EntryID:  fmt.Sprintf("entry-%d", p.ID),
		Quantity: 1,
		Product:  p.Snapshot(),
		Subtotal: p.Price,
	})
	return nil
}

func (f *fakeCart) RemoveItem(_ context.Context, userID, entryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := f.items[userID]
	for i := range lines {
		if lines[i].EntryID == entryID {
			f.items[userID] = append(lines[:i], lines[i+1:]...)
			break
		}
	}
	return nil
}

type fakeBroker struct {
	started    *checkout.StartedSession
	resolution *checkout.Resolution
	err        error
	cancelled  []string
	lastEmail  string
	resolvedID string
}

func (b *fakeBroker) CreateSession(_ context.Context, _ string, email string) (*checkout.StartedSession, error) {
	b.lastEmail = email
	if b.err != nil {
		return nil, b.err
	}
	return b.started, nil
}

func (b *fakeBroker) ResolveSessionByID(_ context.Context, _ string, sessionID string) (*checkout.Resolution, error) {
	b.resolvedID = sessionID
	if b.err != nil {
		return nil, b.err
	}
	return b.resolution, nil
}

func (b *fakeBroker) CancelSession(_ context.Context, userID string) error {
	if b.err != nil {
		return b.err
	}
	b.cancelled = append(b.cancelled, userID)
	return nil
}

type fakeOrders struct {
	orders []*domain.Order
	err    error
}

func (f *fakeOrders) ListForUser(_ context.Context, userID string) ([]*domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.Order
	for _, o := range f.orders {
		if o.OwnedBy(userID) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrders) GetByID(_ context.Context, id uuid.UUID, userID string) (*domain.Order, error) {
	for _, o := range f.orders {
		if o.ID != id {
			continue
		}
		if !o.OwnedBy(userID) {
			return nil, domain.ErrUnauthorized
		}
		return o, nil
	}
	return nil, domain.NotFoundf("order %s", id)
}

// fakeInvoices streams a fixed body after checking ownership through orders.
type fakeInvoices struct {
	orders  *fakeOrders
	body    []byte
	failMid bool
}

func (f *fakeInvoices) Stream(ctx context.Context, id uuid.UUID, userID string, w io.Writer) error {
	if _, err := f.orders.GetByID(ctx, id, userID); err != nil {
		return err
	}
	if _, err := w.Write(f.body); err != nil {
		return err
	}
	if f.failMid {
		return errors.New("disk full")
	}
	return nil
}

type testServer struct {
	handler  http.Handler
	catalog  *fakeCatalog
	cart     *fakeCart
	broker   *fakeBroker
	orders   *fakeOrders
	invoices *fakeInvoices
	registry *prometheus.Registry
}

func newTestServer() *testServer {
	log := slog.New(slog.DiscardHandler)
	timeout := 5 * time.Second

	catalog := newFakeCatalog(
		&domain.Product{ID: 1, Title: "A Book", Price: decimal.RequireFromString("10.00"), UserID: "admin-1"},
		&domain.Product{ID: 2, Title: "Fountain Pen", Price: decimal.RequireFromString("5.00"), UserID: "admin-2"},
	)
	cartSvc := newFakeCart(catalog)
	broker := &fakeBroker{}
	orders := &fakeOrders{}
	invoices := &fakeInvoices{orders: orders, body: []byte("%PDF-1.3 test")}
	reg := prometheus.NewRegistry()

	handler := NewRouter(Handlers{
		Products: NewProductHandler(catalog, timeout, log),
		Cart:     NewCartHandler(cartSvc, timeout, log),
		Checkout: NewCheckoutHandler(broker, cartSvc, timeout, log),
		Orders:   NewOrdersHandler(orders, invoices, timeout, log),
	}, RouterConfig{
		RequestTimeout: timeout,
		Metrics:        metrics.NewServerMetrics(reg, "storefront"),
		Gatherer:       reg,
		Log:            log,
	})

	return &testServer{
		handler:  handler,
		catalog:  catalog,
		cart:     cartSvc,
		broker:   broker,
		orders:   orders,
		invoices: invoices,
		registry: reg,
	}
}
