package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/orders"
	"github.com/fjod/go_shop/internal/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memRepository mirrors the conditional updates of the mongo repository.
type memRepository struct {
	mu       sync.Mutex
	sessions map[string]*domain.CheckoutSession
	tokens   map[string]string
	clearErr error
}

func newMemRepository() *memRepository {
	return &memRepository{
		sessions: make(map[string]*domain.CheckoutSession),
		tokens:   make(map[string]string),
	}
}

func (m *memRepository) CreateSession(_ context.Context, s *domain.CheckoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memRepository) GetSession(_ context.Context, id string) (*domain.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.NotFoundf("checkout session %s", id)
	}
	cp := *s
	return &cp, nil
}

func (m *memRepository) CloseSession(_ context.Context, id string, status domain.CheckoutStatus, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Status != domain.CheckoutStatusOpen {
		return false, nil
	}
	s.Status = status
	if orderID != "" {
		s.OrderID = orderID
	}
	return true, nil
}

func (m *memRepository) SetToken(_ context.Context, userID, _ string, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[userID] = sessionID
	return nil
}

func (m *memRepository) Token(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[userID], nil
}

func (m *memRepository) ClearToken(_ context.Context, userID, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return false, m.clearErr
	}
	if m.tokens[userID] != sessionID {
		return false, nil
	}
	delete(m.tokens, userID)
	return true, nil
}

func (m *memRepository) session(id string) domain.CheckoutSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.sessions[id]
}

type fakeCart struct {
	mu       sync.Mutex
	lines    []domain.CartLineSnapshot
	err      error
	clears   int
	clearErr error
}

func (f *fakeCart) SnapshotForPricing(context.Context, string) ([]domain.CartLineSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.CartLineSnapshot, len(f.lines))
	copy(out, f.lines)
	return out, nil
}

func (f *fakeCart) Clear(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	f.clears++
	f.lines = nil
	return nil
}

func (f *fakeCart) snapshot() ([]domain.CartLineSnapshot, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lines, f.clears
}

type fakePayments struct {
	mu        sync.Mutex
	requests  []payment.SessionRequest
	status    domain.PaymentStatus
	createErr error
	statusErr error
	nextID    int
	// per-session statuses win over status
	sessions map[string]domain.PaymentStatus
}

func (f *fakePayments) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.requests = append(f.requests, req)
	f.nextID++
	id := fmt.Sprintf("cs_%d", f.nextID)
	return &payment.Session{ID: id, PaymentStatus: domain.PaymentStatusUnpaid, URL: "http://pay.local/pay/" + id}, nil
}

func (f *fakePayments) GetSessionStatus(_ context.Context, id string) (domain.PaymentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return "", f.statusErr
	}
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return f.status, nil
}

func (f *fakePayments) setSessionStatus(id string, s domain.PaymentStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessions == nil {
		f.sessions = make(map[string]domain.PaymentStatus)
	}
	f.sessions[id] = s
}

func (f *fakePayments) setStatus(s domain.PaymentStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = s
}

// fakeLedger enforces one order per checkout id like the orders table does.
type fakeLedger struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	err    error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{orders: make(map[string]*domain.Order)}
}

func (f *fakeLedger) Finalize(_ context.Context, customer domain.Customer, checkoutID, currency string, lines []domain.CartLineSnapshot) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return uuid.Nil, f.err
	}
	if _, ok := f.orders[checkoutID]; ok {
		return uuid.Nil, orders.ErrDuplicateCheckout
	}
	o := domain.NewOrder(checkoutID, customer, currency, lines)
	f.orders[checkoutID] = o
	return o.ID, nil
}

func (f *fakeLedger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type outcomeCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *outcomeCounter) CheckoutResolved(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = make(map[string]int)
	}
	o.counts[outcome]++
}

var errProvider = errors.New("provider timeout")

func line(id int64, title, price string, qty int) domain.CartLineSnapshot {
	return domain.CartLineSnapshot{
		Product:  domain.ProductSnapshot{ID: id, Title: title, Price: decimal.RequireFromString(price)},
		Quantity: qty,
	}
}
