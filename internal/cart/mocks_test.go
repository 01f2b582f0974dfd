package cart

import (
	"context"
	"sync"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type mockRepository struct {
	m       sync.RWMutex
	cart    *domain.Cart
	err     error
	getHits int
}

func (m *mockRepository) GetCart(context.Context, string) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.getHits++
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, ErrCartNotFound
	}
	cp := *m.cart
	cp.Items = append([]domain.CartItem(nil), m.cart.Items...)
	return &cp, nil
}

func (m *mockRepository) AddItem(_ context.Context, userID string, productID int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.cart == nil {
		m.cart = &domain.Cart{UserID: userID}
	}
	for i := range m.cart.Items {
		if m.cart.Items[i].ProductID == productID {
			m.cart.Items[i].Quantity++
			return nil
		}
	}
	m.cart.Items = append(m.cart.Items, domain.CartItem{ID: uuid.NewString(), ProductID: productID, Quantity: 1})
	return nil
}

func (m *mockRepository) RemoveItem(_ context.Context, _ string, entryID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.cart == nil {
		return nil
	}
	for i, item := range m.cart.Items {
		if item.ID == entryID {
			m.cart.Items = append(m.cart.Items[:i], m.cart.Items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockRepository) ClearCart(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.cart != nil {
		m.cart.Items = []domain.CartItem{}
	}
	return nil
}

// mockCache versions its entry like RedisCache.
type mockCache struct {
	m       sync.RWMutex
	cart    *domain.Cart
	version int64
	err     error

	// set by newGatedCache: the first Set waits for fillGate
	gateOnce    sync.Once
	fillGate    chan struct{}
	fillEntered chan struct{}
	fillDone    chan struct{}
}

func newGatedCache() *mockCache {
	return &mockCache{
		fillGate:    make(chan struct{}),
		fillEntered: make(chan struct{}),
		fillDone:    make(chan struct{}),
	}
}

func (m *mockCache) Get(context.Context, string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, ErrCacheMiss
	}
	return m.cart, nil
}

func (m *mockCache) Version(context.Context, string) (int64, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return 0, m.err
	}
	return m.version, nil
}

func (m *mockCache) Set(_ context.Context, _ string, cart *domain.Cart, version int64) error {
	if m.fillGate != nil {
		gated := false
		m.gateOnce.Do(func() {
			gated = true
			close(m.fillEntered)
			<-m.fillGate
		})
		if gated {
			defer close(m.fillDone)
		}
	}
	m.m.Lock()
	defer m.m.Unlock()
	if version != m.version {
		return ErrStaleVersion
	}
	m.cart = cart
	return nil
}

func (m *mockCache) Delete(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.version++
	m.cart = nil
	return nil
}

func (m *mockCache) getCart() *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.cart
}

type fakeCatalog struct {
	products map[int64]*domain.Product
	err      error
}

func newFakeCatalog(products ...*domain.Product) *fakeCatalog {
	c := &fakeCatalog{products: make(map[int64]*domain.Product)}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (f *fakeCatalog) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, domain.NotFoundf("product %d", id)
	}
	return p, nil
}

func product(id int64, title, price string) *domain.Product {
	return &domain.Product{ID: id, Title: title, Price: decimal.RequireFromString(price), UserID: "seed"}
}

func itemFor(cart *domain.Cart, productID int64) (domain.CartItem, bool) {
	for _, item := range cart.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return domain.CartItem{}, false
}
