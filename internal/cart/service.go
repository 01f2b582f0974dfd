package cart

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const cacheWriteTimeout = time.Second

// ProductReader resolves catalog products for cart entries.
type ProductReader interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

type Service struct {
	repo     Repository
	cache    Cache
	products ProductReader
	log      *slog.Logger
	sfg      singleflight.Group // Prevents cache stampede
}

func NewService(repo Repository, cache Cache, products ProductReader, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		products: products,
		log:      log,
	}
}

// View is a cart resolved against the catalog for display.
type View struct {
	UserID string          `json:"user_id"`
	Lines  []ViewLine      `json:"lines"`
	Total  decimal.Decimal `json:"total"`
}

type ViewLine struct {
	EntryID  string                 `json:"entry_id"`
	Quantity int                    `json:"quantity"`
	Product  domain.ProductSnapshot `json:"product"`
	Subtotal decimal.Decimal        `json:"subtotal"`
}

func (s *Service) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(userID, func() (any, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.log.WarnContext(ctx, "cart cache read failed", "user_id", userID, "error", err)
		}

		// read before the repository so a concurrent mutation makes the fill stale
		version, versionErr := s.cache.Version(ctx, userID)

		cart, err = s.repo.GetCart(ctx, userID)
		if errors.Is(err, ErrCartNotFound) {
			now := time.Now().UTC()
			return &domain.Cart{UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
		}
		if err != nil {
			return nil, err
		}

		if versionErr != nil {
			s.log.WarnContext(ctx, "cart cache version read failed", "user_id", userID, "error", versionErr)
			return cart, nil
		}
		go s.fillCache(context.WithoutCancel(ctx), userID, cart, version)
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// AddItem adds one unit of productID. The product has to exist in the catalog.
func (s *Service) AddItem(ctx context.Context, userID string, productID int64) error {
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return err
	}

	if err := s.repo.AddItem(ctx, userID, productID); err != nil {
		s.log.ErrorContext(ctx, "add cart item failed", "user_id", userID, "product_id", productID, "error", err)
		return err
	}

	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) RemoveItem(ctx context.Context, userID, entryID string) error {
	if err := s.repo.RemoveItem(ctx, userID, entryID); err != nil {
		s.log.ErrorContext(ctx, "remove cart item failed", "user_id", userID, "entry_id", entryID, "error", err)
		return err
	}

	s.invalidate(ctx, userID)
	return nil
}

// Clear empties the cart. Checkout only calls it once the order is recorded.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if err := s.repo.ClearCart(ctx, userID); err != nil {
		s.log.ErrorContext(ctx, "clear cart failed", "user_id", userID, "error", err)
		return err
	}

	s.invalidate(ctx, userID)
	return nil
}

// SnapshotForPricing joins every cart entry with the current catalog product.
// It reads the repository, not the cache, so a checkout never prices a stale
// cart. Entries whose product is gone from the catalog are left out.
func (s *Service) SnapshotForPricing(ctx context.Context, userID string) ([]domain.CartLineSnapshot, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if errors.Is(err, ErrCartNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	lines := make([]domain.CartLineSnapshot, 0, len(cart.Items))
	for _, item := range cart.Items {
		product, err := s.products.GetProduct(ctx, item.ProductID)
		if errors.Is(err, domain.ErrNotFound) {
			s.log.WarnContext(ctx, "cart entry references missing product",
				"user_id", userID, "entry_id", item.ID, "product_id", item.ProductID)
			continue
		}
		if err != nil {
			return nil, err
		}
		lines = append(lines, domain.CartLineSnapshot{
			Product:  product.Snapshot(),
			Quantity: item.Quantity,
		})
	}
	return lines, nil
}

func (s *Service) View(ctx context.Context, userID string) (*View, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &View{UserID: userID, Lines: make([]ViewLine, 0, len(cart.Items)), Total: decimal.Zero}
	for _, item := range cart.Items {
		product, err := s.products.GetProduct(ctx, item.ProductID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		line := domain.CartLineSnapshot{Product: product.Snapshot(), Quantity: item.Quantity}
		view.Lines = append(view.Lines, ViewLine{
			EntryID:  item.ID,
			Quantity: item.Quantity,
			Product:  line.Product,
			Subtotal: line.Subtotal(),
		})
		view.Total = view.Total.Add(line.Subtotal())
	}
	return view, nil
}

func (s *Service) fillCache(ctx context.Context, userID string, cart *domain.Cart, version int64) {
	ctx, cancel := context.WithTimeout(ctx, cacheWriteTimeout)
	defer cancel()
	err := s.cache.Set(ctx, userID, cart, version)
	switch {
	case errors.Is(err, ErrStaleVersion):
		s.log.DebugContext(ctx, "cart changed while loading, fill skipped", "user_id", userID, "version", version)
	case err != nil:
		s.log.WarnContext(ctx, "cart cache write failed", "user_id", userID, "error", err)
	}
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.log.WarnContext(ctx, "cart cache invalidate failed", "user_id", userID, "error", err)
	}
}
