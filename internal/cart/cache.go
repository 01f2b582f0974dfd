package cart

import (
	"context"
	"errors"

	"github.com/fjod/go_shop/internal/domain"
)

// Cache holds read copies of carts. The repository stays the source of truth.
//
// Every Delete bumps the user's cache version. A fill reads the version before
// it reads the repository and Set refuses it once the version moved on, so a
// cart read before a mutation is never cached after that mutation's Delete.
type Cache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Version(ctx context.Context, userID string) (int64, error)
	Set(ctx context.Context, userID string, cart *domain.Cart, version int64) error
	Delete(ctx context.Context, userID string) error
}

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrStaleVersion means the cart was invalidated after it was read.
	ErrStaleVersion = errors.New("cart cache version moved on")
)
