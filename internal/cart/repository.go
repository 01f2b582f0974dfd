package cart

import (
	"context"

	"github.com/fjod/go_shop/internal/domain"
)

// Repository defines the interface for cart data operations
// Consumers define this interface, not the MongoDB implementation
type Repository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	// AddItem increments the quantity of productID by one, inserting a new
	// entry with quantity 1 when the product is not in the cart yet.
	AddItem(ctx context.Context, userID string, productID int64) error
	// RemoveItem drops the entry with entryID. Missing entries are not an error.
	RemoveItem(ctx context.Context, userID string, entryID string) error
	ClearCart(ctx context.Context, userID string) error
}
