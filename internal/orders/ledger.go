package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
)

// Ledger is the only way orders come into existence and the ownership-checked
// read side over them.
type Ledger struct {
	repo Repository
	log  *slog.Logger
}

func NewLedger(repo Repository, log *slog.Logger) *Ledger {
	return &Ledger{repo: repo, log: log}
}

// Finalize records an order for checkoutID with lines copied by value.
func (l *Ledger) Finalize(ctx context.Context, customer domain.Customer, checkoutID, currency string, lines []domain.CartLineSnapshot) (uuid.UUID, error) {
	if len(lines) == 0 {
		return uuid.Nil, domain.ErrEmptyCart
	}
	if checkoutID == "" {
		return uuid.Nil, &domain.ValidationError{Field: "checkout_id", Reason: "required"}
	}

	order := domain.NewOrder(checkoutID, customer, currency, lines)
	if err := l.repo.CreateOrder(ctx, order); err != nil {
		if !errors.Is(err, ErrDuplicateCheckout) {
			l.log.ErrorContext(ctx, "order insert failed", "checkout_id", checkoutID, "error", err)
		}
		return uuid.Nil, err
	}

	l.log.InfoContext(ctx, "order finalized",
		"order_id", order.ID,
		"checkout_id", checkoutID,
		"user_id", customer.ID,
		"total", order.TotalAmount.StringFixed(2))
	return order.ID, nil
}

func (l *Ledger) ListForUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	return l.repo.ListOrdersByUserID(ctx, userID)
}

// GetByID returns the order only to its owner.
func (l *Ledger) GetByID(ctx context.Context, orderID uuid.UUID, requestingUserID string) (*domain.Order, error) {
	order, err := l.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(requestingUserID) {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrUnauthorized)
	}
	return order, nil
}
