package checkout

import (
	"context"

	"github.com/fjod/go_shop/internal/domain"
)

// CancelSession abandons the user's pending checkout. The cart is kept so the
// customer can try again.
func (b *Broker) CancelSession(ctx context.Context, userID string) error {
	token, err := b.repo.Token(ctx, userID)
	if err != nil || token == "" {
		return err
	}

	cleared, err := b.repo.ClearToken(ctx, userID, token)
	if err != nil || !cleared {
		return err
	}
	if _, err := b.repo.CloseSession(ctx, token, domain.CheckoutStatusCancelled, ""); err != nil {
		return err
	}

	b.log.InfoContext(ctx, "checkout session cancelled", "session_id", token, "user_id", userID)
	b.record("cancelled")
	return nil
}
