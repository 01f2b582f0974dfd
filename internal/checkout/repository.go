package checkout

import (
	"context"

	"github.com/fjod/go_shop/internal/domain"
)

// Repository keeps checkout sessions and the per-user session token.
type Repository interface {
	CreateSession(ctx context.Context, session *domain.CheckoutSession) error
	GetSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error)
	// CloseSession moves an OPEN session to status. It reports false when the
	// session was not open anymore.
	CloseSession(ctx context.Context, sessionID string, status domain.CheckoutStatus, orderID string) (bool, error)

	// SetToken points the user at sessionID, creating the user record when
	// needed and replacing any previous token.
	SetToken(ctx context.Context, userID, email, sessionID string) error
	// Token returns the user's current session id, empty when there is none.
	Token(ctx context.Context, userID string) (string, error)
	// ClearToken removes the token only while it still equals sessionID and
	// reports whether it did.
	ClearToken(ctx context.Context, userID, sessionID string) (bool, error)
}
