package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/orders"
	"github.com/google/uuid"
)

// claimFunc decides which caller completes a paid session. Only the caller
// it returns true for empties the cart.
type claimFunc func(ctx context.Context, orderRef string) (bool, error)

// ResolveSession settles the user's pending checkout against the payment
// provider.
//
// A paid session becomes exactly one order. The ledger rejects a second order
// for the same session id, and the token is cleared with a compare-and-clear,
// so of two racing calls only one records the order and only the caller that
// actually removes the token goes on to close the session and empty the cart.
// Nothing is mutated until the provider reported the session paid.
func (b *Broker) ResolveSession(ctx context.Context, userID string) (*Resolution, error) {
	token, err := b.repo.Token(ctx, userID)
	if err != nil {
		return nil, err
	}
	if token == "" {
		b.record(OutcomeSettled.String())
		return &Resolution{Outcome: OutcomeSettled}, nil
	}
	return b.resolve(ctx, userID, token, b.claimToken(userID, token))
}

// ResolveSessionByID settles the session the provider redirected back with.
// That may be an older session the user paid after opening a newer one, in
// which case the newer token is left alone and the older session is closed
// with a conditional update instead. An empty sessionID falls back to the
// user's token.
func (b *Broker) ResolveSessionByID(ctx context.Context, userID, sessionID string) (*Resolution, error) {
	if sessionID == "" {
		return b.ResolveSession(ctx, userID)
	}
	token, err := b.repo.Token(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sessionID == token {
		return b.resolve(ctx, userID, token, b.claimToken(userID, token))
	}

	session, err := b.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("checkout session %s: %w", sessionID, domain.ErrUnauthorized)
	}
	if session.Status.IsTerminal() {
		b.record(OutcomeSettled.String())
		return &Resolution{Outcome: OutcomeSettled, SessionID: sessionID}, nil
	}
	return b.resolve(ctx, userID, sessionID, b.claimSession(sessionID))
}

func (b *Broker) resolve(ctx context.Context, userID, sessionID string, claim claimFunc) (*Resolution, error) {
	paymentCtx, cancel := context.WithTimeout(ctx, b.cfg.PaymentTimeout)
	status, err := b.payments.GetSessionStatus(paymentCtx, sessionID)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("query payment session %s: %w", sessionID, err)
	}

	switch status {
	case domain.PaymentStatusUnpaid:
		b.record(OutcomeUnpaid.String())
		return &Resolution{Outcome: OutcomeUnpaid, SessionID: sessionID}, nil
	case domain.PaymentStatusPaid:
		return b.finalizePaid(ctx, userID, sessionID, claim)
	default:
		b.record("payment_state_error")
		return nil, &domain.PaymentStateError{SessionID: sessionID, Status: status}
	}
}

func (b *Broker) finalizePaid(ctx context.Context, userID, sessionID string, claim claimFunc) (*Resolution, error) {
	session, err := b.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("checkout session %s: %w", sessionID, domain.ErrUnauthorized)
	}

	customer := domain.Customer{ID: session.UserID, Email: session.UserEmail}
	orderID, err := b.ledger.Finalize(ctx, customer, session.ID, session.Currency, session.Lines)
	if errors.Is(err, orders.ErrDuplicateCheckout) {
		b.log.InfoContext(ctx, "checkout session already finalized", "session_id", sessionID, "user_id", userID)
		if err := b.consume(ctx, userID, sessionID, uuid.Nil, claim); err != nil {
			return nil, err
		}
		b.record(OutcomeSettled.String())
		return &Resolution{Outcome: OutcomeSettled, SessionID: sessionID}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := b.consume(ctx, userID, sessionID, orderID, claim); err != nil {
		return nil, err
	}
	b.record(OutcomePaid.String())
	return &Resolution{Outcome: OutcomePaid, SessionID: sessionID, OrderID: orderID}, nil
}

// consume runs after the order is durably recorded. Only the caller that wins
// the claim empties the cart.
func (b *Broker) consume(ctx context.Context, userID, sessionID string, orderID uuid.UUID, claim claimFunc) error {
	var orderRef string
	if orderID != uuid.Nil {
		orderRef = orderID.String()
	}

	won, err := claim(ctx, orderRef)
	if err != nil {
		b.log.ErrorContext(ctx, "claim checkout session failed", "session_id", sessionID, "error", err)
		return err
	}
	if !won {
		return nil
	}

	if err := b.cart.Clear(ctx, userID); err != nil {
		b.log.ErrorContext(ctx, "clear cart after order failed", "user_id", userID, "order_id", orderRef, "error", err)
	}
	return nil
}

// claimToken wins for the caller whose compare-and-clear removed the user's
// token, then completes the session.
func (b *Broker) claimToken(userID, sessionID string) claimFunc {
	return func(ctx context.Context, orderRef string) (bool, error) {
		cleared, err := b.repo.ClearToken(ctx, userID, sessionID)
		if err != nil || !cleared {
			return false, err
		}
		if _, err := b.repo.CloseSession(ctx, sessionID, domain.CheckoutStatusCompleted, orderRef); err != nil {
			b.log.WarnContext(ctx, "complete checkout session failed", "session_id", sessionID, "error", err)
		}
		return true, nil
	}
}

// claimSession is for sessions the token no longer points at. The conditional
// close out of OPEN picks the winner.
func (b *Broker) claimSession(sessionID string) claimFunc {
	return func(ctx context.Context, orderRef string) (bool, error) {
		return b.repo.CloseSession(ctx, sessionID, domain.CheckoutStatusCompleted, orderRef)
	}
}
