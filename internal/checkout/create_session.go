package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/payment"
)

// CreateSession prices the user's cart at current catalog prices, opens a
// payment session for it and makes it the user's pending checkout.
func (b *Broker) CreateSession(ctx context.Context, userID, email string) (*StartedSession, error) {
	lines, err := b.cart.SnapshotForPricing(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}
	total := domain.LinesTotal(lines)

	previous, err := b.repo.Token(ctx, userID)
	if err != nil {
		return nil, err
	}

	req := payment.SessionRequest{
		Currency:          b.cfg.Currency,
		Lines:             make([]payment.LineItem, len(lines)),
		SuccessURL:        b.cfg.SuccessURL,
		CancelURL:         b.cfg.CancelURL,
		CustomerEmail:     email,
		ClientReferenceID: userID,
	}
	for i, line := range lines {
		req.Lines[i] = payment.LineItem{
			Name:       line.Product.Title,
			UnitAmount: domain.MinorUnits(line.Product.Price),
			Quantity:   line.Quantity,
		}
	}

	paymentCtx, cancel := context.WithTimeout(ctx, b.cfg.PaymentTimeout)
	defer cancel()
	ps, err := b.payments.CreateSession(paymentCtx, req)
	if err != nil {
		return nil, fmt.Errorf("create payment session: %w", err)
	}

	now := time.Now().UTC()
	session := &domain.CheckoutSession{
		ID:        ps.ID,
		UserID:    userID,
		UserEmail: email,
		Lines:     lines,
		Total:     total,
		Currency:  b.cfg.Currency,
		Status:    domain.CheckoutStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := b.repo.CreateSession(ctx, session); err != nil {
		b.log.ErrorContext(ctx, "store checkout session failed", "session_id", ps.ID, "error", err)
		return nil, err
	}
	if err := b.repo.SetToken(ctx, userID, email, ps.ID); err != nil {
		b.log.ErrorContext(ctx, "store checkout token failed", "session_id", ps.ID, "error", err)
		return nil, err
	}
	if previous != "" {
		b.replaced(ctx, userID, previous, ps.ID)
	}

	b.log.InfoContext(ctx, "checkout session created",
		"session_id", ps.ID, "user_id", userID, "total", total.StringFixed(2), "lines", len(lines))
	return &StartedSession{
		SessionID:  ps.ID,
		PaymentURL: ps.URL,
		Total:      total,
		Currency:   b.cfg.Currency,
		Lines:      lines,
	}, nil
}

// replaced reports a still open session that lost the user's token. It stays
// OPEN; if it gets paid anyway, a success redirect carrying its id resolves it.
func (b *Broker) replaced(ctx context.Context, userID, previous, current string) {
	session, err := b.repo.GetSession(ctx, previous)
	if err != nil {
		b.log.WarnContext(ctx, "load replaced checkout session failed", "session_id", previous, "error", err)
		return
	}
	if session.Status.IsTerminal() {
		return
	}
	b.log.WarnContext(ctx, "open checkout session replaced",
		"session_id", previous, "replaced_by", current, "user_id", userID)
	b.record("replaced")
}
