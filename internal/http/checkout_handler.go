package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_shop/internal/checkout"
)

type CheckoutBroker interface {
	CreateSession(ctx context.Context, userID, email string) (*checkout.StartedSession, error)
	ResolveSessionByID(ctx context.Context, userID, sessionID string) (*checkout.Resolution, error)
	CancelSession(ctx context.Context, userID string) error
}

const (
	ordersPath   = "/api/v1/orders"
	checkoutPath = "/api/v1/checkout"
	cartPath     = "/api/v1/cart"
)

type CheckoutHandler struct {
	broker  CheckoutBroker
	cart    CartService
	timeout time.Duration
	log     *slog.Logger
}

func NewCheckoutHandler(broker CheckoutBroker, cart CartService, timeout time.Duration, log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		broker:  broker,
		cart:    cart,
		timeout: timeout,
		log:     log,
	}
}

// GET /api/v1/checkout
func (h *CheckoutHandler) Preview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	view, err := h.cart.View(ctx, user.UserID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	started, err := h.broker.CreateSession(ctx, user.UserID, user.Email)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, started)
}

// GET /api/v1/checkout/success?session_id=
//
// The payment provider sends the customer here, with the paid session id when
// it fills it in. Unpaid sessions go back to checkout, everything else lands
// on the order history.
func (h *CheckoutHandler) Success(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	res, err := h.broker.ResolveSessionByID(ctx, user.UserID, r.URL.Query().Get("session_id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	target := ordersPath
	if res.Outcome == checkout.OutcomeUnpaid {
		target = checkoutPath
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// GET /api/v1/checkout/cancel
func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.broker.CancelSession(ctx, user.UserID); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	http.Redirect(w, r, cartPath, http.StatusSeeOther)
}
