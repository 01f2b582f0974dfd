package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_shop/internal/cart"
	"github.com/go-chi/chi/v5"
)

type CartService interface {
	View(ctx context.Context, userID string) (*cart.View, error)
	AddItem(ctx context.Context, userID string, productID int64) error
	RemoveItem(ctx context.Context, userID, entryID string) error
}

type CartHandler struct {
	cart    CartService
	timeout time.Duration
	log     *slog.Logger
}

func NewCartHandler(cart CartService, timeout time.Duration, log *slog.Logger) *CartHandler {
	return &CartHandler{
		cart:    cart,
		timeout: timeout,
		log:     log,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
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

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	if err := h.cart.AddItem(ctx, user.UserID, req.ProductID); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	view, err := h.cart.View(ctx, user.UserID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

// DELETE /api/v1/cart/items/{entry_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	entryID := chi.URLParam(r, "entry_id")
	if entryID == "" {
		respondError(w, http.StatusBadRequest, "invalid_entry_id", "entry_id is required")
		return
	}

	if err := h.cart.RemoveItem(ctx, user.UserID, entryID); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	view, err := h.cart.View(ctx, user.UserID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}
