package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/invoice"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderReader interface {
	ListForUser(ctx context.Context, userID string) ([]*domain.Order, error)
	GetByID(ctx context.Context, orderID uuid.UUID, requestingUserID string) (*domain.Order, error)
}

type InvoiceStreamer interface {
	Stream(ctx context.Context, orderID uuid.UUID, userID string, w io.Writer) error
}

type OrdersHandler struct {
	orders   OrderReader
	invoices InvoiceStreamer
	timeout  time.Duration
	log      *slog.Logger
}

func NewOrdersHandler(orders OrderReader, invoices InvoiceStreamer, timeout time.Duration, log *slog.Logger) *OrdersHandler {
	return &OrdersHandler{
		orders:   orders,
		invoices: invoices,
		timeout:  timeout,
		log:      log,
	}
}

type OrderDTO struct {
	ID         string             `json:"id"`
	CheckoutID string             `json:"checkout_id"`
	Customer   domain.Customer    `json:"customer"`
	Items      []domain.OrderItem `json:"items"`
	Total      decimal.Decimal    `json:"total"`
	Currency   string             `json:"currency"`
	Status     string             `json:"status"`
	CreatedAt  time.Time          `json:"created_at"`
}

func toOrderDTO(o *domain.Order) OrderDTO {
	return OrderDTO{
		ID:         o.ID.String(),
		CheckoutID: o.CheckoutID,
		Customer:   o.Customer,
		Items:      o.Items,
		Total:      o.TotalAmount,
		Currency:   o.Currency,
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt,
	}
}

// GET /api/v1/orders
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListForUser(ctx, user.UserID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	out := make([]OrderDTO, len(orders))
	for i, o := range orders {
		out[i] = toOrderDTO(o)
	}
	respondJSON(w, http.StatusOK, out)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetByID(ctx, orderID, user.UserID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderDTO(order))
}

// GET /api/v1/orders/{order_id}/invoice
func (h *OrdersHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	pw := &pdfResponse{w: w, name: invoice.FileName(orderID)}
	if err := h.invoices.Stream(ctx, orderID, user.UserID, pw); err != nil {
		if pw.started {
			// headers are gone, the client sees a truncated body
			h.log.ErrorContext(ctx, "invoice stream aborted", "order_id", orderID, "error", err)
			return
		}
		handleError(w, r, h.log, err)
	}
}

// pdfResponse sets the PDF headers on the first write, so errors raised
// before rendering starts can still be answered with JSON.
type pdfResponse struct {
	w       http.ResponseWriter
	name    string
	started bool
}

func (p *pdfResponse) Write(b []byte) (int, error) {
	if !p.started {
		p.started = true
		h := p.w.Header()
		h.Set("Content-Type", "application/pdf")
		h.Set("Content-Disposition", `inline; filename="`+p.name+`"`)
		p.w.WriteHeader(http.StatusOK)
	}
	return p.w.Write(b)
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
