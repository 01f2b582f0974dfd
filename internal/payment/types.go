package payment

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fjod/go_shop/internal/domain"
)

// SessionIDPlaceholder in a success URL is replaced with the session id
// before the customer is sent back.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// SessionRequest asks the provider for a hosted payment session. Amounts are
// integer minor units.
type SessionRequest struct {
	Currency          string     `json:"currency"`
	Lines             []LineItem `json:"line_items"`
	SuccessURL        string     `json:"success_url"`
	CancelURL         string     `json:"cancel_url"`
	CustomerEmail     string     `json:"customer_email,omitempty"`
	ClientReferenceID string     `json:"client_reference_id,omitempty"`
}

type LineItem struct {
	Name       string `json:"name"`
	UnitAmount int64  `json:"unit_amount"`
	Quantity   int    `json:"quantity"`
}

type Session struct {
	ID            string               `json:"id"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
	AmountTotal   int64                `json:"amount_total"`
	Currency      string               `json:"currency"`
	URL           string               `json:"url,omitempty"`
	SuccessURL    string               `json:"success_url,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

var ErrUnavailable = errors.New("payment provider unavailable")

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payment provider returned %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying the same call may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

func (r SessionRequest) validate() error {
	if len(r.Lines) == 0 {
		return &domain.ValidationError{Field: "line_items", Reason: "at least one line item is required"}
	}
	for _, l := range r.Lines {
		if l.Quantity < 1 || l.UnitAmount < 0 {
			return &domain.ValidationError{Field: "line_items", Reason: fmt.Sprintf("invalid line %q", l.Name)}
		}
	}
	if r.SuccessURL == "" || r.CancelURL == "" {
		return &domain.ValidationError{Field: "urls", Reason: "success and cancel urls are required"}
	}
	return nil
}

func (r SessionRequest) amountTotal() int64 {
	var total int64
	for _, l := range r.Lines {
		total += l.UnitAmount * int64(l.Quantity)
	}
	return total
}
