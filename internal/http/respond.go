package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/payment"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError maps the domain error taxonomy onto HTTP statuses. Store
// failures are logged here once and reach the client as a generic 500.
func handleError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var (
		validation   *domain.ValidationError
		paymentState *domain.PaymentStateError
		apiErr       *payment.APIError
	)

	switch {
	case errors.As(err, &validation):
		respondError(w, http.StatusBadRequest, "invalid_argument", validation.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		respondError(w, http.StatusForbidden, "permission_denied", "not allowed to access this resource")
	case errors.As(err, &paymentState):
		respondError(w, http.StatusConflict, "payment_state", paymentState.Error())
	case errors.Is(err, payment.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "payment provider unavailable, try again later")
	case errors.As(err, &apiErr):
		log.ErrorContext(r.Context(), "payment provider rejected request", "status", apiErr.StatusCode, "error", err)
		respondError(w, http.StatusBadGateway, "payment_error", "payment provider rejected the request")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// requireIdentity writes a 401 and reports false when the request carries
// no authenticated user.
func requireIdentity(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
	}
	return id, ok
}
