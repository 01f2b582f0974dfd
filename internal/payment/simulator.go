package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Settlement decides how a simulated customer's payment attempt ends.
type Settlement interface {
	Settle() domain.PaymentStatus
}

// RandomSettlement pays 95% of attempts and lets the rest expire or get
// cancelled.
type RandomSettlement struct{}

func (RandomSettlement) Settle() domain.PaymentStatus {
	return settlementFor(rand.IntN(101))
}

func settlementFor(roll int) domain.PaymentStatus {
	if roll < 95 {
		return domain.PaymentStatusPaid
	}
	if roll%2 == 0 {
		return "expired"
	}
	return "canceled"
}

// FixedSettlement always ends with the same status.
type FixedSettlement domain.PaymentStatus

func (f FixedSettlement) Settle() domain.PaymentStatus {
	return domain.PaymentStatus(f)
}

// Simulator is an in-memory stand-in for the payment provider serving the
// same session API the Client speaks, plus /pay and /cancel endpoints that
// play the customer's part.
type Simulator struct {
	apiKey     string
	publicURL  string
	settlement Settlement
	log        *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSimulator(apiKey, publicURL string, settlement Settlement, log *slog.Logger) *Simulator {
	return &Simulator{
		apiKey:     apiKey,
		publicURL:  strings.TrimRight(publicURL, "/"),
		settlement: settlement,
		log:        log,
		sessions:   make(map[string]*Session),
	}
}

func (s *Simulator) Routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/v1/checkout/sessions", func(r chi.Router) {
		r.Use(s.requireKey)
		r.Post("/", s.createSession)
		r.Get("/{session_id}", s.getSession)
	})
	// customer facing, no API key
	r.Post("/pay/{session_id}", s.pay)
	r.Post("/cancel/{session_id}", s.cancel)
	return r
}

func (s *Simulator) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("Authorization") != "Bearer "+s.apiKey {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid api key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Simulator) createSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}
	if err := req.validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	id := "cs_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	session := &Session{
		ID:            id,
		PaymentStatus: domain.PaymentStatusUnpaid,
		AmountTotal:   req.amountTotal(),
		Currency:      req.Currency,
		URL:           fmt.Sprintf("%s/pay/%s", s.publicURL, id),
		SuccessURL:    strings.ReplaceAll(req.SuccessURL, SessionIDPlaceholder, id),
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	s.log.InfoContext(r.Context(), "payment session created",
		"session_id", id, "amount_total", session.AmountTotal, "currency", session.Currency)
	writeJSON(w, http.StatusOK, session)
}

func (s *Simulator) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.lookup(chi.URLParam(r, "session_id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Simulator) pay(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.settlement.Settle())
}

func (s *Simulator) cancel(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "canceled")
}

// transition settles an unpaid session once; later calls report the
// existing state.
func (s *Simulator) transition(w http.ResponseWriter, r *http.Request, to domain.PaymentStatus) {
	id := chi.URLParam(r, "session_id")

	s.mu.Lock()
	session, ok := s.sessions[id]
	if ok && session.PaymentStatus == domain.PaymentStatusUnpaid {
		session.PaymentStatus = to
	}
	var snapshot Session
	if ok {
		snapshot = *session
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: fmt.Sprintf("no such session %q", id)})
		return
	}
	s.log.InfoContext(r.Context(), "payment session settled", "session_id", id, "status", snapshot.PaymentStatus)
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Simulator) lookup(id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return Session{}, errors.New("no such session")
	}
	return *session, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
