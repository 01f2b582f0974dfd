package checkout

import (
	"context"
	"log/slog"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CartSource interface {
	SnapshotForPricing(ctx context.Context, userID string) ([]domain.CartLineSnapshot, error)
	Clear(ctx context.Context, userID string) error
}

type PaymentGateway interface {
	CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error)
	GetSessionStatus(ctx context.Context, sessionID string) (domain.PaymentStatus, error)
}

type OrderFinalizer interface {
	Finalize(ctx context.Context, customer domain.Customer, checkoutID, currency string, lines []domain.CartLineSnapshot) (uuid.UUID, error)
}

type OutcomeObserver interface {
	CheckoutResolved(outcome string)
}

type Config struct {
	Currency       string
	SuccessURL     string
	CancelURL      string
	PaymentTimeout time.Duration
}

// Broker runs the payment handshake between a user's cart and the order
// ledger. Payment state never touches the cart itself.
type Broker struct {
	repo     Repository
	cart     CartSource
	payments PaymentGateway
	ledger   OrderFinalizer
	observer OutcomeObserver
	cfg      Config
	log      *slog.Logger
}

func NewBroker(repo Repository, cart CartSource, payments PaymentGateway, ledger OrderFinalizer, observer OutcomeObserver, cfg Config, log *slog.Logger) *Broker {
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = 10 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &Broker{
		repo:     repo,
		cart:     cart,
		payments: payments,
		ledger:   ledger,
		observer: observer,
		cfg:      cfg,
		log:      log,
	}
}

// StartedSession is what the customer needs to go pay.
type StartedSession struct {
	SessionID  string                    `json:"session_id"`
	PaymentURL string                    `json:"payment_url,omitempty"`
	Total      decimal.Decimal           `json:"total"`
	Currency   string                    `json:"currency"`
	Lines      []domain.CartLineSnapshot `json:"lines"`
}

type Outcome int

const (
	// OutcomeUnpaid sends the customer back to checkout.
	OutcomeUnpaid Outcome = iota + 1
	// OutcomePaid means this call recorded the order.
	OutcomePaid
	// OutcomeSettled means there was nothing left to resolve; the order, if
	// any, was recorded earlier.
	OutcomeSettled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnpaid:
		return "unpaid"
	case OutcomePaid:
		return "paid"
	case OutcomeSettled:
		return "settled"
	default:
		return "unknown"
	}
}

type Resolution struct {
	Outcome   Outcome
	SessionID string
	OrderID   uuid.UUID
}

func (b *Broker) record(outcome string) {
	if b.observer != nil {
		b.observer.CheckoutResolved(outcome)
	}
}
