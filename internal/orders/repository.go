package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrDuplicateCheckout = errors.New("order for this checkout already exists")

const EventTypeOrderPlaced = "order.placed"

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	SSLMode           string
	MigrationsDirPath string
}

func (c *Credentials) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, sslMode)
}

// OrderPlacedEvent is the outbox payload written next to every order.
type OrderPlacedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	CheckoutID  string          `json:"checkout_id"`
	UserID      string          `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	ItemCount   int             `json:"item_count"`
	CreatedAt   time.Time       `json:"created_at"`
}

func NewOrderPlacedEvent(o *domain.Order) OrderPlacedEvent {
	return OrderPlacedEvent{
		OrderID:     o.ID,
		CheckoutID:  o.CheckoutID,
		UserID:      o.Customer.ID,
		TotalAmount: o.TotalAmount,
		Currency:    o.Currency,
		ItemCount:   len(o.Items),
		CreatedAt:   o.CreatedAt,
	}
}

type OutboxEvent struct {
	ID          int64
	AggregateID uuid.UUID
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// Repository is the append-only order store. Orders are never updated or
// deleted.
type Repository interface {
	// CreateOrder stores the order and its order.placed outbox event in one
	// transaction. A second order for the same checkout id fails with
	// ErrDuplicateCheckout.
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
}

type OutboxStore interface {
	GetUnpublishedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventPublished(ctx context.Context, id int64) error
}
