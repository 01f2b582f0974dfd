package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
)

// ProductSnapshot is a by-value copy of catalog fields taken at purchase time.
type ProductSnapshot struct {
	ID          int64           `bson:"id" json:"id"`
	Title       string          `bson:"title" json:"title"`
	Description string          `bson:"description" json:"description"`
	Price       decimal.Decimal `bson:"price" json:"price"`
	ImageURL    string          `bson:"image_url" json:"image_url"`
}

type OrderItem struct {
	Quantity int             `json:"quantity"`
	Product  ProductSnapshot `json:"product"`
}

// Customer is the purchasing user as it was when the order was placed.
type Customer struct {
	ID    string `json:"user_id"`
	Email string `json:"email"`
}

type Order struct {
	ID          uuid.UUID
	CheckoutID  string
	Customer    Customer
	TotalAmount decimal.Decimal
	Currency    string
	Status      OrderStatus
	Items       []OrderItem
	CreatedAt   time.Time
}

// NewOrder snapshots lines into a confirmed order. The total is derived from
// the lines so it always reproduces the charged amount.
func NewOrder(checkoutID string, customer Customer, currency string, lines []CartLineSnapshot) *Order {
	items := make([]OrderItem, len(lines))
	for i, line := range lines {
		items[i] = OrderItem{Quantity: line.Quantity, Product: line.Product}
	}
	order := &Order{
		ID:         uuid.New(),
		CheckoutID: checkoutID,
		Customer:   customer,
		Currency:   currency,
		Status:     OrderStatusConfirmed,
		Items:      items,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	order.TotalAmount = order.ComputeTotal()
	return order
}

// ComputeTotal recomputes the total from the stored line items.
func (o *Order) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func (o *Order) OwnedBy(userID string) bool {
	return o.Customer.ID == userID
}
