package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutSession is the priced record of one payment attempt. Lines and
// Total are captured when the session is created and are what gets charged.
type CheckoutSession struct {
	ID        string             `bson:"_id" json:"id"`
	UserID    string             `bson:"user_id" json:"user_id"`
	UserEmail string             `bson:"user_email" json:"user_email"`
	Lines     []CartLineSnapshot `bson:"lines" json:"lines"`
	Total     decimal.Decimal    `bson:"total" json:"total"`
	Currency  string             `bson:"currency" json:"currency"`
	Status    CheckoutStatus     `bson:"status" json:"status"`
	OrderID   string             `bson:"order_id,omitempty" json:"order_id,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// User is the persisted part of the authenticated identity. CheckoutSession
// holds the id of the in-flight payment session, empty when none.
type User struct {
	ID              string `bson:"_id" json:"id"`
	Email           string `bson:"email" json:"email"`
	CheckoutSession string `bson:"checkout_session,omitempty" json:"checkout_session,omitempty"`
}
