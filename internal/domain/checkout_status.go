package domain

type CheckoutStatus string

const (
	CheckoutStatusOpen      CheckoutStatus = "OPEN"
	CheckoutStatusCompleted CheckoutStatus = "COMPLETED"
	CheckoutStatusCancelled CheckoutStatus = "CANCELLED"
)

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCompleted || s == CheckoutStatusCancelled
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

// PaymentStatus is what the payment provider reports for a session.
// Anything other than paid or unpaid (expired, cancelled, unknown values)
// is not a state the checkout flow can act on.
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)
