package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrEmptyCart    = &ValidationError{Field: "cart", Reason: "cart is empty, nothing to checkout"}
)

// PaymentStateError reports a payment session in a state checkout cannot
// act on (cancelled, expired, unknown).
type PaymentStateError struct {
	SessionID string
	Status    PaymentStatus
}

func (e *PaymentStateError) Error() string {
	return fmt.Sprintf("payment session %s in unexpected state %q", e.SessionID, e.Status)
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PersistenceError wraps a failed store operation. Op names the operation
// for logs; callers only ever see a generic failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func Persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// NotFoundf wraps ErrNotFound with context.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}
