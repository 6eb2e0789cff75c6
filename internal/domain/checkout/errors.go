// internal/domain/checkout/errors.go
package checkout

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the checkout service. Handlers map these to
// HTTP statuses with errors.Is.
var (
	// ErrEmptyCart is returned when checkout is initiated with no cart
	// or a cart with no items.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrOrderNotFound is returned when no order matches the given
	// payment intent.
	ErrOrderNotFound = errors.New("order not found")

	// ErrForbidden is returned when a user tries to confirm an order
	// that belongs to someone else.
	ErrForbidden = errors.New("order does not belong to user")

	// ErrPaymentNotCompleted is returned when the payment provider
	// reports the intent in any state other than succeeded.
	ErrPaymentNotCompleted = errors.New("payment has not been completed")

	// ErrAlreadyProcessed is returned when the order already left the
	// PENDING state, meaning stock was committed by an earlier confirm.
	ErrAlreadyProcessed = errors.New("order already processed")
)

// InsufficientStockError reports an advisory stock failure at checkout
// initiation, naming the product so the client can fix the cart.
type InsufficientStockError struct {
	Product   string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available", e.Product, e.Available)
}

// GatewayError wraps a failure from the payment provider.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// StoreError wraps a persistence failure during checkout.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("checkout store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
