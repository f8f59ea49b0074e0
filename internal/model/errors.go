// Package model defines the domain records shared by repositories, services
// and handlers, together with the sentinel errors of the order/payment core.
package model

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by services and repositories. Handlers translate
// them into HTTP responses; see the handler package for the mapping.
var (
	// Order assembly.
	ErrEmptyCart        = errors.New("Cart is empty")
	ErrAlreadyPurchased = errors.New("All movies in cart already purchased")
	ErrAllPending       = errors.New("All movies already included in a pending order")

	// Order lifecycle. ErrOrderNotFound also covers orders owned by another
	// user on caller-scoped endpoints so that existence is not leaked.
	ErrOrderNotFound = errors.New("Order not found")
	ErrOrderCanceled = errors.New("Order already canceled")
	ErrOrderPaid     = errors.New("Cannot cancel a paid order")

	// Payment settlement.
	ErrOrderForbidden       = errors.New("Access denied: not your order")
	ErrPaymentExists        = errors.New("payment already exists for order")
	ErrPaymentRecordMissing = errors.New("Order marked as PAID, but payment not found")

	// Catalog and cart.
	ErrMovieNotFound  = errors.New("movie not found")
	ErrMovieInCart    = errors.New("movie is already in your cart")
	ErrMoviePurchased = errors.New("movie already purchased")
	ErrRegionNotFound = errors.New("region not found")

	// Accounts.
	ErrEmailExists  = errors.New("email already exists")
	ErrTokenInvalid = errors.New("invalid or expired token")
	ErrNotActivated = errors.New("account is not activated")
)

// PaymentVerificationError reports a settlement callback that could not be
// verified: the provider session was unreachable or its metadata did not
// reference a valid order.
type PaymentVerificationError struct {
	Reason string
	Err    error
}

func (e *PaymentVerificationError) Error() string {
	return fmt.Sprintf("payment verification failed: %s", e.Reason)
}

func (e *PaymentVerificationError) Unwrap() error { return e.Err }

// PaymentProviderError wraps a failure reported by the external payment
// provider. Message carries the provider's user-facing text and is the only
// provider detail exposed to clients.
type PaymentProviderError struct {
	Message string
	Err     error
}

func (e *PaymentProviderError) Error() string {
	return fmt.Sprintf("payment provider error: %s", e.Message)
}

func (e *PaymentProviderError) Unwrap() error { return e.Err }
