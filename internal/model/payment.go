package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus enumerates payment states. REFUNDED exists in the schema for
// future settlement adjustments; no code path currently writes it.
type PaymentStatus string

const (
	PaymentSuccessful PaymentStatus = "SUCCESSFUL"
	PaymentCanceled   PaymentStatus = "CANCELED"
	PaymentRefunded   PaymentStatus = "REFUNDED"
)

// Payment mirrors the payments table. Exactly one payment may exist per
// order (UNIQUE on order_id); its existence is the idempotency marker for
// settlement callbacks. ExternalPaymentID stores the provider session id.
type Payment struct {
	ID                uint64
	UserID            uint64
	OrderID           uint64
	Status            PaymentStatus
	Amount            decimal.Decimal
	ExternalPaymentID *string
	CreatedAt         time.Time
}

// PaymentItem mirrors one order item at settlement time. PriceAtPayment is
// kept separate from price_at_order so a future partial settlement would not
// have to mutate order history.
type PaymentItem struct {
	ID             uint64
	PaymentID      uint64
	OrderItemID    uint64
	PriceAtPayment decimal.Decimal
}
