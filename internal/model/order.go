package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus enumerates the order state machine. PENDING is the only
// non-terminal state: PENDING -> PAID and PENDING -> CANCELED are the legal
// transitions, nothing leaves PAID or CANCELED.
type OrderStatus string

const (
	OrderPending  OrderStatus = "PENDING"
	OrderPaid     OrderStatus = "PAID"
	OrderCanceled OrderStatus = "CANCELED"
)

// Order mirrors the orders table. TotalAmount is NULL between the order
// insert and the item inserts inside the creation transaction; once set it
// equals the sum of the items' price_at_order and is never recomputed.
type Order struct {
	ID          uint64
	UserID      uint64
	Status      OrderStatus
	TotalAmount decimal.NullDecimal
	CreatedAt   time.Time
}

// OrderItem mirrors the order_items table. PriceAtOrder is the catalog price
// frozen at order-creation time; later catalog price changes never touch it.
// MovieName is joined in from movies on reads that need it (checkout, order
// listing) and is not a column of the table.
type OrderItem struct {
	ID           uint64
	OrderID      uint64
	MovieID      uint64
	PriceAtOrder decimal.Decimal
	MovieName    string
}
