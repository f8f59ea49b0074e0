// Package service implements the order/payment settlement core: assembling
// price-frozen orders from carts, bridging pending orders to the external
// checkout provider, and reconciling payment callbacks into idempotent state
// transitions. Handlers stay thin; everything with an invariant lives here.
package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/StenSOn27/online-cinema-api/internal/model"
	"github.com/StenSOn27/online-cinema-api/internal/queue"
	"github.com/StenSOn27/online-cinema-api/internal/repository"
)

// CartStore reads cart contents for order assembly.
type CartStore interface {
	// MovieIDsTx must lock the cart row for the duration of the transaction
	// so concurrent order creations for one user serialize.
	MovieIDsTx(ctx context.Context, tx repository.Tx, userID uint64) ([]uint64, error)
}

// CatalogStore answers availability and pricing questions for movies.
type CatalogStore interface {
	SplitAvailableTx(ctx context.Context, q repository.DBTX, movieIDs []uint64, regionCode string) (available, unavailable []uint64, err error)
	PricesTx(ctx context.Context, q repository.DBTX, movieIDs []uint64) ([]model.Movie, error)
}

// OrderStore persists orders and drives their status transitions.
type OrderStore interface {
	BeginTx(ctx context.Context) (repository.Tx, error)
	CreateTx(ctx context.Context, tx repository.Tx, o *model.Order) error
	InsertItemsTx(ctx context.Context, tx repository.Tx, items []model.OrderItem) error
	SetTotalTx(ctx context.Context, tx repository.Tx, orderID uint64, total decimal.Decimal) error
	MovieIDsByStatusTx(ctx context.Context, q repository.DBTX, userID uint64, status model.OrderStatus) ([]uint64, error)
	GetWithItems(ctx context.Context, orderID uint64) (model.Order, []model.OrderItem, error)
	GetByUser(ctx context.Context, orderID, userID uint64) (model.Order, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Order, map[uint64][]model.OrderItem, error)
	MarkPaidTx(ctx context.Context, tx repository.Tx, orderID uint64) (bool, error)
	CancelPending(ctx context.Context, orderID uint64) (bool, error)
}

// PaymentStore persists payments and their item mirrors.
type PaymentStore interface {
	BeginTx(ctx context.Context) (repository.Tx, error)
	CreateTx(ctx context.Context, tx repository.Tx, p *model.Payment) error
	InsertItemsTx(ctx context.Context, tx repository.Tx, items []model.PaymentItem) error
	GetByOrderID(ctx context.Context, orderID uint64) (model.Payment, error)
	ListItems(ctx context.Context, paymentID uint64) ([]model.PaymentItem, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Payment, error)
}

// Notifier publishes fire-and-forget notification events.
type Notifier interface {
	PublishPaymentSucceeded(ctx context.Context, ev queue.PaymentSucceededEvent) error
}

// subtractIDs returns the elements of a not present in b, preserving order.
func subtractIDs(a, b []uint64) []uint64 {
	drop := make(map[uint64]struct{}, len(b))
	for _, id := range b {
		drop[id] = struct{}{}
	}
	out := make([]uint64, 0, len(a))
	for _, id := range a {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
