package service

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/StenSOn27/online-cinema-api/internal/model"
	"github.com/StenSOn27/online-cinema-api/internal/payments"
	"github.com/StenSOn27/online-cinema-api/internal/queue"
	"github.com/StenSOn27/online-cinema-api/internal/repository"
)

// mockTx satisfies repository.Tx. The query surface is never exercised by
// the services themselves (they hand the tx to stores), so those methods
// are inert.
type mockTx struct{ mock.Mock }

func (m *mockTx) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, nil
}
func (m *mockTx) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, nil
}
func (m *mockTx) QueryRowContext(context.Context, string, ...any) *sql.Row { return nil }
func (m *mockTx) Commit() error                                            { return m.Called().Error(0) }
func (m *mockTx) Rollback() error                                          { return m.Called().Error(0) }

type mockCartStore struct{ mock.Mock }

func (m *mockCartStore) MovieIDsTx(ctx context.Context, tx repository.Tx, userID uint64) ([]uint64, error) {
	args := m.Called(ctx, tx, userID)
	ids, _ := args.Get(0).([]uint64)
	return ids, args.Error(1)
}

type mockCatalogStore struct{ mock.Mock }

func (m *mockCatalogStore) SplitAvailableTx(ctx context.Context, q repository.DBTX, movieIDs []uint64, regionCode string) ([]uint64, []uint64, error) {
	args := m.Called(ctx, q, movieIDs, regionCode)
	av, _ := args.Get(0).([]uint64)
	un, _ := args.Get(1).([]uint64)
	return av, un, args.Error(2)
}

func (m *mockCatalogStore) PricesTx(ctx context.Context, q repository.DBTX, movieIDs []uint64) ([]model.Movie, error) {
	args := m.Called(ctx, q, movieIDs)
	movies, _ := args.Get(0).([]model.Movie)
	return movies, args.Error(1)
}

type mockOrderStore struct{ mock.Mock }

func (m *mockOrderStore) BeginTx(ctx context.Context) (repository.Tx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(repository.Tx)
	return tx, args.Error(1)
}

func (m *mockOrderStore) CreateTx(ctx context.Context, tx repository.Tx, o *model.Order) error {
	return m.Called(ctx, tx, o).Error(0)
}

func (m *mockOrderStore) InsertItemsTx(ctx context.Context, tx repository.Tx, items []model.OrderItem) error {
	return m.Called(ctx, tx, items).Error(0)
}

func (m *mockOrderStore) SetTotalTx(ctx context.Context, tx repository.Tx, orderID uint64, total decimal.Decimal) error {
	return m.Called(ctx, tx, orderID, total).Error(0)
}

func (m *mockOrderStore) MovieIDsByStatusTx(ctx context.Context, q repository.DBTX, userID uint64, status model.OrderStatus) ([]uint64, error) {
	args := m.Called(ctx, q, userID, status)
	ids, _ := args.Get(0).([]uint64)
	return ids, args.Error(1)
}

func (m *mockOrderStore) GetWithItems(ctx context.Context, orderID uint64) (model.Order, []model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	order, _ := args.Get(0).(model.Order)
	items, _ := args.Get(1).([]model.OrderItem)
	return order, items, args.Error(2)
}

func (m *mockOrderStore) GetByUser(ctx context.Context, orderID, userID uint64) (model.Order, error) {
	args := m.Called(ctx, orderID, userID)
	order, _ := args.Get(0).(model.Order)
	return order, args.Error(1)
}

func (m *mockOrderStore) ListByUser(ctx context.Context, userID uint64) ([]model.Order, map[uint64][]model.OrderItem, error) {
	args := m.Called(ctx, userID)
	orders, _ := args.Get(0).([]model.Order)
	items, _ := args.Get(1).(map[uint64][]model.OrderItem)
	return orders, items, args.Error(2)
}

func (m *mockOrderStore) MarkPaidTx(ctx context.Context, tx repository.Tx, orderID uint64) (bool, error) {
	args := m.Called(ctx, tx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrderStore) CancelPending(ctx context.Context, orderID uint64) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

type mockPaymentStore struct{ mock.Mock }

func (m *mockPaymentStore) BeginTx(ctx context.Context) (repository.Tx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(repository.Tx)
	return tx, args.Error(1)
}

func (m *mockPaymentStore) CreateTx(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	return m.Called(ctx, tx, p).Error(0)
}

func (m *mockPaymentStore) InsertItemsTx(ctx context.Context, tx repository.Tx, items []model.PaymentItem) error {
	return m.Called(ctx, tx, items).Error(0)
}

func (m *mockPaymentStore) GetByOrderID(ctx context.Context, orderID uint64) (model.Payment, error) {
	args := m.Called(ctx, orderID)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Error(1)
}

func (m *mockPaymentStore) ListItems(ctx context.Context, paymentID uint64) ([]model.PaymentItem, error) {
	args := m.Called(ctx, paymentID)
	items, _ := args.Get(0).([]model.PaymentItem)
	return items, args.Error(1)
}

func (m *mockPaymentStore) ListByUser(ctx context.Context, userID uint64) ([]model.Payment, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]model.Payment)
	return list, args.Error(1)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) PublishPaymentSucceeded(ctx context.Context, ev queue.PaymentSucceededEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type mockProvider struct{ mock.Mock }

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, req payments.CheckoutRequest) (payments.Session, error) {
	args := m.Called(ctx, req)
	sess, _ := args.Get(0).(payments.Session)
	return sess, args.Error(1)
}

func (m *mockProvider) RetrieveSession(ctx context.Context, id string) (payments.Session, error) {
	args := m.Called(ctx, id)
	sess, _ := args.Get(0).(payments.Session)
	return sess, args.Error(1)
}
