package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/StenSOn27/online-cinema-api/internal/model"
	"github.com/StenSOn27/online-cinema-api/internal/payments"
	"github.com/StenSOn27/online-cinema-api/internal/queue"
)

const testBaseURL = "https://cinema.example.com"

func newPaymentFixture(t *testing.T) (*mockProvider, *mockOrderStore, *mockPaymentStore, *mockNotifier, *mockTx, PaymentService) {
	t.Helper()
	provider := new(mockProvider)
	orders := new(mockOrderStore)
	store := new(mockPaymentStore)
	notifier := new(mockNotifier)
	tx := new(mockTx)
	svc := NewPaymentService(provider, orders, store, notifier, testBaseURL, zerolog.Nop())
	return provider, orders, store, notifier, tx, svc
}

func pendingOrder() (model.Order, []model.OrderItem) {
	return model.Order{ID: 42, UserID: 7, Status: model.OrderPending},
		[]model.OrderItem{
			{ID: 101, OrderID: 42, MovieID: 11, MovieName: "Heat", PriceAtOrder: price("9.99")},
			{ID: 102, OrderID: 42, MovieID: 12, MovieName: "Alien", PriceAtOrder: price("4.50")},
		}
}

func TestCheckoutBuildsSession(t *testing.T) {
	provider, orders, _, _, _, svc := newPaymentFixture(t)
	order, items := pendingOrder()
	orders.On("GetWithItems", mock.Anything, uint64(42)).Return(order, items, nil)

	var captured payments.CheckoutRequest
	provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(req payments.CheckoutRequest) bool {
		captured = req
		return true
	})).Return(payments.Session{ID: "cs_123", URL: "https://pay.example.com/cs_123"}, nil)

	url, err := svc.Checkout(context.Background(), 42, 7)
	require.NoError(t, err)
	require.Equal(t, "https://pay.example.com/cs_123", url)

	require.Equal(t, testBaseURL+"/v1/payment/success?session_id={CHECKOUT_SESSION_ID}", captured.SuccessURL)
	require.Equal(t, testBaseURL+"/v1/orders/cancel?order_id=42", captured.CancelURL)
	require.Equal(t, map[string]string{"order_id": "42", "user_id": "7"}, captured.Metadata)
	require.Len(t, captured.Items, 2)
	require.Equal(t, payments.LineItem{Name: "Heat", UnitAmount: 999, Quantity: 1}, captured.Items[0])
	require.Equal(t, payments.LineItem{Name: "Alien", UnitAmount: 450, Quantity: 1}, captured.Items[1])
}

func TestCheckoutForeignOrderLooksAbsent(t *testing.T) {
	_, orders, _, _, _, svc := newPaymentFixture(t)
	order, items := pendingOrder()
	orders.On("GetWithItems", mock.Anything, uint64(42)).Return(order, items, nil)

	_, err := svc.Checkout(context.Background(), 42, 8)
	require.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestCheckoutRejectsTerminalStates(t *testing.T) {
	_, orders, _, _, _, svc := newPaymentFixture(t)
	orders.On("GetWithItems", mock.Anything, uint64(1)).
		Return(model.Order{ID: 1, UserID: 7, Status: model.OrderCanceled}, []model.OrderItem(nil), nil)
	orders.On("GetWithItems", mock.Anything, uint64(2)).
		Return(model.Order{ID: 2, UserID: 7, Status: model.OrderPaid}, []model.OrderItem(nil), nil)

	_, err := svc.Checkout(context.Background(), 1, 7)
	require.ErrorIs(t, err, model.ErrOrderCanceled)
	_, err = svc.Checkout(context.Background(), 2, 7)
	require.ErrorIs(t, err, model.ErrOrderPaid)
}

func TestCheckoutWrapsProviderError(t *testing.T) {
	provider, orders, _, _, _, svc := newPaymentFixture(t)
	order, items := pendingOrder()
	orders.On("GetWithItems", mock.Anything, uint64(42)).Return(order, items, nil)
	provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(payments.Session{}, &payments.ProviderError{Message: "card network unavailable"})

	_, err := svc.Checkout(context.Background(), 42, 7)
	var perr *model.PaymentProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "card network unavailable", perr.Message)
}

func TestSettleSessionRetrievalFails(t *testing.T) {
	provider, _, _, _, _, svc := newPaymentFixture(t)
	provider.On("RetrieveSession", mock.Anything, "cs_bad").
		Return(payments.Session{}, errors.New("network down"))

	_, err := svc.Settle(context.Background(), "cs_bad", testUser())
	var verr *model.PaymentVerificationError
	require.ErrorAs(t, err, &verr)
}

func TestSettleMissingOrderMetadata(t *testing.T) {
	provider, _, _, _, _, svc := newPaymentFixture(t)
	provider.On("RetrieveSession", mock.Anything, "cs_1").
		Return(payments.Session{ID: "cs_1", Metadata: map[string]string{}}, nil)

	_, err := svc.Settle(context.Background(), "cs_1", testUser())
	var verr *model.PaymentVerificationError
	require.ErrorAs(t, err, &verr)
}

func TestSettleMalformedOrderMetadata(t *testing.T) {
	provider, _, _, _, _, svc := newPaymentFixture(t)
	provider.On("RetrieveSession", mock.Anything, "cs_1").
		Return(payments.Session{ID: "cs_1", Metadata: map[string]string{"order_id": "nope"}}, nil)

	_, err := svc.Settle(context.Background(), "cs_1", testUser())
	var verr *model.PaymentVerificationError
	require.ErrorAs(t, err, &verr)
}

func TestSettleForeignOrder(t *testing.T) {
	provider, orders, _, _, _, svc := newPaymentFixture(t)
	provider.On("RetrieveSession", mock.Anything, "cs_1").
		Return(payments.Session{ID: "cs_1", Metadata: map[string]string{"order_id": "42"}}, nil)
	orders.On("GetWithItems", mock.Anything, uint64(42)).
		Return(model.Order{ID: 42, UserID: 99, Status: model.OrderPending}, []model.OrderItem(nil), nil)

	_, err := svc.Settle(context.Background(), "cs_1", testUser())
	require.ErrorIs(t, err, model.ErrOrderForbidden)
}

func TestSettleReplayReturnsExistingPayment(t *testing.T) {
	provider, orders, store, _, _, svc := newPaymentFixture(t)
	provider.On("RetrieveSession", mock.Anything, "cs_1").
		Return(payments.Session{ID: "cs_1", Metadata: map[string]string{"order_id": "42"}}, nil)
	orders.On("GetWithItems", mock.Anything, uint64(42)).
		Return(model.Order{ID: 42, UserID: 7, Status: model.OrderPaid}, []model.OrderItem(nil), nil)
	extID := "cs_1"
	store.On("GetByOrderID", mock.Anything, uint64(42)).Return(model.Payment{
		ID: 5, UserID: 7, OrderID: 42, Status: model.PaymentSuccessful,
		Amount: price("14.49"), ExternalPaymentID: &extID,
	}, nil)
	store.On("ListItems", mock.Anything, uint64(5)).Return([]model.PaymentItem{
		{ID: 1, PaymentID: 5, OrderItemID: 101, PriceAtPayment: price("9.99")},
		{ID: 2, PaymentID: 5, OrderItemID: 102, PriceAtPayment: price("4.50")},
	}, nil)

	view, err := svc.Settle(context.Background(), "cs_1", testUser())
	require.NoError(t, err)
	require.Equal(t, uint64(5), view.ID)
	require.True(t, view.Amount.Equal(price("14.49")))
	require.Len(t, view.Items, 2)
	store.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestSettlePaidOrderWithoutPaymentRecord(t *testing.T) {
	provider, orders, store, _, _, svc := newPaymentFixture(t)
	provider.On("RetrieveSession", mock.Anything, "cs_1").
		Return(payments.Session{ID: "cs_1", Metadata: map[string]string{"order_id": "42"}}, nil)
	orders.On("GetWithItems", mock.Anything, uint64(42)).
		Return(model.Order{ID: 42, UserID: 7, Status: model.OrderPaid}, []model.OrderItem(nil), nil)
	store.On("GetByOrderID", mock.Anything, uint64(42)).Return(model.Payment{}, sql.ErrNoRows)

	_, err := svc.Settle(context.Background(), "cs_1", testUser())
	require.ErrorIs(t, err, model.ErrPaymentRecordMissing)
}

func TestSettleCanceledOrder(t *testing.T) {
	provider, orders, _, _, _, svc := newPaymentFixture(t)
	provider.On("RetrieveSession", mock.Anything, "cs_1").
		Return(payments.Session{ID: "cs_1", Metadata: map[string]string{"order_id": "42"}}, nil)
	orders.On("GetWithItems", mock.Anything, uint64(42)).
		Return(model.Order{ID: 42, UserID: 7, Status: model.OrderCanceled}, []model.OrderItem(nil), nil)

	_, err := svc.Settle(context.Background(), "cs_1", testUser())
	require.ErrorIs(t, err, model.ErrOrderCanceled)
}

func TestSettleHappyPath(t *testing.T) {
	provider, orders, store, notifier, tx, svc := newPaymentFixture(t)
	order, items := pendingOrder()
	provider.On("RetrieveSession", mock.Anything, "cs_1").
		Return(payments.Session{ID: "cs_1", Metadata: map[string]string{"order_id": "42"}}, nil)
	orders.On("GetWithItems", mock.Anything, uint64(42)).Return(order, items, nil)
	store.On("BeginTx", mock.Anything).Return(tx, nil)
	tx.On("Commit").Return(nil)

	store.On("CreateTx", mock.Anything, tx, mock.AnythingOfType("*model.Payment")).
		Run(func(args mock.Arguments) {
			p := args.Get(2).(*model.Payment)
			p.ID = 5
			p.CreatedAt = time.Now().UTC()
		}).Return(nil)
	store.On("InsertItemsTx", mock.Anything, tx, mock.MatchedBy(func(items []model.PaymentItem) bool {
		return len(items) == 2 &&
			items[0].OrderItemID == 101 && items[0].PriceAtPayment.Equal(price("9.99")) &&
			items[1].OrderItemID == 102 && items[1].PriceAtPayment.Equal(price("4.50"))
	})).Return(nil)
	orders.On("MarkPaidTx", mock.Anything, tx, uint64(42)).Return(true, nil)

	published := make(chan queue.PaymentSucceededEvent, 1)
	notifier.On("PublishPaymentSucceeded", mock.Anything, mock.AnythingOfType("queue.PaymentSucceededEvent")).
		Run(func(args mock.Arguments) {
			published <- args.Get(1).(queue.PaymentSucceededEvent)
		}).Return(nil)

	view, err := svc.Settle(context.Background(), "cs_1", testUser())
	require.NoError(t, err)
	require.Equal(t, uint64(5), view.ID)
	require.Equal(t, uint64(42), view.OrderID)
	require.Equal(t, model.PaymentSuccessful, view.Status)
	require.True(t, view.Amount.Equal(price("14.49")))
	require.NotNil(t, view.ExternalPaymentID)
	require.Equal(t, "cs_1", *view.ExternalPaymentID)
	require.Len(t, view.Items, 2)

	select {
	case ev := <-published:
		require.Equal(t, uint64(5), ev.PaymentID)
		require.Equal(t, uint64(42), ev.OrderID)
		require.Equal(t, "viewer@example.com", ev.Email)
		require.Equal(t, "14.49", ev.Amount)
	case <-time.After(2 * time.Second):
		t.Fatal("receipt event was not published")
	}
	tx.AssertCalled(t, "Commit")
}

func TestSettleDuplicateInsertServesWinner(t *testing.T) {
	provider, orders, store, _, tx, svc := newPaymentFixture(t)
	order, items := pendingOrder()
	provider.On("RetrieveSession", mock.Anything, "cs_1").
		Return(payments.Session{ID: "cs_1", Metadata: map[string]string{"order_id": "42"}}, nil)
	orders.On("GetWithItems", mock.Anything, uint64(42)).Return(order, items, nil)
	store.On("BeginTx", mock.Anything).Return(tx, nil)
	tx.On("Rollback").Return(nil)
	store.On("CreateTx", mock.Anything, tx, mock.Anything).Return(model.ErrPaymentExists)
	store.On("GetByOrderID", mock.Anything, uint64(42)).Return(model.Payment{
		ID: 9, UserID: 7, OrderID: 42, Status: model.PaymentSuccessful, Amount: price("14.49"),
	}, nil)
	store.On("ListItems", mock.Anything, uint64(9)).Return([]model.PaymentItem(nil), nil)

	view, err := svc.Settle(context.Background(), "cs_1", testUser())
	require.NoError(t, err)
	require.Equal(t, uint64(9), view.ID)
	tx.AssertNotCalled(t, "Commit")
}

func TestSettleLosesMarkPaidRace(t *testing.T) {
	provider, orders, store, _, tx, svc := newPaymentFixture(t)
	order, items := pendingOrder()
	provider.On("RetrieveSession", mock.Anything, "cs_1").
		Return(payments.Session{ID: "cs_1", Metadata: map[string]string{"order_id": "42"}}, nil)
	orders.On("GetWithItems", mock.Anything, uint64(42)).Return(order, items, nil).Once()
	store.On("BeginTx", mock.Anything).Return(tx, nil)
	tx.On("Rollback").Return(nil)
	store.On("CreateTx", mock.Anything, tx, mock.Anything).
		Run(func(args mock.Arguments) { args.Get(2).(*model.Payment).ID = 5 }).Return(nil)
	store.On("InsertItemsTx", mock.Anything, tx, mock.Anything).Return(nil)
	orders.On("MarkPaidTx", mock.Anything, tx, uint64(42)).Return(false, nil)
	orders.On("GetWithItems", mock.Anything, uint64(42)).
		Return(model.Order{ID: 42, UserID: 7, Status: model.OrderCanceled}, []model.OrderItem(nil), nil).Once()

	_, err := svc.Settle(context.Background(), "cs_1", testUser())
	require.ErrorIs(t, err, model.ErrOrderCanceled)
	tx.AssertNotCalled(t, "Commit")
}

func TestHistory(t *testing.T) {
	_, _, store, _, _, svc := newPaymentFixture(t)
	now := time.Now().UTC()
	store.On("ListByUser", mock.Anything, uint64(7)).Return([]model.Payment{
		{ID: 2, UserID: 7, OrderID: 42, Status: model.PaymentSuccessful, Amount: price("14.49"), CreatedAt: now},
		{ID: 1, UserID: 7, OrderID: 40, Status: model.PaymentCanceled, Amount: price("5.00"), CreatedAt: now.Add(-time.Hour)},
	}, nil)

	items, err := svc.History(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, model.PaymentSuccessful, items[0].Status)
	require.True(t, items[0].Amount.Equal(price("14.49")))
}
