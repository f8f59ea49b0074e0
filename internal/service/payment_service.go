package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/StenSOn27/online-cinema-api/internal/model"
	"github.com/StenSOn27/online-cinema-api/internal/payments"
	"github.com/StenSOn27/online-cinema-api/internal/queue"
)

// PaymentService bridges pending orders to the checkout provider and
// reconciles provider callbacks into durable, idempotent payments.
type PaymentService interface {
	Checkout(ctx context.Context, orderID, userID uint64) (string, error)
	Settle(ctx context.Context, sessionID string, user model.User) (PaymentView, error)
	History(ctx context.Context, userID uint64) ([]PaymentHistoryItem, error)
}

// PaymentView is the payment representation returned from settlement.
type PaymentView struct {
	ID                uint64              `json:"id"`
	UserID            uint64              `json:"user_id"`
	OrderID           uint64              `json:"order_id"`
	CreatedAt         time.Time           `json:"created_at"`
	Status            model.PaymentStatus `json:"status"`
	Amount            decimal.Decimal     `json:"amount"`
	ExternalPaymentID *string             `json:"external_payment_id"`
	Items             []PaymentItemView   `json:"items"`
}

// PaymentItemView mirrors one order item at payment time.
type PaymentItemView struct {
	OrderItemID    uint64          `json:"order_item_id"`
	PriceAtPayment decimal.Decimal `json:"price_at_payment"`
}

// PaymentHistoryItem is one row of the caller's payment history.
type PaymentHistoryItem struct {
	CreatedAt time.Time           `json:"created_at"`
	Amount    decimal.Decimal     `json:"amount"`
	Status    model.PaymentStatus `json:"status"`
}

type paymentService struct {
	provider payments.Provider
	orders   OrderStore
	payments PaymentStore
	notifier Notifier
	baseURL  string
	logger   zerolog.Logger
}

// NewPaymentService creates a new payment service. baseURL is the public
// address callbacks are built against.
func NewPaymentService(provider payments.Provider, orders OrderStore, paymentStore PaymentStore, notifier Notifier, baseURL string, logger zerolog.Logger) PaymentService {
	return &paymentService{
		provider: provider,
		orders:   orders,
		payments: paymentStore,
		notifier: notifier,
		baseURL:  baseURL,
		logger:   logger.With().Str("service", "payment").Logger(),
	}
}

// Checkout translates a PENDING order into a hosted checkout session and
// returns the redirect URL. Orders that do not exist or belong to another
// user are both reported as not found.
func (s *paymentService) Checkout(ctx context.Context, orderID, userID uint64) (string, error) {
	order, items, err := s.orders.GetWithItems(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order.UserID != userID {
		return "", model.ErrOrderNotFound
	}
	switch order.Status {
	case model.OrderCanceled:
		return "", model.ErrOrderCanceled
	case model.OrderPaid:
		return "", model.ErrOrderPaid
	}

	req := payments.CheckoutRequest{
		SuccessURL: s.baseURL + "/v1/payment/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  fmt.Sprintf("%s/v1/orders/cancel?order_id=%d", s.baseURL, order.ID),
		Metadata: map[string]string{
			"order_id": strconv.FormatUint(order.ID, 10),
			"user_id":  strconv.FormatUint(userID, 10),
		},
	}
	for _, it := range items {
		req.Items = append(req.Items, payments.LineItem{
			Name:       it.MovieName,
			UnitAmount: it.PriceAtOrder.Shift(2).IntPart(),
			Quantity:   1,
		})
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		var pe *payments.ProviderError
		if errors.As(err, &pe) {
			return "", &model.PaymentProviderError{Message: pe.Message, Err: err}
		}
		return "", &model.PaymentProviderError{Message: "payment provider request failed", Err: err}
	}
	s.logger.Info().
		Uint64("order_id", order.ID).
		Str("session_id", sess.ID).
		Msg("checkout session created")
	return sess.URL, nil
}

// Settle reconciles a provider callback into a payment. For a given order at
// most one payment row ever exists: the fast-path check below handles clean
// replays, and the UNIQUE constraint on payments.order_id plus the
// conditional PENDING->PAID update close the concurrent-callback race.
func (s *paymentService) Settle(ctx context.Context, sessionID string, user model.User) (PaymentView, error) {
	sess, err := s.provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		return PaymentView{}, &model.PaymentVerificationError{Reason: "could not retrieve checkout session", Err: err}
	}
	rawOrderID, ok := sess.Metadata["order_id"]
	if !ok {
		return PaymentView{}, &model.PaymentVerificationError{Reason: "session metadata is missing order_id"}
	}
	orderID, err := strconv.ParseUint(rawOrderID, 10, 64)
	if err != nil || orderID == 0 {
		return PaymentView{}, &model.PaymentVerificationError{Reason: "session metadata carries a malformed order_id", Err: err}
	}

	order, items, err := s.orders.GetWithItems(ctx, orderID)
	if err != nil {
		return PaymentView{}, err
	}
	if order.UserID != user.ID {
		return PaymentView{}, model.ErrOrderForbidden
	}

	// Idempotency fast path: replayed callback for an already settled order.
	if order.Status == model.OrderPaid {
		return s.existingPayment(ctx, order.ID)
	}
	if order.Status == model.OrderCanceled {
		return PaymentView{}, model.ErrOrderCanceled
	}

	amount := decimal.Zero
	for _, it := range items {
		amount = amount.Add(it.PriceAtOrder)
	}

	tx, err := s.payments.BeginTx(ctx)
	if err != nil {
		return PaymentView{}, fmt.Errorf("begin settlement transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	payment := &model.Payment{
		UserID:            order.UserID,
		OrderID:           order.ID,
		Status:            model.PaymentSuccessful,
		Amount:            amount,
		ExternalPaymentID: &sess.ID,
	}
	if err := s.payments.CreateTx(ctx, tx, payment); err != nil {
		if errors.Is(err, model.ErrPaymentExists) {
			// A concurrent callback won the unique constraint; serve its row.
			return s.existingPayment(ctx, order.ID)
		}
		return PaymentView{}, fmt.Errorf("create payment: %w", err)
	}

	payItems := make([]model.PaymentItem, 0, len(items))
	for _, it := range items {
		payItems = append(payItems, model.PaymentItem{
			PaymentID:      payment.ID,
			OrderItemID:    it.ID,
			PriceAtPayment: it.PriceAtOrder,
		})
	}
	if err := s.payments.InsertItemsTx(ctx, tx, payItems); err != nil {
		return PaymentView{}, fmt.Errorf("create payment items: %w", err)
	}

	ok, err = s.orders.MarkPaidTx(ctx, tx, order.ID)
	if err != nil {
		return PaymentView{}, fmt.Errorf("mark order paid: %w", err)
	}
	if !ok {
		// The order left PENDING between our read and the update.
		_ = tx.Rollback()
		current, _, rerr := s.orders.GetWithItems(ctx, order.ID)
		if rerr != nil {
			return PaymentView{}, rerr
		}
		if current.Status == model.OrderPaid {
			return s.existingPayment(ctx, order.ID)
		}
		return PaymentView{}, model.ErrOrderCanceled
	}
	if err := tx.Commit(); err != nil {
		return PaymentView{}, fmt.Errorf("commit settlement: %w", err)
	}
	committed = true

	s.logger.Info().
		Uint64("payment_id", payment.ID).
		Uint64("order_id", order.ID).
		Str("amount", amount.String()).
		Msg("order settled")

	go s.publishReceipt(*payment, user.Email)

	return paymentView(*payment, payItems), nil
}

// existingPayment serves the recorded payment for a PAID order. A PAID order
// with no payment row is a fatal inconsistency and is surfaced, never
// silently repaired.
func (s *paymentService) existingPayment(ctx context.Context, orderID uint64) (PaymentView, error) {
	payment, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Error().Uint64("order_id", orderID).Msg("order marked PAID but payment record is missing")
			return PaymentView{}, model.ErrPaymentRecordMissing
		}
		return PaymentView{}, fmt.Errorf("load payment: %w", err)
	}
	items, err := s.payments.ListItems(ctx, payment.ID)
	if err != nil {
		return PaymentView{}, fmt.Errorf("load payment items: %w", err)
	}
	return paymentView(payment, items), nil
}

// publishReceipt notifies the email dispatcher after a successful
// settlement. Runs outside the request; failures are logged by the
// publisher and never affect the committed payment.
func (s *paymentService) publishReceipt(p model.Payment, email string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = s.notifier.PublishPaymentSucceeded(ctx, queue.PaymentSucceededEvent{
		PaymentID: p.ID,
		OrderID:   p.OrderID,
		UserID:    p.UserID,
		Email:     email,
		Amount:    p.Amount.String(),
		PaidAt:    p.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// History returns the caller's payments, newest first.
func (s *paymentService) History(ctx context.Context, userID uint64) ([]PaymentHistoryItem, error) {
	list, err := s.payments.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	out := make([]PaymentHistoryItem, 0, len(list))
	for _, p := range list {
		out = append(out, PaymentHistoryItem{CreatedAt: p.CreatedAt, Amount: p.Amount, Status: p.Status})
	}
	return out, nil
}

func paymentView(p model.Payment, items []model.PaymentItem) PaymentView {
	v := PaymentView{
		ID:                p.ID,
		UserID:            p.UserID,
		OrderID:           p.OrderID,
		CreatedAt:         p.CreatedAt,
		Status:            p.Status,
		Amount:            p.Amount,
		ExternalPaymentID: p.ExternalPaymentID,
	}
	for _, it := range items {
		v.Items = append(v.Items, PaymentItemView{OrderItemID: it.OrderItemID, PriceAtPayment: it.PriceAtPayment})
	}
	return v
}
