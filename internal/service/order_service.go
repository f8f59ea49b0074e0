package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/StenSOn27/online-cinema-api/internal/model"
)

// OrderService assembles orders from carts and guards their lifecycle.
type OrderService interface {
	CreateFromCart(ctx context.Context, user model.User) (OrderCreateResult, error)
	Cancel(ctx context.Context, orderID, userID uint64) error
	List(ctx context.Context, userID uint64) ([]OrderView, error)
}

// OrderCreateResult is the outcome of an order-creation attempt. Created is
// false for the non-error "nothing available" outcome, in which case only
// UnavailableMovieIDs and Message are populated.
type OrderCreateResult struct {
	Created             bool            `json:"order_created"`
	OrderID             uint64          `json:"order_id,omitempty"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	UnavailableMovieIDs []uint64        `json:"unavailable_movie_ids,omitempty"`
	ExcludedMovieIDs    []uint64        `json:"excluded_movie_ids,omitempty"`
	Message             string          `json:"message"`
}

// OrderView is one order with its line items, for listing.
type OrderView struct {
	ID          uint64              `json:"id"`
	Status      model.OrderStatus   `json:"status"`
	TotalAmount decimal.NullDecimal `json:"total_amount"`
	CreatedAt   time.Time           `json:"created_at"`
	Items       []OrderItemView     `json:"items"`
}

// OrderItemView is one line item of an order.
type OrderItemView struct {
	ID           uint64          `json:"id"`
	MovieID      uint64          `json:"movie_id"`
	MovieName    string          `json:"movie_name"`
	PriceAtOrder decimal.Decimal `json:"price_at_order"`
}

type orderService struct {
	carts  CartStore
	movies CatalogStore
	orders OrderStore
	logger zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(carts CartStore, movies CatalogStore, orders OrderStore, logger zerolog.Logger) OrderService {
	return &orderService{
		carts:  carts,
		movies: movies,
		orders: orders,
		logger: logger.With().Str("service", "order").Logger(),
	}
}

// CreateFromCart builds a PENDING order from the user's cart. The whole
// sequence runs in one transaction: the cart row is locked first, so two
// concurrent calls for the same user cannot both assemble an order, and the
// filtering reads and the price snapshot observe one consistent state.
//
// Filtering chain: empty cart -> already purchased (PAID orders) ->
// region availability -> already pending (PENDING orders). Emptying the set
// at the availability step is a normal outcome, not a fault.
func (s *orderService) CreateFromCart(ctx context.Context, user model.User) (OrderCreateResult, error) {
	tx, err := s.orders.BeginTx(ctx)
	if err != nil {
		return OrderCreateResult{}, fmt.Errorf("begin order transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	cartIDs, err := s.carts.MovieIDsTx(ctx, tx, user.ID)
	if err != nil {
		return OrderCreateResult{}, fmt.Errorf("read cart: %w", err)
	}
	if len(cartIDs) == 0 {
		return OrderCreateResult{}, model.ErrEmptyCart
	}

	purchased, err := s.orders.MovieIDsByStatusTx(ctx, tx, user.ID, model.OrderPaid)
	if err != nil {
		return OrderCreateResult{}, fmt.Errorf("read purchased movies: %w", err)
	}
	toCheck := subtractIDs(cartIDs, purchased)
	if len(toCheck) == 0 {
		return OrderCreateResult{}, model.ErrAlreadyPurchased
	}

	available, unavailable, err := s.movies.SplitAvailableTx(ctx, tx, toCheck, user.RegionCode)
	if err != nil {
		return OrderCreateResult{}, fmt.Errorf("resolve availability: %w", err)
	}
	if len(available) == 0 {
		return OrderCreateResult{
			Created:             false,
			UnavailableMovieIDs: unavailable,
			Message:             "All movies are unavailable or already purchased",
		}, nil
	}

	pending, err := s.orders.MovieIDsByStatusTx(ctx, tx, user.ID, model.OrderPending)
	if err != nil {
		return OrderCreateResult{}, fmt.Errorf("read pending movies: %w", err)
	}
	finalIDs := subtractIDs(available, pending)
	if len(finalIDs) == 0 {
		return OrderCreateResult{}, model.ErrAllPending
	}

	order := &model.Order{UserID: user.ID}
	if err := s.orders.CreateTx(ctx, tx, order); err != nil {
		return OrderCreateResult{}, fmt.Errorf("create order: %w", err)
	}

	priced, err := s.movies.PricesTx(ctx, tx, finalIDs)
	if err != nil {
		return OrderCreateResult{}, fmt.Errorf("read prices: %w", err)
	}

	total := decimal.Zero
	items := make([]model.OrderItem, 0, len(priced))
	for _, m := range priced {
		items = append(items, model.OrderItem{
			OrderID:      order.ID,
			MovieID:      m.ID,
			PriceAtOrder: m.Price,
		})
		total = total.Add(m.Price)
	}
	if err := s.orders.InsertItemsTx(ctx, tx, items); err != nil {
		return OrderCreateResult{}, fmt.Errorf("create order items: %w", err)
	}
	if err := s.orders.SetTotalTx(ctx, tx, order.ID, total); err != nil {
		return OrderCreateResult{}, fmt.Errorf("set order total: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return OrderCreateResult{}, fmt.Errorf("commit order: %w", err)
	}
	committed = true

	excluded := subtractIDs(cartIDs, finalIDs)
	msg := "All movies included."
	if len(finalIDs) < len(cartIDs) {
		msg = "Some movies were excluded (unavailable, already purchased or already in a pending order)."
	}
	s.logger.Info().
		Uint64("order_id", order.ID).
		Uint64("user_id", user.ID).
		Str("total_amount", total.String()).
		Int("item_count", len(items)).
		Msg("order created")

	return OrderCreateResult{
		Created:             true,
		OrderID:             order.ID,
		TotalAmount:         total,
		UnavailableMovieIDs: unavailable,
		ExcludedMovieIDs:    excluded,
		Message:             msg,
	}, nil
}

// Cancel transitions the caller's PENDING order to CANCELED. Terminal states
// are rejected; the transition itself is an atomic conditional update, so a
// settle racing this cancel can never be overwritten.
func (s *orderService) Cancel(ctx context.Context, orderID, userID uint64) error {
	order, err := s.orders.GetByUser(ctx, orderID, userID)
	if err != nil {
		return err
	}
	switch order.Status {
	case model.OrderPaid:
		return model.ErrOrderPaid
	case model.OrderCanceled:
		return model.ErrOrderCanceled
	}

	ok, err := s.orders.CancelPending(ctx, orderID)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	if !ok {
		// Lost a race with a concurrent transition; report what won.
		order, err = s.orders.GetByUser(ctx, orderID, userID)
		if err != nil {
			return err
		}
		if order.Status == model.OrderPaid {
			return model.ErrOrderPaid
		}
		return model.ErrOrderCanceled
	}
	s.logger.Info().Uint64("order_id", orderID).Uint64("user_id", userID).Msg("order canceled")
	return nil
}

// List returns the caller's orders with items, newest first.
func (s *orderService) List(ctx context.Context, userID uint64) ([]OrderView, error) {
	orders, itemsByOrder, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		v := OrderView{
			ID:          o.ID,
			Status:      o.Status,
			TotalAmount: o.TotalAmount,
			CreatedAt:   o.CreatedAt,
		}
		for _, it := range itemsByOrder[o.ID] {
			v.Items = append(v.Items, OrderItemView{
				ID:           it.ID,
				MovieID:      it.MovieID,
				MovieName:    it.MovieName,
				PriceAtOrder: it.PriceAtOrder,
			})
		}
		views = append(views, v)
	}
	return views, nil
}
