package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/StenSOn27/online-cinema-api/internal/model"
)

// OrderRepo provides CRUD operations for orders and their line items. Orders
// are created in PENDING inside a transaction owned by the service layer and
// move to PAID or CANCELED only through the conditional updates below, so a
// terminal order can never be resurrected.
type OrderRepo struct{ DB *sql.DB }

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{DB: db} }

// BeginTx opens a transaction for a multi-step write sequence. The caller
// must commit or roll back.
func (r *OrderRepo) BeginTx(ctx context.Context) (Tx, error) {
	return r.DB.BeginTx(ctx, nil)
}

// CreateTx inserts a PENDING order with no total and populates the generated
// id and creation timestamp on the record.
func (r *OrderRepo) CreateTx(ctx context.Context, tx Tx, o *model.Order) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO orders (user_id, status) VALUES (?, ?)", o.UserID, model.OrderPending)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	o.Status = model.OrderPending
	return tx.QueryRowContext(ctx,
		"SELECT created_at FROM orders WHERE id=?", o.ID).Scan(&o.CreatedAt)
}

// InsertItemsTx inserts the order's line items with their frozen prices.
func (r *OrderRepo) InsertItemsTx(ctx context.Context, tx Tx, items []model.OrderItem) error {
	for i := range items {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, movie_id, price_at_order) VALUES (?,?,?)",
			items[i].OrderID, items[i].MovieID, items[i].PriceAtOrder)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		items[i].ID = uint64(id)
	}
	return nil
}

// SetTotalTx freezes the order total. Called exactly once, inside the
// creation transaction, after the items are inserted.
func (r *OrderRepo) SetTotalTx(ctx context.Context, tx Tx, orderID uint64, total decimal.Decimal) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE orders SET total_amount=? WHERE id=?", total, orderID)
	return err
}

// MovieIDsByStatusTx returns the distinct movie ids appearing in the user's
// orders of the given status, read through the transaction's snapshot.
func (r *OrderRepo) MovieIDsByStatusTx(ctx context.Context, q DBTX, userID uint64, status model.OrderStatus) ([]uint64, error) {
	rows, err := q.QueryContext(ctx, `SELECT DISTINCT oi.movie_id
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.user_id = ? AND o.status = ?`, userID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetWithItems loads an order and its items (movie names joined in).
func (r *OrderRepo) GetWithItems(ctx context.Context, orderID uint64) (model.Order, []model.OrderItem, error) {
	var o model.Order
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, status, total_amount, created_at FROM orders WHERE id=? LIMIT 1",
		orderID).Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Order{}, nil, model.ErrOrderNotFound
		}
		return model.Order{}, nil, err
	}
	items, err := r.itemsByOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, nil, err
	}
	return o, items, nil
}

// GetByUser loads an order scoped to its owner. Orders of other users are
// reported as not found.
func (r *OrderRepo) GetByUser(ctx context.Context, orderID, userID uint64) (model.Order, error) {
	var o model.Order
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, status, total_amount, created_at FROM orders WHERE id=? AND user_id=? LIMIT 1",
		orderID, userID).Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Order{}, model.ErrOrderNotFound
	}
	return o, err
}

// ListByUser returns the user's orders, newest first, with items attached.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Order, map[uint64][]model.OrderItem, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, user_id, status, total_amount, created_at FROM orders WHERE user_id=? ORDER BY created_at DESC, id DESC",
		userID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.CreatedAt); err != nil {
			return nil, nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	itemsByOrder := make(map[uint64][]model.OrderItem, len(orders))
	for _, o := range orders {
		items, err := r.itemsByOrder(ctx, o.ID)
		if err != nil {
			return nil, nil, err
		}
		itemsByOrder[o.ID] = items
	}
	return orders, itemsByOrder, nil
}

func (r *OrderRepo) itemsByOrder(ctx context.Context, orderID uint64) ([]model.OrderItem, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT oi.id, oi.order_id, oi.movie_id, oi.price_at_order, m.name
		FROM order_items oi
		JOIN movies m ON m.id = oi.movie_id
		WHERE oi.order_id = ?
		ORDER BY oi.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MovieID, &it.PriceAtOrder, &it.MovieName); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// MarkPaidTx transitions PENDING -> PAID. The status predicate makes the
// transition atomic: it reports false when a concurrent cancel or settle got
// there first, and the caller must roll back.
func (r *OrderRepo) MarkPaidTx(ctx context.Context, tx Tx, orderID uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status=? WHERE id=? AND status=?",
		model.OrderPaid, orderID, model.OrderPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CancelPending transitions PENDING -> CANCELED with the same atomic
// conditional shape as MarkPaidTx.
func (r *OrderRepo) CancelPending(ctx context.Context, orderID uint64) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE orders SET status=? WHERE id=? AND status=?",
		model.OrderCanceled, orderID, model.OrderPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
