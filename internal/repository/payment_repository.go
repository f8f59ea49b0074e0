package repository

import (
	"context"
	"database/sql"

	"github.com/StenSOn27/online-cinema-api/internal/model"
)

// PaymentRepo persists payments and their item mirrors. payments.order_id is
// UNIQUE: it is the authoritative guard against two settlement callbacks for
// one order producing two payment rows.
type PaymentRepo struct{ DB *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{DB: db} }

// BeginTx opens the settlement transaction.
func (r *PaymentRepo) BeginTx(ctx context.Context) (Tx, error) {
	return r.DB.BeginTx(ctx, nil)
}

// CreateTx inserts the payment row. A duplicate on order_id means another
// settlement already recorded this order and surfaces as
// model.ErrPaymentExists; the caller rolls back and re-reads the winner.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx Tx, p *model.Payment) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO payments (user_id, order_id, status, amount, external_payment_id) VALUES (?,?,?,?,?)",
		p.UserID, p.OrderID, p.Status, p.Amount, p.ExternalPaymentID)
	if err != nil {
		if isDuplicateKey(err) {
			return model.ErrPaymentExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return tx.QueryRowContext(ctx,
		"SELECT created_at FROM payments WHERE id=?", p.ID).Scan(&p.CreatedAt)
}

// InsertItemsTx inserts the payment's item mirrors.
func (r *PaymentRepo) InsertItemsTx(ctx context.Context, tx Tx, items []model.PaymentItem) error {
	for i := range items {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO payment_items (payment_id, order_item_id, price_at_payment) VALUES (?,?,?)",
			items[i].PaymentID, items[i].OrderItemID, items[i].PriceAtPayment)
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

// GetByOrderID fetches the payment recorded for an order, if any.
func (r *PaymentRepo) GetByOrderID(ctx context.Context, orderID uint64) (model.Payment, error) {
	var p model.Payment
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, order_id, status, amount, external_payment_id, created_at FROM payments WHERE order_id=? LIMIT 1",
		orderID).Scan(&p.ID, &p.UserID, &p.OrderID, &p.Status, &p.Amount, &p.ExternalPaymentID, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Payment{}, sql.ErrNoRows
	}
	return p, err
}

// ListItems returns the payment's item mirrors.
func (r *PaymentRepo) ListItems(ctx context.Context, paymentID uint64) ([]model.PaymentItem, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, payment_id, order_item_id, price_at_payment FROM payment_items WHERE payment_id=? ORDER BY id",
		paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.PaymentItem
	for rows.Next() {
		var it model.PaymentItem
		if err := rows.Scan(&it.ID, &it.PaymentID, &it.OrderItemID, &it.PriceAtPayment); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListByUser returns the user's payments, newest first.
func (r *PaymentRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Payment, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, user_id, order_id, status, amount, external_payment_id, created_at FROM payments WHERE user_id=? ORDER BY created_at DESC, id DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.UserID, &p.OrderID, &p.Status, &p.Amount, &p.ExternalPaymentID, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
