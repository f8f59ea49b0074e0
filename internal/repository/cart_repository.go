package repository

import (
	"context"
	"database/sql"

	"github.com/StenSOn27/online-cinema-api/internal/model"
)

// CartRepo manages the one-cart-per-user shopping cart. The users.id unique
// key on carts plus uq_cart_movie on cart_items keep the structure free of
// duplicates regardless of request interleaving.
type CartRepo struct{ DB *sql.DB }

func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{DB: db} }

// GetOrCreate returns the user's cart, creating it on first use. A
// concurrent create losing the unique race falls back to re-reading the
// winner's row.
func (r *CartRepo) GetOrCreate(ctx context.Context, userID uint64) (model.Cart, error) {
	cart, err := r.getByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if err != sql.ErrNoRows {
		return model.Cart{}, err
	}
	res, err := r.DB.ExecContext(ctx, "INSERT INTO carts (user_id) VALUES (?)", userID)
	if err != nil {
		if isDuplicateKey(err) {
			return r.getByUser(ctx, userID)
		}
		return model.Cart{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Cart{}, err
	}
	return model.Cart{ID: uint64(id), UserID: userID}, nil
}

func (r *CartRepo) getByUser(ctx context.Context, userID uint64) (model.Cart, error) {
	var c model.Cart
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id FROM carts WHERE user_id=? LIMIT 1", userID).
		Scan(&c.ID, &c.UserID)
	return c, err
}

// AddItem puts a movie into the cart. Duplicate adds surface as
// model.ErrMovieInCart via the uq_cart_movie constraint.
func (r *CartRepo) AddItem(ctx context.Context, cartID, movieID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO cart_items (cart_id, movie_id) VALUES (?,?)", cartID, movieID)
	if err != nil && isDuplicateKey(err) {
		return model.ErrMovieInCart
	}
	return err
}

// RemoveItem deletes a movie from the user's cart. Removing an absent item
// is a no-op, matching DELETE semantics.
func (r *CartRepo) RemoveItem(ctx context.Context, cartID, movieID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM cart_items WHERE cart_id=? AND movie_id=?", cartID, movieID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Clear empties the cart.
func (r *CartRepo) Clear(ctx context.Context, cartID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id=?", cartID)
	return err
}

// ListMovies returns the movies currently in the user's cart.
func (r *CartRepo) ListMovies(ctx context.Context, userID uint64) ([]model.Movie, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT m.id, m.uuid, m.name, m.year, m.description, m.price, m.created_at
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		JOIN movies m ON m.id = ci.movie_id
		WHERE c.user_id = ?
		ORDER BY ci.added_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MovieIDsTx reads the distinct movie ids of the user's cart inside a
// transaction, locking the cart row with FOR UPDATE. The lock serializes
// concurrent order-creation calls for the same user, which is what prevents
// two PENDING orders being assembled from one cart at once.
func (r *CartRepo) MovieIDsTx(ctx context.Context, tx Tx, userID uint64) ([]uint64, error) {
	var cartID uint64
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM carts WHERE user_id=? FOR UPDATE", userID).Scan(&cartID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	rows, err := tx.QueryContext(ctx,
		"SELECT DISTINCT movie_id FROM cart_items WHERE cart_id=?", cartID)
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
