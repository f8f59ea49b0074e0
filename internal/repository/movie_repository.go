package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/StenSOn27/online-cinema-api/internal/model"
)

// MovieRepo provides catalog reads plus the moderator-only writes. The
// availability split used by the order path lives here because it is a pure
// catalog question: which of these movies exist and are licensed for a
// region.
type MovieRepo struct{ DB *sql.DB }

func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{DB: db} }

// List returns the catalog ordered by id.
func (r *MovieRepo) List(ctx context.Context, limit, offset int) ([]model.Movie, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, uuid, name, year, description, price, created_at FROM movies ORDER BY id LIMIT ? OFFSET ?",
		limit, offset)
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

// GetByID fetches a single movie.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (model.Movie, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT id, uuid, name, year, description, price, created_at FROM movies WHERE id=? LIMIT 1", id)
	m, err := scanMovieRow(row)
	if err == sql.ErrNoRows {
		return model.Movie{}, model.ErrMovieNotFound
	}
	return m, err
}

// Create inserts a catalog entry and populates the generated id.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	if m.UUID == uuid.Nil {
		m.UUID = uuid.New()
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO movies (uuid, name, year, description, price) VALUES (?,?,?,?,?)",
		m.UUID.String(), m.Name, m.Year, m.Description, m.Price)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// UpdatePrice changes the current catalog price. Historical orders are
// unaffected: they carry price snapshots.
func (r *MovieRepo) UpdatePrice(ctx context.Context, id uint64, price decimal.Decimal) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE movies SET price=? WHERE id=?", price, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrMovieNotFound
	}
	return nil
}

// SetRegions replaces a movie's region licensing links.
func (r *MovieRepo) SetRegions(ctx context.Context, movieID uint64, regionIDs []uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, "DELETE FROM movie_regions WHERE movie_id=?", movieID); err != nil {
		return err
	}
	for _, rid := range regionIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO movie_regions (movie_id, region_id) VALUES (?,?)", movieID, rid); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SplitAvailableTx partitions the requested movie ids into (available,
// unavailable) for a region, against the transaction's snapshot. A movie is
// available when it exists and has a licensing link to a region with the
// given code; nonexistent ids land in unavailable rather than erroring.
// The two slices are disjoint and together cover the deduplicated request.
func (r *MovieRepo) SplitAvailableTx(ctx context.Context, q DBTX, movieIDs []uint64, regionCode string) (available, unavailable []uint64, err error) {
	ids := dedupeIDs(movieIDs)
	if len(ids) == 0 {
		return nil, nil, nil
	}
	query := `SELECT DISTINCT m.id
		FROM movies m
		JOIN movie_regions mr ON mr.movie_id = m.id
		JOIN regions r ON r.id = mr.region_id
		WHERE r.code = ? AND m.id IN (` + placeholders(len(ids)) + `)`
	args := make([]any, 0, len(ids)+1)
	args = append(args, regionCode)
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	found := make(map[uint64]struct{}, len(ids))
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, nil, err
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	available, unavailable = partitionIDs(ids, found)
	return available, unavailable, nil
}

// PricesTx returns (id, current price) pairs for the given movies in request
// order, read through the transaction so the snapshot matches the order
// being assembled.
func (r *MovieRepo) PricesTx(ctx context.Context, q DBTX, movieIDs []uint64) ([]model.Movie, error) {
	ids := dedupeIDs(movieIDs)
	if len(ids) == 0 {
		return nil, nil
	}
	query := "SELECT id, name, price FROM movies WHERE id IN (" + placeholders(len(ids)) + ")"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byID := make(map[uint64]model.Movie, len(ids))
	for rows.Next() {
		var m model.Movie
		if err := rows.Scan(&m.ID, &m.Name, &m.Price); err != nil {
			return nil, err
		}
		byID[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]model.Movie, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// dedupeIDs drops zero and duplicate ids while preserving first-seen order.
func dedupeIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// partitionIDs splits requested into ids present in found and the rest,
// preserving request order in both halves.
func partitionIDs(requested []uint64, found map[uint64]struct{}) (in, out []uint64) {
	for _, id := range requested {
		if _, ok := found[id]; ok {
			in = append(in, id)
		} else {
			out = append(out, id)
		}
	}
	return in, out
}

// placeholders returns "?,?,...,?" with n slots.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

type rowScanner interface{ Scan(dest ...any) error }

func scanMovie(rs rowScanner) (model.Movie, error) {
	var (
		m   model.Movie
		uid string
	)
	err := rs.Scan(&m.ID, &uid, &m.Name, &m.Year, &m.Description, &m.Price, &m.CreatedAt)
	if err != nil {
		return model.Movie{}, err
	}
	if parsed, perr := uuid.Parse(uid); perr == nil {
		m.UUID = parsed
	}
	return m, nil
}

func scanMovieRow(row *sql.Row) (model.Movie, error) { return scanMovie(row) }
