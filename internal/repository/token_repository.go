package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/StenSOn27/online-cinema-api/internal/model"
)

// TokenRepo persists/validates refresh tokens (single 'token_hash' column).
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	return err
}

// ValidateRefresh returns userID if a non-revoked, non-expired token exists.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		return 0, err
	}
	if revokedAt.Valid {
		return 0, sql.ErrNoRows
	}
	if time.Now().UTC().After(expiresAt) {
		return 0, sql.ErrNoRows
	}
	return userID, nil
}

// RevokeByHash marks a token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAllForUser revokes all user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

// Account token purposes. Activation and password-reset tokens share the
// account_tokens table; only their purpose differs.
const (
	TokenActivation    = "ACTIVATION"
	TokenPasswordReset = "PASSWORD_RESET"
)

// StoreAccountToken inserts a one-time account token hash (activation or
// password reset).
func (r *TokenRepo) StoreAccountToken(ctx context.Context, userID uint64, purpose, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO account_tokens (user_id, purpose, token_hash, expires_at) VALUES (?,?,?,?)",
		userID, purpose, tokenHash, exp)
	return err
}

// ConsumeAccountToken atomically marks a live account token as used and
// returns its owner. The conditional UPDATE makes double consumption under
// concurrent requests impossible: only one caller sees an affected row.
func (r *TokenRepo) ConsumeAccountToken(ctx context.Context, purpose, tokenHash string) (uint64, error) {
	var (
		id     uint64
		userID uint64
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id FROM account_tokens WHERE token_hash=? AND purpose=? AND used_at IS NULL AND expires_at > NOW() LIMIT 1",
		tokenHash, purpose).Scan(&id, &userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, model.ErrTokenInvalid
		}
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE account_tokens SET used_at=NOW() WHERE id=? AND used_at IS NULL", id)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, model.ErrTokenInvalid
	}
	return userID, nil
}
