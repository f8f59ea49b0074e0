package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx. Repository read
// helpers that must observe a transaction's snapshot take a DBTX instead of
// reaching for the pool.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is the transaction handle passed through multi-step write sequences.
// *sql.Tx satisfies it; tests substitute mocks.
type Tx interface {
	DBTX
	Commit() error
	Rollback() error
}

const mysqlDupEntry = 1062

// isDuplicateKey reports whether err is a MySQL duplicate-key violation.
// Unique constraints are the designed backstop for the settlement races, so
// callers translate this into a conflict sentinel rather than failing.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDupEntry
}
