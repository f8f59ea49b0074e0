// Package repository implements MySQL persistence for the storefront. Each
// repository is a thin struct over *sql.DB; write sequences that must be
// atomic expose ...Tx methods taking a Tx so the caller controls the commit
// boundary. Domain-level failures are reported with the sentinel errors from
// the model package so handlers can map them to HTTP responses.
package repository

import "errors"

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state, such as a concurrent writer winning a uniqueness
// constraint. Handlers translate this into a 409.
var ErrConflict = errors.New("conflict")
