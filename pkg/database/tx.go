package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// Querier is the subset of sqlx shared by *sqlx.DB and *sqlx.Tx
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// WithTx runs fn inside a transaction carried by the context.
// Repositories pick it up through Conn, so several repository calls
// can share one unit of work without passing *sqlx.Tx around.
//
// Usage in services:
//
//	err := s.db.WithTx(ctx, func(ctx context.Context) error {
//	    if err := s.tables.Drop(ctx, name); err != nil { return err }
//	    return s.employees.Delete(ctx, id)
//	})
//
// A nested WithTx joins the outer transaction.
func (db *DB) WithTx(ctx context.Context, fn func(context.Context) error) error {
	if db.getTx(ctx) != nil {
		return fn(ctx)
	}
	return db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Conn returns the transaction bound to ctx, or the pool when there is none
func (db *DB) Conn(ctx context.Context) Querier {
	if tx := db.getTx(ctx); tx != nil {
		return tx
	}
	return db.DB
}

// InTx reports whether ctx carries a transaction
func (db *DB) InTx(ctx context.Context) bool {
	return db.getTx(ctx) != nil
}

// AdvisoryXactLock takes a transaction-scoped advisory lock. It must run
// inside WithTx; the lock is released on commit or rollback.
func (db *DB) AdvisoryXactLock(ctx context.Context, key int64) error {
	tx := db.getTx(ctx)
	if tx == nil {
		return fmt.Errorf("advisory lock %d requires a transaction", key)
	}
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", key); err != nil {
		return fmt.Errorf("failed to acquire advisory lock %d: %w", key, err)
	}
	return nil
}

// getTx extracts transaction from context if present
func (db *DB) getTx(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}
