package dbx

import (
	"context"
	"database/sql"
	"sync"
)

// SQLTransactor runs units of work in database transactions.
type SQLTransactor struct {
	db   *sql.DB
	opts *sql.TxOptions
}

func NewSQLTransactor(db *sql.DB, opts *sql.TxOptions) *SQLTransactor {
	return &SQLTransactor{db: db, opts: opts}
}

func (t *SQLTransactor) Conn() DBTX { return t.db }

func (t *SQLTransactor) WithTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	return WithTx(ctx, t.db, t.opts, fn)
}

// LockTransactor serializes units of work with a mutex. It backs the
// in-memory store, where there is no database to provide isolation.
// Work is not rolled back on error; memory repositories validate before
// mutating.
type LockTransactor struct {
	mu sync.Mutex
}

func NewLockTransactor() *LockTransactor { return &LockTransactor{} }

func (t *LockTransactor) Conn() DBTX { return nil }

func (t *LockTransactor) WithTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx, nil)
}
