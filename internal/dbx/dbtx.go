// Package dbx holds the storage handles tgotp repositories run against.
//
// Repositories accept a DBTX, so the same code serves a pooled connection
// and a transaction. Services never open transactions themselves; they ask
// a Transactor for a unit of work, which keeps the transfer import (lock the
// token, consume it, lock the importer, append the copied accounts) atomic
// on Postgres and serialized on the in-memory store.
package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Transactor hands out storage handles. Conn is the non-transactional handle;
// WithTx runs fn as one atomic unit of work.
//
// The handle may be nil for backends that do not speak SQL (the in-memory
// store); repository managers know how to interpret it.
type Transactor interface {
	Conn() DBTX
	WithTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

// WithTx runs fn inside a transaction on db. It commits when fn returns nil
// and rolls back otherwise; a panic in fn rolls back and is re-raised.
// Errors from fn are returned unwrapped so callers can match sentinels such
// as common.ErrTokenNotFound. A failed rollback is joined to fn's error.
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    tokens := rm.ExportTokens(tx)
//	    t, err := tokens.FindForUpdate(ctx, token)
//	    if err != nil {
//	        return err
//	    }
//	    _, err = tokens.DeleteLive(ctx, t.Token, now)
//	    return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback tx: %w", rbErr))
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("commit tx: %w", cErr)
		}
	}()

	return fn(ctx, tx)
}
