package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// WithinTransaction runs fn inside a transaction carried by the context.
// Repository calls made with the returned context use that transaction.
// A context that already carries one is reused, so nested calls join the
// outer transaction and only the outermost call commits. An error or a
// panic from fn rolls back.
//
// Usage in services:
//
//	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
//	    item, err := s.items.GetForUpdate(ctx, id)
//	    ...
//	})
func (db *DB) WithinTransaction(ctx context.Context, fn func(context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	committed = true
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// TxFromContext extracts the transaction from context if present
func TxFromContext(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}

// Ext returns the transaction stored in ctx, or the pool when there is none
func (db *DB) Ext(ctx context.Context) sqlx.ExtContext {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return db.DB
}
