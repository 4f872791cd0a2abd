package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/club-authz/repositories"
)

// TxFunc is the unit of work run by WithTransaction. Repositories used inside it
// must be bound with WithTx(tx).
type TxFunc func(ctx context.Context, tx repositories.Transaction) error

// WithTransaction runs fn in a transaction, committing when it returns nil and
// rolling back otherwise. A panic in fn rolls back and is re-raised.
func WithTransaction(ctx context.Context, txMgr repositories.TransactionManager, fn TxFunc) error {
	_, err := WithTransactionResult(ctx, txMgr, func(ctx context.Context, tx repositories.Transaction) (struct{}, error) {
		return struct{}{}, fn(ctx, tx)
	})
	return err
}

// WithTransactionResult is WithTransaction for units of work that produce a value.
// The zero value is returned whenever the transaction does not commit.
func WithTransactionResult[T any](ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) (T, error)) (T, error) {
	var zero T

	tx, err := txMgr.Begin(ctx)
	if err != nil {
		return zero, fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	result, err := fn(ctx, tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return zero, errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return zero, err
	}

	if err := tx.Commit(); err != nil {
		return zero, fmt.Errorf("commit transaction: %w", err)
	}
	return result, nil
}
