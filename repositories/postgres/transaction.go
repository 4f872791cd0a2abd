package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/club-authz/repositories"
	"go.uber.org/zap"
)

type txKey struct{}

// Executor is satisfied by both *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TransactionManager opens transactions on the pool. Ledger, catalog and user
// mutations each run in one transaction together with their audit-relevant reads.
type TransactionManager struct {
	db     *DB
	logger *zap.Logger
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(db *DB, logger *zap.Logger) repositories.TransactionManager {
	return &TransactionManager{db: db, logger: logger}
}

// Begin opens a transaction. The returned context carries it, so repositories
// that were not bound with WithTx still join it.
func (tm *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	sqlTx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}

	tx := &Transaction{
		tx:      sqlTx,
		id:      uuid.NewString(),
		started: time.Now(),
	}
	tx.logger = tm.logger.With(zap.String("tx_id", tx.id))
	tx.ctx = context.WithValue(ctx, txKey{}, tx)
	tx.logger.Debug("transaction started")
	return tx, nil
}

// InTransaction runs fn inside a new transaction and commits when it returns nil
func (tm *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	tx, err := tm.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx.Context(), tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			tm.logger.Error("rollback failed", zap.Error(rbErr), zap.NamedError("cause", err))
		}
		return err
	}
	return tx.Commit()
}

// Transaction wraps *sql.Tx with logging keyed by a per-transaction id
type Transaction struct {
	tx      *sql.Tx
	ctx     context.Context
	id      string
	started time.Time
	logger  *zap.Logger
}

// Commit commits the transaction
func (t *Transaction) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	t.logger.Debug("transaction committed", zap.Duration("elapsed", time.Since(t.started)))
	return nil
}

// Rollback rolls back the transaction. Rolling back a finished transaction is a no-op.
func (t *Transaction) Rollback() error {
	err := t.tx.Rollback()
	switch {
	case errors.Is(err, sql.ErrTxDone):
		return nil
	case err != nil:
		return fmt.Errorf("rollback: %w", err)
	}
	t.logger.Debug("transaction rolled back", zap.Duration("elapsed", time.Since(t.started)))
	return nil
}

// Context returns the context the transaction was begun with, carrying the transaction
func (t *Transaction) Context() context.Context {
	return t.ctx
}

// executorFor picks the repository-bound transaction, then one carried by ctx, then the pool
func executorFor(ctx context.Context, db *DB, bound *Transaction) Executor {
	if bound != nil {
		return bound.tx
	}
	if tx, ok := ctx.Value(txKey{}).(*Transaction); ok {
		return tx.tx
	}
	return db.DB
}

// boundTx unwraps a repositories.Transaction created by this package
func boundTx(tx repositories.Transaction) *Transaction {
	pgTx, _ := tx.(*Transaction)
	return pgTx
}
