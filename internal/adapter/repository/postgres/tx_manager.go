package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/cashledger/internal/infrastructure/postgres/generated"
	"github.com/iho/cashledger/internal/usecase"
)

// ledgerLockKey is the advisory lock that serializes ledger writers.
const ledgerLockKey int64 = 0x6361736865646772

var errForeignTx = errors.New("postgres: transaction was not started by this package")

type pgxPool interface {
	Begin(context.Context) (pgx.Tx, error)
}

// TxManager implements usecase.TransactionManager. Writers queue on one
// advisory lock; with a lock timeout set, a writer that waits too long fails
// with lock_not_available and is replayed by the retrier.
type TxManager struct {
	pool        pgxPool
	lockTimeout time.Duration
}

func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return newTxManagerWithPool(pool)
}

func newTxManagerWithPool(pool pgxPool) *TxManager {
	return &TxManager{pool: pool}
}

// WithLockTimeout bounds how long a writer waits for the ledger lock.
// Zero waits forever.
func (m *TxManager) WithLockTimeout(d time.Duration) *TxManager {
	m.lockTimeout = d
	return m
}

func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx, lockTimeout: m.lockTimeout}, nil
}

// Tx is a ledger transaction. The writer lock is taken lazily by the first
// write, so read-only transactions never queue behind writers.
type Tx struct {
	tx          pgx.Tx
	lockTimeout time.Duration
	locked      bool
	committed   bool
}

func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return err
	}
	t.committed = true
	return nil
}

// Rollback is a no-op on a finished transaction.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.committed {
		return nil
	}
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

func (t *Tx) lockLedger(ctx context.Context, q *generated.Queries) error {
	if t.locked {
		return nil
	}
	if t.lockTimeout > 0 {
		if err := q.SetLockTimeout(ctx, fmt.Sprintf("%dms", t.lockTimeout.Milliseconds())); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}
	if err := q.LockLedger(ctx, ledgerLockKey); err != nil {
		return fmt.Errorf("lock ledger: %w", err)
	}
	t.locked = true
	return nil
}

func unwrapTx(tx usecase.Transaction) (*Tx, *generated.Queries, error) {
	t, ok := tx.(*Tx)
	if !ok {
		return nil, nil, errForeignTx
	}
	return t, generated.New(t.tx), nil
}
