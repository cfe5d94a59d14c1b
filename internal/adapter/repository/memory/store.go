// Package memory is an in-process ledger store. A transaction works on a
// private copy of the committed state and holds the writer lock until it is
// committed or rolled back.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/usecase"
)

// ErrTxDone is returned when a finished transaction is used.
var ErrTxDone = errors.New("memory: transaction already committed or rolled back")

type state struct {
	entries  []*domain.LedgerEntry // ascending by ID
	nextID   int64
	settings *domain.Settings
}

func (s *state) clone() *state {
	c := &state{
		entries: make([]*domain.LedgerEntry, len(s.entries)),
		nextID:  s.nextID,
	}
	copy(c.entries, s.entries)
	if s.settings != nil {
		settings := *s.settings
		c.settings = &settings
	}
	return c
}

// Store holds the committed ledger state.
type Store struct {
	writer sync.Mutex

	mu     sync.RWMutex
	state  *state
	outbox []*domain.OutboxEvent
	audit  []*domain.AuditLog
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{state: &state{nextID: 1}}
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// snapshot returns the committed state for readers. The returned state must
// not be modified.
func (s *Store) snapshot() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin takes the writer lock and starts a transaction on a copy of the
// committed state.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.store.writer.Lock()
	return &Tx{store: m.store, state: m.store.snapshot().clone()}, nil
}

// Tx is a memory transaction.
type Tx struct {
	store  *Store
	state  *state
	outbox []*domain.OutboxEvent
	audit  []*domain.AuditLog
	done   bool
}

// Commit publishes the transaction's state and releases the writer lock.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.done = true

	t.store.mu.Lock()
	t.store.state = t.state
	t.store.outbox = append(t.store.outbox, t.outbox...)
	t.store.audit = append(t.store.audit, t.audit...)
	t.store.mu.Unlock()

	t.store.writer.Unlock()
	return nil
}

// Rollback discards the transaction. It is a no-op after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.writer.Unlock()
	return nil
}

func txState(tx usecase.Transaction) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok {
		return nil, errors.New("memory: foreign transaction")
	}
	if t.done {
		return nil, ErrTxDone
	}
	return t, nil
}

func cloneEntry(e *domain.LedgerEntry) *domain.LedgerEntry {
	c := *e
	return &c
}
