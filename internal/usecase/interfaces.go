package usecase

import (
	"context"
	"time"

	"github.com/iho/cashledger/internal/domain"
)

// EntryRepository defines data access for the ledger entry log.
//
// Methods taking a Transaction run inside the single writer transaction; the
// others are plain reads and never block on the writer lock.
type EntryRepository interface {
	// LockTail takes the writer lock and returns the snapshot of the last
	// entry, or zero balances when the log is empty.
	LockTail(ctx context.Context, tx Transaction) (domain.Balances, error)
	// Append stores the entry and assigns its ID.
	Append(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error
	GetByIDTx(ctx context.Context, tx Transaction, id int64) (*domain.LedgerEntry, error)
	// PreviousTx returns the entry with the greatest ID below id, or nil.
	PreviousTx(ctx context.Context, tx Transaction, id int64) (*domain.LedgerEntry, error)
	// LatestByReceiptTx returns the most recent entry of the category for the
	// receipt, or domain.ErrEntryNotFound.
	LatestByReceiptTx(ctx context.Context, tx Transaction, receiptID string, category domain.Category) (*domain.LedgerEntry, error)
	// IsReferencedTx reports whether any entry points at id via RelatedEntryID.
	IsReferencedTx(ctx context.Context, tx Transaction, id int64) (bool, error)
	Delete(ctx context.Context, tx Transaction, id int64) error
	// ShiftAfter subtracts delta from the snapshot of every entry after id
	// and returns the number of shifted entries.
	ShiftAfter(ctx context.Context, tx Transaction, id int64, delta domain.Balances) (int64, error)

	GetByID(ctx context.Context, id int64) (*domain.LedgerEntry, error)
	// Last returns the tail entry, or nil when the log is empty.
	Last(ctx context.Context) (*domain.LedgerEntry, error)
	// List returns entries matching the filter, newest first.
	List(ctx context.Context, filter domain.EntryFilter) ([]*domain.LedgerEntry, error)
	// ListByReceipt returns the receipt's entries, oldest first.
	ListByReceipt(ctx context.Context, receiptID string) ([]*domain.LedgerEntry, error)
	// ListByExecutor returns the executor's entries executed within [from, to].
	ListByExecutor(ctx context.Context, executorName string, from, to time.Time) ([]*domain.LedgerEntry, error)
	// ListAll returns the whole log, oldest first.
	ListAll(ctx context.Context) ([]*domain.LedgerEntry, error)
}

// SettingsRepository defines data access for register settings.
type SettingsRepository interface {
	// Get returns the stored settings or domain.DefaultSettings when none
	// were saved yet.
	Get(ctx context.Context) (domain.Settings, error)
	Save(ctx context.Context, tx Transaction, settings domain.Settings) error
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error)
}

// Transaction is a unit of work handed back to repository methods.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager opens transactions. The first write inside one takes
// the ledger writer lock.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient write conflicts.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator mints IDs for outbox events and audit rows.
type IDGenerator interface {
	Generate() string
}

// Cache is a byte cache with expiry. A miss is reported as an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore keeps the outcome of requests sent with an
// Idempotency-Key.
type IdempotencyStore interface {
	// CheckAndSet claims key with the value claim. When the key is already
	// held it reports true and returns the held value instead.
	CheckAndSet(ctx context.Context, key string, claim []byte, ttl time.Duration) (bool, []byte, error)
	// Update replaces the claim with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claimed key so the request can be retried.
	Release(ctx context.Context, key string) error
}
