package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/infrastructure/postgres/generated"
	"github.com/iho/cashledger/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository. The ledger tail is
// guarded by a transaction-scoped advisory lock.
type EntryRepository struct {
	queries *generated.Queries
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db generated.DBTX) *EntryRepository {
	return &EntryRepository{
		queries: generated.New(db),
	}
}

// LockTail takes the writer lock and returns the current balances.
func (r *EntryRepository) LockTail(ctx context.Context, tx usecase.Transaction) (domain.Balances, error) {
	t, q, err := unwrapTx(tx)
	if err != nil {
		return domain.Balances{}, err
	}
	if err := t.lockLedger(ctx, q); err != nil {
		return domain.Balances{}, fmt.Errorf("acquire ledger lock: %w", err)
	}

	row, err := q.GetLastLedgerEntry(ctx)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Balances{Cash: decimal.Zero, Card: decimal.Zero}, nil
	}
	if err != nil {
		return domain.Balances{}, err
	}

	return rowToEntry(row).Snapshot(), nil
}

// Append inserts the entry and assigns its ID.
func (r *EntryRepository) Append(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	_, q, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	var reversed pgtype.Text
	if entry.ReversedCategory != nil {
		reversed = textFromString(string(*entry.ReversedCategory))
	}

	id, err := q.CreateLedgerEntry(ctx, generated.CreateLedgerEntryParams{
		CreatedAt:        timeToPgTimestamptz(entry.CreatedAt),
		ExecutedAt:       timeToPgTimestamptz(entry.ExecutedAt),
		Category:         string(entry.Category),
		Description:      entry.Description,
		Amount:           decimalToNumeric(entry.Amount),
		CashAfter:        decimalToNumeric(entry.CashAfter),
		CardAfter:        decimalToNumeric(entry.CardAfter),
		PaymentMethod:    string(entry.PaymentMethod),
		ExecutorID:       textFromPtr(entry.ExecutorID),
		ExecutorName:     textFromPtr(entry.ExecutorName),
		RelatedReceiptID: textFromPtr(entry.RelatedReceiptID),
		RelatedEntryID:   int8FromPtr(entry.RelatedEntryID),
		ReversedCategory: reversed,
		Labor:            decimalToNumeric(entry.Labor),
		PartsProfit:      decimalToNumeric(entry.PartsProfit),
	})
	if err != nil {
		return err
	}

	entry.ID = id
	return nil
}

// GetByIDTx retrieves an entry inside the transaction.
func (r *EntryRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, id int64) (*domain.LedgerEntry, error) {
	_, q, err := unwrapTx(tx)
	if err != nil {
		return nil, err
	}
	return getEntry(ctx, q, id)
}

// PreviousTx returns the entry right before id, or nil.
func (r *EntryRepository) PreviousTx(ctx context.Context, tx usecase.Transaction, id int64) (*domain.LedgerEntry, error) {
	_, q, err := unwrapTx(tx)
	if err != nil {
		return nil, err
	}

	row, err := q.GetPreviousLedgerEntry(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rowToEntry(row), nil
}

// LatestByReceiptTx returns the most recent entry of the category for the receipt.
func (r *EntryRepository) LatestByReceiptTx(ctx context.Context, tx usecase.Transaction, receiptID string, category domain.Category) (*domain.LedgerEntry, error) {
	_, q, err := unwrapTx(tx)
	if err != nil {
		return nil, err
	}

	row, err := q.GetLatestReceiptEntry(ctx, generated.GetLatestReceiptEntryParams{
		RelatedReceiptID: textFromString(receiptID),
		Category:         string(category),
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return rowToEntry(row), nil
}

// IsReferencedTx reports whether another entry points at id.
func (r *EntryRepository) IsReferencedTx(ctx context.Context, tx usecase.Transaction, id int64) (bool, error) {
	_, q, err := unwrapTx(tx)
	if err != nil {
		return false, err
	}
	return q.IsLedgerEntryReferenced(ctx, pgtype.Int8{Int64: id, Valid: true})
}

// Delete removes an entry.
func (r *EntryRepository) Delete(ctx context.Context, tx usecase.Transaction, id int64) error {
	_, q, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	n, err := q.DeleteLedgerEntry(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

// ShiftAfter subtracts delta from every snapshot after id.
func (r *EntryRepository) ShiftAfter(ctx context.Context, tx usecase.Transaction, id int64, delta domain.Balances) (int64, error) {
	_, q, err := unwrapTx(tx)
	if err != nil {
		return 0, err
	}

	return q.ShiftLedgerEntriesAfter(ctx, generated.ShiftLedgerEntriesAfterParams{
		CashDelta: decimalToNumeric(delta.Cash),
		CardDelta: decimalToNumeric(delta.Card),
		ID:        id,
	})
}

// GetByID retrieves an entry.
func (r *EntryRepository) GetByID(ctx context.Context, id int64) (*domain.LedgerEntry, error) {
	return getEntry(ctx, r.queries, id)
}

// Last returns the tail entry, or nil.
func (r *EntryRepository) Last(ctx context.Context) (*domain.LedgerEntry, error) {
	row, err := r.queries.GetLastLedgerEntry(ctx)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rowToEntry(row), nil
}

// List returns entries matching the filter, newest first.
func (r *EntryRepository) List(ctx context.Context, filter domain.EntryFilter) ([]*domain.LedgerEntry, error) {
	params := generated.ListLedgerEntriesParams{
		ExecutedFrom: optionalTimestamptz(filter.From),
		ExecutedTo:   optionalTimestamptz(filter.To),
		RowLimit:     int32(filter.Limit),
		RowOffset:    int32(filter.Offset),
	}
	if filter.Category != nil {
		params.Category = textFromString(string(*filter.Category))
	}
	if filter.PaymentMethod != nil {
		params.PaymentMethod = textFromString(string(*filter.PaymentMethod))
	}
	if filter.Search != "" {
		params.Search = textFromString(filter.Search)
	}

	rows, err := r.queries.ListLedgerEntries(ctx, params)
	if err != nil {
		return nil, err
	}
	return rowsToEntries(rows), nil
}

// ListByReceipt returns the receipt's entries, oldest first.
func (r *EntryRepository) ListByReceipt(ctx context.Context, receiptID string) ([]*domain.LedgerEntry, error) {
	rows, err := r.queries.ListReceiptEntries(ctx, textFromString(receiptID))
	if err != nil {
		return nil, err
	}
	return rowsToEntries(rows), nil
}

// ListByExecutor returns the executor's entries executed within [from, to].
func (r *EntryRepository) ListByExecutor(ctx context.Context, executorName string, from, to time.Time) ([]*domain.LedgerEntry, error) {
	rows, err := r.queries.ListExecutorEntries(ctx, generated.ListExecutorEntriesParams{
		ExecutorName: textFromString(executorName),
		ExecutedAt:   timeToPgTimestamptz(from),
		ExecutedAt_2: timeToPgTimestamptz(to),
	})
	if err != nil {
		return nil, err
	}
	return rowsToEntries(rows), nil
}

// ListAll returns the whole log, oldest first.
func (r *EntryRepository) ListAll(ctx context.Context) ([]*domain.LedgerEntry, error) {
	rows, err := r.queries.ListAllLedgerEntries(ctx)
	if err != nil {
		return nil, err
	}
	return rowsToEntries(rows), nil
}

func getEntry(ctx context.Context, q *generated.Queries, id int64) (*domain.LedgerEntry, error) {
	row, err := q.GetLedgerEntry(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return rowToEntry(row), nil
}
