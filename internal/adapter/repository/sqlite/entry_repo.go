package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	db *sql.DB
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db *sql.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// LockTail returns the current balances. The write lock is already held
// since the transaction was started with BEGIN IMMEDIATE.
func (r *EntryRepository) LockTail(ctx context.Context, tx usecase.Transaction) (domain.Balances, error) {
	sqlTx, err := unwrapTx(tx)
	if err != nil {
		return domain.Balances{}, err
	}

	last, err := lastEntry(ctx, sqlTx)
	if err != nil {
		return domain.Balances{}, err
	}
	if last == nil {
		return domain.Balances{Cash: decimal.Zero, Card: decimal.Zero}, nil
	}
	return last.Snapshot(), nil
}

// Append inserts the entry and assigns its ID.
func (r *EntryRepository) Append(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	sqlTx, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	var reversed sql.NullString
	if entry.ReversedCategory != nil {
		reversed = sql.NullString{String: string(*entry.ReversedCategory), Valid: true}
	}

	res, err := sqlTx.ExecContext(ctx, `
		INSERT INTO ledger_entries (
			created_at, executed_at, category, description, amount, cash_after, card_after,
			payment_method, executor_id, executor_name, related_receipt_id, related_entry_id,
			reversed_category, labor, parts_profit
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTime(entry.CreatedAt),
		formatTime(entry.ExecutedAt),
		string(entry.Category),
		entry.Description,
		entry.Amount.String(),
		entry.CashAfter.String(),
		entry.CardAfter.String(),
		string(entry.PaymentMethod),
		nullString(entry.ExecutorID),
		nullString(entry.ExecutorName),
		nullString(entry.RelatedReceiptID),
		nullInt64(entry.RelatedEntryID),
		reversed,
		entry.Labor.String(),
		entry.PartsProfit.String(),
	)
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id
	return nil
}

// GetByIDTx retrieves an entry inside the transaction.
func (r *EntryRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, id int64) (*domain.LedgerEntry, error) {
	sqlTx, err := unwrapTx(tx)
	if err != nil {
		return nil, err
	}
	return getEntry(ctx, sqlTx, id)
}

// PreviousTx returns the entry right before id, or nil.
func (r *EntryRepository) PreviousTx(ctx context.Context, tx usecase.Transaction, id int64) (*domain.LedgerEntry, error) {
	sqlTx, err := unwrapTx(tx)
	if err != nil {
		return nil, err
	}

	row := sqlTx.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE id < ? ORDER BY id DESC LIMIT 1`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// LatestByReceiptTx returns the most recent entry of the category for the receipt.
func (r *EntryRepository) LatestByReceiptTx(ctx context.Context, tx usecase.Transaction, receiptID string, category domain.Category) (*domain.LedgerEntry, error) {
	sqlTx, err := unwrapTx(tx)
	if err != nil {
		return nil, err
	}

	row := sqlTx.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM ledger_entries
		WHERE related_receipt_id = ? AND category = ?
		ORDER BY id DESC LIMIT 1`, receiptID, string(category))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEntryNotFound
	}
	return e, err
}

// IsReferencedTx reports whether another entry points at id.
func (r *EntryRepository) IsReferencedTx(ctx context.Context, tx usecase.Transaction, id int64) (bool, error) {
	sqlTx, err := unwrapTx(tx)
	if err != nil {
		return false, err
	}

	var exists bool
	err = sqlTx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE related_entry_id = ?)`, id).Scan(&exists)
	return exists, err
}

// Delete removes an entry.
func (r *EntryRepository) Delete(ctx context.Context, tx usecase.Transaction, id int64) error {
	sqlTx, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	res, err := sqlTx.ExecContext(ctx, `DELETE FROM ledger_entries WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

// ShiftAfter subtracts delta from every snapshot after id. Amounts are stored
// as decimal text, so the arithmetic happens here rather than in SQL.
func (r *EntryRepository) ShiftAfter(ctx context.Context, tx usecase.Transaction, id int64, delta domain.Balances) (int64, error) {
	sqlTx, err := unwrapTx(tx)
	if err != nil {
		return 0, err
	}

	type snapshot struct {
		id         int64
		cash, card decimal.Decimal
	}

	rows, err := sqlTx.QueryContext(ctx,
		`SELECT id, cash_after, card_after FROM ledger_entries WHERE id > ? ORDER BY id`, id)
	if err != nil {
		return 0, err
	}

	var later []snapshot
	for rows.Next() {
		var (
			s          snapshot
			cash, card string
		)
		if err := rows.Scan(&s.id, &cash, &card); err != nil {
			rows.Close()
			return 0, err
		}
		if s.cash, err = decimal.NewFromString(cash); err != nil {
			rows.Close()
			return 0, err
		}
		if s.card, err = decimal.NewFromString(card); err != nil {
			rows.Close()
			return 0, err
		}
		later = append(later, s)
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	if len(later) == 0 {
		return 0, nil
	}

	stmt, err := sqlTx.PrepareContext(ctx, `UPDATE ledger_entries SET cash_after = ?, card_after = ? WHERE id = ?`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, s := range later {
		_, err := stmt.ExecContext(ctx, s.cash.Sub(delta.Cash).String(), s.card.Sub(delta.Card).String(), s.id)
		if err != nil {
			return 0, err
		}
	}

	return int64(len(later)), nil
}

// GetByID retrieves an entry.
func (r *EntryRepository) GetByID(ctx context.Context, id int64) (*domain.LedgerEntry, error) {
	return getEntry(ctx, r.db, id)
}

// Last returns the tail entry, or nil.
func (r *EntryRepository) Last(ctx context.Context) (*domain.LedgerEntry, error) {
	return lastEntry(ctx, r.db)
}

// List returns entries matching the filter, newest first. The search term is
// matched in Go so that case folding follows domain.EntryFilter.
func (r *EntryRepository) List(ctx context.Context, filter domain.EntryFilter) ([]*domain.LedgerEntry, error) {
	var (
		where []string
		args  []any
	)
	if filter.From != nil {
		where = append(where, "executed_at >= ?")
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "executed_at <= ?")
		args = append(args, formatTime(*filter.To))
	}
	if filter.Category != nil {
		where = append(where, "category = ?")
		args = append(args, string(*filter.Category))
	}
	if filter.PaymentMethod != nil {
		where = append(where, "payment_method = ?")
		args = append(args, string(*filter.PaymentMethod))
	}

	query := `SELECT ` + entryColumns + ` FROM ledger_entries`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id DESC`
	if filter.Search == "" {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if filter.Search == "" {
		return entries, nil
	}

	out := make([]*domain.LedgerEntry, 0)
	skipped := 0
	for _, e := range entries {
		if len(out) >= filter.Limit {
			break
		}
		if !filter.Matches(e) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// ListByReceipt returns the receipt's entries, oldest first.
func (r *EntryRepository) ListByReceipt(ctx context.Context, receiptID string) ([]*domain.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE related_receipt_id = ? ORDER BY id`, receiptID)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// ListByExecutor returns the executor's entries executed within [from, to].
func (r *EntryRepository) ListByExecutor(ctx context.Context, executorName string, from, to time.Time) ([]*domain.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM ledger_entries
		WHERE executor_name = ? AND executed_at >= ? AND executed_at <= ?
		ORDER BY id`, executorName, formatTime(from), formatTime(to))
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// ListAll returns the whole log, oldest first.
func (r *EntryRepository) ListAll(ctx context.Context) ([]*domain.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM ledger_entries ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func getEntry(ctx context.Context, q querier, id int64) (*domain.LedgerEntry, error) {
	row := q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEntryNotFound
	}
	return e, err
}

func lastEntry(ctx context.Context, q querier) (*domain.LedgerEntry, error) {
	row := q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM ledger_entries ORDER BY id DESC LIMIT 1`)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}
