package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cashledger/internal/domain"
)

// timeLayout is fixed-width so that stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const entryColumns = `id, created_at, executed_at, category, description, amount, cash_after,
	card_after, payment_method, executor_id, executor_name, related_receipt_id,
	related_entry_id, reversed_category, labor, parts_profit`

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.LedgerEntry, error) {
	var (
		e                                                     domain.LedgerEntry
		createdAt, executedAt                                 string
		amount, cashAfter, cardAfter, labor, partsProfit      string
		category, method                                      string
		executorID, executorName, receiptID, reversedCategory sql.NullString
		relatedEntryID                                        sql.NullInt64
	)

	err := row.Scan(
		&e.ID,
		&createdAt,
		&executedAt,
		&category,
		&e.Description,
		&amount,
		&cashAfter,
		&cardAfter,
		&method,
		&executorID,
		&executorName,
		&receiptID,
		&relatedEntryID,
		&reversedCategory,
		&labor,
		&partsProfit,
	)
	if err != nil {
		return nil, err
	}

	e.Category = domain.Category(category)
	e.PaymentMethod = domain.PaymentMethod(method)
	e.ExecutorID = stringPtr(executorID)
	e.ExecutorName = stringPtr(executorName)
	e.RelatedReceiptID = stringPtr(receiptID)
	if relatedEntryID.Valid {
		id := relatedEntryID.Int64
		e.RelatedEntryID = &id
	}
	if reversedCategory.Valid {
		c := domain.Category(reversedCategory.String)
		e.ReversedCategory = &c
	}

	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("entry %d created_at: %w", e.ID, err)
	}
	if e.ExecutedAt, err = parseTime(executedAt); err != nil {
		return nil, fmt.Errorf("entry %d executed_at: %w", e.ID, err)
	}

	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&e.Amount, amount},
		{&e.CashAfter, cashAfter},
		{&e.CardAfter, cardAfter},
		{&e.Labor, labor},
		{&e.PartsProfit, partsProfit},
	} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, fmt.Errorf("entry %d: %w", e.ID, err)
		}
	}

	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]*domain.LedgerEntry, error) {
	defer rows.Close()

	entries := make([]*domain.LedgerEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
