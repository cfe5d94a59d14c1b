package postgres

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/infrastructure/postgres/generated"
)

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return timeToPgTimestamptz(*t)
}

func textFromPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func textFromString(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: true}
}

func ptrFromText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func int8FromPtr(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

func rowToEntry(row generated.LedgerEntry) *domain.LedgerEntry {
	entry := &domain.LedgerEntry{
		ID:               row.ID,
		CreatedAt:        row.CreatedAt.Time,
		ExecutedAt:       row.ExecutedAt.Time,
		Category:         domain.Category(row.Category),
		Description:      row.Description,
		Amount:           numericToDecimal(row.Amount),
		CashAfter:        numericToDecimal(row.CashAfter),
		CardAfter:        numericToDecimal(row.CardAfter),
		PaymentMethod:    domain.PaymentMethod(row.PaymentMethod),
		ExecutorID:       ptrFromText(row.ExecutorID),
		ExecutorName:     ptrFromText(row.ExecutorName),
		RelatedReceiptID: ptrFromText(row.RelatedReceiptID),
		Labor:            numericToDecimal(row.Labor),
		PartsProfit:      numericToDecimal(row.PartsProfit),
	}
	if row.RelatedEntryID.Valid {
		id := row.RelatedEntryID.Int64
		entry.RelatedEntryID = &id
	}
	if row.ReversedCategory.Valid {
		c := domain.Category(row.ReversedCategory.String)
		entry.ReversedCategory = &c
	}
	return entry
}

func rowsToEntries(rows []generated.LedgerEntry) []*domain.LedgerEntry {
	entries := make([]*domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, rowToEntry(row))
	}
	return entries
}
