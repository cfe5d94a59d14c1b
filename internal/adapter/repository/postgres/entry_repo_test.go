package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/usecase"
)

var entryColumns = []string{
	"id", "created_at", "executed_at", "category", "description", "amount",
	"cash_after", "card_after", "payment_method", "executor_id", "executor_name",
	"related_receipt_id", "related_entry_id", "reversed_category", "labor", "parts_profit",
}

func entryRow(id int64, category domain.Category, method domain.PaymentMethod, amount, cash, card string) []any {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return []any{
		id,
		timeToPgTimestamptz(at),
		timeToPgTimestamptz(at),
		string(category),
		"",
		decimalToNumeric(decimal.RequireFromString(amount)),
		decimalToNumeric(decimal.RequireFromString(cash)),
		decimalToNumeric(decimal.RequireFromString(card)),
		string(method),
		pgtype.Text{},
		pgtype.Text{String: "Ivan", Valid: true},
		pgtype.Text{String: "42", Valid: true},
		pgtype.Int8{},
		pgtype.Text{},
		decimalToNumeric(decimal.RequireFromString(amount)),
		decimalToNumeric(decimal.Zero),
	}
}

func beginMockTx(t *testing.T, pool pgxmock.PgxPoolIface) usecase.Transaction {
	t.Helper()
	pool.ExpectBegin()
	tx, err := newTxManagerWithPool(pool).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return tx
}

func TestEntryRepositoryLockTailEmptyLedger(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)
	repo := NewEntryRepository(pool)

	pool.ExpectExec("pg_advisory_xact_lock").WithArgs(ledgerLockKey).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	pool.ExpectQuery("FROM ledger_entries").WillReturnRows(pgxmock.NewRows(entryColumns))

	b, err := repo.LockTail(context.Background(), tx)
	if err != nil {
		t.Fatalf("LockTail: %v", err)
	}
	if !b.IsZero() {
		t.Fatalf("expected zero balances, got %+v", b)
	}
	assertExpectations(t, pool)
}

func TestEntryRepositoryLockTailReturnsSnapshot(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)
	repo := NewEntryRepository(pool)

	pool.ExpectExec("pg_advisory_xact_lock").WithArgs(ledgerLockKey).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	pool.ExpectQuery("FROM ledger_entries").
		WillReturnRows(pgxmock.NewRows(entryColumns).AddRow(entryRow(7, domain.CategoryProfit, domain.PaymentMethodCard, "300", "1000", "795.5")...))

	b, err := repo.LockTail(context.Background(), tx)
	if err != nil {
		t.Fatalf("LockTail: %v", err)
	}
	if !b.Cash.Equal(decimal.NewFromInt(1000)) || !b.Card.Equal(decimal.RequireFromString("795.5")) {
		t.Fatalf("unexpected balances %+v", b)
	}
	assertExpectations(t, pool)
}

func TestEntryRepositoryAppendAssignsID(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)
	repo := NewEntryRepository(pool)

	args := make([]any, 15)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	pool.ExpectQuery("INSERT INTO ledger_entries").WithArgs(args...).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(12)))

	reversed := domain.CategoryProfit
	entry := &domain.LedgerEntry{
		Category:         domain.CategoryCancellation,
		PaymentMethod:    domain.PaymentMethodCash,
		Amount:           decimal.NewFromInt(-100),
		CashAfter:        decimal.NewFromInt(900),
		CardAfter:        decimal.Zero,
		ReversedCategory: &reversed,
		CreatedAt:        time.Now().UTC(),
		ExecutedAt:       time.Now().UTC(),
	}
	if err := repo.Append(context.Background(), tx, entry); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if entry.ID != 12 {
		t.Fatalf("expected id 12, got %d", entry.ID)
	}
	assertExpectations(t, pool)
}

func TestEntryRepositoryGetByIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	repo := NewEntryRepository(pool)

	pool.ExpectQuery("FROM ledger_entries WHERE id =").WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows(entryColumns))

	if _, err := repo.GetByID(context.Background(), 5); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	assertExpectations(t, pool)
}

func TestEntryRepositoryGetByIDMapsRow(t *testing.T) {
	pool := newMockPool(t)
	repo := NewEntryRepository(pool)

	pool.ExpectQuery("FROM ledger_entries WHERE id =").WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows(entryColumns).AddRow(entryRow(3, domain.CategoryProfit, domain.PaymentMethodCash, "150.25", "1150.25", "0")...))

	entry, err := repo.GetByID(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if entry.Category != domain.CategoryProfit || !entry.Amount.Equal(decimal.RequireFromString("150.25")) {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.ExecutorName == nil || *entry.ExecutorName != "Ivan" {
		t.Fatalf("expected executor Ivan, got %v", entry.ExecutorName)
	}
	if entry.ExecutorID != nil || entry.RelatedEntryID != nil || entry.ReversedCategory != nil {
		t.Fatalf("expected null columns to map to nil")
	}
	assertExpectations(t, pool)
}

func TestEntryRepositoryDeleteAndShift(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)
	repo := NewEntryRepository(pool)
	ctx := context.Background()

	pool.ExpectExec("DELETE FROM ledger_entries").WithArgs(int64(4)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	pool.ExpectExec("UPDATE ledger_entries").WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), int64(4)).WillReturnResult(pgxmock.NewResult("UPDATE", 3))
	pool.ExpectExec("DELETE FROM ledger_entries").WithArgs(int64(99)).WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Delete(ctx, tx, 4); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	n, err := repo.ShiftAfter(ctx, tx, 4, domain.Balances{Cash: decimal.NewFromInt(-200), Card: decimal.Zero})
	if err != nil {
		t.Fatalf("ShiftAfter: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 shifted rows, got %d", n)
	}
	if err := repo.Delete(ctx, tx, 99); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	assertExpectations(t, pool)
}

func TestEntryRepositoryIsReferenced(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)
	repo := NewEntryRepository(pool)

	pool.ExpectQuery("SELECT EXISTS").WithArgs(pgtype.Int8{Int64: 1, Valid: true}).WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	referenced, err := repo.IsReferencedTx(context.Background(), tx, 1)
	if err != nil {
		t.Fatalf("IsReferencedTx: %v", err)
	}
	if !referenced {
		t.Fatalf("expected entry to be referenced")
	}
	assertExpectations(t, pool)
}

func TestNumericRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "1.5", "-795.50", "1000000000000", "0.01"} {
		d := decimal.RequireFromString(s)
		if got := numericToDecimal(decimalToNumeric(d)); !got.Equal(d) {
			t.Fatalf("round trip %s: got %s", s, got)
		}
	}
	if !numericToDecimal(pgtype.Numeric{}).IsZero() {
		t.Fatalf("expected invalid numeric to map to zero")
	}
}
