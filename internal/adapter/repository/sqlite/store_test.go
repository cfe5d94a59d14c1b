package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqliterepo "github.com/iho/cashledger/internal/adapter/repository/sqlite"
	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/infrastructure/idgen"
	"github.com/iho/cashledger/internal/infrastructure/sqlite"
	"github.com/iho/cashledger/internal/usecase"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type env struct {
	db        *sql.DB
	entries   *sqliterepo.EntryRepository
	outbox    *sqliterepo.OutboxRepository
	audit     *sqliterepo.AuditRepository
	txManager *sqliterepo.TxManager
	ledger    *usecase.LedgerUseCase
	payments  *usecase.PaymentUseCase
	editor    *usecase.EditorUseCase
	config    *usecase.SettingsUseCase
}

func newEnv(t *testing.T) *env {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ledger.db")
	require.NoError(t, sqlite.RunMigrations(path, zerolog.Nop()))

	db, err := sqlite.Open(context.Background(), path, sqlite.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	e := &env{
		db:        db,
		entries:   sqliterepo.NewEntryRepository(db),
		outbox:    sqliterepo.NewOutboxRepository(db),
		audit:     sqliterepo.NewAuditRepository(db),
		txManager: sqliterepo.NewTxManager(db),
	}
	settings := sqliterepo.NewSettingsRepository(db, domain.DefaultSettings())
	ids := idgen.NewULIDGenerator()
	recorder := usecase.NewRecorder(e.entries, e.outbox, ids)
	retrier := sqliterepo.NewRetrier()

	e.ledger = usecase.NewLedgerUseCase(e.txManager, recorder, e.entries, e.audit, ids, nil).WithRetrier(retrier)
	e.payments = usecase.NewPaymentUseCase(e.txManager, recorder, e.entries, settings, e.audit, ids, nil).WithRetrier(retrier)
	e.editor = usecase.NewEditorUseCase(e.txManager, recorder, e.entries, e.outbox, e.audit, ids, nil).WithRetrier(retrier)
	e.config = usecase.NewSettingsUseCase(e.txManager, settings, e.outbox, e.audit, ids)
	return e
}

func (e *env) seed(t *testing.T, method domain.PaymentMethod, amount string) {
	t.Helper()
	_, err := e.ledger.RecordEntry(context.Background(), usecase.RecordEntryInput{
		Category:      domain.CategoryInitialBalance,
		PaymentMethod: method,
		Amount:        d(amount),
	})
	require.NoError(t, err)
}

func (e *env) transition(t *testing.T, receipt, total string, from, to domain.PaymentState) {
	t.Helper()
	_, err := e.payments.ApplyTransition(context.Background(), usecase.ReceiptTransitionInput{
		ReceiptID: receipt, Total: d(total), From: from, To: to, ExecutorName: ptr("Иван"),
	})
	require.NoError(t, err)
}

func (e *env) requireState(t *testing.T, cash, card string) {
	t.Helper()
	b, err := e.ledger.GetCurrentBalances(context.Background())
	require.NoError(t, err)
	require.Truef(t, b.Cash.Equal(d(cash)), "cash %s != %s", b.Cash, cash)
	require.Truef(t, b.Card.Equal(d(card)), "card %s != %s", b.Card, card)

	report, err := e.ledger.VerifyConsistency(context.Background())
	require.NoError(t, err)
	require.Truef(t, report.Consistent, "mismatch: %v", report.Mismatch)
}

func ptr[T any](v T) *T { return &v }

func TestSQLiteWorkedExample(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	unpaid, cash, card := domain.Unpaid(), domain.Paid(domain.PaymentMethodCash), domain.Paid(domain.PaymentMethodCard)

	e.seed(t, domain.PaymentMethodCash, "1000")
	e.seed(t, domain.PaymentMethodCard, "500")

	e.transition(t, "42", "300", unpaid, card)
	e.requireState(t, "1000", "795.5")

	e.transition(t, "42", "300", card, cash)
	e.requireState(t, "1300", "500")

	res, err := e.editor.Reconcile(ctx, usecase.ReconcileInput{ActualCash: d("1290"), ActualCard: d("500")})
	require.NoError(t, err)
	require.NotNil(t, res.Correction)
	assert.True(t, res.Correction.Amount.Equal(d("-10")))
	e.requireState(t, "1290", "500")

	entries, err := e.ledger.GetEntriesForReceipt(ctx, "42")
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, domain.CategoryBankCommission, *entries[3].ReversedCategory)
	assert.Equal(t, "Иван", *entries[0].ExecutorName)
}

func TestSQLiteDeleteShiftsLaterSnapshots(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	unpaid, card := domain.Unpaid(), domain.Paid(domain.PaymentMethodCard)

	e.seed(t, domain.PaymentMethodCash, "1000")
	_, err := e.ledger.RecordEntry(ctx, usecase.RecordEntryInput{
		Category: domain.CategoryPurchase, PaymentMethod: domain.PaymentMethodCash, Amount: d("-200"), Description: "screens",
	})
	require.NoError(t, err)
	e.transition(t, "1", "300", unpaid, card)

	all, err := e.entries.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)

	res, err := e.editor.DeleteEntry(ctx, all[1].ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.ShiftedCount)
	e.requireState(t, "1000", "295.5")

	_, err = e.editor.DeleteEntry(ctx, all[3].ID)
	require.NoError(t, err)
	e.requireState(t, "1000", "300")
}

func TestSQLiteIDsAreNotReused(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seed(t, domain.PaymentMethodCash, "10")
	e.seed(t, domain.PaymentMethodCash, "20")
	all, err := e.entries.ListAll(ctx)
	require.NoError(t, err)
	tail := all[1]

	_, err = e.editor.DeleteEntry(ctx, tail.ID)
	require.NoError(t, err)
	e.seed(t, domain.PaymentMethodCash, "30")

	last, err := e.entries.Last(ctx)
	require.NoError(t, err)
	assert.Greater(t, last.ID, tail.ID)
	e.requireState(t, "40", "0")
}

func TestSQLiteListFilters(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.seed(t, domain.PaymentMethodCash, "1000")
	e.transition(t, "A-17", "100", domain.Unpaid(), domain.Paid(domain.PaymentMethodCard))

	byExecutor, err := e.ledger.ListEntries(ctx, domain.EntryFilter{Search: "иван"})
	require.NoError(t, err)
	assert.Len(t, byExecutor, 2)

	byReceipt, err := e.ledger.ListEntries(ctx, domain.EntryFilter{Search: "a-17", Limit: 1})
	require.NoError(t, err)
	require.Len(t, byReceipt, 1)
	assert.Equal(t, domain.CategoryBankCommission, byReceipt[0].Category)

	category := domain.CategoryInitialBalance
	initial, err := e.ledger.ListEntries(ctx, domain.EntryFilter{Category: &category})
	require.NoError(t, err)
	assert.Len(t, initial, 1)

	future := time.Now().Add(time.Hour)
	none, err := e.ledger.ListEntries(ctx, domain.EntryFilter{From: &future})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteConcurrentWritersSerialize(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			method := domain.PaymentMethodCash
			if i%2 == 1 {
				method = domain.PaymentMethodCard
			}
			_, err := e.payments.ApplyTransition(ctx, usecase.ReceiptTransitionInput{
				ReceiptID: fmt.Sprintf("r-%d", i),
				Total:     d("100"),
				From:      domain.Unpaid(),
				To:        domain.Paid(method),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	e.requireState(t, "1000", "985")
}

func TestSQLiteSettingsPersist(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.config.UpdateSettings(ctx, domain.Settings{CardCommissionPercent: d("2.5"), CashRegisterEnabled: true})
	require.NoError(t, err)

	s, err := e.config.GetSettings(ctx)
	require.NoError(t, err)
	assert.True(t, s.CardCommissionPercent.Equal(d("2.5")))

	events, err := e.outbox.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NoError(t, e.outbox.MarkPublished(ctx, events[0].ID, time.Now()))
	assert.ErrorIs(t, e.outbox.MarkPublished(ctx, events[0].ID, time.Now()), domain.ErrEventAlreadyPublished)

	events, err = e.outbox.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)

	logs, err := e.audit.GetByResourceID(ctx, domain.ResourceTypeSettings, domain.ResourceTypeSettings)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "2.5", logs[0].AfterState["CardCommissionPercent"])
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, sqliterepo.IsRetryableError(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.True(t, sqliterepo.IsRetryableError(fmt.Errorf("append: %w", sqlite3.Error{Code: sqlite3.ErrLocked})))
	assert.False(t, sqliterepo.IsRetryableError(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.False(t, sqliterepo.IsRetryableError(errors.New("other")))
}
