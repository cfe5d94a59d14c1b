package usecase_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/cashledger/internal/adapter/repository/memory"
	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/usecase"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

type seqIDGenerator struct {
	n atomic.Int64
}

func (g *seqIDGenerator) Generate() string {
	return fmt.Sprintf("id-%d", g.n.Add(1))
}

type fixture struct {
	store     *memory.Store
	entries   *memory.EntryRepository
	settings  *memory.SettingsRepository
	audit     *memory.AuditRepository
	outbox    *memory.OutboxRepository
	txManager *memory.TxManager

	ledger    *usecase.LedgerUseCase
	payments  *usecase.PaymentUseCase
	inventory *usecase.InventoryUseCase
	editor    *usecase.EditorUseCase
	reports   *usecase.ReportUseCase
	config    *usecase.SettingsUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	f := &fixture{
		store:     store,
		entries:   memory.NewEntryRepository(store),
		settings:  memory.NewSettingsRepository(store, domain.DefaultSettings()),
		audit:     memory.NewAuditRepository(store),
		outbox:    memory.NewOutboxRepository(store),
		txManager: memory.NewTxManager(store),
	}

	idGen := &seqIDGenerator{}
	recorder := usecase.NewRecorder(f.entries, f.outbox, idGen)

	f.ledger = usecase.NewLedgerUseCase(f.txManager, recorder, f.entries, f.audit, idGen, nil)
	f.payments = usecase.NewPaymentUseCase(f.txManager, recorder, f.entries, f.settings, f.audit, idGen, nil)
	f.inventory = usecase.NewInventoryUseCase(f.txManager, recorder, f.settings, nil)
	f.editor = usecase.NewEditorUseCase(f.txManager, recorder, f.entries, f.outbox, f.audit, idGen, nil)
	f.reports = usecase.NewReportUseCase(f.entries)
	f.config = usecase.NewSettingsUseCase(f.txManager, f.settings, f.outbox, f.audit, idGen)

	return f
}

// seed records opening balances as InitialBalance entries.
func (f *fixture) seed(t *testing.T, cash, card string) {
	t.Helper()
	ctx := context.Background()

	if c := d(cash); !c.IsZero() {
		_, err := f.ledger.RecordEntry(ctx, usecase.RecordEntryInput{
			Category:      domain.CategoryInitialBalance,
			PaymentMethod: domain.PaymentMethodCash,
			Amount:        c,
		})
		require.NoError(t, err)
	}
	if c := d(card); !c.IsZero() {
		_, err := f.ledger.RecordEntry(ctx, usecase.RecordEntryInput{
			Category:      domain.CategoryInitialBalance,
			PaymentMethod: domain.PaymentMethodCard,
			Amount:        c,
		})
		require.NoError(t, err)
	}
}

func (f *fixture) requireBalances(t *testing.T, cash, card string) {
	t.Helper()

	b, err := f.ledger.GetCurrentBalances(context.Background())
	require.NoError(t, err)
	require.Truef(t, b.Cash.Equal(d(cash)), "cash: expected %s, got %s", cash, b.Cash)
	require.Truef(t, b.Card.Equal(d(card)), "card: expected %s, got %s", card, b.Card)
}

func (f *fixture) requireConsistent(t *testing.T) {
	t.Helper()

	report, err := f.ledger.VerifyConsistency(context.Background())
	require.NoError(t, err)
	require.Truef(t, report.Consistent, "ledger inconsistent: %v", report.Mismatch)

	b, err := f.ledger.GetCurrentBalances(context.Background())
	require.NoError(t, err)
	require.True(t, report.Replayed.Equal(b), "replayed balances differ from tail")
}

func (f *fixture) count(t *testing.T) int {
	t.Helper()

	all, err := f.entries.ListAll(context.Background())
	require.NoError(t, err)
	return len(all)
}

func (f *fixture) pay(t *testing.T, receipt, total string, from, to domain.PaymentState) *usecase.ReceiptResult {
	t.Helper()

	res, err := f.payments.ApplyTransition(context.Background(), usecase.ReceiptTransitionInput{
		ReceiptID: receipt,
		Total:     d(total),
		From:      from,
		To:        to,
	})
	require.NoError(t, err)
	return res
}

type wantEntry struct {
	category domain.Category
	method   domain.PaymentMethod
	amount   string
	cash     string
	card     string
}

func requireEntries(t *testing.T, got []*domain.LedgerEntry, want []wantEntry) {
	t.Helper()

	require.Len(t, got, len(want))
	for i, w := range want {
		e := got[i]
		require.Equalf(t, w.category, e.Category, "entry %d category", i)
		require.Equalf(t, w.method, e.PaymentMethod, "entry %d method", i)
		require.Truef(t, e.Amount.Equal(d(w.amount)), "entry %d amount: expected %s, got %s", i, w.amount, e.Amount)
		require.Truef(t, e.CashAfter.Equal(d(w.cash)), "entry %d cash: expected %s, got %s", i, w.cash, e.CashAfter)
		require.Truef(t, e.CardAfter.Equal(d(w.card)), "entry %d card: expected %s, got %s", i, w.card, e.CardAfter)
	}
}
