package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/usecase"
)

func TestEditorUseCase_ReconcileNoop(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "1000", "500")
	before := f.count(t)

	res, err := f.editor.Reconcile(context.Background(), usecase.ReconcileInput{
		ActualCash: d("1000.00"),
		ActualCard: d("500"),
	})
	require.NoError(t, err)
	assert.Nil(t, res.Correction)
	assert.True(t, res.CashDiff.IsZero())
	assert.Equal(t, before, f.count(t))
}

func TestEditorUseCase_ReconcileBothComponents(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "1000", "500")

	res, err := f.editor.Reconcile(context.Background(), usecase.ReconcileInput{
		ActualCash: d("980"),
		ActualCard: d("530"),
		Note:       "end of day count",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Correction)
	assert.True(t, res.CashDiff.Equal(d("-20")))
	assert.True(t, res.CardDiff.Equal(d("30")))
	assert.True(t, res.Correction.Amount.Equal(d("10")))
	assert.Equal(t, domain.CategoryCorrection, res.Correction.Category)
	assert.Equal(t, "end of day count", res.Correction.Description)
	f.requireBalances(t, "980", "530")
	f.requireConsistent(t)

	logs, err := f.audit.GetByResourceID(context.Background(), domain.ResourceTypeLedger, domain.EntryAggregateID(res.Correction.ID))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, string(domain.AuditActionLedgerReconcile), logs[0].Action)
}

func TestEditorUseCase_DeleteShiftsLaterEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "1000", "500")

	purchase, err := f.inventory.RecordPurchase(ctx, usecase.PurchaseInput{
		Cost:          d("200"),
		PaymentMethod: domain.PaymentMethodCash,
		Description:   "screens",
	})
	require.NoError(t, err)

	f.pay(t, "1", "300", unpaid, paidCard)
	f.pay(t, "2", "100", unpaid, paidCash)

	res, err := f.editor.DeleteEntry(ctx, purchase.Entry.ID)
	require.NoError(t, err)
	assert.True(t, res.Delta.Cash.Equal(d("-200")))
	assert.True(t, res.Delta.Card.IsZero())
	assert.EqualValues(t, 3, res.ShiftedCount)

	_, err = f.ledger.GetEntry(ctx, purchase.Entry.ID)
	require.ErrorIs(t, err, domain.ErrEntryNotFound)

	// 1000 + 100 cash, 500 + 300 - 4.5 card
	f.requireBalances(t, "1100", "795.5")
	f.requireConsistent(t)
}

func TestEditorUseCase_DeleteFirstAndLast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "1000", "500")

	all, err := f.entries.ListAll(ctx)
	require.NoError(t, err)
	first, last := all[0], all[len(all)-1]

	_, err = f.editor.DeleteEntry(ctx, last.ID)
	require.NoError(t, err)
	f.requireBalances(t, "1000", "0")

	res, err := f.editor.DeleteEntry(ctx, first.ID)
	require.NoError(t, err)
	assert.Zero(t, res.ShiftedCount)
	f.requireBalances(t, "0", "0")

	// ids are never reused
	entry, err := f.ledger.RecordEntry(ctx, usecase.RecordEntryInput{
		Category:      domain.CategoryInitialBalance,
		PaymentMethod: domain.PaymentMethodCash,
		Amount:        d("5"),
	})
	require.NoError(t, err)
	assert.Greater(t, entry.ID, last.ID)
}

func TestEditorUseCase_DeleteAfterCorrection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "1000", "500")

	f.pay(t, "1", "50", unpaid, paidCash)
	_, err := f.editor.Reconcile(ctx, usecase.ReconcileInput{ActualCash: d("1040"), ActualCard: d("500")})
	require.NoError(t, err)

	entries, err := f.ledger.GetEntriesForReceipt(ctx, "1")
	require.NoError(t, err)
	_, err = f.editor.DeleteEntry(ctx, entries[0].ID)
	require.NoError(t, err)

	f.requireBalances(t, "990", "500")
	f.requireConsistent(t)
}

func TestEditorUseCase_DeleteErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "1000", "500")

	res := f.pay(t, "1", "300", unpaid, paidCash)
	f.pay(t, "1", "300", paidCash, unpaid)
	before := f.count(t)

	_, err := f.editor.DeleteEntry(ctx, res.Entries[0].ID)
	require.ErrorIs(t, err, domain.ErrEntryReferenced)

	_, err = f.editor.DeleteEntry(ctx, 9999)
	require.ErrorIs(t, err, domain.ErrEntryNotFound)

	_, err = f.editor.DeleteEntry(ctx, 0)
	require.ErrorIs(t, err, domain.ErrEntryNotFound)

	assert.Equal(t, before, f.count(t))
	f.requireConsistent(t)
}

func TestEditorUseCase_DeleteEmitsEventAndAudit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "1000", "0")

	all, err := f.entries.ListAll(ctx)
	require.NoError(t, err)
	id := all[0].ID

	_, err = f.editor.DeleteEntry(ctx, id)
	require.NoError(t, err)

	events, err := f.outbox.GetUnpublished(ctx, 100)
	require.NoError(t, err)
	var found bool
	for _, e := range events {
		if e.EventType == domain.EventTypeEntryDeleted && e.AggregateID == domain.EntryAggregateID(id) {
			found = true
		}
	}
	assert.True(t, found, "expected entry.deleted event")

	logs, err := f.audit.GetByResourceID(ctx, domain.ResourceTypeEntry, domain.EntryAggregateID(id))
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, string(domain.AuditActionEntryDelete), logs[len(logs)-1].Action)
}
