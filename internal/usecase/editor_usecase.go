package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/infrastructure/metrics"
)

// EditorUseCase performs manual edits of the ledger: reconciliation against a
// physical count and deletion of entries with snapshot repair.
type EditorUseCase struct {
	ledgerWriter
	recorder   *Recorder
	entryRepo  EntryRepository
	outboxRepo OutboxRepository
	auditRepo  AuditRepository
	idGen      IDGenerator
}

// NewEditorUseCase creates a new EditorUseCase.
func NewEditorUseCase(
	txManager TransactionManager,
	recorder *Recorder,
	entryRepo EntryRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *EditorUseCase {
	return &EditorUseCase{
		ledgerWriter: newLedgerWriter(txManager, metrics),
		recorder:     recorder,
		entryRepo:    entryRepo,
		outboxRepo:   outboxRepo,
		auditRepo:    auditRepo,
		idGen:        idGen,
	}
}

// WithRetrier sets the retrier used for write conflicts.
func (uc *EditorUseCase) WithRetrier(retrier Retrier) *EditorUseCase {
	uc.retrier = retrier
	return uc
}

// WithLogger sets the logger.
func (uc *EditorUseCase) WithLogger(logger zerolog.Logger) *EditorUseCase {
	uc.logger = logger
	return uc
}

// ReconcileInput holds the physically counted balances.
type ReconcileInput struct {
	ActualCash decimal.Decimal
	ActualCard decimal.Decimal
	Note       string
}

// ReconcileResult is the outcome of a reconciliation. Correction is nil when
// the ledger already matched.
type ReconcileResult struct {
	Correction *domain.LedgerEntry
	Before     domain.Balances
	CashDiff   decimal.Decimal
	CardDiff   decimal.Decimal
}

// Reconcile sets the balances to the counted values with one Correction
// entry. Nothing is appended when both differences are zero.
func (uc *EditorUseCase) Reconcile(ctx context.Context, input ReconcileInput) (*ReconcileResult, error) {
	if err := domain.ValidateMagnitude(input.ActualCash); err != nil {
		return nil, err
	}
	if err := domain.ValidateMagnitude(input.ActualCard); err != nil {
		return nil, err
	}
	note, err := domain.ValidateDescription(input.Note)
	if err != nil {
		return nil, err
	}
	if note == "" {
		note = "cash register reconciliation"
	}

	var result *ReconcileResult
	err = uc.inTx(ctx, "reconcile", func(ctx context.Context, tx Transaction) error {
		// 1. Read current balances under the writer lock
		current, err := uc.entryRepo.LockTail(ctx, tx)
		if err != nil {
			return err
		}

		target := domain.Balances{Cash: input.ActualCash, Card: input.ActualCard}
		diff := target.Sub(current)
		result = &ReconcileResult{Before: current, CashDiff: diff.Cash, CardDiff: diff.Card}
		if diff.IsZero() {
			return nil
		}

		// 2. Correction entry with absolute balances
		correction, err := uc.recorder.Append(ctx, tx, AppendInput{
			Category:      domain.CategoryCorrection,
			PaymentMethod: domain.PaymentMethodMixed,
			Description:   note,
			Amount:        diff.Total(),
			Absolute:      &target,
		})
		if err != nil {
			return err
		}
		result.Correction = correction

		// 3. Event and audit
		if uc.outboxRepo != nil {
			event := &domain.OutboxEvent{
				ID:            uc.idGen.Generate(),
				AggregateID:   domain.EntryAggregateID(correction.ID),
				AggregateType: domain.AggregateTypeLedger,
				EventType:     domain.EventTypeLedgerReconciled,
				Payload: domain.MarshalState(domain.LedgerReconciledEvent{
					CorrectionEntryID: correction.ID,
					CashDiff:          diff.Cash.String(),
					CardDiff:          diff.Card.String(),
				}),
				CreatedAt: time.Now().UTC(),
			}
			if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
				return err
			}
		}

		return uc.audit(ctx, tx, domain.AuditActionLedgerReconcile, domain.ResourceTypeLedger,
			domain.EntryAggregateID(correction.ID), current, target)
	})
	if err != nil {
		return nil, err
	}

	if result.Correction != nil {
		uc.observeCommitted([]*domain.LedgerEntry{result.Correction})
		if uc.metrics != nil {
			uc.metrics.Reconciliations.Inc()
		}
	}

	return result, nil
}

// DeleteResult is the outcome of an entry deletion.
type DeleteResult struct {
	Deleted *domain.LedgerEntry
	// Delta is the balance change the deleted entry carried; it was
	// subtracted from every later snapshot.
	Delta        domain.Balances
	ShiftedCount int64
}

// DeleteEntry removes an entry and shifts every later snapshot by the
// entry's effect, all in one transaction under the writer lock. Entries that
// a reversal points at cannot be deleted.
func (uc *EditorUseCase) DeleteEntry(ctx context.Context, id int64) (*DeleteResult, error) {
	if id <= 0 {
		return nil, domain.ErrEntryNotFound
	}

	var result *DeleteResult
	err := uc.inTx(ctx, "delete_entry", func(ctx context.Context, tx Transaction) error {
		// 1. Writer lock
		tail, err := uc.entryRepo.LockTail(ctx, tx)
		if err != nil {
			return err
		}

		// 2. Load entry and its predecessor
		entry, err := uc.entryRepo.GetByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}

		referenced, err := uc.entryRepo.IsReferencedTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if referenced {
			return fmt.Errorf("%w: entry %d", domain.ErrEntryReferenced, id)
		}

		var prev domain.Balances
		previous, err := uc.entryRepo.PreviousTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if previous != nil {
			prev = previous.Snapshot()
		}
		delta := entry.Effect(prev)

		// 3. Delete and repair later snapshots
		if err := uc.entryRepo.Delete(ctx, tx, id); err != nil {
			return err
		}
		shifted, err := uc.entryRepo.ShiftAfter(ctx, tx, id, delta)
		if err != nil {
			return fmt.Errorf("shift entries after %d: %w", id, err)
		}

		result = &DeleteResult{Deleted: entry, Delta: delta, ShiftedCount: shifted}

		// 4. Event and audit
		if uc.outboxRepo != nil {
			event := &domain.OutboxEvent{
				ID:            uc.idGen.Generate(),
				AggregateID:   domain.EntryAggregateID(id),
				AggregateType: domain.AggregateTypeEntry,
				EventType:     domain.EventTypeEntryDeleted,
				Payload: domain.MarshalState(domain.EntryDeletedEvent{
					EntryID:      id,
					CashDelta:    delta.Cash.String(),
					CardDelta:    delta.Card.String(),
					ShiftedCount: shifted,
				}),
				CreatedAt: time.Now().UTC(),
			}
			if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
				return err
			}
		}

		return uc.audit(ctx, tx, domain.AuditActionEntryDelete, domain.ResourceTypeEntry,
			domain.EntryAggregateID(id), entry, tail.Sub(delta))
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info().
		Int64("entry_id", id).
		Str("cash_delta", result.Delta.Cash.String()).
		Str("card_delta", result.Delta.Card.String()).
		Int64("shifted", result.ShiftedCount).
		Msg("ledger entry deleted")

	if uc.metrics != nil {
		uc.metrics.EntriesDeleted.Inc()
		uc.metrics.EntriesShifted.Add(float64(result.ShiftedCount))
	}

	return result, nil
}

func (uc *EditorUseCase) audit(ctx context.Context, tx Transaction, action domain.AuditAction, resourceType, resourceID string, before, after any) error {
	if uc.auditRepo == nil {
		return nil
	}

	auditLog := domain.NewAuditLog(ctx, uc.idGen.Generate(), action, resourceType, resourceID, before, after)
	return uc.auditRepo.CreateTx(ctx, tx, auditLog)
}
