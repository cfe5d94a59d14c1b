package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cashledger/internal/domain"
)

// Recorder is the only path that appends entries to the ledger. It must be
// called inside a writer transaction.
type Recorder struct {
	entryRepo  EntryRepository
	outboxRepo OutboxRepository
	idGen      IDGenerator
	now        func() time.Time
}

// NewRecorder creates a new Recorder. outboxRepo may be nil.
func NewRecorder(entryRepo EntryRepository, outboxRepo OutboxRepository, idGen IDGenerator) *Recorder {
	return &Recorder{
		entryRepo:  entryRepo,
		outboxRepo: outboxRepo,
		idGen:      idGen,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// AppendInput describes one entry to append.
type AppendInput struct {
	ExecutedAt       *time.Time
	ExecutorID       *string
	ExecutorName     *string
	RelatedReceiptID *string
	RelatedEntryID   *int64
	ReversedCategory *domain.Category
	// Absolute holds the target balances of a Mixed correction.
	Absolute      *domain.Balances
	Category      domain.Category
	PaymentMethod domain.PaymentMethod
	Description   string
	Amount        decimal.Decimal
	Labor         decimal.Decimal
	PartsProfit   decimal.Decimal
}

// Append computes the next snapshot from the tail and stores the entry.
// The sign of the amount is not checked against the category.
func (r *Recorder) Append(ctx context.Context, tx Transaction, input AppendInput) (*domain.LedgerEntry, error) {
	if !input.Category.IsValid() {
		return nil, domain.ErrInvalidCategory
	}
	if !input.PaymentMethod.IsValid() {
		return nil, domain.ErrInvalidPaymentMethod
	}

	// 1. Read tail under the writer lock
	tail, err := r.entryRepo.LockTail(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("lock ledger tail: %w", err)
	}

	// 2. Compute snapshot
	next, err := domain.NextSnapshot(tail, input.Category, input.PaymentMethod, input.Amount, input.Absolute)
	if err != nil {
		return nil, err
	}

	now := r.now()
	executedAt := now
	if input.ExecutedAt != nil {
		executedAt = input.ExecutedAt.UTC()
	}

	entry := &domain.LedgerEntry{
		CreatedAt:        now,
		ExecutedAt:       executedAt,
		Category:         input.Category,
		Description:      input.Description,
		Amount:           input.Amount,
		CashAfter:        next.Cash,
		CardAfter:        next.Card,
		PaymentMethod:    input.PaymentMethod,
		ExecutorID:       input.ExecutorID,
		ExecutorName:     input.ExecutorName,
		RelatedReceiptID: input.RelatedReceiptID,
		RelatedEntryID:   input.RelatedEntryID,
		ReversedCategory: input.ReversedCategory,
		Labor:            input.Labor,
		PartsProfit:      input.PartsProfit,
	}

	// 3. Store entry
	if err := r.entryRepo.Append(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("append entry: %w", err)
	}

	// 4. Emit event
	if r.outboxRepo != nil {
		event := &domain.OutboxEvent{
			ID:            r.idGen.Generate(),
			AggregateID:   domain.EntryAggregateID(entry.ID),
			AggregateType: domain.AggregateTypeEntry,
			EventType:     domain.EventTypeEntryAppended,
			Payload:       domain.MarshalState(domain.NewEntryAppendedEvent(entry)),
			CreatedAt:     now,
		}
		if err := r.outboxRepo.Create(ctx, tx, event); err != nil {
			return nil, fmt.Errorf("create outbox event: %w", err)
		}
	}

	return entry, nil
}

// reversalOf builds the input that undoes entry: same method, negated
// amount and breakdown, linked back to entry.
func reversalOf(entry *domain.LedgerEntry, category domain.Category, description string) AppendInput {
	id := entry.ID
	reversed := entry.Category
	return AppendInput{
		Category:         category,
		PaymentMethod:    entry.PaymentMethod,
		Description:      description,
		Amount:           entry.Amount.Neg(),
		ExecutorID:       entry.ExecutorID,
		ExecutorName:     entry.ExecutorName,
		RelatedReceiptID: entry.RelatedReceiptID,
		RelatedEntryID:   &id,
		ReversedCategory: &reversed,
		Labor:            entry.Labor.Neg(),
		PartsProfit:      entry.PartsProfit.Neg(),
	}
}
