package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	store *Store
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(store *Store) *EntryRepository {
	return &EntryRepository{store: store}
}

// LockTail returns the tail snapshot. The writer lock is already held by the
// transaction.
func (r *EntryRepository) LockTail(ctx context.Context, tx usecase.Transaction) (domain.Balances, error) {
	t, err := txState(tx)
	if err != nil {
		return domain.Balances{}, err
	}
	if n := len(t.state.entries); n > 0 {
		return t.state.entries[n-1].Snapshot(), nil
	}
	return domain.Balances{}, nil
}

// Append stores the entry and assigns the next ID.
func (r *EntryRepository) Append(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	t, err := txState(tx)
	if err != nil {
		return err
	}
	entry.ID = t.state.nextID
	t.state.nextID++
	t.state.entries = append(t.state.entries, cloneEntry(entry))
	return nil
}

// GetByIDTx returns an entry within the transaction.
func (r *EntryRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, id int64) (*domain.LedgerEntry, error) {
	t, err := txState(tx)
	if err != nil {
		return nil, err
	}
	i, ok := indexOf(t.state.entries, id)
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return cloneEntry(t.state.entries[i]), nil
}

// PreviousTx returns the entry preceding id, or nil.
func (r *EntryRepository) PreviousTx(ctx context.Context, tx usecase.Transaction, id int64) (*domain.LedgerEntry, error) {
	t, err := txState(tx)
	if err != nil {
		return nil, err
	}
	i := sort.Search(len(t.state.entries), func(i int) bool { return t.state.entries[i].ID >= id })
	if i == 0 {
		return nil, nil
	}
	return cloneEntry(t.state.entries[i-1]), nil
}

// LatestByReceiptTx returns the newest entry of the category for the receipt.
func (r *EntryRepository) LatestByReceiptTx(ctx context.Context, tx usecase.Transaction, receiptID string, category domain.Category) (*domain.LedgerEntry, error) {
	t, err := txState(tx)
	if err != nil {
		return nil, err
	}
	for i := len(t.state.entries) - 1; i >= 0; i-- {
		e := t.state.entries[i]
		if e.Category == category && e.RelatedReceiptID != nil && *e.RelatedReceiptID == receiptID {
			return cloneEntry(e), nil
		}
	}
	return nil, domain.ErrEntryNotFound
}

// IsReferencedTx reports whether any entry links to id.
func (r *EntryRepository) IsReferencedTx(ctx context.Context, tx usecase.Transaction, id int64) (bool, error) {
	t, err := txState(tx)
	if err != nil {
		return false, err
	}
	for _, e := range t.state.entries {
		if e.RelatedEntryID != nil && *e.RelatedEntryID == id {
			return true, nil
		}
	}
	return false, nil
}

// Delete removes an entry.
func (r *EntryRepository) Delete(ctx context.Context, tx usecase.Transaction, id int64) error {
	t, err := txState(tx)
	if err != nil {
		return err
	}
	i, ok := indexOf(t.state.entries, id)
	if !ok {
		return domain.ErrEntryNotFound
	}
	entries := make([]*domain.LedgerEntry, 0, len(t.state.entries)-1)
	entries = append(entries, t.state.entries[:i]...)
	entries = append(entries, t.state.entries[i+1:]...)
	t.state.entries = entries
	return nil
}

// ShiftAfter subtracts delta from every snapshot after id.
func (r *EntryRepository) ShiftAfter(ctx context.Context, tx usecase.Transaction, id int64, delta domain.Balances) (int64, error) {
	t, err := txState(tx)
	if err != nil {
		return 0, err
	}
	var shifted int64
	for i, e := range t.state.entries {
		if e.ID <= id {
			continue
		}
		c := cloneEntry(e)
		c.CashAfter = c.CashAfter.Sub(delta.Cash)
		c.CardAfter = c.CardAfter.Sub(delta.Card)
		t.state.entries[i] = c
		shifted++
	}
	return shifted, nil
}

// GetByID returns a committed entry.
func (r *EntryRepository) GetByID(ctx context.Context, id int64) (*domain.LedgerEntry, error) {
	entries := r.store.snapshot().entries
	i, ok := indexOf(entries, id)
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return cloneEntry(entries[i]), nil
}

// Last returns the committed tail entry, or nil.
func (r *EntryRepository) Last(ctx context.Context) (*domain.LedgerEntry, error) {
	entries := r.store.snapshot().entries
	if len(entries) == 0 {
		return nil, nil
	}
	return cloneEntry(entries[len(entries)-1]), nil
}

// List returns matching entries, newest first.
func (r *EntryRepository) List(ctx context.Context, filter domain.EntryFilter) ([]*domain.LedgerEntry, error) {
	entries := r.store.snapshot().entries
	out := make([]*domain.LedgerEntry, 0)
	skipped := 0
	for i := len(entries) - 1; i >= 0 && len(out) < filter.Limit; i-- {
		if !filter.Matches(entries[i]) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, cloneEntry(entries[i]))
	}
	return out, nil
}

// ListByReceipt returns the receipt's entries, oldest first.
func (r *EntryRepository) ListByReceipt(ctx context.Context, receiptID string) ([]*domain.LedgerEntry, error) {
	out := make([]*domain.LedgerEntry, 0)
	for _, e := range r.store.snapshot().entries {
		if e.RelatedReceiptID != nil && *e.RelatedReceiptID == receiptID {
			out = append(out, cloneEntry(e))
		}
	}
	return out, nil
}

// ListByExecutor returns the executor's entries executed within [from, to].
func (r *EntryRepository) ListByExecutor(ctx context.Context, executorName string, from, to time.Time) ([]*domain.LedgerEntry, error) {
	out := make([]*domain.LedgerEntry, 0)
	for _, e := range r.store.snapshot().entries {
		if e.ExecutorName == nil || *e.ExecutorName != executorName {
			continue
		}
		if e.ExecutedAt.Before(from) || e.ExecutedAt.After(to) {
			continue
		}
		out = append(out, cloneEntry(e))
	}
	return out, nil
}

// ListAll returns the whole log, oldest first.
func (r *EntryRepository) ListAll(ctx context.Context) ([]*domain.LedgerEntry, error) {
	entries := r.store.snapshot().entries
	out := make([]*domain.LedgerEntry, len(entries))
	for i, e := range entries {
		out[i] = cloneEntry(e)
	}
	return out, nil
}

func indexOf(entries []*domain.LedgerEntry, id int64) (int, bool) {
	i := sort.Search(len(entries), func(i int) bool { return entries[i].ID >= id })
	if i < len(entries) && entries[i].ID == id {
		return i, true
	}
	return 0, false
}
