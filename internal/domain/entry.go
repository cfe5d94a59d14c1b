package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category classifies a ledger entry.
type Category string

const (
	CategoryProfit         Category = "profit"
	CategoryBankCommission Category = "bank_commission"
	CategoryPurchase       Category = "purchase"
	CategoryCancellation   Category = "cancellation"
	CategoryRefund         Category = "refund"
	CategoryWriteOff       Category = "write_off"
	CategoryCorrection     Category = "correction"
	CategoryInitialBalance Category = "initial_balance"
)

var validCategories = map[Category]bool{
	CategoryProfit:         true,
	CategoryBankCommission: true,
	CategoryPurchase:       true,
	CategoryCancellation:   true,
	CategoryRefund:         true,
	CategoryWriteOff:       true,
	CategoryCorrection:     true,
	CategoryInitialBalance: true,
}

// IsValid checks if the category is one of the known categories.
func (c Category) IsValid() bool {
	return validCategories[c]
}

// IsReversal reports whether entries of this category undo an earlier entry.
func (c Category) IsReversal() bool {
	return c == CategoryCancellation || c == CategoryRefund
}

// ParseCategory parses a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// PaymentMethod selects which balance component an entry affects.
type PaymentMethod string

const (
	PaymentMethodCash  PaymentMethod = "cash"
	PaymentMethodCard  PaymentMethod = "card"
	PaymentMethodMixed PaymentMethod = "mixed"
)

// IsValid checks if the method is one of the known methods.
func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodCash || m == PaymentMethodCard || m == PaymentMethodMixed
}

// ParsePaymentMethod parses a payment method name.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
	}
	return m, nil
}

// Balances is the pair of running balances of the register.
type Balances struct {
	Cash decimal.Decimal
	Card decimal.Decimal
}

// Total returns cash plus card.
func (b Balances) Total() decimal.Decimal {
	return b.Cash.Add(b.Card)
}

// Equal compares both components numerically.
func (b Balances) Equal(o Balances) bool {
	return b.Cash.Equal(o.Cash) && b.Card.Equal(o.Card)
}

// Sub returns the component-wise difference b - o.
func (b Balances) Sub(o Balances) Balances {
	return Balances{Cash: b.Cash.Sub(o.Cash), Card: b.Card.Sub(o.Card)}
}

// Add returns the component-wise sum b + o.
func (b Balances) Add(o Balances) Balances {
	return Balances{Cash: b.Cash.Add(o.Cash), Card: b.Card.Add(o.Card)}
}

// IsZero reports whether both components are zero.
func (b Balances) IsZero() bool {
	return b.Cash.IsZero() && b.Card.IsZero()
}

// LedgerEntry is one immutable record of the register log. CashAfter and
// CardAfter hold the full balance snapshot right after the entry was applied.
type LedgerEntry struct {
	CreatedAt        time.Time
	ExecutedAt       time.Time
	ID               int64
	Category         Category
	Description      string
	Amount           decimal.Decimal
	CashAfter        decimal.Decimal
	CardAfter        decimal.Decimal
	PaymentMethod    PaymentMethod
	ExecutorID       *string
	ExecutorName     *string
	RelatedReceiptID *string
	RelatedEntryID   *int64
	ReversedCategory *Category
	Labor            decimal.Decimal
	PartsProfit      decimal.Decimal
}

// Snapshot returns the balances stored on the entry.
func (e *LedgerEntry) Snapshot() Balances {
	return Balances{Cash: e.CashAfter, Card: e.CardAfter}
}

// NextSnapshot computes the balances after applying an entry of the given
// category, method and amount on top of prev. For Mixed (corrections only)
// the absolute balances are taken as given.
func NextSnapshot(prev Balances, category Category, method PaymentMethod, amount decimal.Decimal, absolute *Balances) (Balances, error) {
	if !category.IsValid() {
		return Balances{}, ErrInvalidCategory
	}

	if category == CategoryWriteOff {
		if method == PaymentMethodMixed {
			return Balances{}, ErrMixedNotAllowed
		}
		return prev, nil
	}

	switch method {
	case PaymentMethodCash:
		return Balances{Cash: prev.Cash.Add(amount), Card: prev.Card}, nil
	case PaymentMethodCard:
		return Balances{Cash: prev.Cash, Card: prev.Card.Add(amount)}, nil
	case PaymentMethodMixed:
		if category != CategoryCorrection {
			return Balances{}, ErrMixedNotAllowed
		}
		if absolute == nil {
			return Balances{}, fmt.Errorf("%w: correction requires absolute balances", ErrInvalidAmount)
		}
		return *absolute, nil
	default:
		return Balances{}, ErrInvalidPaymentMethod
	}
}

// Effect returns the balance change carried by an entry relative to its
// predecessor's snapshot.
func (e *LedgerEntry) Effect(prev Balances) Balances {
	return e.Snapshot().Sub(prev)
}

// Replay recomputes the snapshot chain of entries (ordered by ID) starting
// from zero and returns the first entry whose stored snapshot disagrees.
func Replay(entries []*LedgerEntry) (Balances, *SnapshotMismatch) {
	var cur Balances
	for _, e := range entries {
		var abs *Balances
		if e.PaymentMethod == PaymentMethodMixed {
			s := e.Snapshot()
			abs = &s
		}
		next, err := NextSnapshot(cur, e.Category, e.PaymentMethod, e.Amount, abs)
		if err != nil || !next.Equal(e.Snapshot()) {
			return cur, &SnapshotMismatch{EntryID: e.ID, Expected: next, Stored: e.Snapshot()}
		}
		cur = next
	}
	return cur, nil
}

// SnapshotMismatch describes the first entry whose stored snapshot differs
// from the replayed one.
type SnapshotMismatch struct {
	EntryID  int64
	Expected Balances
	Stored   Balances
}

func (m *SnapshotMismatch) Error() string {
	return fmt.Sprintf("entry %d: stored cash=%s card=%s, expected cash=%s card=%s",
		m.EntryID, m.Stored.Cash, m.Stored.Card, m.Expected.Cash, m.Expected.Card)
}

func (m *SnapshotMismatch) Unwrap() error {
	return ErrSnapshotMismatch
}

// EntryFilter narrows ListEntries. From/To bound ExecutedAt inclusively.
type EntryFilter struct {
	From          *time.Time
	To            *time.Time
	Category      *Category
	PaymentMethod *PaymentMethod
	Search        string
	Limit         int
	Offset        int
}

// Matches reports whether the entry passes the filter, ignoring paging.
func (f EntryFilter) Matches(e *LedgerEntry) bool {
	if f.From != nil && e.ExecutedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.ExecutedAt.After(*f.To) {
		return false
	}
	if f.Category != nil && e.Category != *f.Category {
		return false
	}
	if f.PaymentMethod != nil && e.PaymentMethod != *f.PaymentMethod {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.Description), q) &&
			(e.ExecutorName == nil || !strings.Contains(strings.ToLower(*e.ExecutorName), q)) &&
			(e.RelatedReceiptID == nil || !strings.Contains(strings.ToLower(*e.RelatedReceiptID), q)) {
			return false
		}
	}
	return true
}

// Validate checks the filter's date range and normalizes paging.
func (f *EntryFilter) Validate() error {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return ErrInvalidDateRange
	}
	if f.Category != nil && !f.Category.IsValid() {
		return ErrInvalidCategory
	}
	if f.PaymentMethod != nil && !f.PaymentMethod.IsValid() {
		return ErrInvalidPaymentMethod
	}
	f.Limit, f.Offset = NormalizePage(f.Limit, f.Offset)
	return nil
}
