package domain

import (
	"strconv"
	"time"
)

// Event types
const (
	EventTypeEntryAppended    = "entry.appended"
	EventTypeEntryDeleted     = "entry.deleted"
	EventTypeLedgerReconciled = "ledger.reconciled"
	EventTypeSettingsUpdated  = "settings.updated"
)

// Aggregate types
const (
	AggregateTypeEntry    = "entry"
	AggregateTypeLedger   = "ledger"
	AggregateTypeSettings = "settings"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// EntryAppendedEvent payload
type EntryAppendedEvent struct {
	EntryID          int64  `json:"entry_id"`
	Category         string `json:"category"`
	PaymentMethod    string `json:"payment_method"`
	Amount           string `json:"amount"`
	CashAfter        string `json:"cash_after"`
	CardAfter        string `json:"card_after"`
	RelatedReceiptID string `json:"related_receipt_id,omitempty"`
	RelatedEntryID   int64  `json:"related_entry_id,omitempty"`
}

// NewEntryAppendedEvent builds the payload for an appended entry.
func NewEntryAppendedEvent(e *LedgerEntry) EntryAppendedEvent {
	ev := EntryAppendedEvent{
		EntryID:       e.ID,
		Category:      string(e.Category),
		PaymentMethod: string(e.PaymentMethod),
		Amount:        e.Amount.String(),
		CashAfter:     e.CashAfter.String(),
		CardAfter:     e.CardAfter.String(),
	}
	if e.RelatedReceiptID != nil {
		ev.RelatedReceiptID = *e.RelatedReceiptID
	}
	if e.RelatedEntryID != nil {
		ev.RelatedEntryID = *e.RelatedEntryID
	}
	return ev
}

// EntryDeletedEvent payload
type EntryDeletedEvent struct {
	EntryID      int64  `json:"entry_id"`
	CashDelta    string `json:"cash_delta"`
	CardDelta    string `json:"card_delta"`
	ShiftedCount int64  `json:"shifted_count"`
}

// LedgerReconciledEvent payload
type LedgerReconciledEvent struct {
	CorrectionEntryID int64  `json:"correction_entry_id"`
	CashDiff          string `json:"cash_diff"`
	CardDiff          string `json:"card_diff"`
}

// SettingsUpdatedEvent payload
type SettingsUpdatedEvent struct {
	CardCommissionPercent string `json:"card_commission_percent"`
	CashRegisterEnabled   bool   `json:"cash_register_enabled"`
}

// EntryAggregateID formats an entry id for outbox and audit records.
func EntryAggregateID(id int64) string {
	return strconv.FormatInt(id, 10)
}
