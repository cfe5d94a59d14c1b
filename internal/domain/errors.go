package domain

import "errors"

var (
	// Entry errors
	ErrEntryNotFound    = errors.New("entry not found")
	ErrEntryReferenced  = errors.New("entry is referenced by a reversal")
	ErrSnapshotMismatch = errors.New("ledger snapshot mismatch")

	// Recording errors
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidCategory      = errors.New("invalid category")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrMixedNotAllowed      = errors.New("mixed payment method is only allowed for corrections")
	ErrInvalidDescription   = errors.New("invalid description")

	// Receipt errors
	ErrMissingReceipt     = errors.New("receipt id is required")
	ErrInvalidTransition  = errors.New("invalid payment state transition")
	ErrNothingToRefund    = errors.New("receipt has no active payment to refund")
	ErrRefundExceedsTotal = errors.New("refund amount exceeds paid total")

	// Settings and query errors
	ErrInvalidCommissionPercent = errors.New("card commission percent must be in [0, 100)")
	ErrInvalidDateRange         = errors.New("from must not be after to")

	// Outbox errors
	ErrEventAlreadyPublished = errors.New("outbox event already published")
)
