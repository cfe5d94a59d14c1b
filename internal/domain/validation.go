package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	MaxDescriptionLength = 1024 // characters, not bytes
	MaxReceiptIDLength   = 128

	DefaultPageSize = 50
	MaxPageSize     = 1000
)

// MaxAmount caps the absolute value of any single amount.
var MaxAmount = decimal.New(1, 12)

// ValidateAmount checks a positive money amount such as a receipt total, a
// purchase cost or a refund.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	if !amount.Equal(amount.Truncate(MoneyPlaces)) {
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, MoneyPlaces)
	}
	return ValidateMagnitude(amount)
}

// ValidateMagnitude rejects amounts above MaxAmount in either direction.
func ValidateMagnitude(amount decimal.Decimal) error {
	if amount.Abs().GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrInvalidAmount, MaxAmount)
	}
	return nil
}

// ValidateDescription returns the trimmed description.
func ValidateDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidDescription, MaxDescriptionLength)
	}
	return description, nil
}

// ValidateReceiptID returns the trimmed receipt id, which is the key the
// receipt's entries are stored under.
func ValidateReceiptID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrMissingReceipt
	}
	if len(id) > MaxReceiptIDLength {
		return "", fmt.Errorf("%w: id exceeds %d characters", ErrMissingReceipt, MaxReceiptIDLength)
	}
	return id, nil
}

// NormalizePage applies the default page size, caps the limit and clamps a
// negative offset to zero.
func NormalizePage(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	return limit, max(offset, 0)
}
