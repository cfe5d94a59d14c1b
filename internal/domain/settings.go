package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCardCommissionPercent is used until an operator changes the setting.
var DefaultCardCommissionPercent = decimal.RequireFromString("1.5")

// Settings are the register options consumed by the reconciler.
type Settings struct {
	CardCommissionPercent decimal.Decimal
	CashRegisterEnabled   bool
}

// DefaultSettings returns the settings of a fresh installation.
func DefaultSettings() Settings {
	return Settings{
		CardCommissionPercent: DefaultCardCommissionPercent,
		CashRegisterEnabled:   true,
	}
}

// Validate checks that the commission is a percentage in [0, 100).
func (s Settings) Validate() error {
	if s.CardCommissionPercent.IsNegative() || s.CardCommissionPercent.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: %s", ErrInvalidCommissionPercent, s.CardCommissionPercent)
	}
	return nil
}
