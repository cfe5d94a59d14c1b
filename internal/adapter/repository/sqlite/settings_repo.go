package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/usecase"
)

// SettingsRepository implements usecase.SettingsRepository on a single-row table.
type SettingsRepository struct {
	db       *sql.DB
	defaults domain.Settings
}

// NewSettingsRepository creates a new SettingsRepository. defaults are
// returned until settings are saved for the first time.
func NewSettingsRepository(db *sql.DB, defaults domain.Settings) *SettingsRepository {
	return &SettingsRepository{db: db, defaults: defaults}
}

// Get returns the stored settings.
func (r *SettingsRepository) Get(ctx context.Context) (domain.Settings, error) {
	var (
		percent string
		enabled bool
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT card_commission_percent, cash_register_enabled FROM register_settings WHERE id = 1`,
	).Scan(&percent, &enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return r.defaults, nil
	}
	if err != nil {
		return domain.Settings{}, err
	}

	pct, err := decimal.NewFromString(percent)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("stored commission percent: %w", err)
	}

	return domain.Settings{CardCommissionPercent: pct, CashRegisterEnabled: enabled}, nil
}

// Save upserts the settings row.
func (r *SettingsRepository) Save(ctx context.Context, tx usecase.Transaction, settings domain.Settings) error {
	sqlTx, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO register_settings (id, card_commission_percent, cash_register_enabled, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET card_commission_percent = excluded.card_commission_percent,
		    cash_register_enabled = excluded.cash_register_enabled,
		    updated_at = excluded.updated_at`,
		settings.CardCommissionPercent.String(),
		settings.CashRegisterEnabled,
		formatTime(time.Now()),
	)
	return err
}
