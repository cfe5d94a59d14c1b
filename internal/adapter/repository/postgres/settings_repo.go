package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/infrastructure/postgres/generated"
	"github.com/iho/cashledger/internal/usecase"
)

// SettingsRepository implements usecase.SettingsRepository on a single-row table.
type SettingsRepository struct {
	queries  *generated.Queries
	defaults domain.Settings
}

// NewSettingsRepository creates a new SettingsRepository. defaults are
// returned until settings are saved for the first time.
func NewSettingsRepository(db generated.DBTX, defaults domain.Settings) *SettingsRepository {
	return &SettingsRepository{
		queries:  generated.New(db),
		defaults: defaults,
	}
}

// Get returns the stored settings.
func (r *SettingsRepository) Get(ctx context.Context) (domain.Settings, error) {
	row, err := r.queries.GetRegisterSettings(ctx)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.defaults, nil
	}
	if err != nil {
		return domain.Settings{}, err
	}

	return domain.Settings{
		CardCommissionPercent: numericToDecimal(row.CardCommissionPercent),
		CashRegisterEnabled:   row.CashRegisterEnabled,
	}, nil
}

// Save upserts the settings row.
func (r *SettingsRepository) Save(ctx context.Context, tx usecase.Transaction, settings domain.Settings) error {
	_, q, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	return q.UpsertRegisterSettings(ctx, generated.UpsertRegisterSettingsParams{
		CardCommissionPercent: decimalToNumeric(settings.CardCommissionPercent),
		CashRegisterEnabled:   settings.CashRegisterEnabled,
		UpdatedAt:             timeToPgTimestamptz(time.Now().UTC()),
	})
}
