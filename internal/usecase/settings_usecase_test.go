package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/cashledger/internal/domain"
)

func TestSettingsUseCase_Defaults(t *testing.T) {
	f := newFixture(t)

	s, err := f.config.GetSettings(context.Background())
	require.NoError(t, err)
	assert.True(t, s.CashRegisterEnabled)
	assert.True(t, s.CardCommissionPercent.Equal(d("1.5")))
}

func TestSettingsUseCase_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ctx = domain.ContextWithUser(ctx, &domain.User{ID: "u-1", Role: domain.RoleAdmin})
	updated, err := f.config.UpdateSettings(ctx, domain.Settings{
		CardCommissionPercent: d("2"),
		CashRegisterEnabled:   true,
	})
	require.NoError(t, err)
	assert.True(t, updated.CardCommissionPercent.Equal(d("2")))

	s, err := f.config.GetSettings(ctx)
	require.NoError(t, err)
	assert.True(t, s.CardCommissionPercent.Equal(d("2")))

	logs, err := f.audit.GetByResourceID(ctx, domain.ResourceTypeSettings, domain.ResourceTypeSettings)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "u-1", logs[0].UserID)

	events, err := f.outbox.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypeSettingsUpdated, events[0].EventType)
}

func TestSettingsUseCase_RejectsInvalidPercent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, pct := range []string{"-1", "100", "250"} {
		_, err := f.config.UpdateSettings(ctx, domain.Settings{CardCommissionPercent: d(pct), CashRegisterEnabled: true})
		require.ErrorIs(t, err, domain.ErrInvalidCommissionPercent, pct)
	}

	s, err := f.config.GetSettings(ctx)
	require.NoError(t, err)
	assert.True(t, s.CardCommissionPercent.Equal(d("1.5")))
}
