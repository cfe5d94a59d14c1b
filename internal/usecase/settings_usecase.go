package usecase

import (
	"context"
	"time"

	"github.com/iho/cashledger/internal/domain"
)

// settingsInvalidator is implemented by caching settings repositories.
type settingsInvalidator interface {
	Invalidate(ctx context.Context)
}

// SettingsUseCase reads and updates register settings.
type SettingsUseCase struct {
	txManager    TransactionManager
	settingsRepo SettingsRepository
	outboxRepo   OutboxRepository
	auditRepo    AuditRepository
	idGen        IDGenerator
}

// NewSettingsUseCase creates a new SettingsUseCase.
func NewSettingsUseCase(
	txManager TransactionManager,
	settingsRepo SettingsRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
) *SettingsUseCase {
	return &SettingsUseCase{
		txManager:    txManager,
		settingsRepo: settingsRepo,
		outboxRepo:   outboxRepo,
		auditRepo:    auditRepo,
		idGen:        idGen,
	}
}

// GetSettings returns the current settings.
func (uc *SettingsUseCase) GetSettings(ctx context.Context) (domain.Settings, error) {
	return uc.settingsRepo.Get(ctx)
}

// UpdateSettings validates and stores new settings.
func (uc *SettingsUseCase) UpdateSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	if err := settings.Validate(); err != nil {
		return domain.Settings{}, err
	}

	before, err := uc.settingsRepo.Get(ctx)
	if err != nil {
		return domain.Settings{}, err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := uc.settingsRepo.Save(ctx, tx, settings); err != nil {
		return domain.Settings{}, err
	}

	now := time.Now().UTC()
	if uc.outboxRepo != nil {
		event := &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   domain.AggregateTypeSettings,
			AggregateType: domain.AggregateTypeSettings,
			EventType:     domain.EventTypeSettingsUpdated,
			Payload: domain.MarshalState(domain.SettingsUpdatedEvent{
				CardCommissionPercent: settings.CardCommissionPercent.String(),
				CashRegisterEnabled:   settings.CashRegisterEnabled,
			}),
			CreatedAt: now,
		}
		if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
			return domain.Settings{}, err
		}
	}

	if uc.auditRepo != nil {
		auditLog := domain.NewAuditLog(ctx, uc.idGen.Generate(), domain.AuditActionSettingsUpdate,
			domain.ResourceTypeSettings, domain.ResourceTypeSettings, before, settings)
		if err := uc.auditRepo.CreateTx(ctx, tx, auditLog); err != nil {
			return domain.Settings{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Settings{}, err
	}

	if inv, ok := uc.settingsRepo.(settingsInvalidator); ok {
		inv.Invalidate(ctx)
	}

	return settings, nil
}
