package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/infrastructure/postgres/generated"
	"github.com/iho/cashledger/internal/usecase"
)

// AuditRepository implements audit log persistence
type AuditRepository struct {
	queries *generated.Queries
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db generated.DBTX) *AuditRepository {
	return &AuditRepository{queries: generated.New(db)}
}

// CreateTx inserts an audit log entry within the transaction
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	_, q, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	beforeState, err := marshalState(log.BeforeState)
	if err != nil {
		return err
	}
	afterState, err := marshalState(log.AfterState)
	if err != nil {
		return err
	}

	return q.CreateAuditLog(ctx, generated.CreateAuditLogParams{
		ID:           log.ID,
		UserID:       log.UserID,
		Action:       log.Action,
		ResourceType: log.ResourceType,
		ResourceID:   log.ResourceID,
		IpAddress:    log.IPAddress,
		UserAgent:    log.UserAgent,
		RequestID:    log.RequestID,
		BeforeState:  beforeState,
		AfterState:   afterState,
		Status:       log.Status,
		ErrorMessage: log.ErrorMessage,
		CreatedAt:    timeToPgTimestamptz(log.CreatedAt),
	})
}

// GetByResourceID retrieves all audit logs for a specific resource
func (r *AuditRepository) GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error) {
	rows, err := r.queries.GetAuditLogsByResource(ctx, generated.GetAuditLogsByResourceParams{
		ResourceType: resourceType,
		ResourceID:   resourceID,
	})
	if err != nil {
		return nil, err
	}

	logs := make([]*domain.AuditLog, 0, len(rows))
	for _, row := range rows {
		log := &domain.AuditLog{
			ID:           row.ID,
			UserID:       row.UserID,
			Action:       row.Action,
			ResourceType: row.ResourceType,
			ResourceID:   row.ResourceID,
			IPAddress:    row.IpAddress,
			UserAgent:    row.UserAgent,
			RequestID:    row.RequestID,
			Status:       row.Status,
			ErrorMessage: row.ErrorMessage,
			CreatedAt:    row.CreatedAt.Time,
		}
		if row.BeforeState != nil {
			_ = json.Unmarshal(row.BeforeState, &log.BeforeState)
		}
		if row.AfterState != nil {
			_ = json.Unmarshal(row.AfterState, &log.AfterState)
		}
		logs = append(logs, log)
	}

	return logs, nil
}

func marshalState(state domain.JSON) ([]byte, error) {
	if state == nil {
		return nil, nil
	}
	return json.Marshal(state)
}
