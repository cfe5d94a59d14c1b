package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/usecase"
)

// AuditRepository implements audit log persistence
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateTx inserts an audit log entry within the transaction
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	sqlTx, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	before, err := stateText(log.BeforeState)
	if err != nil {
		return err
	}
	after, err := stateText(log.AfterState)
	if err != nil {
		return err
	}

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, user_id, action, resource_type, resource_id, ip_address, user_agent,
			request_id, before_state, after_state, status, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID,
		log.UserID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		log.IPAddress,
		log.UserAgent,
		log.RequestID,
		before,
		after,
		log.Status,
		log.ErrorMessage,
		formatTime(log.CreatedAt),
	)
	return err
}

// GetByResourceID retrieves all audit logs for a specific resource
func (r *AuditRepository) GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, action, resource_type, resource_id, ip_address, user_agent,
		       request_id, before_state, after_state, status, error_message, created_at
		FROM audit_logs
		WHERE resource_type = ? AND resource_id = ?
		ORDER BY created_at, id`, resourceType, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]*domain.AuditLog, 0)
	for rows.Next() {
		var (
			log           domain.AuditLog
			before, after sql.NullString
			createdAt     string
		)
		err := rows.Scan(
			&log.ID,
			&log.UserID,
			&log.Action,
			&log.ResourceType,
			&log.ResourceID,
			&log.IPAddress,
			&log.UserAgent,
			&log.RequestID,
			&before,
			&after,
			&log.Status,
			&log.ErrorMessage,
			&createdAt,
		)
		if err != nil {
			return nil, err
		}
		if before.Valid {
			_ = json.Unmarshal([]byte(before.String), &log.BeforeState)
		}
		if after.Valid {
			_ = json.Unmarshal([]byte(after.String), &log.AfterState)
		}
		log.CreatedAt, _ = parseTime(createdAt)
		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

func stateText(state domain.JSON) (sql.NullString, error) {
	if state == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
