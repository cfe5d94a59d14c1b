package domain

import (
	"context"
	"encoding/json"
	"time"
)

// SystemActor is recorded as the actor of changes made without an
// authenticated user, such as writes through the CLI on an open API.
const SystemActor = "system"

// AuditLog records who changed the ledger or the settings, with the state
// before and after. It is written in the same transaction as the change.
type AuditLog struct {
	ID           string
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	UserAgent    string
	RequestID    string
	BeforeState  JSON
	AfterState   JSON
	Status       string
	ErrorMessage string
	CreatedAt    time.Time
}

// JSON is a decoded JSON object.
type JSON map[string]any

// AuditAction names an audited change.
type AuditAction string

const (
	AuditActionEntryRecord     AuditAction = "entry.record"
	AuditActionEntryDelete     AuditAction = "entry.delete"
	AuditActionLedgerReconcile AuditAction = "ledger.reconcile"
	AuditActionReceiptRefund   AuditAction = "receipt.refund"
	AuditActionSettingsUpdate  AuditAction = "settings.update"
)

// Resource types
const (
	ResourceTypeEntry    = "entry"
	ResourceTypeLedger   = "ledger"
	ResourceTypeReceipt  = "receipt"
	ResourceTypeSettings = "settings"
)

// AuditStatusSuccess is the status of every committed change. Failed changes
// roll back together with their audit row.
const AuditStatusSuccess = "success"

// RequestMeta describes the HTTP request a change came from.
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}

type requestMetaContextKey struct{}

// ContextWithRequestMeta attaches request metadata for audit logs.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaContextKey{}, meta)
}

// RequestMetaFromContext returns the metadata stored by
// ContextWithRequestMeta, or the zero value.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaContextKey{}).(RequestMeta)
	return meta
}

// ActorFromContext returns the authenticated user's ID, or SystemActor.
func ActorFromContext(ctx context.Context) string {
	if user, ok := UserFromContext(ctx); ok && user.ID != "" {
		return user.ID
	}
	return SystemActor
}

// NewAuditLog builds a successful audit record, taking the actor and the
// request metadata from ctx.
func NewAuditLog(ctx context.Context, id string, action AuditAction, resourceType, resourceID string, before, after any) *AuditLog {
	meta := RequestMetaFromContext(ctx)
	return &AuditLog{
		ID:           id,
		UserID:       ActorFromContext(ctx),
		Action:       string(action),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		RequestID:    meta.RequestID,
		BeforeState:  MarshalState(before),
		AfterState:   MarshalState(after),
		Status:       AuditStatusSuccess,
		CreatedAt:    time.Now().UTC(),
	}
}

// MarshalState converts a value to a JSON object for audit logs and event
// payloads. Values that do not encode to an object are wrapped under "value".
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		var scalar any
		_ = json.Unmarshal(data, &scalar)
		return JSON{"value": scalar}
	}

	return result
}
