package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID attaches a correlation id to ctx. Audit records and events
// written under ctx carry it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the id set by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Audit actions.
const (
	AuditCreate     = "CREATE"
	AuditUpdate     = "UPDATE"
	AuditCancel     = "CANCEL"
	AuditAdjust     = "ADJUST"
	AuditStatus     = "STATUS"
	AuditDeactivate = "DEACTIVATE"
)

// AuditEntry is one row of audit_logs.
type AuditEntry struct {
	ID        int             `json:"id"`
	Entity    string          `json:"entity"`
	EntityID  int             `json:"entity_id"`
	Action    string          `json:"action"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// writeAuditTx appends an audit record inside the caller's transaction, so the
// record commits or rolls back together with the mutation it describes.
func writeAuditTx(ctx context.Context, tx pgx.Tx, entity string, entityID int, action string, detail any) error {
	var payload []byte
	if detail != nil {
		b, err := json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("failed to encode audit detail: %w", err)
		}
		payload = b
	}

	var requestID *string
	if id := RequestIDFromContext(ctx); id != "" {
		requestID = &id
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO audit_logs (entity, entity_id, action, detail, request_id)
		VALUES ($1, $2, $3, $4, $5)
	`, entity, entityID, action, payload, requestID)
	if err != nil {
		return fmt.Errorf("failed to write audit log for %s %d: %w", entity, entityID, err)
	}
	return nil
}

// AuditTrail returns the audit records of one entity, oldest first.
func AuditTrail(ctx context.Context, pool *pgxpool.Pool, entity string, entityID int) ([]AuditEntry, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, entity, entity_id, action, COALESCE(detail, 'null'::jsonb), COALESCE(request_id, ''), created_at
		FROM audit_logs
		WHERE entity = $1 AND entity_id = $2
		ORDER BY id
	`, entity, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var detail []byte
		if err := rows.Scan(&e.ID, &e.Entity, &e.EntityID, &e.Action, &detail, &e.RequestID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		e.Detail = detail
		out = append(out, e)
	}
	return out, rows.Err()
}
