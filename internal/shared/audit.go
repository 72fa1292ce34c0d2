package shared

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEntry describes a single recorded action.
type AuditEntry struct {
	ActorID  string
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
}

// AuditLogger writes audit records. Failures are the caller's problem;
// services typically log and continue.
type AuditLogger struct {
	pool *pgxpool.Pool
}

func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record inserts a single audit row.
func (a *AuditLogger) Record(ctx context.Context, entry AuditEntry) error {
	if a == nil || a.pool == nil {
		return nil
	}
	var meta []byte
	if entry.Meta != nil {
		b, err := json.Marshal(entry.Meta)
		if err != nil {
			return err
		}
		meta = b
	}
	_, err := a.pool.Exec(ctx,
		`INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ActorID, entry.Action, entry.Entity, entry.EntityID, meta, time.Now().UTC())
	return err
}
