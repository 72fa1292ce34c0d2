package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskway/taskway/internal/observability"
	"github.com/taskway/taskway/internal/shared"
)

// purgeTables lists the soft-deleting tables in dependency order so
// children go before their parents.
var purgeTables = []string{
	"notifications",
	"board_members",
	"tasks",
	"boards",
	"tenant_assignments",
	"accounts",
}

// Purger permanently removes soft-deleted rows past the retention
// window and expires old idempotency keys.
type Purger struct {
	logger      *slog.Logger
	pool        *pgxpool.Pool
	idempotency *shared.IdempotencyStore
	retention   time.Duration
	metrics     *observability.Metrics
}

// NewPurger constructs the purge handler.
func NewPurger(logger *slog.Logger, pool *pgxpool.Pool, idem *shared.IdempotencyStore, retention time.Duration, metrics *observability.Metrics) *Purger {
	return &Purger{logger: logger, pool: pool, idempotency: idem, retention: retention, metrics: metrics}
}

// Handle processes one TaskRetentionPurge task.
func (p *Purger) Handle(ctx context.Context, t *asynq.Task) error {
	cutoff := time.Now().UTC().Add(-p.retention)
	for _, table := range purgeTables {
		tag, err := p.pool.Exec(ctx, "DELETE FROM "+table+" WHERE deleted_at IS NOT NULL AND deleted_at < $1", cutoff)
		if err != nil {
			p.metrics.ObserveJob(TaskRetentionPurge, "error")
			return err
		}
		if n := tag.RowsAffected(); n > 0 {
			p.logger.Info("purged soft-deleted rows",
				slog.String("table", table), slog.Int64("rows", n))
		}
	}
	if err := p.idempotency.Cleanup(ctx, p.retention); err != nil {
		p.metrics.ObserveJob(TaskRetentionPurge, "error")
		return err
	}
	p.metrics.ObserveJob(TaskRetentionPurge, "ok")
	return nil
}
