package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/taskway/taskway/internal/guard"
	"github.com/taskway/taskway/internal/platform/db"
	"github.com/taskway/taskway/internal/shared"
)

// Repository defines persistence operations for notifications.
type Repository interface {
	Create(ctx context.Context, n Notification) error
	Get(ctx context.Context, id string) (*Notification, error)
	MarkRead(ctx context.Context, id string, at time.Time) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, scope *guard.Scope) ([]Notification, int, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const notificationColumns = "id, recipient_id, tenant_id, kind, payload, read_at, deleted_at, created_at"

func (r *PGRepository) Create(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO notifications (id, recipient_id, tenant_id, kind, payload, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NOW())
	`, n.ID, n.RecipientID, n.TenantID, n.Kind, payload)
	return db.MapError(err)
}

func (r *PGRepository) Get(ctx context.Context, id string) (*Notification, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+notificationColumns+" FROM notifications WHERE id = $1", id)
	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// MarkRead is idempotent: an already-read notification keeps its first
// read timestamp.
func (r *PGRepository) MarkRead(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE notifications SET read_at = COALESCE(read_at, $1) WHERE id = $2 AND deleted_at IS NULL",
		at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.Errorf(shared.ErrNotFound, "notifications: %s", id)
	}
	return nil
}

func (r *PGRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE notifications SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL",
		at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.Errorf(shared.ErrNotFound, "notifications: %s", id)
	}
	return nil
}

func (r *PGRepository) List(ctx context.Context, scope *guard.Scope) ([]Notification, int, error) {
	var (
		rows  []Notification
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		query, args := scope.CountSQL("SELECT count(*) FROM notifications")
		return r.pool.QueryRow(gctx, query, args...).Scan(&total)
	})
	g.Go(func() error {
		query, args := scope.PageSQL("SELECT " + notificationColumns + " FROM notifications")
		pgRows, err := r.pool.Query(gctx, query, args...)
		if err != nil {
			return err
		}
		defer pgRows.Close()
		for pgRows.Next() {
			n, err := scanNotification(pgRows)
			if err != nil {
				return err
			}
			rows = append(rows, *n)
		}
		return pgRows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var (
		n        Notification
		tenantID pgtype.Text
		payload  []byte
		readAt   pgtype.Timestamptz
		deleted  pgtype.Timestamptz
	)
	err := row.Scan(&n.ID, &n.RecipientID, &tenantID, &n.Kind, &payload, &readAt, &deleted, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	if tenantID.Valid {
		n.TenantID = tenantID.String
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &n.Payload); err != nil {
			return nil, err
		}
	}
	if readAt.Valid {
		ts := readAt.Time
		n.ReadAt = &ts
	}
	if deleted.Valid {
		ts := deleted.Time
		n.DeletedAt = &ts
	}
	return &n, nil
}

var _ Repository = (*PGRepository)(nil)
