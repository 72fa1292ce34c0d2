package tasks

import (
	"context"
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

// Repository defines persistence operations for tasks.
type Repository interface {
	Create(ctx context.Context, task Task) error
	// Get returns the row regardless of its soft-delete state; the
	// guard decides what the caller may learn about it.
	Get(ctx context.Context, id string) (*Task, error)
	Update(ctx context.Context, task Task) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, scope *guard.Scope) ([]Task, int, error)
	// HasBoardMember reports whether the account holds a live
	// membership on the task's board.
	HasBoardMember(ctx context.Context, taskID, accountID string) (bool, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const taskColumns = "id, board_id, tenant_id, owner_id, assignee_id, title, body, status, due_date, deleted_at, created_at, updated_at"

func (r *PGRepository) Create(ctx context.Context, task Task) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tasks (id, board_id, tenant_id, owner_id, assignee_id, title, body, status, due_date, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), $6, $7, $8, $9, NOW(), NOW())
	`, task.ID, task.BoardID, task.TenantID, task.OwnerID, task.AssigneeID, task.Title, task.Body, task.Status, task.DueDate)
	return db.MapError(err)
}

func (r *PGRepository) Get(ctx context.Context, id string) (*Task, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1", id)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *PGRepository) Update(ctx context.Context, task Task) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET title = $1, body = $2, status = $3, due_date = $4, assignee_id = NULLIF($5, ''), updated_at = $6
		WHERE id = $7 AND deleted_at IS NULL
	`, task.Title, task.Body, task.Status, task.DueDate, task.AssigneeID, task.UpdatedAt, task.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.Errorf(shared.ErrNotFound, "tasks: %s", task.ID)
	}
	return nil
}

func (r *PGRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE tasks SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL",
		at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.Errorf(shared.ErrNotFound, "tasks: %s", id)
	}
	return nil
}

func (r *PGRepository) List(ctx context.Context, scope *guard.Scope) ([]Task, int, error) {
	var (
		rows  []Task
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		query, args := scope.CountSQL("SELECT count(*) FROM tasks")
		return r.pool.QueryRow(gctx, query, args...).Scan(&total)
	})
	g.Go(func() error {
		query, args := scope.PageSQL("SELECT " + taskColumns + " FROM tasks")
		pgRows, err := r.pool.Query(gctx, query, args...)
		if err != nil {
			return err
		}
		defer pgRows.Close()
		for pgRows.Next() {
			task, err := scanTask(pgRows)
			if err != nil {
				return err
			}
			rows = append(rows, *task)
		}
		return pgRows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *PGRepository) HasBoardMember(ctx context.Context, taskID, accountID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1
			FROM tasks t
			JOIN board_members m ON m.board_id = t.board_id AND m.deleted_at IS NULL
			WHERE t.id = $1 AND m.account_id = $2
		)
	`, taskID, accountID).Scan(&exists)
	return exists, err
}

func scanTask(row pgx.Row) (*Task, error) {
	var (
		task       Task
		tenantID   pgtype.Text
		assigneeID pgtype.Text
		dueDate    pgtype.Timestamptz
		deletedAt  pgtype.Timestamptz
	)
	err := row.Scan(&task.ID, &task.BoardID, &tenantID, &task.OwnerID, &assigneeID,
		&task.Title, &task.Body, &task.Status, &dueDate, &deletedAt, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if tenantID.Valid {
		task.TenantID = tenantID.String
	}
	if assigneeID.Valid {
		task.AssigneeID = assigneeID.String
	}
	if dueDate.Valid {
		ts := dueDate.Time
		task.DueDate = &ts
	}
	if deletedAt.Valid {
		ts := deletedAt.Time
		task.DeletedAt = &ts
	}
	return &task, nil
}

var _ Repository = (*PGRepository)(nil)
