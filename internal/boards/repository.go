package boards

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

// Repository defines persistence operations for boards and memberships.
type Repository interface {
	Create(ctx context.Context, board Board) error
	// Get returns the row regardless of its soft-delete state; the
	// guard decides what the caller may learn about it.
	Get(ctx context.Context, id string) (*Board, error)
	Rename(ctx context.Context, id, name string, at time.Time) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, scope *guard.Scope) ([]Board, int, error)
	AddMember(ctx context.Context, m Membership) error
	RemoveMember(ctx context.Context, boardID, accountID string, at time.Time) error
	HasMember(ctx context.Context, boardID, accountID string) (bool, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const boardColumns = "id, tenant_id, owner_id, name, deleted_at, created_at, updated_at"

func (r *PGRepository) Create(ctx context.Context, board Board) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO boards (id, tenant_id, owner_id, name, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, NOW(), NOW())
	`, board.ID, board.TenantID, board.OwnerID, board.Name)
	return db.MapError(err)
}

func (r *PGRepository) Get(ctx context.Context, id string) (*Board, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+boardColumns+" FROM boards WHERE id = $1", id)
	board, err := scanBoard(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return board, nil
}

func (r *PGRepository) Rename(ctx context.Context, id, name string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE boards SET name = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL",
		name, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.Errorf(shared.ErrNotFound, "boards: %s", id)
	}
	return nil
}

func (r *PGRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE boards SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL",
		at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.Errorf(shared.ErrNotFound, "boards: %s", id)
	}
	return nil
}

func (r *PGRepository) List(ctx context.Context, scope *guard.Scope) ([]Board, int, error) {
	var (
		rows  []Board
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		query, args := scope.CountSQL("SELECT count(*) FROM boards")
		return r.pool.QueryRow(gctx, query, args...).Scan(&total)
	})
	g.Go(func() error {
		query, args := scope.PageSQL("SELECT " + boardColumns + " FROM boards")
		pgRows, err := r.pool.Query(gctx, query, args...)
		if err != nil {
			return err
		}
		defer pgRows.Close()
		for pgRows.Next() {
			board, err := scanBoard(pgRows)
			if err != nil {
				return err
			}
			rows = append(rows, *board)
		}
		return pgRows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// AddMember inserts a live membership. The partial unique index on
// (board_id, account_id) WHERE deleted_at IS NULL maps duplicates to
// shared.ErrConflict.
func (r *PGRepository) AddMember(ctx context.Context, m Membership) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO board_members (id, board_id, account_id, created_at)
		VALUES ($1, $2, $3, NOW())
	`, m.ID, m.BoardID, m.AccountID)
	return db.MapError(err)
}

func (r *PGRepository) RemoveMember(ctx context.Context, boardID, accountID string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE board_members SET deleted_at = $1 WHERE board_id = $2 AND account_id = $3 AND deleted_at IS NULL",
		at, boardID, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.Errorf(shared.ErrNotFound, "boards: membership %s/%s", boardID, accountID)
	}
	return nil
}

func (r *PGRepository) HasMember(ctx context.Context, boardID, accountID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM board_members WHERE board_id = $1 AND account_id = $2 AND deleted_at IS NULL)",
		boardID, accountID).Scan(&exists)
	return exists, err
}

func scanBoard(row pgx.Row) (*Board, error) {
	var (
		board     Board
		tenantID  pgtype.Text
		deletedAt pgtype.Timestamptz
	)
	err := row.Scan(&board.ID, &tenantID, &board.OwnerID, &board.Name, &deletedAt, &board.CreatedAt, &board.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if tenantID.Valid {
		board.TenantID = tenantID.String
	}
	if deletedAt.Valid {
		ts := deletedAt.Time
		board.DeletedAt = &ts
	}
	return &board, nil
}

var _ Repository = (*PGRepository)(nil)
