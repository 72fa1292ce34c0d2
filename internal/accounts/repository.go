package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/taskway/taskway/internal/guard"
	"github.com/taskway/taskway/internal/platform/db"
	"github.com/taskway/taskway/internal/shared"
)

// Repository defines persistence operations for the directory.
type Repository interface {
	Get(ctx context.Context, role, subjectID string) (*Account, error)
	FindByEmail(ctx context.Context, role, email string) (*Account, error)
	Create(ctx context.Context, acct Account) error
	Retire(ctx context.Context, role, subjectID string, at time.Time) error
	List(ctx context.Context, scope *guard.Scope) ([]Account, int, error)
	CurrentTenant(ctx context.Context, subjectID string) (string, error)
	AssignTenant(ctx context.Context, subjectID, tenantID string, at time.Time) error
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const accountColumns = "subject_id, role, email, display_name, password_hash, deleted_at, created_at, updated_at"

// tenant_assignments statements, kept together so the schema
// cross-check test can see them all.
const (
	currentTenantSQL    = "SELECT tenant_id FROM tenant_assignments WHERE subject_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC LIMIT 1"
	clearAssignmentSQL  = "UPDATE tenant_assignments SET deleted_at = $1 WHERE subject_id = $2 AND deleted_at IS NULL"
	insertAssignmentSQL = "INSERT INTO tenant_assignments (id, subject_id, tenant_id, created_at) VALUES ($1, $2, $3, $4)"
)

// Get fetches a live account by (role, subject).
func (r *PGRepository) Get(ctx context.Context, role, subjectID string) (*Account, error) {
	query := fmt.Sprintf("SELECT %s FROM accounts WHERE role = $1 AND subject_id = $2 AND deleted_at IS NULL", accountColumns)
	return r.scanOne(ctx, query, role, subjectID)
}

// FindByEmail fetches a live account by (role, email).
func (r *PGRepository) FindByEmail(ctx context.Context, role, email string) (*Account, error) {
	query := fmt.Sprintf("SELECT %s FROM accounts WHERE role = $1 AND email = $2 AND deleted_at IS NULL", accountColumns)
	return r.scanOne(ctx, query, role, email)
}

// Create inserts a directory row. A duplicate (role, email) pair maps to
// shared.ErrConflict via the unique index.
func (r *PGRepository) Create(ctx context.Context, acct Account) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (subject_id, role, email, display_name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`, acct.SubjectID, acct.Role, acct.Email, acct.DisplayName, acct.PasswordHash)
	if err != nil {
		return db.MapError(err)
	}
	return nil
}

// Retire soft-deletes an account and its live tenant assignment.
func (r *PGRepository) Retire(ctx context.Context, role, subjectID string, at time.Time) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			"UPDATE accounts SET deleted_at = $1, updated_at = $1 WHERE role = $2 AND subject_id = $3 AND deleted_at IS NULL",
			at, role, subjectID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.Errorf(shared.ErrNotFound, "accounts: %s/%s", role, subjectID)
		}
		_, err = tx.Exec(ctx, clearAssignmentSQL, at, subjectID)
		return err
	})
}

// List returns the page of accounts matching the scope plus the total
// count. Count and page fetch run concurrently; they are independent.
func (r *PGRepository) List(ctx context.Context, scope *guard.Scope) ([]Account, int, error) {
	var (
		rows  []Account
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		query, args := scope.CountSQL("SELECT count(*) FROM accounts")
		return r.pool.QueryRow(gctx, query, args...).Scan(&total)
	})
	g.Go(func() error {
		query, args := scope.PageSQL("SELECT " + accountColumns + " FROM accounts")
		pgRows, err := r.pool.Query(gctx, query, args...)
		if err != nil {
			return err
		}
		defer pgRows.Close()
		for pgRows.Next() {
			acct, err := scanAccount(pgRows)
			if err != nil {
				return err
			}
			rows = append(rows, *acct)
		}
		return pgRows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CurrentTenant returns the live tenant assignment for an account, or an
// empty string when there is none.
func (r *PGRepository) CurrentTenant(ctx context.Context, subjectID string) (string, error) {
	var tenantID string
	err := r.pool.QueryRow(ctx, currentTenantSQL, subjectID).Scan(&tenantID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return tenantID, nil
}

// AssignTenant replaces the account's live assignment with a new one.
func (r *PGRepository) AssignTenant(ctx context.Context, subjectID, tenantID string, at time.Time) error {
	assignment := TenantAssignment{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		TenantID:  tenantID,
		CreatedAt: at,
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, clearAssignmentSQL, at, subjectID)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, insertAssignmentSQL,
			assignment.ID, assignment.SubjectID, assignment.TenantID, assignment.CreatedAt)
		return db.MapError(err)
	})
}

func (r *PGRepository) scanOne(ctx context.Context, query string, args ...any) (*Account, error) {
	row := r.pool.QueryRow(ctx, query, args...)
	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var (
		acct      Account
		deletedAt pgtype.Timestamptz
	)
	err := row.Scan(&acct.SubjectID, &acct.Role, &acct.Email, &acct.DisplayName,
		&acct.PasswordHash, &deletedAt, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		ts := deletedAt.Time
		acct.DeletedAt = &ts
	}
	return &acct, nil
}

var _ Repository = (*PGRepository)(nil)
