package boards

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskway/taskway/internal/guard"
	"github.com/taskway/taskway/internal/shared"
)

// boardsTable describes board listings to the visibility builder.
var boardsTable = guard.Table{
	OwnerColumn:   "owner_id",
	TenantColumn:  "tenant_id",
	SearchColumns: []string{"name"},
	DateColumn:    "created_at",
	Sortable:      []string{"name", "created_at"},
	DefaultSort:   "created_at",
	DefaultDesc:   true,
	DefaultLimit:  shared.DefaultPageSize,
}

// Service owns board business rules. Single-resource access follows the
// guard's ordered policy with staff allowed inside their tenant and
// memberships granting access to non-owners.
type Service struct {
	repo       Repository
	visibility *guard.Visibility
}

// NewService constructs a Service.
func NewService(repo Repository, visibility *guard.Visibility) *Service {
	return &Service{repo: repo, visibility: visibility}
}

func (s *Service) access() guard.Access {
	return guard.Access{
		TenantRoles: []guard.Role{guard.RoleStaff},
		Members:     s.repo.HasMember,
	}
}

func asResource(b *Board) guard.Resource {
	return guard.Resource{ID: b.ID, OwnerID: b.OwnerID, TenantID: b.TenantID, DeletedAt: b.DeletedAt}
}

// Create opens a new board owned by the principal. Staff boards are
// stamped with the staff account's current tenant.
func (s *Service) Create(ctx context.Context, p *guard.Principal, name string) (*Board, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.Errorf(shared.ErrValidation, "boards: name required")
	}
	board := Board{
		ID:      uuid.NewString(),
		OwnerID: p.SubjectID,
		Name:    name,
	}
	if p.Role == guard.RoleStaff {
		tenant, err := s.visibility.Tenant(ctx, p)
		if err != nil {
			return nil, err
		}
		board.TenantID = tenant
	}
	if err := s.repo.Create(ctx, board); err != nil {
		return nil, fmt.Errorf("boards: create: %w", err)
	}
	return s.repo.Get(ctx, board.ID)
}

// Get returns a board the principal may see.
func (s *Service) Get(ctx context.Context, p *guard.Principal, id string) (*Board, error) {
	board, err := s.fetchGuarded(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return board, nil
}

// Rename changes a board's name, subject to the same access policy as
// reads.
func (s *Service) Rename(ctx context.Context, p *guard.Principal, id, name string) (*Board, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.Errorf(shared.ErrValidation, "boards: name required")
	}
	if _, err := s.fetchGuarded(ctx, p, id); err != nil {
		return nil, err
	}
	if err := s.repo.Rename(ctx, id, name, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Delete soft-deletes a board. Only the owner or an admin may delete;
// memberships grant read/write but not removal.
func (s *Service) Delete(ctx context.Context, p *guard.Principal, id string) error {
	board, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := (guard.Access{}).Check(ctx, *p, asResource(board)); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, id, time.Now().UTC())
}

// AddMember grants another account access to the board. Duplicate live
// memberships fail with ErrConflict.
func (s *Service) AddMember(ctx context.Context, p *guard.Principal, boardID, accountID string) error {
	board, err := s.repo.Get(ctx, boardID)
	if err != nil {
		return err
	}
	// Only the owner or an admin may manage the roster.
	if err := (guard.Access{}).Check(ctx, *p, asResource(board)); err != nil {
		return err
	}
	if accountID == "" {
		return shared.Errorf(shared.ErrValidation, "boards: account required")
	}
	if accountID == board.OwnerID {
		return shared.Errorf(shared.ErrConflict, "boards: owner is implicitly a member")
	}
	return s.repo.AddMember(ctx, Membership{
		ID:        uuid.NewString(),
		BoardID:   boardID,
		AccountID: accountID,
	})
}

// RemoveMember revokes a membership by soft-deleting it.
func (s *Service) RemoveMember(ctx context.Context, p *guard.Principal, boardID, accountID string) error {
	board, err := s.repo.Get(ctx, boardID)
	if err != nil {
		return err
	}
	if err := (guard.Access{}).Check(ctx, *p, asResource(board)); err != nil {
		return err
	}
	return s.repo.RemoveMember(ctx, boardID, accountID, time.Now().UTC())
}

// List returns the boards visible to the principal.
func (s *Service) List(ctx context.Context, p *guard.Principal, filter guard.Filter) ([]Board, shared.Pagination, error) {
	scope, err := s.visibility.Build(ctx, p, boardsTable, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	rows, total, err := s.repo.List(ctx, scope)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("boards: list: %w", err)
	}
	return rows, shared.NewPagination(scope.Page, scope.Limit, total), nil
}

// fetchGuarded loads a board and applies the read/write access policy.
func (s *Service) fetchGuarded(ctx context.Context, p *guard.Principal, id string) (*Board, error) {
	board, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Role == guard.RoleStaff && p.TenantID == "" {
		// Resolve the tenant before the check so the tenant rule can
		// match. Staff without an assignment fall through to the
		// ownership and membership rules.
		if _, err := s.visibility.Tenant(ctx, p); err != nil && !errors.Is(err, shared.ErrForbidden) {
			return nil, err
		}
	}
	if err := s.access().Check(ctx, *p, asResource(board)); err != nil {
		return nil, err
	}
	return board, nil
}
