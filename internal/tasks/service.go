package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskway/taskway/internal/boards"
	"github.com/taskway/taskway/internal/guard"
	"github.com/taskway/taskway/internal/shared"
)

// tasksTable describes task listings to the visibility builder.
var tasksTable = guard.Table{
	OwnerColumn:   "owner_id",
	TenantColumn:  "tenant_id",
	SearchColumns: []string{"title", "body"},
	DateColumn:    "due_date",
	FilterColumns: []string{"status", "board_id"},
	Sortable:      []string{"title", "status", "due_date", "created_at", "updated_at"},
	DefaultSort:   "created_at",
	DefaultDesc:   true,
	DefaultLimit:  shared.DefaultPageSize,
}

// BoardGate checks that a principal may use a board before tasks are
// attached to it.
type BoardGate interface {
	Get(ctx context.Context, p *guard.Principal, id string) (*boards.Board, error)
}

// Idempotency claims create keys so retried requests stay single-shot.
type Idempotency interface {
	CheckAndInsert(ctx context.Context, key, subjectID string) error
	Release(ctx context.Context, key, subjectID string) error
}

// Notifier fans out task events to the recipients' inboxes.
type Notifier interface {
	TaskAssigned(ctx context.Context, task Task) error
}

// Auditor records who changed what.
type Auditor interface {
	Record(ctx context.Context, entry shared.AuditEntry) error
}

// CreateTask is the service-level create input.
type CreateTask struct {
	BoardID string
	Title   string
	Body    string
	DueDate *time.Time
}

// UpdateTask is a partial update. Nil fields are left untouched;
// ClearDueDate removes a deadline.
type UpdateTask struct {
	Title        *string
	Body         *string
	Status       *Status
	DueDate      *time.Time
	ClearDueDate bool
}

// Service owns task business rules. Access mirrors the boards policy:
// staff reach their tenant's tasks and board memberships open a board's
// tasks to non-owners.
type Service struct {
	logger      *slog.Logger
	repo        Repository
	visibility  *guard.Visibility
	boards      BoardGate
	idempotency Idempotency
	notifier    Notifier
	audit       Auditor
}

// NewService constructs a Service. Notifier and Auditor may be nil;
// both are best-effort side channels.
func NewService(logger *slog.Logger, repo Repository, visibility *guard.Visibility, gate BoardGate, idem Idempotency, notifier Notifier, audit Auditor) *Service {
	return &Service{
		logger:      logger,
		repo:        repo,
		visibility:  visibility,
		boards:      gate,
		idempotency: idem,
		notifier:    notifier,
		audit:       audit,
	}
}

func (s *Service) access() guard.Access {
	return guard.Access{
		TenantRoles: []guard.Role{guard.RoleStaff},
		Members:     s.repo.HasBoardMember,
	}
}

func asResource(t *Task) guard.Resource {
	return guard.Resource{ID: t.ID, OwnerID: t.OwnerID, TenantID: t.TenantID, DeletedAt: t.DeletedAt}
}

// Create opens a task on a board the principal can use. The task
// inherits the board's tenant. A non-empty idempotency key makes the
// call single-shot; a repeated key fails with ErrConflict.
func (s *Service) Create(ctx context.Context, p *guard.Principal, key string, input CreateTask) (*Task, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, shared.Errorf(shared.ErrValidation, "tasks: title required")
	}
	board, err := s.boards.Get(ctx, p, input.BoardID)
	if err != nil {
		return nil, err
	}

	if key != "" {
		if err := s.idempotency.CheckAndInsert(ctx, key, p.SubjectID); err != nil {
			return nil, err
		}
	}

	task := Task{
		ID:       uuid.NewString(),
		BoardID:  board.ID,
		TenantID: board.TenantID,
		OwnerID:  p.SubjectID,
		Title:    input.Title,
		Body:     input.Body,
		Status:   StatusTodo,
		DueDate:  input.DueDate,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		if key != "" {
			if relErr := s.idempotency.Release(ctx, key, p.SubjectID); relErr != nil {
				s.logger.Warn("release idempotency key failed", slog.Any("error", relErr))
			}
		}
		return nil, fmt.Errorf("tasks: create: %w", err)
	}
	s.record(ctx, p, "task.create", task.ID, map[string]any{"board_id": board.ID})
	return s.repo.Get(ctx, task.ID)
}

// Get returns a task the principal may see.
func (s *Service) Get(ctx context.Context, p *guard.Principal, id string) (*Task, error) {
	return s.fetchGuarded(ctx, p, id)
}

// Update applies a partial update, subject to the read/write policy.
func (s *Service) Update(ctx context.Context, p *guard.Principal, id string, input UpdateTask) (*Task, error) {
	task, err := s.fetchGuarded(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, shared.Errorf(shared.ErrValidation, "tasks: title required")
		}
		task.Title = title
	}
	if input.Body != nil {
		task.Body = *input.Body
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, shared.Errorf(shared.ErrValidation, "tasks: unknown status %q", *input.Status)
		}
		task.Status = *input.Status
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	task.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, *task); err != nil {
		return nil, err
	}
	s.record(ctx, p, "task.update", task.ID, nil)
	return s.repo.Get(ctx, id)
}

// Assign hands the task to another account and notifies them. The
// assignee must be the board owner or hold a live membership there.
func (s *Service) Assign(ctx context.Context, p *guard.Principal, id, accountID string) (*Task, error) {
	if accountID == "" {
		return nil, shared.Errorf(shared.ErrValidation, "tasks: account required")
	}
	task, err := s.fetchGuarded(ctx, p, id)
	if err != nil {
		return nil, err
	}
	board, err := s.boards.Get(ctx, p, task.BoardID)
	if err != nil {
		return nil, err
	}
	if accountID != board.OwnerID && accountID != task.OwnerID {
		member, err := s.repo.HasBoardMember(ctx, task.ID, accountID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, shared.Errorf(shared.ErrValidation, "tasks: assignee has no access to the board")
		}
	}
	task.AssigneeID = accountID
	task.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, *task); err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if err := s.notifier.TaskAssigned(ctx, *task); err != nil {
			s.logger.Warn("task assignment notification failed",
				slog.String("task_id", task.ID), slog.Any("error", err))
		}
	}
	s.record(ctx, p, "task.assign", task.ID, map[string]any{"assignee_id": accountID})
	return s.repo.Get(ctx, id)
}

// Unassign clears the assignee.
func (s *Service) Unassign(ctx context.Context, p *guard.Principal, id string) (*Task, error) {
	task, err := s.fetchGuarded(ctx, p, id)
	if err != nil {
		return nil, err
	}
	task.AssigneeID = ""
	task.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, *task); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Delete soft-deletes a task. Only the task owner or an admin may
// delete.
func (s *Service) Delete(ctx context.Context, p *guard.Principal, id string) error {
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := (guard.Access{}).Check(ctx, *p, asResource(task)); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id, time.Now().UTC()); err != nil {
		return err
	}
	s.record(ctx, p, "task.delete", id, nil)
	return nil
}

// List returns the tasks visible to the principal.
func (s *Service) List(ctx context.Context, p *guard.Principal, filter guard.Filter) ([]Task, shared.Pagination, error) {
	scope, err := s.visibility.Build(ctx, p, tasksTable, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	rows, total, err := s.repo.List(ctx, scope)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("tasks: list: %w", err)
	}
	return rows, shared.NewPagination(scope.Page, scope.Limit, total), nil
}

// fetchGuarded loads a task and applies the read/write access policy.
func (s *Service) fetchGuarded(ctx context.Context, p *guard.Principal, id string) (*Task, error) {
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Role == guard.RoleStaff && p.TenantID == "" {
		if _, err := s.visibility.Tenant(ctx, p); err != nil && !errors.Is(err, shared.ErrForbidden) {
			return nil, err
		}
	}
	if err := s.access().Check(ctx, *p, asResource(task)); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Service) record(ctx context.Context, p *guard.Principal, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditEntry{
		ActorID:  p.SubjectID,
		Action:   action,
		Entity:   "task",
		EntityID: entityID,
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
