package tasks

import "github.com/taskway/taskway/internal/shared"

// CreateTaskRequest carries the create payload.
type CreateTaskRequest struct {
	BoardID string `json:"board_id" validate:"required,uuid4"`
	Title   string `json:"title" validate:"required,max=300"`
	Body    string `json:"body" validate:"max=10000"`
	DueDate string `json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// UpdateTaskRequest carries a partial update. Nil fields are left
// untouched; an empty due_date string clears the deadline.
type UpdateTaskRequest struct {
	Title   *string `json:"title" validate:"omitempty,max=300"`
	Body    *string `json:"body" validate:"omitempty,max=10000"`
	Status  *string `json:"status" validate:"omitempty,oneof=todo doing done"`
	DueDate *string `json:"due_date" validate:"omitempty"`
}

// AssignTaskRequest carries the assignee payload.
type AssignTaskRequest struct {
	AccountID string `json:"account_id" validate:"required,uuid4"`
}

// TaskResponse mirrors a task row. Timestamps render as RFC 3339
// strings and absent values as explicit nulls.
type TaskResponse struct {
	ID         string  `json:"id"`
	BoardID    string  `json:"board_id"`
	TenantID   *string `json:"tenant_id"`
	OwnerID    string  `json:"owner_id"`
	AssigneeID *string `json:"assignee_id"`
	Title      string  `json:"title"`
	Body       string  `json:"body"`
	Status     string  `json:"status"`
	DueDate    *string `json:"due_date"`
	DeletedAt  *string `json:"deleted_at"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

func toResponse(t Task) TaskResponse {
	resp := TaskResponse{
		ID:        t.ID,
		BoardID:   t.BoardID,
		OwnerID:   t.OwnerID,
		Title:     t.Title,
		Body:      t.Body,
		Status:    string(t.Status),
		DueDate:   shared.ISOTimePtr(t.DueDate),
		DeletedAt: shared.ISOTimePtr(t.DeletedAt),
		CreatedAt: shared.ISOTime(t.CreatedAt),
		UpdatedAt: shared.ISOTime(t.UpdatedAt),
	}
	if t.TenantID != "" {
		tenant := t.TenantID
		resp.TenantID = &tenant
	}
	if t.AssigneeID != "" {
		assignee := t.AssigneeID
		resp.AssigneeID = &assignee
	}
	return resp
}
