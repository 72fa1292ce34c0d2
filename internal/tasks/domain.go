package tasks

import "time"

// Status is the task workflow state.
type Status string

const (
	StatusTodo  Status = "todo"
	StatusDoing Status = "doing"
	StatusDone  Status = "done"
)

// Valid reports whether the status is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusDoing, StatusDone:
		return true
	}
	return false
}

// Task is a unit of work on a board. The owner is the creating account;
// an assignee is optional and may be any account with access to the
// board.
type Task struct {
	ID         string
	BoardID    string
	TenantID   string
	OwnerID    string
	AssigneeID string
	Title      string
	Body       string
	Status     Status
	DueDate    *time.Time
	DeletedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
