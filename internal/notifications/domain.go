package notifications

import "time"

// Kind labels what a notification is about.
type Kind string

const (
	KindTaskAssigned Kind = "task_assigned"
	KindTaskDue      Kind = "task_due"
)

// Notification is a message in one account's inbox. Inboxes are
// personal: the recipient owns the row and nobody else reads it short
// of an admin.
type Notification struct {
	ID          string
	RecipientID string
	TenantID    string
	Kind        Kind
	Payload     map[string]any
	ReadAt      *time.Time
	DeletedAt   *time.Time
	CreatedAt   time.Time
}
