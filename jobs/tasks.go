package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskNotificationFanout delivers inbox notifications for a task event.
	TaskNotificationFanout = "notification:fanout"
	// TaskRetentionPurge removes soft-deleted rows past the retention window.
	TaskRetentionPurge = "retention:purge"
)

// NotificationFanoutPayload carries everything the worker needs to build
// the inbox entries for one task assignment.
type NotificationFanoutPayload struct {
	TaskID     string `json:"task_id"`
	BoardID    string `json:"board_id"`
	TenantID   string `json:"tenant_id"`
	AssigneeID string `json:"assignee_id"`
	Title      string `json:"title"`
}

// NewNotificationFanoutTask constructs an Asynq task.
func NewNotificationFanoutTask(payload NotificationFanoutPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationFanout, data), nil
}

// NewRetentionPurgeTask constructs the periodic purge task.
func NewRetentionPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskRetentionPurge, nil)
}
