package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/taskway/taskway/internal/notifications"
	"github.com/taskway/taskway/internal/observability"
)

// Inbox is the delivery side of the notifications service.
type Inbox interface {
	Deliver(ctx context.Context, recipientID, tenantID string, kind notifications.Kind, payload map[string]any) (string, error)
}

// Fanout handles notification fanout tasks.
type Fanout struct {
	logger  *slog.Logger
	inbox   Inbox
	metrics *observability.Metrics
}

// NewFanout constructs the fanout handler.
func NewFanout(logger *slog.Logger, inbox Inbox, metrics *observability.Metrics) *Fanout {
	return &Fanout{logger: logger, inbox: inbox, metrics: metrics}
}

// Handle processes one TaskNotificationFanout task. A malformed payload
// is dropped instead of retried.
func (f *Fanout) Handle(ctx context.Context, t *asynq.Task) error {
	var payload NotificationFanoutPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		f.logger.Warn("fanout payload malformed", slog.Any("error", err))
		return asynq.SkipRetry
	}
	if payload.AssigneeID == "" {
		return asynq.SkipRetry
	}
	_, err := f.inbox.Deliver(ctx, payload.AssigneeID, payload.TenantID, notifications.KindTaskAssigned, map[string]any{
		"task_id":  payload.TaskID,
		"board_id": payload.BoardID,
		"title":    payload.Title,
	})
	if err != nil {
		f.metrics.ObserveJob(TaskNotificationFanout, "error")
		return err
	}
	f.metrics.ObserveJob(TaskNotificationFanout, "ok")
	return nil
}
