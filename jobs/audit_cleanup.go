package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/campusledger/campusledger/internal/audit"
)

const (
	// TaskTypeAuditCleanup prunes audit records past the retention window.
	TaskTypeAuditCleanup = "audit:cleanup"
)

// AuditCleanupPayload carries the retention window for a cleanup run.
type AuditCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewAuditCleanupTask constructs an Asynq task for audit log cleanup.
func NewAuditCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(AuditCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAuditCleanup, body, asynq.Queue(QueueDefault)), nil
}

// NewAuditCleanupHandler builds the handler that purges expired audit rows.
func NewAuditCleanupHandler(service *audit.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AuditCleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		removed, err := service.Purge(ctx, payload.Retention)
		if err != nil {
			return err
		}
		logger.Info("audit cleanup finished",
			slog.Int64("removed", removed),
			slog.Duration("retention", payload.Retention))
		return nil
	}
}
