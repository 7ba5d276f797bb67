package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-wms/meridian-wms/internal/tracking"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTrackingRefresh polls the carrier API for undelivered shipments.
	TaskTrackingRefresh = "tracking:refresh"
)

// TrackingRefreshPayload carries scheduling metadata.
type TrackingRefreshPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
	BatchSize    int       `json:"batch_size"`
}

// NewTrackingRefreshTask constructs an Asynq task for a shipment
// tracking sweep.
func NewTrackingRefreshTask(at time.Time, batchSize int) (*asynq.Task, error) {
	payload := TrackingRefreshPayload{ScheduledFor: at, BatchSize: batchSize}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTrackingRefresh, body, asynq.Queue(QueueDefault)), nil
}

// TrackingRefreshHandler binds the tracking service into an Asynq
// handler.
func TrackingRefreshHandler(svc *tracking.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload TrackingRefreshPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		updated, err := svc.RefreshPending(ctx, payload.BatchSize)
		if err != nil {
			return err
		}
		logger.Info("tracking refresh completed",
			slog.Int("updated", updated),
			slog.Time("scheduled_for", payload.ScheduledFor))
		return nil
	}
}
