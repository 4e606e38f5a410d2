// Package jobs defines the background task types and the Asynq worker
// that runs them.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/cargofol/cargofol/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskFXSnapshot copies the latest exchange-rate observations into
	// the cost settings.
	TaskFXSnapshot = "fx:snapshot"
	// TaskRecost reruns both cost formulas for every stored record.
	TaskRecost = "products:recost"
)

// systemActorID attributes audit entries written by scheduled jobs.
const systemActorID = 0

// FXSnapshotPayload carries scheduling metadata for the rate sync.
type FXSnapshotPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewFXSnapshotTask constructs an Asynq task for the daily rate sync.
func NewFXSnapshotTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(FXSnapshotPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFXSnapshot, body, asynq.Queue(QueueDefault)), nil
}

// FXSyncer is the slice of the exchange-rate service the worker needs.
type FXSyncer interface {
	SyncSettings(ctx context.Context, actorID int64) error
}

// NewFXSnapshotHandler returns the handler for TaskFXSnapshot tasks.
func NewFXSnapshotHandler(syncer FXSyncer, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload FXSnapshotPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tracker := metrics.Track("fx_snapshot")
		err := syncer.SyncSettings(ctx, systemActorID)
		if err != nil {
			logger.Error("fx snapshot failed", slog.Any("error", err))
		} else {
			logger.Info("fx snapshot completed",
				slog.Time("scheduled_for", payload.ScheduledFor))
		}
		return tracker.End(err)
	}
}

// RecostPayload carries scheduling metadata for the recost sweep.
type RecostPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewRecostTask constructs an Asynq task for the recost sweep.
func NewRecostTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(RecostPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecost, body, asynq.Queue(QueueDefault)), nil
}

// Recoster is the slice of the record service the worker needs.
type Recoster interface {
	RecalculateAll(ctx context.Context, actorID int64) (int, error)
}

// NewRecostHandler returns the handler for TaskRecost tasks.
func NewRecostHandler(recoster Recoster, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload RecostPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tracker := metrics.Track("recost")
		updated, err := recoster.RecalculateAll(ctx, systemActorID)
		if err != nil {
			logger.Error("recost sweep failed", slog.Int("updated", updated), slog.Any("error", err))
		} else {
			logger.Info("recost sweep completed", slog.Int("updated", updated))
		}
		return tracker.End(err)
	}
}
