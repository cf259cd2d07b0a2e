package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const TaskTypeDrainQueue = "queue:drain"

type DrainPayload struct {
	DueAt time.Time `json:"due_at"`
}

// Enqueuer is the part of *asynq.Client the trigger needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Trigger schedules a drain wake-up for the moment entries become due. The
// periodic loop still runs; the task only makes a drain punctual.
type Trigger struct {
	client Enqueuer
	now    func() time.Time
}

func NewTrigger(client Enqueuer) *Trigger {
	return &Trigger{client: client, now: time.Now}
}

func (t *Trigger) NotifyAt(ctx context.Context, at time.Time) error {
	payload, err := json.Marshal(DrainPayload{DueAt: at.UTC()})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeDrainQueue, payload)
	opts := []asynq.Option{
		asynq.MaxRetry(1),
		// wake-ups for the same second collapse on the task id
		asynq.TaskID(fmt.Sprintf("%s:%d", TaskTypeDrainQueue, at.Unix())),
	}
	if at.After(t.now()) {
		opts = append(opts, asynq.ProcessAt(at))
	}

	_, err = t.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	slog.Debug("drain wake-up scheduled", "due_at", at)
	return nil
}
