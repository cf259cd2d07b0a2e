package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/crosspost/internal/models"
)

const (
	MinInterval       = 5 * time.Second
	defaultStaleAfter = 15 * time.Minute
)

type Drainer interface {
	DrainQueue(ctx context.Context, batchSize int) (*models.DrainStats, error)
}

type StaleReleaser interface {
	ReleaseStale(ctx context.Context, staleBefore time.Time) (int64, error)
}

// Worker is the single background drain loop. A cycle runs on every tick and
// on every Trigger; a panicking cycle is logged and the loop carries on.
type Worker struct {
	drainer    Drainer
	stale      StaleReleaser
	interval   time.Duration
	batchSize  int
	staleAfter time.Duration

	wake chan struct{}

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewWorker(drainer Drainer, stale StaleReleaser, interval time.Duration, batchSize int) *Worker {
	if interval < MinInterval {
		interval = MinInterval
	}
	return &Worker{
		drainer:    drainer,
		stale:      stale,
		interval:   interval,
		batchSize:  batchSize,
		staleAfter: defaultStaleAfter,
		wake:       make(chan struct{}, 1),
	}
}

func (w *Worker) Interval() time.Duration {
	return w.interval
}

// Start releases claims orphaned by an earlier crash and starts the loop.
// The first cycle runs immediately.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}

	if w.stale != nil {
		n, err := w.stale.ReleaseStale(ctx, time.Now().Add(-w.staleAfter).UTC())
		if err != nil {
			slog.Error("releasing stale queue claims", "error", err)
		} else if n > 0 {
			slog.Warn("released stale queue claims", "count", n)
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true
	go w.run(loopCtx, w.done)
	w.Trigger()

	slog.Info("queue worker started", "interval", w.interval, "batch_size", w.batchSize)
}

// Stop ends the loop and waits for an in-flight cycle to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done
	slog.Info("queue worker stopped")
}

// Trigger asks for a cycle now. Requests made while one is pending coalesce.
func (w *Worker) Trigger() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-w.wake:
		}
		w.cycle(ctx)
	}
}

func (w *Worker) cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("queue drain cycle panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if _, err := w.drainer.DrainQueue(ctx, w.batchSize); err != nil {
		slog.Error("queue drain cycle", "error", err)
	}
}

// HandleDrainTask is the asynq handler for TaskTypeDrainQueue.
func (w *Worker) HandleDrainTask(ctx context.Context, task *asynq.Task) error {
	var payload DrainPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	slog.Debug("drain wake-up received", "due_at", payload.DueAt)
	w.Trigger()
	return nil
}
