package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingDrainer struct {
	mu      sync.Mutex
	calls   int
	batches []int
	panicOn int
	cycles  chan struct{}
}

func newCountingDrainer() *countingDrainer {
	return &countingDrainer{cycles: make(chan struct{}, 16)}
}

func (d *countingDrainer) DrainQueue(ctx context.Context, batchSize int) (*models.DrainStats, error) {
	d.mu.Lock()
	d.calls++
	call := d.calls
	d.batches = append(d.batches, batchSize)
	d.mu.Unlock()

	defer func() { d.cycles <- struct{}{} }()
	if call == d.panicOn {
		panic("driver crashed")
	}
	return &models.DrainStats{}, nil
}

func (d *countingDrainer) wait(t *testing.T) {
	t.Helper()
	select {
	case <-d.cycles:
	case <-time.After(2 * time.Second):
		t.Fatal("drain cycle did not run")
	}
}

type fakeStale struct {
	before time.Time
	calls  int
}

func (f *fakeStale) ReleaseStale(ctx context.Context, staleBefore time.Time) (int64, error) {
	f.calls++
	f.before = staleBefore
	return 2, nil
}

func TestWorkerIntervalFloor(t *testing.T) {
	assert.Equal(t, MinInterval, NewWorker(newCountingDrainer(), nil, time.Second, 10).Interval())
	assert.Equal(t, time.Minute, NewWorker(newCountingDrainer(), nil, time.Minute, 10).Interval())
}

func TestWorkerRunsOnStartAndTrigger(t *testing.T) {
	drainer := newCountingDrainer()
	stale := &fakeStale{}
	w := NewWorker(drainer, stale, time.Hour, 25)

	w.Start(context.Background())
	defer w.Stop()
	drainer.wait(t)

	assert.Equal(t, 1, stale.calls)
	assert.True(t, stale.before.Before(time.Now().Add(-10*time.Minute)))

	w.Trigger()
	drainer.wait(t)

	drainer.mu.Lock()
	defer drainer.mu.Unlock()
	assert.Equal(t, []int{25, 25}, drainer.batches)
}

func TestWorkerSurvivesPanickingCycle(t *testing.T) {
	drainer := newCountingDrainer()
	drainer.panicOn = 1
	w := NewWorker(drainer, nil, time.Hour, 10)

	w.Start(context.Background())
	defer w.Stop()
	drainer.wait(t)

	w.Trigger()
	drainer.wait(t)

	drainer.mu.Lock()
	defer drainer.mu.Unlock()
	assert.Equal(t, 2, drainer.calls)
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	drainer := newCountingDrainer()
	w := NewWorker(drainer, nil, time.Hour, 10)

	w.Stop()
	w.Start(context.Background())
	drainer.wait(t)
	w.Stop()
	w.Stop()
}

func TestHandleDrainTaskTriggersCycle(t *testing.T) {
	drainer := newCountingDrainer()
	w := NewWorker(drainer, nil, time.Hour, 10)
	w.Start(context.Background())
	defer w.Stop()
	drainer.wait(t)

	task := asynq.NewTask(TaskTypeDrainQueue, []byte(`{"due_at":"2024-06-15T18:00:00Z"}`))
	require.NoError(t, w.HandleDrainTask(context.Background(), task))
	drainer.wait(t)

	assert.Error(t, w.HandleDrainTask(context.Background(), asynq.NewTask(TaskTypeDrainQueue, []byte("{"))))
}
