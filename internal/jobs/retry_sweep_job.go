package job

import (
	"context"
	"log/slog"
	"time"
)

type RetryFailer interface {
	RetryFailed(ctx context.Context, maxAge time.Duration) (int64, error)
}

// RetrySweepJob periodically puts recently failed entries back in the queue.
type RetrySweepJob struct {
	svc    RetryFailer
	maxAge time.Duration
}

func NewRetrySweepJob(svc RetryFailer, maxAge time.Duration) *RetrySweepJob {
	return &RetrySweepJob{svc: svc, maxAge: maxAge}
}

func (j *RetrySweepJob) Run() {
	n, err := j.svc.RetryFailed(context.Background(), j.maxAge)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if n > 0 {
		slog.Info("retry sweep requeued entries", "count", n)
	}
}
