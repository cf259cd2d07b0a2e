package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/registry"
)

const keepaliveConcurrency = 4

// SessionKeepaliveJob checks every cached browser session and evicts the dead
// ones, so the next post re-authenticates instead of failing on a stale page.
type SessionKeepaliveJob struct {
	reg     *registry.Registry
	timeout time.Duration
}

func NewSessionKeepaliveJob(reg *registry.Registry, timeout time.Duration) *SessionKeepaliveJob {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SessionKeepaliveJob{
		reg:     reg,
		timeout: timeout,
	}
}

type sessionState int

const (
	sessionSkipped sessionState = iota
	sessionAlive
	sessionLost
)

func (j *SessionKeepaliveJob) Run() {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		checked int
		evicted int
	)
	semaphore := make(chan struct{}, keepaliveConcurrency)

	for _, inst := range j.reg.Instances() {
		if inst.Integration.Type() != models.IntegrationTypeBrowser {
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(inst registry.Instance) {
			defer wg.Done()
			defer func() { <-semaphore }()

			state := j.check(inst)

			mu.Lock()
			defer mu.Unlock()
			if state != sessionSkipped {
				checked++
			}
			if state == sessionLost {
				evicted++
			}
		}(inst)
	}
	wg.Wait()

	slog.Info("session keepalive", "checked", checked, "evicted", evicted)
}

// check validates one session under the pair's lock. Sessions that never
// authenticated are left alone.
func (j *SessionKeepaliveJob) check(inst registry.Instance) sessionState {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	unlock := j.reg.Lock(inst.Platform, inst.UserID)
	if !inst.Integration.IsAuthenticated() {
		unlock()
		return sessionSkipped
	}
	err := inst.Integration.ValidateConnection(ctx)
	unlock()

	if err == nil {
		return sessionAlive
	}
	slog.Warn("browser session lost", "platform", inst.Platform, "user_id", inst.UserID, "error", err)
	if !j.reg.EvictInstance(inst.Platform, inst.UserID, inst.Integration) {
		slog.Info("browser session already replaced", "platform", inst.Platform, "user_id", inst.UserID)
	}
	return sessionLost
}
