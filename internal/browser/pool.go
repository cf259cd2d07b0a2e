package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many browser sessions may be alive at once. Each session
// holds one slot until it is closed.
type Pool struct {
	driver Driver
	slots  *semaphore.Weighted
	size   int64

	mu   sync.Mutex
	live int64
}

func NewPool(driver Driver, maxSessions int) *Pool {
	if maxSessions < 1 {
		maxSessions = 1
	}
	return &Pool{
		driver: driver,
		slots:  semaphore.NewWeighted(int64(maxSessions)),
		size:   int64(maxSessions),
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (Session, error) {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for browser session slot: %w", err)
	}

	s, err := p.driver.NewSession(ctx)
	if err != nil {
		p.slots.Release(1)
		return nil, fmt.Errorf("starting browser session: %w", err)
	}

	p.mu.Lock()
	p.live++
	live := p.live
	p.mu.Unlock()
	slog.Debug("browser session acquired", "live", live, "max", p.size)

	return &pooledSession{Session: s, pool: p}, nil
}

func (p *Pool) Live() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

func (p *Pool) release() {
	p.mu.Lock()
	p.live--
	p.mu.Unlock()
	p.slots.Release(1)
}

type pooledSession struct {
	Session
	pool *Pool
	once sync.Once
}

func (s *pooledSession) Close() error {
	var err error
	s.once.Do(func() {
		err = s.Session.Close()
		s.pool.release()
	})
	return err
}
