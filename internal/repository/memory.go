package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

type connectionKey struct {
	userID   int64
	platform models.Platform
}

// MemoryStore keeps everything in process memory. It implements every
// repository interface and serves single-process deployments and tests.
type MemoryStore struct {
	mu          sync.Mutex
	content     map[string]*models.ContentItem
	queue       map[string]*models.QueueEntry
	results     []*models.PostResult
	connections map[connectionKey]*models.Connection
	lastResult  int64
	lastConn    int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		content:     make(map[string]*models.ContentItem),
		queue:       make(map[string]*models.QueueEntry),
		connections: make(map[connectionKey]*models.Connection),
	}
}

// Content returns the store as a ContentRepository; Queue, Results and
// Connections do the same for the other interfaces.
func (s *MemoryStore) Content() ContentRepository { return memoryContent{s} }

func (s *MemoryStore) Queue() QueueRepository { return memoryQueue{s} }

func (s *MemoryStore) Results() ResultRepository { return memoryResults{s} }

func (s *MemoryStore) Connections() ConnectionRepository { return memoryConnections{s} }

type memoryContent struct{ s *MemoryStore }

func (m memoryContent) Create(ctx context.Context, item *models.ContentItem) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cp := *item
	cp.Content = *item.Content.Clone()
	m.s.content[item.ID] = &cp
	return nil
}

func (m memoryContent) GetByID(ctx context.Context, id string) (*models.ContentItem, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	item, ok := m.s.content[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *item
	cp.Content = *item.Content.Clone()
	return &cp, nil
}

type memoryQueue struct{ s *MemoryStore }

func (m memoryQueue) Create(ctx context.Context, e *models.QueueEntry) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cp := *e
	m.s.queue[e.ID] = &cp
	return nil
}

func (m memoryQueue) GetByID(ctx context.Context, id string) (*models.QueueEntry, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	e, ok := m.s.queue[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m memoryQueue) ListByContentID(ctx context.Context, contentID string) ([]*models.QueueEntry, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.QueueEntry
	for _, e := range m.s.queue {
		if e.ContentID == contentID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Platform < out[j].Platform
	})
	return out, nil
}

// ClaimDue selects and flips entries under one lock, which makes the claim
// atomic against other callers.
func (m memoryQueue) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*models.QueueEntry, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var due []*models.QueueEntry
	for _, e := range m.s.queue {
		if e.Status == models.QueueStatusPending && !e.ScheduledAt.After(now) {
			due = append(due, e)
		}
	}
	sortForDispatch(due)
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]*models.QueueEntry, 0, len(due))
	for _, e := range due {
		e.Status = models.QueueStatusProcessing
		e.UpdatedAt = now
		cp := *e
		claimed = append(claimed, &cp)
	}
	return claimed, nil
}

func (m memoryQueue) update(id string, fn func(e *models.QueueEntry)) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	e, ok := m.s.queue[id]
	if !ok {
		return ErrNotFound
	}
	fn(e)
	e.UpdatedAt = time.Now().UTC()
	return nil
}

func (m memoryQueue) Complete(ctx context.Context, id string) error {
	return m.update(id, func(e *models.QueueEntry) {
		e.Status = models.QueueStatusCompleted
		e.LastError = ""
	})
}

func (m memoryQueue) Requeue(ctx context.Context, id string, scheduledAt time.Time, retryCount int, lastError string) error {
	return m.update(id, func(e *models.QueueEntry) {
		e.Status = models.QueueStatusPending
		e.ScheduledAt = scheduledAt
		e.RetryCount = retryCount
		e.LastError = lastError
	})
}

func (m memoryQueue) Fail(ctx context.Context, id string, lastError string) error {
	return m.update(id, func(e *models.QueueEntry) {
		e.Status = models.QueueStatusFailed
		e.LastError = lastError
	})
}

func (m memoryQueue) Cancel(ctx context.Context, id string) (bool, error) {
	cancelled := false
	err := m.update(id, func(e *models.QueueEntry) {
		if e.Status == models.QueueStatusPending {
			e.Status = models.QueueStatusCancelled
			cancelled = true
		}
	})
	return cancelled, err
}

func (m memoryQueue) RequeueFailed(ctx context.Context, createdAfter, now time.Time) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, e := range m.s.queue {
		if e.Status == models.QueueStatusFailed && e.CreatedAt.After(createdAfter) {
			e.Status = models.QueueStatusPending
			e.RetryCount = 0
			e.ScheduledAt = now
			e.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (m memoryQueue) ReleaseStale(ctx context.Context, staleBefore time.Time) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, e := range m.s.queue {
		if e.Status == models.QueueStatusProcessing && e.UpdatedAt.Before(staleBefore) {
			e.Status = models.QueueStatusPending
			e.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

type memoryResults struct{ s *MemoryStore }

func (m memoryResults) Create(ctx context.Context, res *models.PostResult) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.lastResult++
	res.ID = m.s.lastResult
	cp := *res
	m.s.results = append(m.s.results, &cp)
	return res.ID, nil
}

func (m memoryResults) ListByContentID(ctx context.Context, contentID string) ([]*models.PostResult, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.PostResult
	for _, res := range m.s.results {
		if res.ContentID == contentID {
			cp := *res
			out = append(out, &cp)
		}
	}
	return out, nil
}

// LatestByContentID relies on results being appended in creation order.
func (m memoryResults) LatestByContentID(ctx context.Context, contentID string) (map[models.Platform]*models.PostResult, error) {
	history, err := m.ListByContentID(ctx, contentID)
	if err != nil {
		return nil, err
	}
	latest := make(map[models.Platform]*models.PostResult)
	for _, res := range history {
		latest[res.Platform] = res
	}
	return latest, nil
}

type memoryConnections struct{ s *MemoryStore }

func (m memoryConnections) Create(ctx context.Context, c *models.Connection) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	k := connectionKey{userID: c.UserID, platform: c.Platform}
	now := time.Now().UTC()
	if existing, ok := m.s.connections[k]; ok {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	} else {
		m.s.lastConn++
		c.ID = m.s.lastConn
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	cp := *c
	m.s.connections[k] = &cp
	return c.ID, nil
}

func (m memoryConnections) GetByUserAndPlatform(ctx context.Context, userID int64, platform models.Platform) (*models.Connection, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.connections[connectionKey{userID: userID, platform: platform}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m memoryConnections) SetStatus(ctx context.Context, userID int64, platform models.Platform, status string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.connections[connectionKey{userID: userID, platform: platform}]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	return nil
}
