package repository

import (
	"context"
	"errors"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

var ErrNotFound = errors.New("record not found")

type ContentRepository interface {
	Create(ctx context.Context, item *models.ContentItem) error
	GetByID(ctx context.Context, id string) (*models.ContentItem, error)
}

// QueueRepository stores queue entries. ClaimDue is the only operation that
// moves an entry out of pending for dispatch, and it does so atomically.
type QueueRepository interface {
	Create(ctx context.Context, entry *models.QueueEntry) error
	GetByID(ctx context.Context, id string) (*models.QueueEntry, error)
	ListByContentID(ctx context.Context, contentID string) ([]*models.QueueEntry, error)
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*models.QueueEntry, error)
	Complete(ctx context.Context, id string) error
	Requeue(ctx context.Context, id string, scheduledAt time.Time, retryCount int, lastError string) error
	Fail(ctx context.Context, id string, lastError string) error
	// Cancel reports false when the entry is no longer pending.
	Cancel(ctx context.Context, id string) (bool, error)
	// RequeueFailed moves failed entries created after createdAfter back to
	// pending with a zero retry count.
	RequeueFailed(ctx context.Context, createdAfter, now time.Time) (int64, error)
	// ReleaseStale returns processing entries untouched since staleBefore to
	// pending, recovering claims lost in a crash.
	ReleaseStale(ctx context.Context, staleBefore time.Time) (int64, error)
}

// ResultRepository is append-only; the newest result per platform wins.
type ResultRepository interface {
	Create(ctx context.Context, result *models.PostResult) (int64, error)
	ListByContentID(ctx context.Context, contentID string) ([]*models.PostResult, error)
	LatestByContentID(ctx context.Context, contentID string) (map[models.Platform]*models.PostResult, error)
}

type ConnectionRepository interface {
	Create(ctx context.Context, conn *models.Connection) (int64, error)
	GetByUserAndPlatform(ctx context.Context, userID int64, platform models.Platform) (*models.Connection, error)
	SetStatus(ctx context.Context, userID int64, platform models.Platform, status string) error
}
