package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

const queueColumns = `id, content_id, user_id, platform, status, scheduled_at, priority, retry_count, last_error, created_at, updated_at`

type queueRepository struct {
	db *sql.DB
}

func NewQueueRepository(db *sql.DB) QueueRepository {
	return &queueRepository{db: db}
}

func (r *queueRepository) Create(ctx context.Context, e *models.QueueEntry) error {
	query := `
		INSERT INTO queue_entries (id, content_id, user_id, platform, status, scheduled_at, priority, retry_count, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.ContentID,
		e.UserID,
		e.Platform,
		e.Status,
		e.ScheduledAt,
		e.Priority,
		e.RetryCount,
		e.LastError,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *queueRepository) GetByID(ctx context.Context, id string) (*models.QueueEntry, error) {
	query := `SELECT ` + queueColumns + ` FROM queue_entries WHERE id = $1`

	e, err := scanEntry(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		slog.Info(err.Error())
		return nil, err
	}
	return e, nil
}

func (r *queueRepository) ListByContentID(ctx context.Context, contentID string) ([]*models.QueueEntry, error) {
	query := `SELECT ` + queueColumns + ` FROM queue_entries WHERE content_id = $1 ORDER BY created_at, platform`

	rows, err := r.db.QueryContext(ctx, query, contentID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ClaimDue flips up to limit due entries to processing in one statement.
// SKIP LOCKED keeps concurrent claimers from taking the same rows.
func (r *queueRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*models.QueueEntry, error) {
	query := `
		UPDATE queue_entries
		SET status = $1, updated_at = $2
		WHERE id IN (
			SELECT id FROM queue_entries
			WHERE status = $3 AND scheduled_at <= $2
			ORDER BY priority DESC, scheduled_at ASC
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + queueColumns

	rows, err := r.db.QueryContext(ctx, query, models.QueueStatusProcessing, now, models.QueueStatusPending, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	sortForDispatch(entries)
	return entries, nil
}

func (r *queueRepository) Complete(ctx context.Context, id string) error {
	query := `UPDATE queue_entries SET status = $1, last_error = '', updated_at = $2 WHERE id = $3`
	return r.exec(ctx, query, models.QueueStatusCompleted, time.Now().UTC(), id)
}

func (r *queueRepository) Requeue(ctx context.Context, id string, scheduledAt time.Time, retryCount int, lastError string) error {
	query := `
		UPDATE queue_entries
		SET status = $1,
			scheduled_at = $2,
			retry_count = $3,
			last_error = $4,
			updated_at = $5
		WHERE id = $6
	`
	return r.exec(ctx, query, models.QueueStatusPending, scheduledAt, retryCount, lastError, time.Now().UTC(), id)
}

func (r *queueRepository) Fail(ctx context.Context, id string, lastError string) error {
	query := `UPDATE queue_entries SET status = $1, last_error = $2, updated_at = $3 WHERE id = $4`
	return r.exec(ctx, query, models.QueueStatusFailed, lastError, time.Now().UTC(), id)
}

func (r *queueRepository) Cancel(ctx context.Context, id string) (bool, error) {
	query := `UPDATE queue_entries SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`

	res, err := r.db.ExecContext(ctx, query, models.QueueStatusCancelled, time.Now().UTC(), id, models.QueueStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *queueRepository) RequeueFailed(ctx context.Context, createdAfter, now time.Time) (int64, error) {
	query := `
		UPDATE queue_entries
		SET status = $1, retry_count = 0, scheduled_at = $2, updated_at = $2
		WHERE status = $3 AND created_at > $4
	`
	return r.execCount(ctx, query, models.QueueStatusPending, now, models.QueueStatusFailed, createdAfter)
}

func (r *queueRepository) ReleaseStale(ctx context.Context, staleBefore time.Time) (int64, error) {
	query := `UPDATE queue_entries SET status = $1, updated_at = $2 WHERE status = $3 AND updated_at < $4`
	return r.execCount(ctx, query, models.QueueStatusPending, time.Now().UTC(), models.QueueStatusProcessing, staleBefore)
}

func (r *queueRepository) exec(ctx context.Context, query string, args ...any) error {
	n, err := r.execCount(ctx, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *queueRepository) execCount(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.QueueEntry, error) {
	var e models.QueueEntry
	err := row.Scan(
		&e.ID,
		&e.ContentID,
		&e.UserID,
		&e.Platform,
		&e.Status,
		&e.ScheduledAt,
		&e.Priority,
		&e.RetryCount,
		&e.LastError,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]*models.QueueEntry, error) {
	var entries []*models.QueueEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// sortForDispatch orders entries by priority (high first), then due time.
func sortForDispatch(entries []*models.QueueEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].ScheduledAt.Before(entries[j].ScheduledAt)
	})
}
