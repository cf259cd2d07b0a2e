package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/crosspost/internal/models"
)

const resultColumns = `id, content_id, queue_entry_id, platform, status, destination_id, url, error_message, error_code, retry_count, published_at, created_at`

type resultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) Create(ctx context.Context, res *models.PostResult) (int64, error) {
	query := `
		INSERT INTO post_results (content_id, queue_entry_id, platform, status, destination_id, url, error_message, error_code, retry_count, published_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		res.ContentID,
		res.QueueEntryID,
		res.Platform,
		res.Status,
		res.DestinationID,
		res.URL,
		res.ErrorMessage,
		res.ErrorCode,
		res.RetryCount,
		res.PublishedAt,
		res.CreatedAt,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	res.ID = id
	return id, nil
}

// ListByContentID returns the full attempt history, oldest first.
func (r *resultRepository) ListByContentID(ctx context.Context, contentID string) ([]*models.PostResult, error) {
	query := `SELECT ` + resultColumns + ` FROM post_results WHERE content_id = $1 ORDER BY created_at, id`
	return r.list(ctx, query, contentID)
}

func (r *resultRepository) LatestByContentID(ctx context.Context, contentID string) (map[models.Platform]*models.PostResult, error) {
	query := `
		SELECT DISTINCT ON (platform) ` + resultColumns + `
		FROM post_results
		WHERE content_id = $1
		ORDER BY platform, created_at DESC, id DESC
	`
	results, err := r.list(ctx, query, contentID)
	if err != nil {
		return nil, err
	}

	latest := make(map[models.Platform]*models.PostResult, len(results))
	for _, res := range results {
		latest[res.Platform] = res
	}
	return latest, nil
}

func (r *resultRepository) list(ctx context.Context, query string, args ...any) ([]*models.PostResult, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var results []*models.PostResult
	for rows.Next() {
		var res models.PostResult
		err := rows.Scan(
			&res.ID,
			&res.ContentID,
			&res.QueueEntryID,
			&res.Platform,
			&res.Status,
			&res.DestinationID,
			&res.URL,
			&res.ErrorMessage,
			&res.ErrorCode,
			&res.RetryCount,
			&res.PublishedAt,
			&res.CreatedAt,
		)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		results = append(results, &res)
	}
	return results, rows.Err()
}
