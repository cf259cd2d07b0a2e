package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"github.com/maheshrc27/crosspost/internal/models"
)

type contentRepository struct {
	db *sql.DB
}

func NewContentRepository(db *sql.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) Create(ctx context.Context, item *models.ContentItem) error {
	query := `
		INSERT INTO content_items (id, user_id, title, description, hashtags, images, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	metadata, err := json.Marshal(item.Content.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		item.ID,
		item.UserID,
		item.Content.Title,
		item.Content.Description,
		pq.Array(item.Content.Hashtags),
		pq.Array(item.Content.Images),
		metadata,
		item.CreatedAt,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *contentRepository) GetByID(ctx context.Context, id string) (*models.ContentItem, error) {
	query := `SELECT id, user_id, title, description, hashtags, images, metadata, created_at FROM content_items WHERE id = $1`

	var item models.ContentItem
	var metadata []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.UserID,
		&item.Content.Title,
		&item.Content.Description,
		pq.Array(&item.Content.Hashtags),
		pq.Array(&item.Content.Images),
		&metadata,
		&item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		slog.Info(err.Error())
		return nil, err
	}

	if len(metadata) > 0 && string(metadata) != "null" {
		if err := json.Unmarshal(metadata, &item.Content.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
	}
	return &item, nil
}
