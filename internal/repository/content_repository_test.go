package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContentRepository(db)
	created := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	item := &models.ContentItem{
		ID:     "c1",
		UserID: 7,
		Content: models.PostContent{
			Title:    "Wool scarf",
			Hashtags: []string{"knit", "winter"},
			Images:   []string{"r2://scarf.jpg"},
			Metadata: map[string]any{"price": 24.5},
		},
		CreatedAt: created,
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO content_items`)).
		WithArgs("c1", int64(7), "Wool scarf", "", `{"knit","winter"}`, `{"r2://scarf.jpg"}`, []byte(`{"price":24.5}`), created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), item))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContentRepository(db)
	created := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, user_id, title, description, hashtags, images, metadata, created_at FROM content_items WHERE id = $1`)).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "description", "hashtags", "images", "metadata", "created_at"}).
			AddRow("c1", 7, "Wool scarf", "Hand knit", "{knit,winter}", "{}", []byte(`{"sku":"SC-1"}`), created))

	item, err := repo.GetByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, &models.ContentItem{
		ID:     "c1",
		UserID: 7,
		Content: models.PostContent{
			Title:       "Wool scarf",
			Description: "Hand knit",
			Hashtags:    []string{"knit", "winter"},
			Images:      []string{},
			Metadata:    map[string]any{"sku": "SC-1"},
		},
		CreatedAt: created,
	}, item)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepository_GetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM content_items WHERE id = $1`)).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
