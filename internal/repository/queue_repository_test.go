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

var entryColumns = []string{"id", "content_id", "user_id", "platform", "status", "scheduled_at", "priority", "retry_count", "last_error", "created_at", "updated_at"}

func TestQueueRepository_ClaimDue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewQueueRepository(db)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE SKIP LOCKED`)).
		WithArgs(models.QueueStatusProcessing, now, models.QueueStatusPending, 10).
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow("q-etsy", "c1", 7, "etsy", "processing", earlier, 1, 0, "", earlier, now).
			AddRow("q-fb", "c1", 7, "facebook", "processing", now, 2, 1, "timeout", earlier, now))

	entries, err := repo.ClaimDue(context.Background(), now, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "q-fb", entries[0].ID, "higher priority first")
	assert.Equal(t, models.PlatformFacebook, entries[0].Platform)
	assert.Equal(t, models.QueueStatusProcessing, entries[0].Status)
	assert.Equal(t, 1, entries[0].RetryCount)
	assert.Equal(t, "q-etsy", entries[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepository_CompleteMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewQueueRepository(db)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE queue_entries SET status = $1, last_error = '', updated_at = $2 WHERE id = $3`)).
		WithArgs(models.QueueStatusCompleted, sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Complete(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepository_Requeue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewQueueRepository(db)
	next := time.Date(2024, 6, 15, 12, 5, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE queue_entries`)).
		WithArgs(models.QueueStatusPending, next, 2, "rate limit", sqlmock.AnyArg(), "q1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Requeue(context.Background(), "q1", next, 2, "rate limit"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepository_CancelOnlyPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewQueueRepository(db)
	query := regexp.QuoteMeta(`UPDATE queue_entries SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`)
	mock.ExpectExec(query).
		WithArgs(models.QueueStatusCancelled, sqlmock.AnyArg(), "q1", models.QueueStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).
		WithArgs(models.QueueStatusCancelled, sqlmock.AnyArg(), "q2", models.QueueStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Cancel(context.Background(), "q1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Cancel(context.Background(), "q2")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepository_RequeueFailed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewQueueRepository(db)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-24 * time.Hour)

	mock.ExpectExec(regexp.QuoteMeta(`SET status = $1, retry_count = 0, scheduled_at = $2, updated_at = $2`)).
		WithArgs(models.QueueStatusPending, now, models.QueueStatusFailed, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.RequeueFailed(context.Background(), cutoff, now)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepository_GetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewQueueRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM queue_entries WHERE id = $1`)).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(entryColumns))

	_, err = repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
