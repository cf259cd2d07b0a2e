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

func TestConnectionRepository_GetByUserAndPlatform(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewConnectionRepository(db)
	at := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM platform_connections`)).
		WithArgs(int64(7), models.PlatformPoshmark).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "platform", "auth_method", "account_id", "account_name", "access_token", "refresh_token", "session_data", "username", "password", "token_expires_at", "status", "created_at", "updated_at"}).
			AddRow(1, 7, "poshmark", "session", "closet", "My Closet", "", "", "enc-session", "enc-user", "enc-pass", nil, "active", at, at))

	conn, err := repo.GetByUserAndPlatform(context.Background(), 7, models.PlatformPoshmark)
	require.NoError(t, err)
	assert.Equal(t, models.AuthMethodSession, conn.AuthMethod)
	assert.Equal(t, "enc-session", conn.SessionData)
	assert.Nil(t, conn.TokenExpiresAt)
	assert.Equal(t, models.ConnectionStatusActive, conn.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionRepository_SetStatusMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewConnectionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE platform_connections`)).
		WithArgs(models.ConnectionStatusDisconnected, sqlmock.AnyArg(), int64(7), models.PlatformEtsy).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.SetStatus(context.Background(), 7, models.PlatformEtsy, models.ConnectionStatusDisconnected)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range schema {
		mock.ExpectExec(regexp.QuoteMeta(`IF NOT EXISTS`)).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, EnsureSchema(db))
	require.NoError(t, mock.ExpectationsWereMet())
}
