package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

type connectionRepository struct {
	db *sql.DB
}

func NewConnectionRepository(db *sql.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

// Create stores a connection, replacing the user's previous one for the
// platform.
func (r *connectionRepository) Create(ctx context.Context, c *models.Connection) (int64, error) {
	query := `
		INSERT INTO platform_connections(
			user_id,
			platform,
			auth_method,
			account_id,
			account_name,
			access_token,
			refresh_token,
			session_data,
			username,
			password,
			token_expires_at,
			status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, platform) DO UPDATE SET
			auth_method = EXCLUDED.auth_method,
			account_id = EXCLUDED.account_id,
			account_name = EXCLUDED.account_name,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			session_data = EXCLUDED.session_data,
			username = EXCLUDED.username,
			password = EXCLUDED.password,
			token_expires_at = EXCLUDED.token_expires_at,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		c.UserID,
		c.Platform,
		c.AuthMethod,
		c.AccountID,
		c.AccountName,
		c.AccessToken,
		c.RefreshToken,
		c.SessionData,
		c.Username,
		c.Password,
		c.TokenExpiresAt,
		c.Status,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	c.ID = id
	return id, nil
}

func (r *connectionRepository) GetByUserAndPlatform(ctx context.Context, userID int64, platform models.Platform) (*models.Connection, error) {
	query := `
		SELECT id, user_id, platform, auth_method, account_id, account_name, access_token, refresh_token,
			session_data, username, password, token_expires_at, status, created_at, updated_at
		FROM platform_connections
		WHERE user_id = $1 AND platform = $2
	`

	var c models.Connection
	err := r.db.QueryRowContext(ctx, query, userID, platform).Scan(
		&c.ID,
		&c.UserID,
		&c.Platform,
		&c.AuthMethod,
		&c.AccountID,
		&c.AccountName,
		&c.AccessToken,
		&c.RefreshToken,
		&c.SessionData,
		&c.Username,
		&c.Password,
		&c.TokenExpiresAt,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &c, nil
}

func (r *connectionRepository) SetStatus(ctx context.Context, userID int64, platform models.Platform, status string) error {
	query := `
		UPDATE platform_connections
		SET status = $1,
			updated_at = $2
		WHERE user_id = $3 AND platform = $4
	`
	res, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), userID, platform)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
