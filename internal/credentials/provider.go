package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/pkg/utils"
)

var (
	ErrConnectionInactive = errors.New("platform connection inactive")
	ErrCredentialsExpired = errors.New("platform credentials expired")
)

// Provider hands decrypted credentials to integrations. Secrets are stored
// AES-GCM encrypted and only decrypted on demand.
type Provider interface {
	DecryptCredentials(ctx context.Context, userID int64, platform models.Platform) (*models.PlatformCredentials, error)
	IsActive(ctx context.Context, userID int64, platform models.Platform) (bool, error)
	Store(ctx context.Context, userID int64, accountName string, creds *models.PlatformCredentials) error
	Disconnect(ctx context.Context, userID int64, platform models.Platform) error
}

type provider struct {
	connections repository.ConnectionRepository
	key         []byte
	now         func() time.Time
}

func NewProvider(connections repository.ConnectionRepository, key []byte) Provider {
	return &provider{
		connections: connections,
		key:         key,
		now:         time.Now,
	}
}

func (p *provider) DecryptCredentials(ctx context.Context, userID int64, platform models.Platform) (*models.PlatformCredentials, error) {
	conn, err := p.connections.GetByUserAndPlatform(ctx, userID, platform)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: no %s connection for user %d", ErrConnectionInactive, platform, userID)
	}
	if err != nil {
		return nil, err
	}
	if conn.Status != models.ConnectionStatusActive {
		return nil, fmt.Errorf("%w: %s is %s", ErrConnectionInactive, platform, conn.Status)
	}

	creds := &models.PlatformCredentials{
		Platform:   conn.Platform,
		AuthMethod: conn.AuthMethod,
		AccountID:  conn.AccountID,
		Username:   conn.Username,
		ExpiresAt:  conn.TokenExpiresAt,
	}
	secrets := []struct {
		field  *string
		sealed string
	}{
		{&creds.AccessToken, conn.AccessToken},
		{&creds.RefreshToken, conn.RefreshToken},
		{&creds.SessionData, conn.SessionData},
		{&creds.Password, conn.Password},
	}
	for _, s := range secrets {
		plain, err := utils.Decrypt(s.sealed, p.key)
		if err != nil {
			slog.Error("decrypting credentials", "platform", platform, "user_id", userID, "error", err)
			return nil, fmt.Errorf("decrypting %s credentials: %w", platform, err)
		}
		*s.field = plain
	}

	if creds.AuthMethod == models.AuthMethodOAuth2 && creds.Expired(p.now()) {
		return nil, fmt.Errorf("%w: %s token expired at %s", ErrCredentialsExpired, platform, creds.ExpiresAt.Format(time.RFC3339))
	}
	return creds, nil
}

func (p *provider) IsActive(ctx context.Context, userID int64, platform models.Platform) (bool, error) {
	conn, err := p.connections.GetByUserAndPlatform(ctx, userID, platform)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return conn.Status == models.ConnectionStatusActive, nil
}

// Store encrypts creds and upserts them as the active connection for the pair.
func (p *provider) Store(ctx context.Context, userID int64, accountName string, creds *models.PlatformCredentials) error {
	if creds == nil || creds.Platform == "" {
		return errors.New("credentials must name a platform")
	}

	conn := &models.Connection{
		UserID:         userID,
		Platform:       creds.Platform,
		AuthMethod:     creds.AuthMethod,
		AccountID:      creds.AccountID,
		AccountName:    accountName,
		Username:       creds.Username,
		TokenExpiresAt: creds.ExpiresAt,
		Status:         models.ConnectionStatusActive,
	}
	secrets := []struct {
		field *string
		plain string
	}{
		{&conn.AccessToken, creds.AccessToken},
		{&conn.RefreshToken, creds.RefreshToken},
		{&conn.SessionData, creds.SessionData},
		{&conn.Password, creds.Password},
	}
	for _, s := range secrets {
		sealed, err := utils.Encrypt([]byte(s.plain), p.key)
		if err != nil {
			return fmt.Errorf("encrypting %s credentials: %w", creds.Platform, err)
		}
		*s.field = sealed
	}

	if _, err := p.connections.Create(ctx, conn); err != nil {
		return err
	}
	slog.Info("platform connected", "platform", creds.Platform, "user_id", userID, "auth_method", creds.AuthMethod)
	return nil
}

func (p *provider) Disconnect(ctx context.Context, userID int64, platform models.Platform) error {
	return p.connections.SetStatus(ctx, userID, platform, models.ConnectionStatusDisconnected)
}
