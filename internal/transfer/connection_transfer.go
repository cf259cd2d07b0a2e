package transfer

import (
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

// ConnectRequest carries credentials obtained out of band: an OAuth token
// from the platform's consent flow, or a browser session and login.
type ConnectRequest struct {
	Platform     models.Platform   `json:"platform"`
	AuthMethod   models.AuthMethod `json:"auth_method"`
	AccountID    string            `json:"account_id"`
	AccountName  string            `json:"account_name"`
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	SessionData  string            `json:"session_data"`
	Username     string            `json:"username"`
	Password     string            `json:"password"`
	ExpiresAt    *time.Time        `json:"expires_at,omitempty"`
}

func (r *ConnectRequest) Credentials() *models.PlatformCredentials {
	return &models.PlatformCredentials{
		Platform:     r.Platform,
		AuthMethod:   r.AuthMethod,
		AccountID:    r.AccountID,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		SessionData:  r.SessionData,
		Username:     r.Username,
		Password:     r.Password,
		ExpiresAt:    r.ExpiresAt,
	}
}
