package models

import (
	"time"
)

type AuthMethod string

const (
	AuthMethodOAuth2  AuthMethod = "oauth2"
	AuthMethodSession AuthMethod = "session"
)

const (
	ConnectionStatusActive       = "active"
	ConnectionStatusDisconnected = "disconnected"
)

// Connection is the stored (encrypted) link between a user and a platform account.
type Connection struct {
	ID             int64      `db:"id" json:"id"`
	UserID         int64      `db:"user_id" json:"user_id"`
	Platform       Platform   `db:"platform" json:"platform"`
	AuthMethod     AuthMethod `db:"auth_method" json:"auth_method"`
	AccountID      string     `db:"account_id" json:"account_id"`
	AccountName    string     `db:"account_name" json:"account_name"`
	AccessToken    string     `db:"access_token" json:"-"`
	RefreshToken   string     `db:"refresh_token" json:"-"`
	SessionData    string     `db:"session_data" json:"-"`
	Username       string     `db:"username" json:"-"`
	Password       string     `db:"password" json:"-"`
	TokenExpiresAt *time.Time `db:"token_expires_at" json:"token_expires_at"`
	Status         string     `db:"status" json:"status"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// PlatformCredentials is a decrypted copy handed to an integration.
// Integrations must not persist it.
type PlatformCredentials struct {
	Platform     Platform
	AuthMethod   AuthMethod
	AccountID    string
	AccessToken  string
	RefreshToken string
	SessionData  string
	Username     string
	Password     string
	ExpiresAt    *time.Time
}

func (c *PlatformCredentials) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.IsZero() && now.After(*c.ExpiresAt)
}
