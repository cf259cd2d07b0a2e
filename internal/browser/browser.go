package browser

import (
	"context"
	"encoding/json"
	"fmt"
)

// Driver opens automated browser sessions.
type Driver interface {
	NewSession(ctx context.Context) (Session, error)
}

// Session is one live browser context. Implementations are not safe for
// concurrent use.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	Exists(ctx context.Context, selector string) (bool, error)
	Type(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
	UploadFiles(ctx context.Context, selector string, paths []string) error
	Text(ctx context.Context, selector string) (string, error)
	Location(ctx context.Context) (string, error)
	Cookies(ctx context.Context) ([]Cookie, error)
	SetCookies(ctx context.Context, cookies []Cookie) error
	Close() error
}

type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"http_only,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
}

// EncodeCookies serialises cookies into the session blob kept with a connection.
func EncodeCookies(cookies []Cookie) (string, error) {
	b, err := json.Marshal(cookies)
	if err != nil {
		return "", fmt.Errorf("encoding cookies: %w", err)
	}
	return string(b), nil
}

func DecodeCookies(blob string) ([]Cookie, error) {
	if blob == "" {
		return nil, nil
	}
	var cookies []Cookie
	if err := json.Unmarshal([]byte(blob), &cookies); err != nil {
		return nil, fmt.Errorf("decoding session cookies: %w", err)
	}
	return cookies, nil
}
