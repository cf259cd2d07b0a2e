package integration

import (
	"context"
	"net/http"

	"github.com/maheshrc27/crosspost/internal/browser"
	"github.com/maheshrc27/crosspost/internal/media"
	"github.com/maheshrc27/crosspost/internal/models"
)

// Integration is the capability every destination exposes, whether it is
// reached over an HTTP API or by driving a browser.
//
// PostContent reports destination-side failures (network, validation, auth)
// through the returned PostResult; the error is reserved for bad input.
// FormatContent is pure and idempotent.
type Integration interface {
	Platform() models.Platform
	Type() models.IntegrationType
	Authenticate(ctx context.Context, creds *models.PlatformCredentials) error
	IsAuthenticated() bool
	ValidateConnection(ctx context.Context) error
	PostContent(ctx context.Context, content *models.PostContent) (*models.PostResult, error)
	// GetPostMetrics returns nil, nil when the destination offers no metrics.
	GetPostMetrics(ctx context.Context, destinationID string) (*models.Metrics, error)
	FormatContent(content *models.PostContent) *models.PostContent
	// Close releases any session held by the instance.
	Close() error
}

// Dependencies are the shared capabilities handed to every constructor.
type Dependencies struct {
	HTTPClient *http.Client
	Media      media.Store
	Browser    *browser.Pool
}

// Constructor builds an integration for one (user, platform) pair.
type Constructor func(cfg models.PlatformConfig, deps Dependencies) (Integration, error)
