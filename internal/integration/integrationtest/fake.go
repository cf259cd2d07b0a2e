// Package integrationtest provides a scriptable Integration for tests.
package integrationtest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/maheshrc27/crosspost/internal/integration"
	"github.com/maheshrc27/crosspost/internal/models"
)

// Integration records every call. Post decides each PostContent outcome from
// the 1-based attempt number; nil Post means success.
type Integration struct {
	mu          sync.Mutex
	Cfg         models.PlatformConfig
	Kind        models.IntegrationType
	AuthErr     error
	ValidateErr error
	// OnValidate runs at the start of every ValidateConnection.
	OnValidate func()
	Post        func(attempt int, content *models.PostContent) (*models.PostResult, error)
	Stats       *models.Metrics

	authed    bool
	auths     int
	posts     int
	closed    bool
	lastCreds *models.PlatformCredentials
}

func New(cfg models.PlatformConfig) *Integration {
	kind := cfg.Type
	if kind == "" {
		kind = models.IntegrationTypeAPI
	}
	return &Integration{Cfg: cfg, Kind: kind}
}

func (f *Integration) Platform() models.Platform {
	return f.Cfg.Platform
}

func (f *Integration) Type() models.IntegrationType {
	return f.Kind
}

func (f *Integration) Authenticate(ctx context.Context, creds *models.PlatformCredentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auths++
	f.lastCreds = creds
	if f.AuthErr != nil {
		return f.AuthErr
	}
	f.authed = true
	return nil
}

func (f *Integration) IsAuthenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authed && !f.closed
}

func (f *Integration) ValidateConnection(ctx context.Context) error {
	if f.OnValidate != nil {
		f.OnValidate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.authed {
		return errors.New("not authenticated")
	}
	return f.ValidateErr
}

func (f *Integration) PostContent(ctx context.Context, content *models.PostContent) (*models.PostResult, error) {
	if content == nil {
		return nil, errors.New("content is nil")
	}
	f.mu.Lock()
	f.posts++
	attempt := f.posts
	post := f.Post
	f.mu.Unlock()

	if post != nil {
		return post(attempt, content)
	}
	return models.NewSuccessResult(f.Cfg.Platform, "post-1", "https://example.com/post-1", time.Now()), nil
}

func (f *Integration) GetPostMetrics(ctx context.Context, destinationID string) (*models.Metrics, error) {
	return f.Stats, nil
}

func (f *Integration) FormatContent(content *models.PostContent) *models.PostContent {
	return integration.FormatContent(f.Cfg, content)
}

func (f *Integration) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.authed = false
	return nil
}

func (f *Integration) Posts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts
}

func (f *Integration) Auths() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.auths
}

func (f *Integration) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Integration) LastCredentials() *models.PlatformCredentials {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastCreds
}

// Factory builds fakes and remembers them.
type Factory struct {
	mu    sync.Mutex
	built []*Integration
	// Setup runs on every new fake before it is returned.
	Setup func(*Integration)
	Err   error
}

func (f *Factory) Constructor(cfg models.PlatformConfig, deps integration.Dependencies) (integration.Integration, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	inst := New(cfg)
	if f.Setup != nil {
		f.Setup(inst)
	}
	f.mu.Lock()
	f.built = append(f.built, inst)
	f.mu.Unlock()
	return inst, nil
}

func (f *Factory) Built() []*Integration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Integration{}, f.built...)
}
