package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/maheshrc27/crosspost/internal/browser"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/resilience"
)

// Selector names looked up in BrowserSettings.Selectors.
const (
	SelectorLoggedIn    = "logged_in"
	SelectorUsername    = "username"
	SelectorPassword    = "password"
	SelectorLoginSubmit = "login_submit"
	SelectorTitle       = "title"
	SelectorDescription = "description"
	SelectorPrice       = "price"
	SelectorImages      = "images"
	SelectorSubmit      = "submit"
	SelectorPostLink    = "post_link"
)

var requiredSelectors = []string{SelectorLoggedIn, SelectorTitle, SelectorSubmit, SelectorPostLink}

// BrowserIntegration posts by driving the destination's web UI. Once
// authenticated it keeps its pooled session until Close.
type BrowserIntegration struct {
	cfg     models.PlatformConfig
	deps    Dependencies
	session browser.Session
	authed  bool
}

func NewBrowserIntegration(cfg models.PlatformConfig, deps Dependencies) (*BrowserIntegration, error) {
	if deps.Browser == nil {
		return nil, fmt.Errorf("%s: browser automation is not configured", cfg.Platform)
	}
	for _, name := range requiredSelectors {
		if cfg.Selector(name) == "" {
			return nil, fmt.Errorf("%s: selector %q is required", cfg.Platform, name)
		}
	}
	return &BrowserIntegration{cfg: cfg, deps: deps}, nil
}

func (i *BrowserIntegration) Platform() models.Platform {
	return i.cfg.Platform
}

func (i *BrowserIntegration) Type() models.IntegrationType {
	return models.IntegrationTypeBrowser
}

// Authenticate restores the stored cookies and falls back to the login form
// when the saved session no longer works.
func (i *BrowserIntegration) Authenticate(ctx context.Context, creds *models.PlatformCredentials) error {
	if creds == nil {
		return errors.New("credentials are nil")
	}
	cookies, err := browser.DecodeCookies(creds.SessionData)
	if err != nil {
		return resilience.NewError(resilience.CategoryAuthentication, err)
	}

	if i.session == nil {
		s, err := i.deps.Browser.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquiring browser session: %w", err)
		}
		i.session = s
	}

	if err := i.authenticate(ctx, creds, cookies); err != nil {
		slog.Info("browser authentication failed", "platform", i.cfg.Platform, "error", err)
		i.release()
		return err
	}
	i.authed = true
	return nil
}

func (i *BrowserIntegration) authenticate(ctx context.Context, creds *models.PlatformCredentials, cookies []browser.Cookie) error {
	if len(cookies) > 0 {
		if err := i.session.SetCookies(ctx, cookies); err != nil {
			return err
		}
	}
	if err := i.session.Navigate(ctx, i.cfg.Browser.HomeURL); err != nil {
		return err
	}
	ok, err := i.session.Exists(ctx, i.cfg.Selector(SelectorLoggedIn))
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	if creds.Username == "" || i.cfg.Browser.LoginURL == "" {
		return resilience.NewError(resilience.CategoryAuthentication, errors.New("login required: stored session expired"))
	}
	return i.login(ctx, creds)
}

func (i *BrowserIntegration) login(ctx context.Context, creds *models.PlatformCredentials) error {
	if err := i.session.Navigate(ctx, i.cfg.Browser.LoginURL); err != nil {
		return err
	}
	if err := i.session.Type(ctx, i.cfg.Selector(SelectorUsername), creds.Username); err != nil {
		return err
	}
	if err := i.session.Type(ctx, i.cfg.Selector(SelectorPassword), creds.Password); err != nil {
		return err
	}
	if err := i.session.Click(ctx, i.cfg.Selector(SelectorLoginSubmit)); err != nil {
		return err
	}
	if err := i.session.WaitVisible(ctx, i.cfg.Selector(SelectorLoggedIn)); err != nil {
		return resilience.NewError(resilience.CategoryAuthentication, fmt.Errorf("login failed: %w", err))
	}
	return nil
}

func (i *BrowserIntegration) IsAuthenticated() bool {
	return i.authed && i.session != nil
}

func (i *BrowserIntegration) ValidateConnection(ctx context.Context) error {
	if !i.IsAuthenticated() {
		return errNotAuthenticated
	}
	if err := i.session.Navigate(ctx, i.cfg.Browser.HomeURL); err != nil {
		return err
	}
	ok, err := i.session.Exists(ctx, i.cfg.Selector(SelectorLoggedIn))
	if err != nil {
		return err
	}
	if !ok {
		i.authed = false
		return resilience.NewError(resilience.CategoryAuthentication, errors.New("session expired"))
	}
	return nil
}

func (i *BrowserIntegration) PostContent(ctx context.Context, content *models.PostContent) (*models.PostResult, error) {
	if content == nil {
		return nil, errors.New("content is nil")
	}
	if !i.IsAuthenticated() {
		return failureResult(i.cfg.Platform, errNotAuthenticated), nil
	}

	formatted := i.FormatContent(content)
	if err := validateContent(i.cfg, formatted); err != nil {
		return failureResult(i.cfg.Platform, err), nil
	}

	link, err := i.fillListing(ctx, formatted)
	if err != nil {
		slog.Info("browser publish failed", "platform", i.cfg.Platform, "error", err)
		return failureResult(i.cfg.Platform, err), nil
	}
	return models.NewSuccessResult(i.cfg.Platform, lastSegment(link), link, now()), nil
}

func (i *BrowserIntegration) fillListing(ctx context.Context, content *models.PostContent) (string, error) {
	var files []string
	if len(content.Images) > 0 && i.cfg.Selector(SelectorImages) != "" {
		if i.deps.Media == nil {
			return "", errors.New("media store is not configured")
		}
		for _, ref := range content.Images {
			file, cleanup, err := i.deps.Media.Download(ctx, ref)
			if err != nil {
				return "", err
			}
			defer cleanup()
			files = append(files, file)
		}
	}

	if err := i.session.Navigate(ctx, i.cfg.Browser.CreateURL); err != nil {
		return "", err
	}
	if err := i.session.WaitVisible(ctx, i.cfg.Selector(SelectorTitle)); err != nil {
		return "", err
	}
	if err := i.session.Type(ctx, i.cfg.Selector(SelectorTitle), content.Title); err != nil {
		return "", err
	}
	if sel := i.cfg.Selector(SelectorDescription); sel != "" {
		if err := i.session.Type(ctx, sel, Caption(content)); err != nil {
			return "", err
		}
	}
	if price := metadataString(content.Metadata, "price"); price != "" && i.cfg.Selector(SelectorPrice) != "" {
		if err := i.session.Type(ctx, i.cfg.Selector(SelectorPrice), price); err != nil {
			return "", err
		}
	}
	if len(files) > 0 {
		if err := i.session.UploadFiles(ctx, i.cfg.Selector(SelectorImages), files); err != nil {
			return "", err
		}
	}
	if err := i.session.Click(ctx, i.cfg.Selector(SelectorSubmit)); err != nil {
		return "", err
	}
	if err := i.session.WaitVisible(ctx, i.cfg.Selector(SelectorPostLink)); err != nil {
		return "", err
	}
	return i.session.Location(ctx)
}

// GetPostMetrics is not offered by UI-driven destinations.
func (i *BrowserIntegration) GetPostMetrics(ctx context.Context, destinationID string) (*models.Metrics, error) {
	return nil, nil
}

func (i *BrowserIntegration) FormatContent(content *models.PostContent) *models.PostContent {
	return FormatContent(i.cfg, content)
}

func (i *BrowserIntegration) Close() error {
	i.release()
	return nil
}

func (i *BrowserIntegration) release() {
	i.authed = false
	if i.session == nil {
		return
	}
	if err := i.session.Close(); err != nil {
		slog.Info("closing browser session", "platform", i.cfg.Platform, "error", err)
	}
	i.session = nil
}

func lastSegment(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Path == "" {
		return link
	}
	return path.Base(strings.TrimRight(u.Path, "/"))
}
