package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/resilience"
	"golang.org/x/oauth2"
)

// APIAdapter holds the destination-specific request shapes of an API
// integration.
type APIAdapter interface {
	Probe(ctx context.Context, c *APIClient) error
	Publish(ctx context.Context, c *APIClient, content *models.PostContent) (*Publication, error)
	Metrics(ctx context.Context, c *APIClient, destinationID string) (*models.Metrics, error)
}

type Publication struct {
	ID  string
	URL string
}

// APIClient is an authenticated HTTP client bound to one platform account.
type APIClient struct {
	HTTP        *http.Client
	Config      models.PlatformConfig
	Credentials *models.PlatformCredentials
	Deps        Dependencies
}

// URL joins path onto the platform base URL and fills {account} and {id}.
func (c *APIClient) URL(path, id string) string {
	path = strings.ReplaceAll(path, "{account}", url.PathEscape(c.Credentials.AccountID))
	path = strings.ReplaceAll(path, "{id}", url.PathEscape(id))
	return strings.TrimRight(c.Config.API.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// MediaURL turns a stored media reference into a URL the destination can fetch.
func (c *APIClient) MediaURL(ref string) string {
	if strings.HasPrefix(ref, "r2://") && c.Config.API.MediaBaseURL != "" {
		return strings.TrimRight(c.Config.API.MediaBaseURL, "/") + "/" + strings.TrimPrefix(ref, "r2://")
	}
	return ref
}

func (c *APIClient) GetJSON(ctx context.Context, rawURL string, out any) error {
	return c.do(ctx, http.MethodGet, rawURL, nil, "", out)
}

func (c *APIClient) PostJSON(ctx context.Context, rawURL string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("error marshalling payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, rawURL, strings.NewReader(string(body)), "application/json", out)
}

func (c *APIClient) PostForm(ctx context.Context, rawURL string, form url.Values, out any) error {
	return c.do(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", out)
}

func (c *APIClient) do(ctx context.Context, method, rawURL string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}

	dec := json.NewDecoder(strings.NewReader(string(respBody)))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}

// APIIntegration is the HTTP-API variant: authentication wraps the stored
// token in an OAuth2 transport and probes the account.
type APIIntegration struct {
	cfg     models.PlatformConfig
	deps    Dependencies
	adapter APIAdapter
	client  *APIClient
}

func NewAPIIntegration(cfg models.PlatformConfig, deps Dependencies, adapter APIAdapter) *APIIntegration {
	return &APIIntegration{cfg: cfg, deps: deps, adapter: adapter}
}

func (i *APIIntegration) Platform() models.Platform {
	return i.cfg.Platform
}

func (i *APIIntegration) Type() models.IntegrationType {
	return models.IntegrationTypeAPI
}

func (i *APIIntegration) Authenticate(ctx context.Context, creds *models.PlatformCredentials) error {
	if creds == nil {
		return errors.New("credentials are nil")
	}
	if creds.Platform != "" && creds.Platform != i.cfg.Platform {
		return resilience.NewError(resilience.CategoryAuthentication,
			fmt.Errorf("credentials for %s cannot authenticate %s", creds.Platform, i.cfg.Platform))
	}
	if creds.AccessToken == "" {
		return resilience.NewError(resilience.CategoryAuthentication, errors.New("missing access token"))
	}
	if creds.Expired(now()) {
		return resilience.NewError(resilience.CategoryAuthentication, errors.New("access token expired"))
	}

	base := i.deps.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
	}
	if creds.ExpiresAt != nil {
		token.Expiry = *creds.ExpiresAt
	}
	httpCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	client := &APIClient{
		HTTP:        oauth2.NewClient(httpCtx, oauth2.StaticTokenSource(token)),
		Config:      i.cfg,
		Credentials: creds,
		Deps:        i.deps,
	}
	if err := i.adapter.Probe(ctx, client); err != nil {
		slog.Info("api authentication probe failed", "platform", i.cfg.Platform, "error", err)
		return fmt.Errorf("authenticating with %s: %w", i.cfg.Platform, err)
	}

	i.client = client
	return nil
}

func (i *APIIntegration) IsAuthenticated() bool {
	return i.client != nil
}

func (i *APIIntegration) ValidateConnection(ctx context.Context) error {
	if i.client == nil {
		return errNotAuthenticated
	}
	return i.adapter.Probe(ctx, i.client)
}

func (i *APIIntegration) PostContent(ctx context.Context, content *models.PostContent) (*models.PostResult, error) {
	if content == nil {
		return nil, errors.New("content is nil")
	}
	if i.client == nil {
		return failureResult(i.cfg.Platform, errNotAuthenticated), nil
	}

	formatted := i.FormatContent(content)
	if err := validateContent(i.cfg, formatted); err != nil {
		return failureResult(i.cfg.Platform, err), nil
	}

	pub, err := i.adapter.Publish(ctx, i.client, formatted)
	if err != nil {
		slog.Info("api publish failed", "platform", i.cfg.Platform, "error", err)
		return failureResult(i.cfg.Platform, err), nil
	}
	return models.NewSuccessResult(i.cfg.Platform, pub.ID, pub.URL, now()), nil
}

func (i *APIIntegration) GetPostMetrics(ctx context.Context, destinationID string) (*models.Metrics, error) {
	if i.client == nil {
		return nil, errNotAuthenticated
	}
	return i.adapter.Metrics(ctx, i.client, destinationID)
}

func (i *APIIntegration) FormatContent(content *models.PostContent) *models.PostContent {
	return FormatContent(i.cfg, content)
}

func (i *APIIntegration) Close() error {
	i.client = nil
	return nil
}
