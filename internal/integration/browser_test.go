package integration

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/maheshrc27/crosspost/internal/browser"
	"github.com/maheshrc27/crosspost/internal/browser/browsertest"
	"github.com/maheshrc27/crosspost/internal/media"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMedia struct {
	downloads int
	cleaned   int
}

func (m *fakeMedia) Fetch(ctx context.Context, ref string) (*media.Asset, error) {
	return &media.Asset{Ref: ref, MIME: "image/png", Extension: "png"}, nil
}

func (m *fakeMedia) Download(ctx context.Context, ref string) (string, func(), error) {
	m.downloads++
	return os.TempDir() + "/" + ref, func() { m.cleaned++ }, nil
}

func poshmarkConfig() models.PlatformConfig {
	return models.PlatformConfig{
		Platform:       models.PlatformPoshmark,
		Type:           models.IntegrationTypeBrowser,
		MaxTitleLength: 80,
		Browser: models.BrowserSettings{
			HomeURL:   "https://poshmark.example/feed",
			LoginURL:  "https://poshmark.example/login",
			CreateURL: "https://poshmark.example/create-listing",
			Selectors: map[string]string{
				SelectorLoggedIn:    ".user-avatar",
				SelectorUsername:    "#login_form_username_email",
				SelectorPassword:    "#login_form_password",
				SelectorLoginSubmit: "button[type=submit]",
				SelectorTitle:       "input[name=title]",
				SelectorDescription: "textarea[name=description]",
				SelectorPrice:       "input[name=price]",
				SelectorImages:      "input[type=file]",
				SelectorSubmit:      "button.list-item",
				SelectorPostLink:    ".listing-link",
			},
		},
	}
}

func newBrowserIntegration(t *testing.T, setup func(*browsertest.Session)) (*BrowserIntegration, *browsertest.Driver, *fakeMedia) {
	driver := &browsertest.Driver{Setup: setup}
	files := &fakeMedia{}
	i, err := NewBrowserIntegration(poshmarkConfig(), Dependencies{Browser: browser.NewPool(driver, 2), Media: files})
	require.NoError(t, err)
	return i, driver, files
}

func sessionCreds() *models.PlatformCredentials {
	blob, _ := browser.EncodeCookies([]browser.Cookie{{Name: "_session", Value: "s3cr3t", Domain: ".poshmark.example", Path: "/"}})
	return &models.PlatformCredentials{Platform: models.PlatformPoshmark, AuthMethod: models.AuthMethodSession, SessionData: blob}
}

func TestBrowserAuthenticateWithStoredSession(t *testing.T) {
	i, driver, _ := newBrowserIntegration(t, nil)

	require.NoError(t, i.Authenticate(context.Background(), sessionCreds()))
	assert.True(t, i.IsAuthenticated())

	s := driver.Sessions[0]
	require.Len(t, s.Jar, 1)
	assert.Equal(t, "_session", s.Jar[0].Name)
	assert.Contains(t, s.Actions, "navigate https://poshmark.example/feed")
	assert.NoError(t, i.ValidateConnection(context.Background()))
}

func TestBrowserAuthenticateFallsBackToLogin(t *testing.T) {
	i, driver, _ := newBrowserIntegration(t, func(s *browsertest.Session) {
		s.Missing[".user-avatar"] = true
		s.AfterClick = func(s *browsertest.Session, selector string) {
			if selector == "button[type=submit]" {
				s.SetMissing(".user-avatar", false)
			}
		}
	})

	creds := sessionCreds()
	creds.Username = "closet@example.com"
	creds.Password = "hunter2"
	require.NoError(t, i.Authenticate(context.Background(), creds))

	s := driver.Sessions[0]
	assert.Equal(t, "closet@example.com", s.Typed["#login_form_username_email"])
	assert.Equal(t, "hunter2", s.Typed["#login_form_password"])
}

func TestBrowserAuthenticateExpiredSession(t *testing.T) {
	i, driver, _ := newBrowserIntegration(t, func(s *browsertest.Session) {
		s.Missing[".user-avatar"] = true
	})

	err := i.Authenticate(context.Background(), sessionCreds())
	require.Error(t, err)
	assert.Equal(t, resilience.CategoryAuthentication, resilience.Classify(err))
	assert.False(t, i.IsAuthenticated())
	assert.True(t, driver.Sessions[0].IsClosed(), "failed auth releases the pooled session")
}

func TestBrowserPostContent(t *testing.T) {
	i, driver, files := newBrowserIntegration(t, func(s *browsertest.Session) {
		s.AfterClick = func(s *browsertest.Session, selector string) {
			if selector == "button.list-item" {
				s.URL = "https://poshmark.example/listing/Vintage-Denim-64f1c2/"
			}
		}
	})
	ctx := context.Background()
	require.NoError(t, i.Authenticate(ctx, sessionCreds()))

	res, err := i.PostContent(ctx, &models.PostContent{
		Title:       "Vintage denim jacket",
		Description: "Size M, barely worn",
		Hashtags:    []string{"vintage"},
		Images:      []string{"front.png", "back.png"},
		Metadata:    map[string]any{"price": 45},
	})
	require.NoError(t, err)
	require.Equal(t, models.PostStatusSuccess, res.Status, res.ErrorMessage)
	assert.Equal(t, "Vintage-Denim-64f1c2", res.DestinationID)
	assert.Equal(t, "https://poshmark.example/listing/Vintage-Denim-64f1c2/", res.URL)

	s := driver.Sessions[0]
	assert.Equal(t, "Vintage denim jacket", s.Typed["input[name=title]"])
	assert.Equal(t, "Size M, barely worn\n\n#vintage", s.Typed["textarea[name=description]"])
	assert.Equal(t, "45", s.Typed["input[name=price]"])
	assert.Len(t, s.Uploaded, 2)
	assert.Equal(t, 2, files.downloads)
	assert.Equal(t, 2, files.cleaned)
}

func TestBrowserPostContentMissingElement(t *testing.T) {
	i, driver, _ := newBrowserIntegration(t, nil)
	ctx := context.Background()
	require.NoError(t, i.Authenticate(ctx, sessionCreds()))
	driver.Sessions[0].SetMissing(".listing-link", true)

	res, err := i.PostContent(ctx, &models.PostContent{Title: "Scarf"})
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusFailed, res.Status)
	assert.Equal(t, resilience.CategoryElementNotFound, resilience.ClassifyMessage(res.ErrorMessage))
}

func TestBrowserCloseReleasesSession(t *testing.T) {
	i, driver, _ := newBrowserIntegration(t, nil)
	require.NoError(t, i.Authenticate(context.Background(), sessionCreds()))

	require.NoError(t, i.Close())
	assert.False(t, i.IsAuthenticated())
	assert.True(t, driver.Sessions[0].IsClosed())

	res, err := i.PostContent(context.Background(), &models.PostContent{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, string(resilience.CategoryAuthentication), res.ErrorCode)
}

func TestNewBrowserRequiresSelectors(t *testing.T) {
	cfg := poshmarkConfig()
	delete(cfg.Browser.Selectors, SelectorPostLink)
	_, err := NewBrowser(cfg, Dependencies{Browser: browser.NewPool(&browsertest.Driver{}, 1)})
	assert.Error(t, err)

	_, err = NewBrowser(poshmarkConfig(), Dependencies{})
	assert.Error(t, err)

	_, err = NewBrowser(graphConfig(models.PlatformFacebook), Dependencies{})
	assert.Error(t, err)
}

func TestDriverErrorSurfaces(t *testing.T) {
	driver := &browsertest.Driver{Err: errors.New("chrome failed to start")}
	i, err := NewBrowserIntegration(poshmarkConfig(), Dependencies{Browser: browser.NewPool(driver, 1)})
	require.NoError(t, err)

	err = i.Authenticate(context.Background(), sessionCreds())
	assert.ErrorContains(t, err, "chrome failed to start")
}
