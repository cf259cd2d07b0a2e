package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/crosspost/internal/resilience"
)

var ErrUnsupportedMedia = errors.New("unsupported media type")

const maxAssetSize = 100 * 1024 * 1024 // 100 MB

type Asset struct {
	Ref       string
	MIME      string
	Extension string
	Data      []byte
}

func (a *Asset) IsVideo() bool {
	return strings.HasPrefix(a.MIME, "video/")
}

// Store resolves image/video references attached to content.
type Store interface {
	Fetch(ctx context.Context, ref string) (*Asset, error)
	// Download writes the asset to a temp file for browser uploads.
	Download(ctx context.Context, ref string) (path string, cleanup func(), err error)
}

// ObjectGetter reads an object from bucket storage.
type ObjectGetter interface {
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
}

type store struct {
	http    *http.Client
	objects ObjectGetter
}

// NewStore resolves "r2://key" refs through objects and http(s) refs through
// client. objects may be nil when no bucket is configured.
func NewStore(client *http.Client, objects ObjectGetter) Store {
	if client == nil {
		client = http.DefaultClient
	}
	return &store{http: client, objects: objects}
}

func (s *store) Fetch(ctx context.Context, ref string) (*Asset, error) {
	body, err := s.open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxAssetSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading media %s: %w", ref, err)
	}
	if len(data) > maxAssetSize {
		return nil, resilience.NewError(resilience.CategoryValidation, fmt.Errorf("media %s exceeds %d bytes", ref, maxAssetSize))
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return nil, resilience.NewError(resilience.CategoryValidation, fmt.Errorf("%w: %s", ErrUnsupportedMedia, ref))
	}
	if !filetype.IsImage(data) && !filetype.IsVideo(data) {
		return nil, resilience.NewError(resilience.CategoryValidation, fmt.Errorf("%w: %s is %s", ErrUnsupportedMedia, ref, kind.MIME.Value))
	}

	return &Asset{
		Ref:       ref,
		MIME:      kind.MIME.Value,
		Extension: kind.Extension,
		Data:      data,
	}, nil
}

func (s *store) Download(ctx context.Context, ref string) (string, func(), error) {
	asset, err := s.Fetch(ctx, ref)
	if err != nil {
		return "", nil, err
	}

	f, err := os.CreateTemp("", "crosspost-*."+asset.Extension)
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}
	cleanup := func() {
		if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
			slog.Warn("removing temp media", "path", f.Name(), "error", err)
		}
	}
	if _, err := f.Write(asset.Data); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("writing temp media: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing temp media: %w", err)
	}
	return f.Name(), cleanup, nil
}

func (s *store) open(ctx context.Context, ref string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(ref, "r2://"):
		if s.objects == nil {
			return nil, fmt.Errorf("media %s: no bucket configured", ref)
		}
		body, err := s.objects.GetObject(ctx, strings.TrimPrefix(ref, "r2://"))
		if err != nil {
			return nil, fmt.Errorf("fetching media %s: %w", ref, err)
		}
		return body, nil

	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, resilience.NewError(resilience.CategoryValidation, fmt.Errorf("invalid media url %s: %w", ref, err))
		}
		resp, err := s.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching media %s: %w", ref, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetching media %s: unexpected status %d", ref, resp.StatusCode)
		}
		return resp.Body, nil

	default:
		return nil, resilience.NewError(resilience.CategoryValidation, fmt.Errorf("unsupported media reference %q", ref))
	}
}
