package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/go-querystring/query"
	"github.com/maheshrc27/crosspost/internal/models"
)

// listingForm is the form body marketplace listing APIs accept.
type listingForm struct {
	Title       string   `url:"title"`
	Description string   `url:"description"`
	Tags        []string `url:"tags,comma,omitempty"`
	ImageURLs   []string `url:"image_urls,comma,omitempty"`
	Price       string   `url:"price,omitempty"`
	Quantity    string   `url:"quantity,omitempty"`
	SKU         string   `url:"sku,omitempty"`
	State       string   `url:"state,omitempty"`
}

// listingAdapter drives marketplaces with a form-encoded listing endpoint;
// the paths come from the platform config.
type listingAdapter struct{}

func (listingAdapter) Probe(ctx context.Context, c *APIClient) error {
	if c.Config.API.ProbePath == "" {
		return nil
	}
	return c.GetJSON(ctx, c.URL(c.Config.API.ProbePath, ""), nil)
}

func (listingAdapter) Publish(ctx context.Context, c *APIClient, content *models.PostContent) (*Publication, error) {
	if c.Config.API.PublishPath == "" {
		return nil, fmt.Errorf("%s has no publish path configured", c.Config.Platform)
	}

	form := listingForm{
		Title:       content.Title,
		Description: content.Description,
		Tags:        content.Hashtags,
		Price:       metadataString(content.Metadata, "price"),
		Quantity:    metadataString(content.Metadata, "quantity"),
		SKU:         metadataString(content.Metadata, "sku"),
		State:       "active",
	}
	for _, img := range content.Images {
		form.ImageURLs = append(form.ImageURLs, c.MediaURL(img))
	}
	values, err := query.Values(form)
	if err != nil {
		return nil, fmt.Errorf("encoding listing: %w", err)
	}

	var result struct {
		ID        any    `json:"id"`
		ListingID any    `json:"listing_id"`
		URL       string `json:"url"`
	}
	if err := c.PostForm(ctx, c.URL(c.Config.API.PublishPath, ""), values, &result); err != nil {
		return nil, err
	}

	id := idString(result.ListingID)
	if id == "" {
		id = idString(result.ID)
	}
	if id == "" {
		return nil, errors.New("no listing ID returned")
	}
	return &Publication{ID: id, URL: result.URL}, nil
}

func (listingAdapter) Metrics(ctx context.Context, c *APIClient, destinationID string) (*models.Metrics, error) {
	if c.Config.API.MetricsPath == "" {
		return nil, nil
	}
	var stats struct {
		Views     json.Number `json:"views"`
		Favorites json.Number `json:"num_favorers"`
		Watchers  json.Number `json:"watch_count"`
	}
	if err := c.GetJSON(ctx, c.URL(c.Config.API.MetricsPath, destinationID), &stats); err != nil {
		return nil, err
	}
	views, _ := stats.Views.Int64()
	favorites, _ := stats.Favorites.Int64()
	watchers, _ := stats.Watchers.Int64()
	return &models.Metrics{Views: views, Likes: favorites, Saves: watchers, FetchedAt: now()}, nil
}

func metadataString(meta map[string]any, key string) string {
	v, ok := meta[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}
