package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/resilience"
)

// Graph API adapters for Facebook pages and Instagram business accounts.

type facebookAdapter struct{}

func (facebookAdapter) Probe(ctx context.Context, c *APIClient) error {
	var me struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := c.GetJSON(ctx, c.URL(probePath(c.Config, "/me?fields=id,name"), ""), &me); err != nil {
		return err
	}
	if me.ID == "" {
		return resilience.NewError(resilience.CategoryAuthentication, errors.New("facebook returned no account id"))
	}
	return nil
}

func (facebookAdapter) Publish(ctx context.Context, c *APIClient, content *models.PostContent) (*Publication, error) {
	message := graphMessage(content)

	var result struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	if len(content.Images) > 0 {
		payload := map[string]any{
			"url":     c.MediaURL(content.Images[0]),
			"caption": message,
		}
		if err := c.PostJSON(ctx, c.URL("/{account}/photos", ""), payload, &result); err != nil {
			return nil, err
		}
	} else {
		payload := map[string]any{"message": message}
		if err := c.PostJSON(ctx, c.URL("/{account}/feed", ""), payload, &result); err != nil {
			return nil, err
		}
	}

	id := result.PostID
	if id == "" {
		id = result.ID
	}
	if id == "" {
		return nil, errors.New("no post ID returned from facebook")
	}
	return &Publication{ID: id, URL: "https://www.facebook.com/" + id}, nil
}

func (facebookAdapter) Metrics(ctx context.Context, c *APIClient, destinationID string) (*models.Metrics, error) {
	var stats struct {
		Likes struct {
			Summary struct {
				TotalCount int64 `json:"total_count"`
			} `json:"summary"`
		} `json:"likes"`
		Comments struct {
			Summary struct {
				TotalCount int64 `json:"total_count"`
			} `json:"summary"`
		} `json:"comments"`
		Shares struct {
			Count int64 `json:"count"`
		} `json:"shares"`
	}
	url := c.URL("/{id}?fields=likes.summary(true),comments.summary(true),shares", destinationID)
	if err := c.GetJSON(ctx, url, &stats); err != nil {
		return nil, err
	}
	return &models.Metrics{
		Likes:     stats.Likes.Summary.TotalCount,
		Comments:  stats.Comments.Summary.TotalCount,
		Shares:    stats.Shares.Count,
		FetchedAt: now(),
	}, nil
}

type instagramAdapter struct{}

func (instagramAdapter) Probe(ctx context.Context, c *APIClient) error {
	var me struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := c.GetJSON(ctx, c.URL(probePath(c.Config, "/me?fields=id,username"), ""), &me); err != nil {
		return err
	}
	if me.ID == "" {
		return resilience.NewError(resilience.CategoryAuthentication, errors.New("instagram returned no account id"))
	}
	return nil
}

// Publish creates a media container (a carousel for several images) and then
// publishes it.
func (a instagramAdapter) Publish(ctx context.Context, c *APIClient, content *models.PostContent) (*Publication, error) {
	if len(content.Images) == 0 {
		return nil, resilience.Validation("validation failed: instagram posts need an image")
	}
	caption := Caption(content)

	var containerID string
	var err error
	if len(content.Images) == 1 {
		containerID, err = a.createContainer(ctx, c, map[string]any{
			"image_url": c.MediaURL(content.Images[0]),
			"caption":   caption,
		})
	} else {
		containerID, err = a.createCarousel(ctx, c, content.Images, caption)
	}
	if err != nil {
		return nil, err
	}

	var published struct {
		ID string `json:"id"`
	}
	if err := c.PostJSON(ctx, c.URL("/{account}/media_publish", ""), map[string]any{"creation_id": containerID}, &published); err != nil {
		return nil, fmt.Errorf("failed to publish instagram container: %w", err)
	}
	if published.ID == "" {
		return nil, errors.New("no media ID returned from instagram")
	}

	pub := &Publication{ID: published.ID}
	var link struct {
		Permalink string `json:"permalink"`
	}
	if err := c.GetJSON(ctx, c.URL("/{id}?fields=permalink", published.ID), &link); err == nil {
		pub.URL = link.Permalink
	}
	return pub, nil
}

func (instagramAdapter) createContainer(ctx context.Context, c *APIClient, payload map[string]any) (string, error) {
	var result struct {
		ID string `json:"id"`
	}
	if err := c.PostJSON(ctx, c.URL("/{account}/media", ""), payload, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errors.New("no container ID returned from instagram")
	}
	return result.ID, nil
}

func (a instagramAdapter) createCarousel(ctx context.Context, c *APIClient, images []string, caption string) (string, error) {
	children := make([]string, 0, len(images))
	for _, img := range images {
		id, err := a.createContainer(ctx, c, map[string]any{
			"image_url":        c.MediaURL(img),
			"is_carousel_item": true,
		})
		if err != nil {
			return "", err
		}
		children = append(children, id)
	}
	return a.createContainer(ctx, c, map[string]any{
		"media_type": "CAROUSEL",
		"children":   strings.Join(children, ","),
		"caption":    caption,
	})
}

func (instagramAdapter) Metrics(ctx context.Context, c *APIClient, destinationID string) (*models.Metrics, error) {
	var stats struct {
		LikeCount     json.Number `json:"like_count"`
		CommentsCount json.Number `json:"comments_count"`
	}
	if err := c.GetJSON(ctx, c.URL("/{id}?fields=like_count,comments_count", destinationID), &stats); err != nil {
		return nil, err
	}
	likes, _ := stats.LikeCount.Int64()
	comments, _ := stats.CommentsCount.Int64()
	return &models.Metrics{Likes: likes, Comments: comments, FetchedAt: now()}, nil
}

func graphMessage(content *models.PostContent) string {
	caption := Caption(content)
	if content.Title == "" {
		return caption
	}
	if caption == "" {
		return content.Title
	}
	return content.Title + "\n\n" + caption
}

func probePath(cfg models.PlatformConfig, fallback string) string {
	if cfg.API.ProbePath != "" {
		return cfg.API.ProbePath
	}
	return fallback
}
