package integration

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/resilience"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const youtubePeopleAndBlogs = "22"

type youtubeAdapter struct{}

func (youtubeAdapter) service(ctx context.Context, c *APIClient) (*youtube.Service, error) {
	opts := []option.ClientOption{option.WithHTTPClient(c.HTTP)}
	if c.Config.API.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(c.Config.API.BaseURL))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating youtube service: %w", err)
	}
	return svc, nil
}

func (a youtubeAdapter) Probe(ctx context.Context, c *APIClient) error {
	svc, err := a.service(ctx, c)
	if err != nil {
		return err
	}
	resp, err := svc.Channels.List([]string{"id"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return googleError(err)
	}
	if len(resp.Items) == 0 {
		return resilience.NewError(resilience.CategoryAuthentication, errors.New("no youtube channel for account"))
	}
	return nil
}

// Publish uploads the first video among the content's media refs.
func (a youtubeAdapter) Publish(ctx context.Context, c *APIClient, content *models.PostContent) (*Publication, error) {
	if c.Deps.Media == nil {
		return nil, errors.New("media store is not configured")
	}

	var video []byte
	for _, ref := range content.Images {
		asset, err := c.Deps.Media.Fetch(ctx, ref)
		if err != nil {
			return nil, err
		}
		if asset.IsVideo() {
			video = asset.Data
			break
		}
	}
	if video == nil {
		return nil, resilience.Validation("validation failed: youtube requires a video")
	}

	svc, err := a.service(ctx, c)
	if err != nil {
		return nil, err
	}
	upload := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       content.Title,
			Description: Caption(content),
			Tags:        content.Hashtags,
			CategoryId:  youtubePeopleAndBlogs,
		},
		Status: &youtube.VideoStatus{PrivacyStatus: "public"},
	}
	resp, err := svc.Videos.Insert([]string{"snippet", "status"}, upload).
		Media(bytes.NewReader(video)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, googleError(err)
	}
	return &Publication{ID: resp.Id, URL: "https://www.youtube.com/watch?v=" + resp.Id}, nil
}

func (a youtubeAdapter) Metrics(ctx context.Context, c *APIClient, destinationID string) (*models.Metrics, error) {
	svc, err := a.service(ctx, c)
	if err != nil {
		return nil, err
	}
	resp, err := svc.Videos.List([]string{"statistics"}).Id(destinationID).Context(ctx).Do()
	if err != nil {
		return nil, googleError(err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Statistics == nil {
		return nil, fmt.Errorf("video %s not found", destinationID)
	}
	stats := resp.Items[0].Statistics
	return &models.Metrics{
		Views:     int64(stats.ViewCount),
		Likes:     int64(stats.LikeCount),
		Comments:  int64(stats.CommentCount),
		Saves:     int64(stats.FavoriteCount),
		FetchedAt: now(),
	}, nil
}

func googleError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &StatusError{Code: gerr.Code, Body: gerr.Message}
	}
	return err
}
