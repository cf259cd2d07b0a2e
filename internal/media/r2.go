package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type R2Settings struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
}

// R2Bucket reads media objects from a Cloudflare R2 bucket over the S3 API.
type R2Bucket struct {
	client *s3.Client
	bucket string
}

func NewR2Bucket(ctx context.Context, settings R2Settings) (*R2Bucket, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(settings.AccessKey, settings.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("loading r2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", settings.AccountID))
	})
	return &R2Bucket{client: client, bucket: settings.BucketName}, nil
}

func (b *R2Bucket) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return out.Body, nil
}
