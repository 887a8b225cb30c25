// Package storage uploads incident attachments to an S3-compatible bucket
// and hands back the URL stored alongside the attachment's metadata row.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	appconfig "github.com/kiranshivaraju/loghunter/internal/config"
)

// Uploader puts attachment bytes into one bucket.
type Uploader struct {
	client *s3.Client
	bucket string
}

// New builds an Uploader from storage config. A non-empty Endpoint routes
// requests at a self-hosted S3-compatible service (e.g. MinIO) instead of
// AWS.
func New(ctx context.Context, cfg appconfig.StorageConfig) (*Uploader, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.Endpoint != ""
	})

	return &Uploader{client: client, bucket: cfg.Bucket}, nil
}

// Key builds a time-partitioned object key for a newly uploaded file.
func Key(fileName string) string {
	d := time.Now()
	return fmt.Sprintf("attachments/%d/%02d/%02d/%s-%s", d.Year(), d.Month(), d.Day(), uuid.New(), fileName)
}

// Upload streams body to the bucket under key and returns the URL to
// persist on the attachment row.
func (u *Uploader) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}
