package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"jury_portal_backend/platform/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOArchive implements Archive on a single MinIO bucket.
type MinIOArchive struct {
	client *minio.Client
	bucket string
}

// NewMinIOArchive connects to MinIO. It returns an error when storage is not configured.
func NewMinIOArchive(cfg config.StorageConfig) (*MinIOArchive, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOArchive{client: client, bucket: cfg.GetMinioBucketFeedbackArchive()}, nil
}

// EnsureBucketExists creates the archive bucket if it doesn't exist.
func (a *MinIOArchive) EnsureBucketExists(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
		}
	}

	return nil
}

func (a *MinIOArchive) PutHTML(ctx context.Context, key, html string) (string, error) {
	reader := strings.NewReader(html)
	_, err := a.client.PutObject(ctx, a.bucket, key, reader, reader.Size(), minio.PutObjectOptions{
		ContentType: "text/html; charset=utf-8",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload archive %s: %w", key, err)
	}
	return key, nil
}

func (a *MinIOArchive) DownloadURL(ctx context.Context, key string) (string, error) {
	presigned, err := a.client.PresignedGetObject(ctx, a.bucket, key, PresignedURLTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned download URL: %w", err)
	}
	return presigned.String(), nil
}
