// Package s3storage mirrors downloaded documents into a MinIO/S3 bucket.
package s3storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dharsanguruparan/PlanHarvest/internal/config"
)

const defaultContentType = "application/octet-stream"

// Storage wraps MinIO/S3 interactions for mirrored documents.
type Storage struct {
	client *minio.Client
	bucket string
	prefix string
	region string
}

// New creates a MinIO client from the Config. No request is made until the
// first call.
func New(cfg *config.Config) (*Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{
		client: client,
		bucket: cfg.S3Bucket,
		prefix: cfg.S3Prefix,
		region: cfg.S3Region,
	}, nil
}

// EnsureBucket makes sure the mirror bucket exists before use.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Upload streams the local file at localPath to the object for key.
func (s *Storage) Upload(ctx context.Context, key, localPath, contentType string) error {
	if contentType == "" {
		contentType = defaultContentType
	}
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.FPutObject(ctx, s.bucket, ObjectKey(s.prefix, key), localPath, opts); err != nil {
		return fmt.Errorf("upload object: %w", err)
	}
	return nil
}

// ObjectKey joins prefix and a slash-separated relative key into an object
// name without leading, trailing or doubled slashes.
func ObjectKey(prefix, key string) string {
	joined := path.Join(strings.Trim(prefix, "/"), strings.TrimLeft(key, "/"))
	return strings.TrimPrefix(joined, "/")
}
