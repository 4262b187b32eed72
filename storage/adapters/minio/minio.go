package minio

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/storefront/mediastore/storage/api"
	"github.com/storefront/mediastore/storage/config"
)

// MinIOBackend implements api.Backend for MinIO
type MinIOBackend struct {
	client     *minio.Client
	bucketName string
}

// Ensure MinIOBackend implements api.Backend
var _ api.Backend = (*MinIOBackend)(nil)

// NewMinIOBackend creates a MinIO backend and makes sure the bucket exists
func NewMinIOBackend(ctx context.Context, cfg config.MinIOConfig) (*MinIOBackend, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIOBackend{
		client:     client,
		bucketName: cfg.BucketName,
	}, nil
}

// Put uploads an object. MinIO only exposes the object once the upload
// completes, so an aborted stream leaves nothing at key.
func (s *MinIOBackend) Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, key, data, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

func (s *MinIOBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return true, nil
}

func (s *MinIOBackend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", api.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get object info: %w", err)
	}
	return obj, nil
}

func (s *MinIOBackend) Delete(ctx context.Context, key string) (bool, error) {
	exists, err := s.Exists(ctx, key)
	if err != nil || !exists {
		return false, err
	}
	if err := s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return false, fmt.Errorf("failed to delete object: %w", err)
	}
	return true, nil
}

func (s *MinIOBackend) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	list := func(ctx context.Context) <-chan minio.ObjectInfo {
		return s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
	}
	remove := func(ctx context.Context, key string) error {
		return s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{})
	}
	return deleteListed(ctx, list, remove)
}

// deleteListed removes every listed object. The listing is cancelled on
// return so an early error does not leave the lister blocked on its channel.
func deleteListed(ctx context.Context, list func(context.Context) <-chan minio.ObjectInfo, remove func(context.Context, string) error) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	count := 0
	for obj := range list(ctx) {
		if obj.Err != nil {
			return count, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		if err := remove(ctx, obj.Key); err != nil {
			return count, fmt.Errorf("failed to delete object %s: %w", obj.Key, err)
		}
		count++
	}
	return count, nil
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
