package api

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned (wrapped) by Open when the key holds no object.
var ErrNotFound = errors.New("object not found")

// Backend is a hierarchical blob store addressed by slash-separated keys
// such as "suppliers/42/logo/logo.png".
// Implementations: local filesystem, MinIO, AWS S3
type Backend interface {
	// Put writes data under key. The write is all-or-nothing: a failed or
	// aborted Put never leaves a partial object visible at key.
	// size may be -1 when the length is not known up front.
	Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) error

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)

	// Open returns the object content. Absent keys yield ErrNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object at key and reports whether one was removed.
	// An absent key is not an error.
	Delete(ctx context.Context, key string) (bool, error)

	// DeletePrefix removes every object below prefix and returns how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// StorageType represents the type of storage backend
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeMinio StorageType = "minio"
	StorageTypeS3    StorageType = "s3"
)
