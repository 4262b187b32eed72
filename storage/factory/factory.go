package factory

import (
	"context"
	"fmt"

	localadapter "github.com/storefront/mediastore/storage/adapters/local"
	minioadapter "github.com/storefront/mediastore/storage/adapters/minio"
	s3adapter "github.com/storefront/mediastore/storage/adapters/s3"
	"github.com/storefront/mediastore/storage/api"
	"github.com/storefront/mediastore/storage/config"
)

// NewBackend creates a backend based on the STORAGE_TYPE environment variable
// Supported types: "local" (default), "minio", "s3"
func NewBackend(ctx context.Context) (api.Backend, error) {
	return NewBackendWithType(ctx, config.GetStorageType())
}

// NewBackendWithType creates a backend of a specific type
func NewBackendWithType(ctx context.Context, storageType api.StorageType) (api.Backend, error) {
	switch storageType {
	case api.StorageTypeLocal:
		cfg, err := config.LoadLocalConfig()
		if err != nil {
			return nil, err
		}
		return localadapter.NewLocalBackend(cfg)

	case api.StorageTypeMinio:
		cfg, err := config.LoadMinIOConfig()
		if err != nil {
			return nil, err
		}
		return minioadapter.NewMinIOBackend(ctx, cfg)

	case api.StorageTypeS3:
		cfg, err := config.LoadS3Config()
		if err != nil {
			return nil, err
		}
		return s3adapter.NewS3Backend(ctx, cfg)

	default:
		return nil, fmt.Errorf("unsupported storage type: %s (supported: local, minio, s3)", storageType)
	}
}
