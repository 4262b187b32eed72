package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env"
	"github.com/storefront/mediastore/storage/api"
)

// LocalConfig holds filesystem backend configuration
type LocalConfig struct {
	// Root is the directory every key is resolved against. The web server
	// exposes it under the media public base.
	Root string `env:"MEDIA_STORAGE_ROOT" envDefault:"./storage/app/public"`
}

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint   string `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	AccessKey  string `env:"MINIO_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey  string `env:"MINIO_SECRET_KEY" envDefault:"minioadmin"`
	BucketName string `env:"MINIO_BUCKET" envDefault:"media"`
	UseSSL     bool   `env:"MINIO_USE_SSL" envDefault:"false"`
}

// S3Config holds AWS S3 connection configuration
type S3Config struct {
	Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	BucketName      string `env:"S3_BUCKET" envDefault:"media"`
	Endpoint        string `env:"S3_ENDPOINT"` // Optional: for S3-compatible services
}

type typeConfig struct {
	Type string `env:"STORAGE_TYPE" envDefault:"local"`
}

// LoadLocalConfig loads filesystem configuration from environment variables
func LoadLocalConfig() (LocalConfig, error) {
	var cfg LocalConfig
	if err := env.Parse(&cfg); err != nil {
		return LocalConfig{}, fmt.Errorf("failed to parse local storage config: %w", err)
	}
	return cfg, nil
}

// LoadMinIOConfig loads MinIO configuration from environment variables
func LoadMinIOConfig() (MinIOConfig, error) {
	var cfg MinIOConfig
	if err := env.Parse(&cfg); err != nil {
		return MinIOConfig{}, fmt.Errorf("failed to parse minio config: %w", err)
	}
	return cfg, nil
}

// LoadS3Config loads S3 configuration from environment variables
func LoadS3Config() (S3Config, error) {
	var cfg S3Config
	if err := env.Parse(&cfg); err != nil {
		return S3Config{}, fmt.Errorf("failed to parse s3 config: %w", err)
	}
	return cfg, nil
}

// GetStorageType returns the configured storage type from environment
func GetStorageType() api.StorageType {
	var cfg typeConfig
	if err := env.Parse(&cfg); err != nil {
		return api.StorageTypeLocal
	}
	return api.StorageType(strings.ToLower(strings.TrimSpace(cfg.Type)))
}
