package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/storefront/mediastore/events"
	"github.com/storefront/mediastore/media"
	"github.com/storefront/mediastore/redisclient"
)

const (
	LockTypeLocal = "local"
	LockTypeRedis = "redis"
)

// Config holds the media settings read once at startup.
type Config struct {
	// PublicBase prefixes every public asset URL. It must be served from the
	// same tree the storage backend writes to.
	PublicBase string `env:"MEDIA_PUBLIC_BASE" envDefault:"/storage"`

	// MaxUploadKB is the upload ceiling in kilobytes of 1000 bytes. 0 disables it.
	MaxUploadKB int64 `env:"MEDIA_MAX_UPLOAD_KB" envDefault:"2000"`

	ImageExtensions []string `env:"MEDIA_IMAGE_EXTENSIONS" envDefault:"jpg,jpeg,png,gif,webp"`
	VideoExtensions []string `env:"MEDIA_VIDEO_EXTENSIONS" envDefault:"mp4,mpeg"`

	// LockType is "local" for a single process or "redis" for several.
	LockType string        `env:"MEDIA_LOCK_TYPE" envDefault:"local"`
	LockTTL  time.Duration `env:"MEDIA_LOCK_TTL" envDefault:"30s"`

	Events events.Config
	Redis  redisclient.RedisConfig
}

// DefaultConfig mirrors the envDefault tags.
func DefaultConfig() Config {
	return Config{
		PublicBase:      "/storage",
		MaxUploadKB:     2000,
		ImageExtensions: append([]string{}, media.DefaultImageExtensions...),
		VideoExtensions: append([]string{}, media.DefaultVideoExtensions...),
		LockType:        LockTypeLocal,
		LockTTL:         30 * time.Second,
		Events:          events.Config{Type: "none", Channel: events.DefaultChannel},
		Redis:           redisclient.DefaultConfig(),
	}
}

// Load reads MEDIA_*, MEDIA_EVENTS_* and REDIS_* variables and validates them.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse media config: %w", err)
	}
	var err error
	if cfg.Events, err = events.LoadConfig(); err != nil {
		return Config{}, err
	}
	if cfg.Redis, err = redisclient.LoadConfig(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail deep inside a request.
func (c Config) Validate() error {
	if _, err := c.Classifier(); err != nil {
		return err
	}
	switch strings.ToLower(c.LockType) {
	case LockTypeLocal, LockTypeRedis:
	default:
		return fmt.Errorf("unsupported lock type: %s (supported: local, redis)", c.LockType)
	}
	if c.LockTTL < 0 {
		return fmt.Errorf("lock ttl must not be negative, got %s", c.LockTTL)
	}
	return nil
}

// Classifier builds the extension rules. Overlapping sets are an error.
func (c Config) Classifier() (*media.RuleSet, error) {
	r, err := media.NewClassifier(c.ImageExtensions, c.VideoExtensions)
	if err != nil {
		return nil, fmt.Errorf("invalid media extensions: %w", err)
	}
	return r, nil
}

func (c Config) SizePolicy() media.SizePolicy {
	return media.NewSizePolicy(c.MaxUploadKB)
}

func (c Config) URLProjector() media.URLProjector {
	return media.NewURLProjector(c.PublicBase)
}
