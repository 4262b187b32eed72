package factory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/storefront/mediastore/events"
	"github.com/storefront/mediastore/lock"
	logapi "github.com/storefront/mediastore/logger/api"
	"github.com/storefront/mediastore/media"
	mediaconfig "github.com/storefront/mediastore/media/config"
	"github.com/storefront/mediastore/redisclient"
	storageapi "github.com/storefront/mediastore/storage/api"
	storagefactory "github.com/storefront/mediastore/storage/factory"
)

// Service bundles an Uploader with the resources it owns.
type Service struct {
	Uploader  *media.Uploader
	Backend   storageapi.Backend
	Publisher events.Publisher
	redis     redis.UniversalClient
}

// Close releases the publisher and the Redis connection, if any.
func (s *Service) Close() error {
	var errs []error
	if s.Publisher != nil {
		errs = append(errs, s.Publisher.Close())
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	return errors.Join(errs...)
}

// Redis returns the shared connection, or nil when nothing needed one.
func (s *Service) Redis() redis.UniversalClient {
	return s.redis
}

// NewFromEnv loads media and storage configuration from the environment.
func NewFromEnv(ctx context.Context, log logapi.Logger) (*Service, error) {
	cfg, err := mediaconfig.Load()
	if err != nil {
		return nil, err
	}
	backend, err := storagefactory.NewBackend(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	return New(ctx, cfg, backend, log)
}

// New wires backend with the locker and publisher selected by cfg. A Redis
// connection is opened only when the locker or the publisher needs one.
func New(ctx context.Context, cfg mediaconfig.Config, backend storageapi.Backend, log logapi.Logger) (*Service, error) {
	log = logapi.OrNop(log)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	classifier, err := cfg.Classifier()
	if err != nil {
		return nil, err
	}

	svc := &Service{Backend: backend}
	redisLock := strings.EqualFold(cfg.LockType, mediaconfig.LockTypeRedis)
	redisEvents := cfg.Events.Enabled && cfg.Events.Type == "redis"
	if redisLock || redisEvents {
		svc.redis, err = redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
	}

	var locker lock.Locker = lock.NewLocalLocker()
	if redisLock {
		locker = lock.NewRedisLocker(svc.redis, lock.WithTTL(cfg.LockTTL))
	}

	svc.Publisher, err = events.NewPublisher(cfg.Events, svc.redis)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}

	store := media.NewStore(backend,
		media.WithLogger(log),
		media.WithLocker(locker),
		media.WithPublisher(svc.Publisher),
		media.WithSizePolicy(cfg.SizePolicy()),
		media.WithURLProjector(cfg.URLProjector()),
	)
	svc.Uploader = media.NewUploader(store, classifier, log)

	log.Info(ctx, "media uploader ready",
		logapi.String("public_base", cfg.URLProjector().Base()),
		logapi.Int64("max_upload_bytes", cfg.SizePolicy().MaxUploadBytes()),
		logapi.String("lock_type", cfg.LockType),
		logapi.Bool("events", cfg.Events.Enabled),
		logapi.String("events_type", cfg.Events.Type),
		logapi.String("extensions", classifier.AcceptList()),
	)
	return svc, nil
}
