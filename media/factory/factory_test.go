package factory_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/storefront/mediastore/logger/adapters/mock"
	"github.com/storefront/mediastore/media"
	mediaconfig "github.com/storefront/mediastore/media/config"
	"github.com/storefront/mediastore/media/factory"
	"github.com/storefront/mediastore/storage/adapters/local"
	storageconfig "github.com/storefront/mediastore/storage/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) *local.LocalBackend {
	t.Helper()
	b, err := local.NewLocalBackend(storageconfig.LocalConfig{Root: t.TempDir()})
	require.NoError(t, err)
	return b
}

func TestNew_LocalDefaults(t *testing.T) {
	backend := newBackend(t)
	log := mock.NewMockLogger()

	svc, err := factory.New(context.Background(), mediaconfig.DefaultConfig(), backend, log)
	require.NoError(t, err)
	defer svc.Close()

	asset, err := svc.Uploader.CreateSupplierLogo(context.Background(), 42, media.UploadRequest{
		Content:          bytes.NewReader(bytes.Repeat([]byte{0x1}, 500)),
		Size:             500,
		OriginalFilename: "logo.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "/storage/suppliers/42/logo/logo.png", asset.PublicURL)

	_, err = os.Stat(filepath.Join(backend.Root(), "suppliers", "42", "logo", "logo.png"))
	assert.NoError(t, err)
	assert.NotEmpty(t, log.EntriesAt(mock.LevelInfo))
}

func TestNew_RedisLockAndEvents(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := mediaconfig.DefaultConfig()
	cfg.LockType = mediaconfig.LockTypeRedis
	cfg.Events.Enabled = true
	cfg.Events.Type = "redis"
	cfg.Redis.Addr = mr.Addr()

	svc, err := factory.New(context.Background(), cfg, newBackend(t), nil)
	require.NoError(t, err)

	_, err = svc.Uploader.StoreColorPicture(context.Background(), 7, 3, media.UploadRequest{
		Content:          bytes.NewReader([]byte("frames")),
		Size:             6,
		OriginalFilename: "spin.mp4",
	})
	require.NoError(t, err)
	// the lock is released once the write returns
	assert.Empty(t, mr.Keys())

	assert.NoError(t, svc.Close())
}

func TestNew_RedisUnreachable(t *testing.T) {
	cfg := mediaconfig.DefaultConfig()
	cfg.LockType = mediaconfig.LockTypeRedis
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Redis.PingTimeout = 200 * time.Millisecond

	_, err := factory.New(context.Background(), cfg, newBackend(t), nil)
	assert.Error(t, err)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := mediaconfig.DefaultConfig()
	cfg.ImageExtensions = []string{"mp4"}

	_, err := factory.New(context.Background(), cfg, newBackend(t), nil)
	assert.Error(t, err)
}

func TestNew_KafkaEventsNeedBrokers(t *testing.T) {
	cfg := mediaconfig.DefaultConfig()
	cfg.Events.Enabled = true
	cfg.Events.Type = "kafka"

	_, err := factory.New(context.Background(), cfg, newBackend(t), nil)
	assert.ErrorContains(t, err, "MEDIA_EVENTS_KAFKA_BROKERS")
}

func TestService_RedisOnlyWhenNeeded(t *testing.T) {
	svc, err := factory.New(context.Background(), mediaconfig.DefaultConfig(), newBackend(t), nil)
	require.NoError(t, err)
	defer svc.Close()
	assert.Nil(t, svc.Redis())
}
