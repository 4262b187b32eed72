package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// RedisConfig is shared by the Redis locker and the Redis event publisher.
type RedisConfig struct {
	UseCluster      bool          `json:"use_cluster" env:"REDIS_USE_CLUSTER"`
	Addrs           []string      `json:"addrs" env:"REDIS_ADDRS"` // For cluster
	Addr            string        `json:"addr" env:"REDIS_ADDR"`   // For single-node
	Password        string        `json:"password" env:"REDIS_PASSWORD"`
	DB              int           `json:"db" env:"REDIS_DB"`
	PoolSize        int           `json:"pool_size" env:"REDIS_POOL_SIZE"`
	EnableTelemetry bool          `json:"enable_telemetry" env:"REDIS_ENABLE_TELEMETRY"`
	PingTimeout     time.Duration `json:"ping_timeout" env:"REDIS_PING_TIMEOUT"`
}

func DefaultConfig() RedisConfig {
	return RedisConfig{
		Addr:        "localhost:6379",
		Addrs:       []string{"localhost:6379"},
		PoolSize:    10,
		PingTimeout: 5 * time.Second,
	}
}

// LoadConfig reads REDIS_* variables; unset values fall back to DefaultConfig.
func LoadConfig() (RedisConfig, error) {
	var cfg RedisConfig
	if err := env.Parse(&cfg); err != nil {
		return RedisConfig{}, fmt.Errorf("failed to parse redis config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *RedisConfig) applyDefaults() {
	defaults := DefaultConfig()

	if c.UseCluster && len(c.Addrs) == 0 {
		c.Addrs = defaults.Addrs
	}
	if !c.UseCluster && c.Addr == "" {
		c.Addr = defaults.Addr
	}
	if c.PoolSize == 0 {
		c.PoolSize = defaults.PoolSize
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = defaults.PingTimeout
	}
}

// New connects and pings. The returned client serves both single-node and cluster setups.
func New(ctx context.Context, cfg RedisConfig) (redis.UniversalClient, error) {
	cfg.applyDefaults()

	var client redis.UniversalClient
	if cfg.UseCluster {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
			PoolSize: cfg.PoolSize,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		})
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()

	if err := client.Ping(ctxTimeout).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	if cfg.EnableTelemetry {
		if err := redisotel.InstrumentTracing(client); err != nil {
			return nil, err
		}
		if err := redisotel.InstrumentMetrics(client); err != nil {
			return nil, err
		}
	}

	return client, nil
}
