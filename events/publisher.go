package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NewPublisher selects a backend from cfg. client is required for "redis";
// "kafka" dials the brokers named in cfg.
func NewPublisher(cfg Config, client redis.UniversalClient) (Publisher, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}

	switch cfg.Type {
	case "redis":
		if client == nil {
			return nil, errors.New("missing Redis client for events")
		}
		return NewRedisPublisher(client, cfg.Namespace, cfg.Channel), nil
	case "kafka":
		pub, err := NewKafkaPublisher(cfg)
		if err != nil {
			return nil, err
		}
		return pub, nil
	case "none", "":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unsupported events type: %s", cfg.Type)
	}
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(ctx context.Context, ev Event) error {
	return nil
}

func (Noop) Close() error {
	return nil
}
