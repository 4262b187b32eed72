package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes JSON-encoded events on a Redis channel.
type RedisPublisher struct {
	rdb     redis.UniversalClient
	channel string
}

var (
	_ Publisher  = (*RedisPublisher)(nil)
	_ Subscriber = (*RedisPublisher)(nil)
)

func NewRedisPublisher(rdb redis.UniversalClient, namespace, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if namespace != "" {
		channel = fmt.Sprintf("%s:%s", namespace, channel)
	}
	return &RedisPublisher{rdb: rdb, channel: channel}
}

// Channel returns the fully qualified channel name.
func (r *RedisPublisher) Channel() string {
	return r.channel
}

func (r *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := r.rdb.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe delivers events to handler until ctx is done. onError receives
// decode and handler failures; it may be nil.
func (r *RedisPublisher) Subscribe(ctx context.Context, handler Handler, onError func(error)) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	// wait for the subscription to be confirmed so no event is missed
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					report(onError, fmt.Errorf("failed to decode event on %s: %w", r.channel, err))
					continue
				}
				if err := handler(ctx, ev); err != nil {
					report(onError, fmt.Errorf("event handler failed on %s: %w", r.channel, err))
				}
			}
		}
	}()
	return nil
}

func (r *RedisPublisher) Close() error {
	return nil
}

func report(onError func(error), err error) {
	if onError != nil {
		onError(err)
	}
}
