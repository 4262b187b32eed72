package lock

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL       = 30 * time.Second
	defaultRetry     = 50 * time.Millisecond
	defaultKeyPrefix = "media:lock:"
)

// RedisLocker shares locks between processes through redsync mutexes.
// The TTL bounds how long a crashed holder can block a key; a live holder
// extends its lock every TTL/3 until it unlocks.
type RedisLocker struct {
	rs     *redsync.Redsync
	ttl    time.Duration
	retry  time.Duration
	prefix string
}

var _ Locker = (*RedisLocker)(nil)

type RedisOption func(*RedisLocker)

func WithTTL(ttl time.Duration) RedisOption {
	return func(l *RedisLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

func WithRetryInterval(d time.Duration) RedisOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.retry = d
		}
	}
}

func WithKeyPrefix(prefix string) RedisOption {
	return func(l *RedisLocker) {
		l.prefix = prefix
	}
}

func NewRedisLocker(client redis.UniversalClient, opts ...RedisOption) *RedisLocker {
	l := &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		ttl:    defaultTTL,
		retry:  defaultRetry,
		prefix: defaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock retries until the key is free or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	mutex := l.rs.NewMutex(l.prefix+key,
		redsync.WithExpiry(l.ttl),
		redsync.WithRetryDelay(l.retry),
		redsync.WithTries(math.MaxInt32),
	)
	if err := mutex.LockContext(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctx.Err())
		}
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}

	extendCtx, stop := context.WithCancel(context.Background())
	extended := make(chan struct{})
	go l.keepAlive(extendCtx, mutex, extended)

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			<-extended
			// the caller's ctx may already be cancelled
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			// an expired lock taken over by another holder is left alone
			_, _ = mutex.UnlockContext(releaseCtx)
		})
	}, nil
}

// keepAlive pushes the expiry forward while the lock is held. It gives up
// once an extension fails, which means another holder owns the key.
func (l *RedisLocker) keepAlive(ctx context.Context, mutex *redsync.Mutex, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ok, err := mutex.ExtendContext(ctx); err != nil || !ok {
				return
			}
		}
	}
}
