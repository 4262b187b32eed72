// Package usage keeps per-owner storage counters in Redis. A Tally is fed
// asset events and flushes accumulated deltas in batches.
package usage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storefront/mediastore/events"
)

const (
	FieldUploads = "uploads"
	FieldBytes   = "bytes"
	FieldDeletes = "deletes"
	FieldPurges  = "purges"
)

// DefaultPrefix namespaces the Redis hashes: media:usage:<type>:<id>.
const DefaultPrefix = "media:usage"

type delta struct {
	owner string
	field string
	n     int64
}

// Tally batches counter deltas per owner and writes them with HINCRBY.
type Tally struct {
	rdb        redis.UniversalClient
	prefix     string
	flushEvery time.Duration
	threshold  int64

	mu     sync.Mutex
	counts map[string]map[string]int64

	deltas  chan delta
	stopCh  chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewTally creates a tally. An owner is flushed early once one of its
// counters reaches threshold; everything is flushed every flushEvery.
func NewTally(rdb redis.UniversalClient, prefix string, flushEvery time.Duration, threshold int64, bufferSize int) *Tally {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if flushEvery <= 0 {
		flushEvery = 10 * time.Second
	}
	return &Tally{
		rdb:        rdb,
		prefix:     prefix,
		flushEvery: flushEvery,
		threshold:  threshold,
		counts:     make(map[string]map[string]int64),
		deltas:     make(chan delta, bufferSize),
		stopCh:     make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Start runs the flush loop until ctx is done or Stop is called. Pending
// deltas are flushed before it returns.
func (t *Tally) Start(ctx context.Context) {
	defer close(t.stopped)
	ticker := time.NewTicker(t.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case d := <-t.deltas:
			if t.add(d) {
				_ = t.flushOwner(ctx, d.owner)
			}
		case <-ticker.C:
			_ = t.Flush(ctx)
		case <-t.stopCh:
			t.drain()
			_ = t.Flush(context.WithoutCancel(ctx))
			return
		case <-ctx.Done():
			t.drain()
			_ = t.Flush(context.WithoutCancel(ctx))
			return
		}
	}
}

// Stop ends Start and waits for the final flush.
func (t *Tally) Stop() {
	t.once.Do(func() { close(t.stopCh) })
	<-t.stopped
}

// Handle matches events.Handler.
func (t *Tally) Handle(ctx context.Context, ev events.Event) error {
	owner := OwnerOf(ev.Key)
	if owner == "" {
		return nil
	}
	switch ev.Type {
	case events.TypeStored, events.TypeReplaced:
		t.push(delta{owner, FieldUploads, 1})
		t.push(delta{owner, FieldBytes, ev.Bytes})
	case events.TypeDeleted:
		t.push(delta{owner, FieldDeletes, 1})
	case events.TypePurged:
		t.push(delta{owner, FieldPurges, 1})
		t.push(delta{owner, FieldDeletes, int64(ev.Count)})
	}
	return nil
}

func (t *Tally) push(d delta) {
	if d.n == 0 {
		return
	}
	t.deltas <- d
}

func (t *Tally) add(d delta) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.counts[d.owner]; !ok {
		t.counts[d.owner] = make(map[string]int64)
	}
	t.counts[d.owner][d.field] += d.n
	return t.threshold > 0 && t.counts[d.owner][d.field] >= t.threshold
}

func (t *Tally) drain() {
	for {
		select {
		case d := <-t.deltas:
			t.add(d)
		default:
			return
		}
	}
}

// Flush writes every pending owner.
func (t *Tally) Flush(ctx context.Context) error {
	t.mu.Lock()
	owners := make([]string, 0, len(t.counts))
	for owner := range t.counts {
		owners = append(owners, owner)
	}
	t.mu.Unlock()

	for _, owner := range owners {
		if err := t.flushOwner(ctx, owner); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tally) flushOwner(ctx context.Context, owner string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data := t.counts[owner]
	if len(data) == 0 || t.rdb == nil {
		return nil
	}

	key := t.Key(owner)
	pipe := t.rdb.Pipeline()
	for field, n := range data {
		pipe.HIncrBy(ctx, key, field, n)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	delete(t.counts, owner)
	return nil
}

// Key returns the Redis hash holding owner's counters.
func (t *Tally) Key(owner string) string {
	return t.prefix + ":" + owner
}

// Read returns the flushed counters of owner.
func (t *Tally) Read(ctx context.Context, owner string) (map[string]int64, error) {
	raw, err := t.rdb.HGetAll(ctx, t.Key(owner)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(raw))
	for field, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("counter %s of %s is not an integer: %w", field, owner, err)
		}
		out[field] = n
	}
	return out, nil
}

// OwnerOf maps a storage key to its top-level owner, e.g.
// "suppliers/42/logo/logo.png" to "suppliers:42".
func OwnerOf(key string) string {
	parts := strings.SplitN(strings.Trim(key, "/"), "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return ""
	}
	return parts[0] + ":" + parts[1]
}
