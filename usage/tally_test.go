package usage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/storefront/mediastore/events"
	"github.com/storefront/mediastore/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTally(t *testing.T, threshold int64) (*usage.Tally, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return usage.NewTally(client, "", time.Hour, threshold, 16), mr
}

func stored(key string, n int64) events.Event {
	ev := events.New(events.TypeStored, key)
	ev.Bytes = n
	return ev
}

func TestOwnerOf(t *testing.T) {
	assert.Equal(t, "suppliers:42", usage.OwnerOf("suppliers/42/logo/logo.png"))
	assert.Equal(t, "products:7", usage.OwnerOf("products/7"))
	assert.Equal(t, "", usage.OwnerOf("suppliers"))
	assert.Equal(t, "", usage.OwnerOf(""))
}

func TestTally_FlushOnStop(t *testing.T) {
	tally, _ := newTally(t, 0)
	ctx := context.Background()
	go tally.Start(ctx)

	require.NoError(t, tally.Handle(ctx, stored("suppliers/42/logo/logo.png", 500)))
	require.NoError(t, tally.Handle(ctx, stored("suppliers/42/logo/alt.png", 250)))
	require.NoError(t, tally.Handle(ctx, events.New(events.TypeDeleted, "suppliers/42/logo/alt.png")))
	require.NoError(t, tally.Handle(ctx, events.New(events.TypeReused, "suppliers/42/logo/logo.png")))
	tally.Stop()

	got, err := tally.Read(ctx, "suppliers:42")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"uploads": 2, "bytes": 750, "deletes": 1}, got)
}

func TestTally_ThresholdFlushesEarly(t *testing.T) {
	tally, mr := newTally(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tally.Start(ctx)
	defer tally.Stop()

	require.NoError(t, tally.Handle(ctx, stored("products/7/colors/3/video/spin.mp4", 1)))
	require.NoError(t, tally.Handle(ctx, stored("products/7/colors/3/image/front.png", 1)))

	assert.Eventually(t, func() bool {
		return mr.HGet("media:usage:products:7", "uploads") == "2"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTally_Purge(t *testing.T) {
	tally, mr := newTally(t, 0)
	ctx := context.Background()
	go tally.Start(ctx)

	ev := events.New(events.TypePurged, "suppliers/9")
	ev.Prefix = true
	ev.Count = 3
	require.NoError(t, tally.Handle(ctx, ev))
	require.NoError(t, tally.Handle(ctx, events.New(events.TypeStored, "orphan")))
	tally.Stop()

	assert.Equal(t, "1", mr.HGet("media:usage:suppliers:9", "purges"))
	assert.Equal(t, "3", mr.HGet("media:usage:suppliers:9", "deletes"))
	assert.Len(t, mr.Keys(), 1)
}
