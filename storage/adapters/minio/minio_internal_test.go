package minio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lister mimics minio-go: objects are sent until the listing ctx is done.
func lister(keys []string, listCtx *context.Context, done chan<- struct{}) func(context.Context) <-chan minio.ObjectInfo {
	return func(ctx context.Context) <-chan minio.ObjectInfo {
		*listCtx = ctx
		ch := make(chan minio.ObjectInfo)
		go func() {
			defer close(done)
			defer close(ch)
			for _, k := range keys {
				select {
				case ch <- minio.ObjectInfo{Key: k}:
				case <-ctx.Done():
					return
				}
			}
		}()
		return ch
	}
}

func TestDeleteListed_RemovesEverything(t *testing.T) {
	var listCtx context.Context
	done := make(chan struct{})
	var removed []string

	n, err := deleteListed(context.Background(), lister([]string{"suppliers/42/logo/a.png", "suppliers/42/logo/b.png"}, &listCtx, done),
		func(_ context.Context, key string) error {
			removed = append(removed, key)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"suppliers/42/logo/a.png", "suppliers/42/logo/b.png"}, removed)
}

func TestDeleteListed_EarlyErrorStopsListing(t *testing.T) {
	var listCtx context.Context
	done := make(chan struct{})

	n, err := deleteListed(context.Background(), lister([]string{"a", "b", "c"}, &listCtx, done),
		func(_ context.Context, key string) error {
			if key == "b" {
				return errors.New("access denied")
			}
			return nil
		})
	assert.ErrorContains(t, err, "access denied")
	assert.Equal(t, 1, n)
	assert.Error(t, listCtx.Err())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listing goroutine still blocked")
	}
}

func TestDeleteListed_ListError(t *testing.T) {
	list := func(ctx context.Context) <-chan minio.ObjectInfo {
		ch := make(chan minio.ObjectInfo, 1)
		ch <- minio.ObjectInfo{Err: errors.New("no such bucket")}
		close(ch)
		return ch
	}
	_, err := deleteListed(context.Background(), list, func(context.Context, string) error {
		t.Fatal("nothing should be removed")
		return nil
	})
	assert.ErrorContains(t, err, "no such bucket")
}
