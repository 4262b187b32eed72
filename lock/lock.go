// Package lock serializes work per key. The media store takes a lock on the
// target storage key so that the existence check and the write of one upload
// cannot interleave with another upload or delete of the same key.
package lock

import (
	"context"
	"errors"
)

// Unlock releases a lock obtained from a Locker. It is safe to call more than once.
type Unlock func()

// Locker grants exclusive access per key.
type Locker interface {
	// Lock blocks until the key is held or ctx is done.
	Lock(ctx context.Context, key string) (Unlock, error)
}

// ErrLockTimeout is returned when ctx ends before the lock is acquired.
var ErrLockTimeout = errors.New("timed out waiting for lock")
