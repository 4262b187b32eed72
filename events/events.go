// Package events publishes asset lifecycle notifications. A cleanup worker
// subscribes to delete_failed events to remove orphaned files later.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names an asset lifecycle transition.
type Type string

const (
	TypeStored       Type = "stored"
	TypeReused       Type = "reused"
	TypeReplaced     Type = "replaced"
	TypeDeleted      Type = "deleted"
	TypeDeleteFailed Type = "delete_failed"
	TypePurged       Type = "purged"
)

// DefaultChannel is the channel name before namespacing.
const DefaultChannel = "media.assets"

// Event describes one change to a stored asset.
type Event struct {
	ID   string `json:"id"`
	Type Type   `json:"type"`
	Key  string `json:"key"`
	// Prefix marks Key as a namespace rather than a single asset.
	Prefix     bool      `json:"prefix,omitempty"`
	URL        string    `json:"url,omitempty"`
	Bytes      int64     `json:"bytes,omitempty"`
	Count      int       `json:"count,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New stamps an event with an id and the current time.
func New(t Type, key string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		Key:        key,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers events. Publishing is best effort: callers log failures
// and carry on.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Handler consumes a decoded event.
type Handler func(ctx context.Context, ev Event) error

// Subscriber delivers published events to a handler until ctx is done.
// onError receives decode and handler failures; it may be nil.
type Subscriber interface {
	Subscribe(ctx context.Context, handler Handler, onError func(error)) error
	// Channel names the Redis channel or Kafka topic being read.
	Channel() string
}
