package media

import (
	"context"

	"github.com/storefront/mediastore/events"
	logapi "github.com/storefront/mediastore/logger/api"
)

// Cleaner retries deletions that failed earlier. It consumes delete_failed
// events, so a subscriber can feed it from the event channel.
type Cleaner struct {
	store *Store
	log   logapi.Logger
}

func NewCleaner(store *Store, log logapi.Logger) *Cleaner {
	return &Cleaner{store: store, log: logapi.OrNop(log).WithComponent("media-cleaner")}
}

// Handle matches events.Handler. Events other than delete_failed are ignored.
// A retry that fails again publishes a fresh delete_failed event through the
// store, and the error is returned to the subscriber.
func (c *Cleaner) Handle(ctx context.Context, ev events.Event) error {
	if ev.Type != events.TypeDeleteFailed {
		return nil
	}
	log := c.log.WithFields(logapi.String("key", ev.Key), logapi.String("event_id", ev.ID))

	if ev.Prefix {
		layout, chain, err := ParsePrefix(ev.Key)
		if err != nil {
			log.Warn(ctx, "refusing to purge namespace", logapi.ErrorField(err))
			return err
		}
		removed, err := c.store.Purge(ctx, layout, chain)
		if err != nil {
			return err
		}
		log.Info(ctx, "orphaned namespace removed", logapi.Int("removed", removed))
		return nil
	}

	p, err := ParseStoragePath(ev.Key)
	if err != nil {
		return err
	}
	removed, err := c.store.Delete(ctx, p)
	if err != nil {
		return err
	}
	log.Info(ctx, "orphaned asset cleanup", logapi.Bool("removed", removed))
	return nil
}
