package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/storefront/mediastore/events"
	"github.com/storefront/mediastore/lock"
	logapi "github.com/storefront/mediastore/logger/api"
	storageapi "github.com/storefront/mediastore/storage/api"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/storefront/mediastore/media"

// sniffLen matches mimetype's default read limit.
const sniffLen = 3072

// OverwritePolicy decides what Put does when the target already exists.
type OverwritePolicy int

const (
	// Reject fails with AssetExists.
	Reject OverwritePolicy = iota
	// Skip keeps the existing file and returns a reference to it. A new
	// upload with the same owner, class and name therefore cannot refresh
	// the stored bytes.
	Skip
	// Replace writes over the existing file. On create paths the target is
	// keyed by a fresh id, so a collision is logged as unexpected.
	Replace
)

func (p OverwritePolicy) String() string {
	switch p {
	case Reject:
		return "reject"
	case Skip:
		return "skip"
	case Replace:
		return "replace"
	default:
		return "unknown"
	}
}

// UploadRequest is one incoming file.
type UploadRequest struct {
	Content io.Reader
	// Size is the declared length. Zero and negative values mean unknown:
	// the payload is then streamed and checked against the ceiling as it is read.
	Size             int64
	OriginalFilename string
	Extension        string
	Owner            OwnerChain
	Name             string
}

// StoredAsset is the outcome of a successful Put. Reused is set when the Skip
// policy returned an existing file; BytesWritten is then 0.
type StoredAsset struct {
	Path         StoragePath
	PublicURL    string
	BytesWritten int64
	Class        MediaClass
	ContentType  string
	Owner        OwnerChain
	Reused       bool
}

// Store writes assets to a backend under per-key locks.
type Store struct {
	backend   storageapi.Backend
	locker    lock.Locker
	publisher events.Publisher
	log       logapi.Logger
	size      SizePolicy
	urls      URLProjector

	tracer trace.Tracer
	writes metric.Int64Counter
	bytes  metric.Int64Counter
}

type StoreOption func(*Store)

func WithLogger(l logapi.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

func WithLocker(l lock.Locker) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.locker = l
		}
	}
}

func WithPublisher(p events.Publisher) StoreOption {
	return func(s *Store) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithSizePolicy(p SizePolicy) StoreOption {
	return func(s *Store) {
		s.size = p
	}
}

func WithURLProjector(u URLProjector) StoreOption {
	return func(s *Store) {
		s.urls = u
	}
}

func NewStore(backend storageapi.Backend, opts ...StoreOption) *Store {
	s := &Store{
		backend:   backend,
		locker:    lock.NewLocalLocker(),
		publisher: events.Noop{},
		log:       &logapi.Nop{},
		urls:      NewURLProjector(""),
		tracer:    otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("media-store")

	meter := otel.Meter(instrumentationName)
	// instrument creation only fails on invalid names
	s.writes, _ = meter.Int64Counter("media.store.writes",
		metric.WithDescription("Asset store operations by outcome"))
	s.bytes, _ = meter.Int64Counter("media.store.bytes",
		metric.WithDescription("Bytes written to the storage backend"), metric.WithUnit("By"))
	return s
}

func (s *Store) SizePolicy() SizePolicy {
	return s.size
}

func (s *Store) URLs() URLProjector {
	return s.urls
}

// Put writes req to target under policy. Validation and size failures happen
// before any I/O; a failed write leaves nothing at the target.
func (s *Store) Put(ctx context.Context, req UploadRequest, class MediaClass, target StoragePath, policy OverwritePolicy) (asset StoredAsset, err error) {
	key := target.Key()
	ctx, span := s.tracer.Start(ctx, "media.Store.Put", trace.WithAttributes(
		attribute.String("media.key", key),
		attribute.String("media.class", class.String()),
		attribute.String("media.policy", policy.String()),
	))
	defer func() { endSpan(span, err) }()

	if err := target.Validate(); err != nil {
		return StoredAsset{}, err
	}
	if req.Content == nil {
		return StoredAsset{}, errorf(ErrorStorageWriteFailed, "upload for %s has no content", key)
	}
	size := req.Size
	if size <= 0 {
		size = -1
	}
	if size >= 0 {
		if err := s.size.Check(size); err != nil {
			s.count(ctx, "too_large")
			return StoredAsset{}, err
		}
	}

	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return StoredAsset{}, newError(ErrorStorageWriteFailed, "acquire lock for "+key, err)
	}
	defer unlock()

	asset = StoredAsset{
		Path:      target,
		PublicURL: s.urls.PublicURL(target),
		Class:     class,
		Owner:     req.Owner,
	}
	log := s.log.WithFields(logapi.String("key", key), logapi.String("policy", policy.String()))

	exists, err := s.backend.Exists(ctx, key)
	if err != nil {
		return StoredAsset{}, newError(ErrorStorageWriteFailed, "check "+key, err)
	}
	replaced := false
	if exists {
		switch policy {
		case Skip:
			log.Debug(ctx, "asset already stored, reusing")
			asset.Reused = true
			s.count(ctx, "reused")
			s.publish(ctx, events.Event{Type: events.TypeReused, Key: key, URL: asset.PublicURL})
			return asset, nil
		case Replace:
			log.Warn(ctx, "asset already stored at a fresh target, replacing")
			replaced = true
		default:
			s.count(ctx, "rejected")
			return StoredAsset{}, errorf(ErrorAssetExists, "an asset is already stored at %s", key)
		}
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(req.Content, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return StoredAsset{}, newError(ErrorStorageWriteFailed, "read upload for "+key, err)
	}
	head = head[:n]
	asset.ContentType = mimetype.Detect(head).String()

	body := &countingReader{r: s.size.Limit(io.MultiReader(bytes.NewReader(head), req.Content))}
	if err := s.backend.Put(ctx, key, body, size, asset.ContentType); err != nil {
		if errors.Is(err, ErrPayloadTooLarge) {
			s.count(ctx, "too_large")
			return StoredAsset{}, newError(ErrorPayloadTooLarge, key, err)
		}
		log.Error(ctx, "asset write failed", err)
		s.count(ctx, "failed")
		return StoredAsset{}, newError(ErrorStorageWriteFailed, "write "+key, err)
	}
	asset.BytesWritten = body.n

	evType := events.TypeStored
	if replaced {
		evType = events.TypeReplaced
	}
	s.count(ctx, string(evType))
	s.bytes.Add(ctx, asset.BytesWritten)
	log.Info(ctx, "asset stored", logapi.Int64("bytes", asset.BytesWritten), logapi.String("content_type", asset.ContentType))
	s.publish(ctx, events.Event{Type: evType, Key: key, URL: asset.PublicURL, Bytes: asset.BytesWritten})
	return asset, nil
}

// Delete removes the asset at p and reports whether a file was removed.
// Absent assets are not an error.
func (s *Store) Delete(ctx context.Context, p StoragePath) (removed bool, err error) {
	key := p.Key()
	ctx, span := s.tracer.Start(ctx, "media.Store.Delete", trace.WithAttributes(attribute.String("media.key", key)))
	defer func() { endSpan(span, err) }()

	if err := p.Validate(); err != nil {
		return false, err
	}
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return false, newError(ErrorStorageDeleteFailed, "acquire lock for "+key, err)
	}
	defer unlock()

	removed, err = s.backend.Delete(ctx, key)
	if err != nil {
		s.log.Error(ctx, "asset delete failed", err, logapi.String("key", key))
		s.count(ctx, "delete_failed")
		s.publish(ctx, events.Event{Type: events.TypeDeleteFailed, Key: key, Error: err.Error()})
		return false, newError(ErrorStorageDeleteFailed, key, err)
	}
	if removed {
		s.count(ctx, "deleted")
		s.publish(ctx, events.Event{Type: events.TypeDeleted, Key: key})
	}
	s.log.Debug(ctx, "asset delete", logapi.String("key", key), logapi.Bool("removed", removed))
	return removed, nil
}

// DeleteByURL deletes the asset behind a URL produced by PublicURL.
func (s *Store) DeleteByURL(ctx context.Context, publicURL string) (bool, error) {
	p, ok := s.urls.RelativePath(publicURL)
	if !ok {
		return false, errorf(ErrorInvalidFileName, "%q is not a public asset url", publicURL)
	}
	return s.Delete(ctx, p)
}

// Purge removes every asset under the owner prefix of layout and returns the
// number of files removed. It takes no per-key locks; callers purge only
// after the owning entity stopped accepting uploads.
func (s *Store) Purge(ctx context.Context, layout Layout, chain OwnerChain) (int, error) {
	segs, err := layout.Prefix(chain)
	if err != nil {
		return 0, err
	}
	return s.purgePrefix(ctx, strings.Join(segs, "/"))
}

func (s *Store) purgePrefix(ctx context.Context, prefix string) (removed int, err error) {
	ctx, span := s.tracer.Start(ctx, "media.Store.Purge", trace.WithAttributes(attribute.String("media.prefix", prefix)))
	defer func() { endSpan(span, err) }()

	removed, err = s.backend.DeletePrefix(ctx, prefix)
	if err != nil {
		s.log.Error(ctx, "asset purge failed", err, logapi.String("prefix", prefix), logapi.Int("removed", removed))
		s.publish(ctx, events.Event{Type: events.TypeDeleteFailed, Key: prefix, Prefix: true, Count: removed, Error: err.Error()})
		return removed, newError(ErrorStorageDeleteFailed, prefix, err)
	}
	s.log.Info(ctx, "asset namespace purged", logapi.String("prefix", prefix), logapi.Int("removed", removed))
	s.publish(ctx, events.Event{Type: events.TypePurged, Key: prefix, Prefix: true, Count: removed})
	return removed, nil
}

// Open reads a stored asset back.
func (s *Store) Open(ctx context.Context, p StoragePath) (io.ReadCloser, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.backend.Open(ctx, p.Key())
}

func (s *Store) publish(ctx context.Context, ev events.Event) {
	stamped := events.New(ev.Type, ev.Key)
	ev.ID, ev.OccurredAt = stamped.ID, stamped.OccurredAt
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn(ctx, "failed to publish asset event", logapi.String("type", string(ev.Type)), logapi.ErrorField(err))
	}
}

func (s *Store) count(ctx context.Context, outcome string) {
	s.writes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
