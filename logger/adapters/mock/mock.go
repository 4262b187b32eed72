package mock

import (
	"context"
	"sync"

	"github.com/storefront/mediastore/logger/api"
)

// Level of a recorded entry.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// LogEntry represents a logged message
type LogEntry struct {
	Level     Level
	Message   string
	Error     error
	Component string
	TraceID   string
	Fields    []api.Field
}

// Field returns the value of the named field, searching call-site fields last.
func (e LogEntry) Field(key string) (interface{}, bool) {
	var (
		val   interface{}
		found bool
	)
	for _, f := range e.Fields {
		if f.Key == key {
			val, found = f.Value, true
		}
	}
	return val, found
}

type sink struct {
	mu      sync.Mutex
	entries []LogEntry
}

// Mock records every entry. Loggers derived through WithFields and friends
// share the parent's entries.
type Mock struct {
	sink      *sink
	component string
	traceID   string
	fields    []api.Field
}

var _ api.Logger = (*Mock)(nil)

// NewMockLogger creates a new mock logger
func NewMockLogger() *Mock {
	return &Mock{sink: &sink{}}
}

func (m *Mock) record(ctx context.Context, level Level, msg string, err error, fields []api.Field) {
	traceID := m.traceID
	if id := api.GetTraceIDFromContext(ctx); id != "" {
		traceID = id
	}
	all := append(append([]api.Field{}, m.fields...), fields...)
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	m.sink.entries = append(m.sink.entries, LogEntry{
		Level:     level,
		Message:   msg,
		Error:     err,
		Component: m.component,
		TraceID:   traceID,
		Fields:    all,
	})
}

func (m *Mock) Debug(ctx context.Context, msg string, fields ...api.Field) {
	m.record(ctx, LevelDebug, msg, nil, fields)
}

func (m *Mock) Info(ctx context.Context, msg string, fields ...api.Field) {
	m.record(ctx, LevelInfo, msg, nil, fields)
}

func (m *Mock) Warn(ctx context.Context, msg string, fields ...api.Field) {
	m.record(ctx, LevelWarn, msg, nil, fields)
}

func (m *Mock) Error(ctx context.Context, msg string, err error, fields ...api.Field) {
	m.record(ctx, LevelError, msg, err, fields)
}

// Fatal records the entry; it never exits.
func (m *Mock) Fatal(ctx context.Context, msg string, err error, fields ...api.Field) {
	m.record(ctx, LevelFatal, msg, err, fields)
}

func (m *Mock) derive() *Mock {
	return &Mock{sink: m.sink, component: m.component, traceID: m.traceID, fields: m.fields}
}

func (m *Mock) WithTraceID(traceID string) api.Logger {
	d := m.derive()
	d.traceID = traceID
	return d
}

func (m *Mock) WithFields(fields ...api.Field) api.Logger {
	d := m.derive()
	d.fields = append(append([]api.Field{}, m.fields...), fields...)
	return d
}

func (m *Mock) WithComponent(component string) api.Logger {
	d := m.derive()
	d.component = component
	return d
}

func (m *Mock) AddField(key string, value interface{}) api.Logger {
	return m.WithFields(api.Any(key, value))
}

func (m *Mock) ToContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, api.LoggerContextKey, m)
	if m.traceID != "" {
		ctx = context.WithValue(ctx, api.TraceIDKey, m.traceID)
	}
	if m.component != "" {
		ctx = context.WithValue(ctx, api.ComponentKey, m.component)
	}
	return ctx
}

// Entries returns a copy of everything recorded so far.
func (m *Mock) Entries() []LogEntry {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	out := make([]LogEntry, len(m.sink.entries))
	copy(out, m.sink.entries)
	return out
}

// EntriesAt filters Entries by level.
func (m *Mock) EntriesAt(level Level) []LogEntry {
	var out []LogEntry
	for _, e := range m.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops all recorded entries.
func (m *Mock) Reset() {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	m.sink.entries = nil
}
