package api

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Logger is the context-first logging contract used across the media packages.
// The context carries the trace id and, optionally, a request-scoped logger.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, err error, fields ...Field)
	Fatal(ctx context.Context, msg string, err error, fields ...Field)

	WithTraceID(traceID string) Logger
	WithFields(fields ...Field) Logger
	WithComponent(component string) Logger
	AddField(key string, value interface{}) Logger

	ToContext(ctx context.Context) context.Context
}

// Field represents a key-value pair in structured logging
type Field struct {
	Key   string
	Value interface{}
}

func (f Field) String() string {
	return fmt.Sprintf("%s=%v", f.Key, f.Value)
}

func String(key string, val string) Field {
	return Field{Key: key, Value: val}
}

func Strings(key string, vals []string) Field {
	return Field{Key: key, Value: strings.Join(vals, ",")}
}

func Int(key string, val int) Field {
	return Field{Key: key, Value: val}
}

func Int64(key string, val int64) Field {
	return Field{Key: key, Value: val}
}

func Duration(key string, val time.Duration) Field {
	return Field{Key: key, Value: val}
}

func Bool(key string, val bool) Field {
	return Field{Key: key, Value: val}
}

func Any(key string, val interface{}) Field {
	return Field{Key: key, Value: val}
}

// ErrorField returns a Field representing an error
func ErrorField(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

type contextKey string

const (
	LoggerContextKey contextKey = "logger"
	TraceIDKey       contextKey = "trace-id"
	ComponentKey     contextKey = "component"
)

// ContextWithTraceID stores a trace id that every adapter attaches to its events.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func GetLoggerFromContext(ctx context.Context) Logger {
	if ctx == nil {
		return nil
	}
	if logger, ok := ctx.Value(LoggerContextKey).(Logger); ok {
		return logger
	}
	return nil
}

func GetTraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// OrNop returns l, or a Nop logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return &Nop{}
	}
	return l
}

// Nop discards everything.
type Nop struct{}

func (n *Nop) Debug(ctx context.Context, msg string, fields ...Field)            {}
func (n *Nop) Info(ctx context.Context, msg string, fields ...Field)             {}
func (n *Nop) Warn(ctx context.Context, msg string, fields ...Field)             {}
func (n *Nop) Error(ctx context.Context, msg string, err error, fields ...Field) {}
func (n *Nop) Fatal(ctx context.Context, msg string, err error, fields ...Field) {}
func (n *Nop) WithFields(fields ...Field) Logger                                 { return n }
func (n *Nop) WithTraceID(traceID string) Logger                                 { return n }
func (n *Nop) WithComponent(component string) Logger                             { return n }
func (n *Nop) AddField(key string, value interface{}) Logger                     { return n }
func (n *Nop) ToContext(ctx context.Context) context.Context                     { return ctx }
