package media

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorKind categorises media failures.
type ErrorKind int

const (
	ErrorInvalidOwnerChain ErrorKind = iota + 1
	ErrorUnclassifiedMediaRejected
	ErrorPayloadTooLarge
	ErrorStorageWriteFailed
	ErrorStorageDeleteFailed
	ErrorInvalidFileName
	ErrorAssetExists
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorInvalidOwnerChain:
		return "invalid owner chain"
	case ErrorUnclassifiedMediaRejected:
		return "unclassified media rejected"
	case ErrorPayloadTooLarge:
		return "payload too large"
	case ErrorStorageWriteFailed:
		return "storage write failed"
	case ErrorStorageDeleteFailed:
		return "storage delete failed"
	case ErrorInvalidFileName:
		return "invalid file name"
	case ErrorAssetExists:
		return "asset exists"
	default:
		return "unknown media error"
	}
}

// Error wraps a failure with its kind and the call site that raised it.
type Error struct {
	Kind       ErrorKind
	Message    string
	Original   error
	CallerInfo string
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrInvalidOwnerChain         = &Error{Kind: ErrorInvalidOwnerChain}
	ErrUnclassifiedMediaRejected = &Error{Kind: ErrorUnclassifiedMediaRejected}
	ErrPayloadTooLarge           = &Error{Kind: ErrorPayloadTooLarge}
	ErrStorageWriteFailed        = &Error{Kind: ErrorStorageWriteFailed}
	ErrStorageDeleteFailed       = &Error{Kind: ErrorStorageDeleteFailed}
	ErrInvalidFileName           = &Error{Kind: ErrorInvalidFileName}
	ErrAssetExists               = &Error{Kind: ErrorAssetExists}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.CallerInfo != "" {
		msg += " (at " + e.CallerInfo + ")"
	}
	if e.Original != nil {
		msg += ": " + e.Original.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Original
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{
		Kind:       kind,
		Message:    message,
		Original:   err,
		CallerInfo: captureCallerInfo(2),
	}
}

func errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
		CallerInfo: captureCallerInfo(2),
	}
}

func captureCallerInfo(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown:0"
	}
	return fmt.Sprintf("%s:%d", file, line)
}
