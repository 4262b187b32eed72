package media

import "io"

// BytesPerKilobyte converts the configured upload ceiling. It is 1000, not
// 1024; changing it changes which files are accepted.
const BytesPerKilobyte = 1000

// SizePolicy is the process-wide upload ceiling. The zero value is unlimited.
type SizePolicy struct {
	maxBytes int64
}

// NewSizePolicy converts a ceiling in kilobytes. kb <= 0 means unlimited.
func NewSizePolicy(kb int64) SizePolicy {
	if kb <= 0 {
		return SizePolicy{}
	}
	return SizePolicy{maxBytes: kb * BytesPerKilobyte}
}

// MaxUploadBytes returns the ceiling in bytes, or 0 when unlimited.
func (p SizePolicy) MaxUploadBytes() int64 {
	return p.maxBytes
}

func (p SizePolicy) Unlimited() bool {
	return p.maxBytes <= 0
}

// Check rejects a known length above the ceiling.
func (p SizePolicy) Check(n int64) error {
	if !p.Unlimited() && n > p.maxBytes {
		return errorf(ErrorPayloadTooLarge, "%d bytes exceeds the %d byte limit", n, p.maxBytes)
	}
	return nil
}

// Limit wraps r so that reading past the ceiling fails with PayloadTooLarge.
// A stream of exactly MaxUploadBytes reads through cleanly.
func (p SizePolicy) Limit(r io.Reader) io.Reader {
	if p.Unlimited() {
		return r
	}
	return &limitReader{r: r, remaining: p.maxBytes, max: p.maxBytes}
}

type limitReader struct {
	r         io.Reader
	remaining int64
	max       int64
}

func (l *limitReader) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if l.remaining <= 0 {
		// one more byte tells EOF apart from an oversized stream
		var probe [1]byte
		n, err := l.r.Read(probe[:])
		if n > 0 {
			return 0, errorf(ErrorPayloadTooLarge, "stream exceeds the %d byte limit", l.max)
		}
		return 0, err
	}
	if int64(len(b)) > l.remaining {
		b = b[:l.remaining]
	}
	n, err := l.r.Read(b)
	l.remaining -= int64(n)
	return n, err
}
