// Package media turns uploaded files into classified, deterministically
// located assets on a storage backend and projects them to public URLs.
package media

import "strings"

// MediaClass is the coarse category derived from a file extension.
type MediaClass int

const (
	// Unclassified is a valid outcome; callers decide whether to reject it.
	Unclassified MediaClass = iota
	Image
	Video
)

func (c MediaClass) String() string {
	switch c {
	case Image:
		return "image"
	case Video:
		return "video"
	default:
		return "unclassified"
	}
}

// ParseMediaClass is the inverse of String.
func ParseMediaClass(s string) (MediaClass, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image":
		return Image, true
	case "video":
		return Video, true
	case "unclassified":
		return Unclassified, true
	default:
		return Unclassified, false
	}
}
