package media

import (
	"net/url"
	"strings"
)

// URLProjector maps storage paths to public addresses. The base must point
// at the same tree the store writes to, e.g. "https://shop.example/storage"
// served from the local backend root.
type URLProjector struct {
	base string
}

func NewURLProjector(base string) URLProjector {
	return URLProjector{base: strings.TrimRight(strings.TrimSpace(base), "/")}
}

func (u URLProjector) Base() string {
	return u.base
}

// PublicURL is base + "/" + the escaped relative key.
func (u URLProjector) PublicURL(p StoragePath) string {
	segs := append(append([]string{}, p.Directory...), p.FileName)
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return u.base + "/" + strings.Join(segs, "/")
}

// RelativePath inverts PublicURL. ok is false for addresses outside base.
func (u URLProjector) RelativePath(publicURL string) (StoragePath, bool) {
	prefix := u.base + "/"
	if !strings.HasPrefix(publicURL, prefix) {
		return StoragePath{}, false
	}
	rest := strings.TrimPrefix(publicURL, prefix)
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	segs := strings.Split(rest, "/")
	for i, s := range segs {
		dec, err := url.PathUnescape(s)
		if err != nil {
			return StoragePath{}, false
		}
		segs[i] = dec
	}
	if len(segs) < 2 {
		return StoragePath{}, false
	}
	p := StoragePath{Directory: segs[:len(segs)-1], FileName: segs[len(segs)-1]}
	if p.Validate() != nil {
		return StoragePath{}, false
	}
	return p, true
}
