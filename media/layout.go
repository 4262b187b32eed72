package media

import (
	"path"
	"strconv"
	"strings"
)

// OwnerChain is the ordered list of ids that scopes an asset, e.g. a supplier
// id, or a product id followed by a colour id.
type OwnerChain []int64

func (c OwnerChain) String() string {
	parts := make([]string, len(c))
	for i, id := range c {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, "/")
}

// Layout is the directory shape for one call site:
//
//	<RootKind>/<owner>/<bucket>/
//	<RootKind>/<owner>/<SubRootKind>/<subOwner>/<bucket>/
//
// bucket is Bucket when set, otherwise the media class name.
type Layout struct {
	Name        string
	RootKind    string
	SubRootKind string
	// Bucket is a fixed directory used whatever the media class.
	Bucket string
	// FallbackBucket receives Unclassified media when Bucket is empty.
	// Left empty, Unclassified media is rejected.
	FallbackBucket string
}

var (
	SupplierLogoLayout = Layout{Name: "supplier-logo", RootKind: "suppliers", Bucket: "logo"}
	ProductColorLayout = Layout{Name: "product-color", RootKind: "products", SubRootKind: "colors"}
)

// Layouts lists the layouts whose namespaces may be parsed back from a key.
var Layouts = []Layout{SupplierLogoLayout, ProductColorLayout}

// ParsePrefix maps an owner namespace such as "suppliers/42" or
// "products/7/colors/3" back to its layout and owner chain. Keys that do not
// rebuild to themselves through Layout.Prefix are rejected, so a bare root
// kind never names a namespace.
func ParsePrefix(key string) (Layout, OwnerChain, error) {
	segs := strings.Split(key, "/")
	for _, l := range Layouts {
		if segs[0] != l.RootKind {
			continue
		}
		var chain OwnerChain
		switch {
		case len(segs) == 2:
			chain = make(OwnerChain, 1)
		case len(segs) == 4 && l.SubRootKind != "" && segs[2] == l.SubRootKind:
			chain = make(OwnerChain, 2)
		default:
			return Layout{}, nil, errorf(ErrorInvalidOwnerChain, "%q is not an owner namespace of %s", key, l.label())
		}
		for i := range chain {
			id, err := strconv.ParseInt(segs[1+2*i], 10, 64)
			if err != nil {
				return Layout{}, nil, newError(ErrorInvalidOwnerChain, "parse owner id in "+key, err)
			}
			chain[i] = id
		}
		prefix, err := l.Prefix(chain)
		if err != nil {
			return Layout{}, nil, err
		}
		if strings.Join(prefix, "/") != key {
			return Layout{}, nil, errorf(ErrorInvalidOwnerChain, "%q is not in canonical form", key)
		}
		return l, chain, nil
	}
	return Layout{}, nil, errorf(ErrorInvalidOwnerChain, "%q does not belong to a known layout", key)
}

// Arity is the owner chain length the layout expects.
func (l Layout) Arity() int {
	if l.SubRootKind == "" {
		return 1
	}
	return 2
}

// BuildDirectory derives the target directory. It is pure: the same inputs
// always produce the same segments.
func (l Layout) BuildDirectory(chain OwnerChain, class MediaClass) ([]string, error) {
	if err := l.checkChain(chain, l.Arity()); err != nil {
		return nil, err
	}
	bucket, err := l.bucket(class)
	if err != nil {
		return nil, err
	}
	return append(l.segments(chain), bucket), nil
}

// Prefix is the owner namespace for a full or leading part of the chain.
// Purging a supplier removes everything under its prefix.
func (l Layout) Prefix(chain OwnerChain) ([]string, error) {
	if len(chain) == 0 || len(chain) > l.Arity() {
		return nil, errorf(ErrorInvalidOwnerChain, "layout %s takes 1 to %d ids, got %d", l.label(), l.Arity(), len(chain))
	}
	if err := l.checkChain(chain, len(chain)); err != nil {
		return nil, err
	}
	return l.segments(chain), nil
}

func (l Layout) segments(chain OwnerChain) []string {
	dir := []string{l.RootKind, strconv.FormatInt(chain[0], 10)}
	if len(chain) > 1 {
		dir = append(dir, l.SubRootKind, strconv.FormatInt(chain[1], 10))
	}
	return dir
}

func (l Layout) checkChain(chain OwnerChain, arity int) error {
	if !validSegment(l.RootKind) || (l.SubRootKind != "" && !validSegment(l.SubRootKind)) {
		return errorf(ErrorInvalidOwnerChain, "layout %s has an invalid root kind", l.label())
	}
	if len(chain) != arity {
		return errorf(ErrorInvalidOwnerChain, "layout %s expects %d ids, got %d", l.label(), arity, len(chain))
	}
	for i, id := range chain {
		if id <= 0 {
			return errorf(ErrorInvalidOwnerChain, "id %d at position %d must be positive", id, i)
		}
	}
	return nil
}

func (l Layout) bucket(class MediaClass) (string, error) {
	switch {
	case l.Bucket != "":
		if !validSegment(l.Bucket) {
			return "", errorf(ErrorInvalidOwnerChain, "layout %s has an invalid bucket", l.label())
		}
		return l.Bucket, nil
	case class != Unclassified:
		return class.String(), nil
	case l.FallbackBucket != "" && validSegment(l.FallbackBucket):
		return l.FallbackBucket, nil
	default:
		return "", errorf(ErrorUnclassifiedMediaRejected, "layout %s has no bucket for unclassified media", l.label())
	}
}

func (l Layout) label() string {
	if l.Name != "" {
		return l.Name
	}
	return l.RootKind
}

// StoragePath locates an asset relative to the storage root.
type StoragePath struct {
	Directory []string
	FileName  string
}

// Key is the slash-joined relative path, e.g. "suppliers/42/logo/logo.png".
func (p StoragePath) Key() string {
	return strings.Join(append(append([]string{}, p.Directory...), p.FileName), "/")
}

func (p StoragePath) String() string {
	return p.Key()
}

// Validate rejects empty or traversing segments.
func (p StoragePath) Validate() error {
	if len(p.Directory) == 0 {
		return errorf(ErrorInvalidOwnerChain, "storage path has no directory")
	}
	for _, seg := range p.Directory {
		if !validSegment(seg) {
			return errorf(ErrorInvalidOwnerChain, "invalid directory segment %q", seg)
		}
	}
	if !validSegment(p.FileName) {
		return errorf(ErrorInvalidFileName, "invalid file name %q", p.FileName)
	}
	return nil
}

// ParseStoragePath splits a relative key back into a StoragePath.
func ParseStoragePath(key string) (StoragePath, error) {
	key = strings.Trim(key, "/")
	i := strings.LastIndex(key, "/")
	if i < 0 {
		return StoragePath{}, errorf(ErrorInvalidFileName, "key %q has no directory", key)
	}
	p := StoragePath{Directory: strings.Split(key[:i], "/"), FileName: key[i+1:]}
	if err := p.Validate(); err != nil {
		return StoragePath{}, err
	}
	return p, nil
}

// BuildFileName joins a sanitized name and an extension.
func BuildFileName(name, ext string) string {
	return name + "." + ext
}

// SanitizeName reduces a client supplied name to a single safe path segment.
// Directory parts are dropped. Empty names and names starting with a dot are rejected.
func SanitizeName(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	name = path.Base(name)
	if name == "/" || name == "." || name == ".." || strings.Trim(name, ".") == "" {
		return "", errorf(ErrorInvalidFileName, "name %q is empty after sanitizing", name)
	}
	if strings.HasPrefix(name, ".") {
		return "", errorf(ErrorInvalidFileName, "name %q must not start with a dot", name)
	}
	if !validSegment(name) {
		return "", errorf(ErrorInvalidFileName, "name %q contains control characters", name)
	}
	return name, nil
}

func validSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	for _, c := range s {
		if c == '/' || c == '\\' || c < 0x20 || c == 0x7f {
			return false
		}
	}
	return true
}
