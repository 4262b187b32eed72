package media

import (
	"fmt"
	"sort"
	"strings"
)

var (
	DefaultImageExtensions = []string{"jpg", "jpeg", "png", "gif", "webp"}
	DefaultVideoExtensions = []string{"mp4", "mpeg"}
)

// Classifier maps file extensions to media classes.
type Classifier interface {
	Classify(ext string) MediaClass
	// AllExtensions is the sorted union of recognised extensions.
	AllExtensions() []string
}

// RuleSet is an immutable Classifier built from per-class extension lists.
type RuleSet struct {
	byExt map[string]MediaClass
	all   []string
}

var _ Classifier = (*RuleSet)(nil)

// NormalizeExtension trims whitespace and a leading dot and lower-cases ext.
func NormalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// NewClassifier builds a RuleSet. The image and video sets must be disjoint.
func NewClassifier(image, video []string) (*RuleSet, error) {
	r := &RuleSet{byExt: make(map[string]MediaClass)}
	for _, set := range []struct {
		class MediaClass
		exts  []string
	}{{Image, image}, {Video, video}} {
		for _, raw := range set.exts {
			ext := NormalizeExtension(raw)
			if ext == "" {
				continue
			}
			if !validExtension(ext) {
				return nil, fmt.Errorf("invalid extension %q", raw)
			}
			if prev, ok := r.byExt[ext]; ok {
				if prev != set.class {
					return nil, fmt.Errorf("extension %q is listed as both %s and %s", ext, prev, set.class)
				}
				continue
			}
			r.byExt[ext] = set.class
			r.all = append(r.all, ext)
		}
	}
	sort.Strings(r.all)
	return r, nil
}

// DefaultClassifier recognises the stock image and video extensions.
func DefaultClassifier() *RuleSet {
	r, err := NewClassifier(DefaultImageExtensions, DefaultVideoExtensions)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *RuleSet) Classify(ext string) MediaClass {
	if class, ok := r.byExt[NormalizeExtension(ext)]; ok {
		return class
	}
	return Unclassified
}

func (r *RuleSet) AllExtensions() []string {
	out := make([]string, len(r.all))
	copy(out, r.all)
	return out
}

// Extensions returns the sorted extensions of one class.
func (r *RuleSet) Extensions(class MediaClass) []string {
	var out []string
	for _, ext := range r.all {
		if r.byExt[ext] == class {
			out = append(out, ext)
		}
	}
	return out
}

// AcceptList is the comma-joined union, the shape request validators expect
// (for example "mimes:gif,jpeg,..." rules or an <input accept> list).
func (r *RuleSet) AcceptList() string {
	return strings.Join(r.all, ",")
}

func validExtension(ext string) bool {
	for _, c := range ext {
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return ext != ""
}
