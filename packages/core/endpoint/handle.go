package endpoint

import (
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
)

const (
	// ConfigFile is the name of the per-node endpoint config.
	ConfigFile = "endpoint.toml"
	// BodyFile is the name of the per-node raw body payload.
	BodyFile = "body"
)

// Handle identifies a node in the endpoint tree. The zero value is the root.
type Handle struct {
	segments []string
}

// ParseHandle splits a slash separated path into normalized segments.
// Backslashes are treated as separators, empty segments are dropped and each
// segment is trimmed of surrounding whitespace and newlines.
func ParseHandle(s string) (Handle, error) {
	s = strings.ReplaceAll(s, "\\", "/")
	var segments []string
	for _, part := range strings.Split(s, "/") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if err := validateSegment(part); err != nil {
			return Handle{}, err
		}
		segments = append(segments, part)
	}
	return Handle{segments: segments}, nil
}

// MustParseHandle is like ParseHandle but panics on error. Intended for tests
// and literals.
func MustParseHandle(s string) Handle {
	h, err := ParseHandle(s)
	if err != nil {
		panic(err)
	}
	return h
}

// NewHandle builds a handle from already split segments.
func NewHandle(segments ...string) (Handle, error) {
	return ParseHandle(strings.Join(segments, "/"))
}

func validateSegment(s string) error {
	switch s {
	case ".", "..":
		return errdef.New(errdef.ErrMalformedInput, "invalid handle segment %q", s)
	case ConfigFile, BodyFile:
		return errdef.New(errdef.ErrMalformedInput, "handle segment %q is reserved", s)
	}
	return nil
}

// Segments returns a copy of the handle's path segments.
func (h Handle) Segments() []string {
	out := make([]string, len(h.segments))
	copy(out, h.segments)
	return out
}

// IsRoot reports whether h is the implicit top node.
func (h Handle) IsRoot() bool {
	return len(h.segments) == 0
}

// Depth is the number of segments.
func (h Handle) Depth() int {
	return len(h.segments)
}

// Name returns the last segment, or "" for the root.
func (h Handle) Name() string {
	if h.IsRoot() {
		return ""
	}
	return h.segments[len(h.segments)-1]
}

func (h Handle) String() string {
	return strings.Join(h.segments, "/")
}

// Parent returns the handle one level up. The root is its own parent.
func (h Handle) Parent() Handle {
	if h.IsRoot() {
		return h
	}
	return Handle{segments: h.segments[:len(h.segments)-1]}
}

// Join appends a child segment.
func (h Handle) Join(segment string) (Handle, error) {
	return NewHandle(append(h.Segments(), segment)...)
}

// Ancestors returns every handle from the first segment down to h itself,
// root excluded.
func (h Handle) Ancestors() []Handle {
	out := make([]Handle, 0, len(h.segments))
	for i := 1; i <= len(h.segments); i++ {
		out = append(out, Handle{segments: h.segments[:i]})
	}
	return out
}

// Contains reports whether other is h or a descendant of h.
func (h Handle) Contains(other Handle) bool {
	if len(other.segments) < len(h.segments) {
		return false
	}
	for i, s := range h.segments {
		if other.segments[i] != s {
			return false
		}
	}
	return true
}

// Equal reports whether both handles name the same node.
func (h Handle) Equal(other Handle) bool {
	return len(h.segments) == len(other.segments) && h.Contains(other)
}

// Dir maps the handle to its directory under root.
func (h Handle) Dir(root string) string {
	return filepath.Join(append([]string{root}, h.segments...)...)
}
