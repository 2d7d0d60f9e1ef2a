// Package documents models the profile document store: documents addressed by
// collection and id, written with optional merge semantics, and the change
// records the store emits when a document is updated.
package documents

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"rolesync/pkg/platform/sentinel"
)

// ErrInvalidPath is returned for document paths and patterns that cannot be parsed.
var ErrInvalidPath = fmt.Errorf("invalid document path: %w", sentinel.ErrInvalidInput)

// Fields is the top-level key/value body of a document.
type Fields map[string]any

// Clone returns a shallow copy of f. A nil receiver yields an empty map.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	maps.Copy(out, f)
	return out
}

// Merge overlays patch onto a copy of f. Keys absent from patch are preserved.
func (f Fields) Merge(patch Fields) Fields {
	out := f.Clone()
	maps.Copy(out, patch)
	return out
}

// SetOptions controls how a write treats an existing document.
type SetOptions struct {
	// Merge keeps fields of an existing document that the write does not name.
	Merge bool
}

// MergeFields is the SetOptions value for merge writes.
var MergeFields = SetOptions{Merge: true}

// Ref addresses a single document.
type Ref struct {
	Collection string
	ID         string
}

// Path renders the ref as "collection/id".
func (r Ref) Path() string {
	return r.Collection + "/" + r.ID
}

func (r Ref) String() string { return r.Path() }

// Validate rejects refs with empty parts or ids containing a separator.
func (r Ref) Validate() error {
	if r.Collection == "" || r.ID == "" {
		return fmt.Errorf("%w: empty collection or id", ErrInvalidPath)
	}
	if strings.Contains(r.ID, "/") {
		return fmt.Errorf("%w: id %q contains '/'", ErrInvalidPath, r.ID)
	}
	return nil
}

// ParseRef splits a slash path into collection and id. The id is the last
// segment; everything before it is the collection path.
func ParseRef(path string) (Ref, error) {
	path = strings.Trim(path, "/")
	idx := strings.LastIndex(path, "/")
	if idx <= 0 || idx == len(path)-1 {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	ref := Ref{Collection: path[:idx], ID: path[idx+1:]}
	if err := ref.Validate(); err != nil {
		return Ref{}, err
	}
	return ref, nil
}

// Change is a document update as seen by the store: state immediately before
// and immediately after the write.
type Change struct {
	Ref    Ref
	Before Fields
	After  Fields
}

// Pattern matches document paths such as "users/{userId}". Segments wrapped in
// braces capture the corresponding path segment by name.
type Pattern struct {
	raw      string
	segments []string
}

// ParsePattern validates and compiles a document path pattern.
func ParsePattern(raw string) (Pattern, error) {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return Pattern{}, fmt.Errorf("%w: empty pattern", ErrInvalidPath)
	}
	segments := strings.Split(trimmed, "/")
	seen := make(map[string]bool, len(segments))
	for _, seg := range segments {
		if seg == "" {
			return Pattern{}, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, raw)
		}
		if name, ok := paramName(seg); ok {
			if name == "" || seen[name] {
				return Pattern{}, fmt.Errorf("%w: bad parameter %q in %q", ErrInvalidPath, seg, raw)
			}
			seen[name] = true
		}
	}
	return Pattern{raw: trimmed, segments: segments}, nil
}

// MustParsePattern is ParsePattern for package-level constants.
func MustParsePattern(raw string) Pattern {
	p, err := ParsePattern(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) String() string { return p.raw }

// Match reports whether path matches the pattern and returns the captured
// parameters.
func (p Pattern) Match(path string) (map[string]string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != len(p.segments) {
		return nil, false
	}
	params := make(map[string]string)
	for i, seg := range p.segments {
		if parts[i] == "" {
			return nil, false
		}
		if name, ok := paramName(seg); ok {
			params[name] = parts[i]
			continue
		}
		if seg != parts[i] {
			return nil, false
		}
	}
	return params, true
}

func paramName(seg string) (string, bool) {
	if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
		return seg[1 : len(seg)-1], true
	}
	return "", false
}

// IsNotFound reports whether err means the document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}
