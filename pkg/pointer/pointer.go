// Package pointer implements JSON Pointers (RFC 6901) and JSON reference
// strings of the form "location#/json/pointer".
package pointer

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/go-openapi/jsonpointer"
)

var ErrInvalid = errors.New("invalid json pointer")

// Pointer is a decoded JSON Pointer. The empty pointer addresses the root.
type Pointer []string

// Parse parses an escaped pointer such as "/paths/~1foo/get".
func Parse(s string) (Pointer, error) {
	p, err := jsonpointer.New(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalid, s, err)
	}
	return Pointer(p.DecodedTokens()), nil
}

// ParseFragment parses the fragment part of a reference. The leading "#"
// is optional and percent-encoded characters are decoded. A fragment with
// a malformed escape is taken literally.
func ParseFragment(fragment string) (Pointer, error) {
	fragment = strings.TrimPrefix(fragment, "#")
	if decoded, err := url.PathUnescape(fragment); err == nil {
		fragment = decoded
	}
	return Parse(fragment)
}

// String returns the escaped form, "" for the root.
func (p Pointer) String() string {
	var sb strings.Builder
	for _, tok := range p {
		sb.WriteByte('/')
		sb.WriteString(jsonpointer.Escape(tok))
	}
	return sb.String()
}

// Fragment returns the pointer as a local reference, e.g. "#/a/b".
func (p Pointer) Fragment() string {
	return "#" + p.String()
}

// Append returns a new pointer with tokens added. p is not modified.
func (p Pointer) Append(tokens ...string) Pointer {
	res := make(Pointer, 0, len(p)+len(tokens))
	res = append(res, p...)
	return append(res, tokens...)
}

// HasPrefix reports whether prefix addresses p or one of its ancestors.
func (p Pointer) HasPrefix(prefix Pointer) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Equal reports whether both pointers address the same location.
func (p Pointer) Equal(other Pointer) bool {
	return len(p) == len(other) && p.HasPrefix(other)
}

// Ref is a parsed JSON reference.
// Location is the document part and is empty for same-document references.
type Ref struct {
	Location string
	Pointer  Pointer
}

// ParseRef splits a reference into its location and pointer.
// Plain-name fragments ("#foo") are not supported.
func ParseRef(ref string) (Ref, error) {
	loc, frag, _ := strings.Cut(ref, "#")
	p, err := ParseFragment(frag)
	if err != nil {
		return Ref{}, err
	}
	return Ref{Location: loc, Pointer: p}, nil
}

// Resolve makes the reference absolute using base as the location of the
// document the reference appeared in.
func (r Ref) Resolve(base string) Ref {
	if r.Location == "" {
		return Ref{Location: base, Pointer: r.Pointer}
	}
	return Ref{Location: JoinLocation(base, r.Location), Pointer: r.Pointer}
}

// Child returns a reference to a descendant of r.
func (r Ref) Child(tokens ...string) Ref {
	return Ref{Location: r.Location, Pointer: r.Pointer.Append(tokens...)}
}

func (r Ref) String() string {
	return r.Location + r.Pointer.Fragment()
}

// JoinLocation resolves rel against base. URLs are resolved per RFC 3986,
// everything else is treated as a slash-separated file path.
func JoinLocation(base, rel string) string {
	if isURL(rel) {
		return rel
	}
	if isURL(base) {
		b, errB := url.Parse(base)
		r, errR := url.Parse(rel)
		if errB == nil && errR == nil {
			return b.ResolveReference(r).String()
		}
	}

	rel = strings.ReplaceAll(rel, "\\", "/")
	if path.IsAbs(rel) {
		return path.Clean(rel)
	}
	base = strings.ReplaceAll(base, "\\", "/")
	if base == "" {
		return path.Clean(rel)
	}
	return path.Join(path.Dir(base), rel)
}

// NormalizeLocation cleans a location so that equal documents share a key.
func NormalizeLocation(location string) string {
	if location == "" || isURL(location) {
		return location
	}
	return path.Clean(strings.ReplaceAll(location, "\\", "/"))
}

func isURL(s string) bool {
	return strings.Contains(s, "://")
}
