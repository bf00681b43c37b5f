// Package document provides an ordered, JSON-compatible document model.
//
// A document is a tree of *Node values. Every node has a Kind: null, bool,
// number, string, array or object. Objects keep the order in which their
// members were added, which is the source order for decoded documents.
// Numbers keep their source literal so that re-encoding does not change them.
package document

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrMissing       = errors.New("missing member")
)

// Kind is the JSON type of a node.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// RefKey is the member name of a JSON reference.
const RefKey = "$ref"

// Member is a single key/value pair of an object node.
type Member struct {
	Key   string
	Value *Node
}

// Node is a single value of a document.
// Str holds the string value for strings and the literal for numbers.
type Node struct {
	Kind  Kind
	Str   string
	Bool  bool
	Items []*Node

	members []Member
	index   map[string]int
}

func NewNull() *Node {
	return &Node{Kind: KindNull}
}

func NewBool(v bool) *Node {
	return &Node{Kind: KindBool, Bool: v}
}

func NewString(v string) *Node {
	return &Node{Kind: KindString, Str: v}
}

// NewNumber creates a number node from its literal, e.g. "42" or "1.5e3".
func NewNumber(literal string) *Node {
	return &Node{Kind: KindNumber, Str: literal}
}

func NewInt(v int64) *Node {
	return NewNumber(strconv.FormatInt(v, 10))
}

func NewArray(items ...*Node) *Node {
	return &Node{Kind: KindArray, Items: items}
}

func NewObject() *Node {
	return &Node{Kind: KindObject, index: make(map[string]int)}
}

// NewRef creates an object node holding only a $ref member.
func NewRef(ref string) *Node {
	return NewObject().Set(RefKey, NewString(ref))
}

// IsObject reports whether n is a non-nil object.
func (n *Node) IsObject() bool {
	return n != nil && n.Kind == KindObject
}

// IsArray reports whether n is a non-nil array.
func (n *Node) IsArray() bool {
	return n != nil && n.Kind == KindArray
}

// Len returns the number of members of an object or items of an array.
func (n *Node) Len() int {
	switch {
	case n.IsObject():
		return len(n.members)
	case n.IsArray():
		return len(n.Items)
	}
	return 0
}

// Get returns the member value stored under key.
func (n *Node) Get(key string) (*Node, bool) {
	if !n.IsObject() {
		return nil, false
	}
	i, ok := n.index[key]
	if !ok {
		return nil, false
	}
	return n.members[i].Value, true
}

// Has reports whether the object has a member named key.
func (n *Node) Has(key string) bool {
	_, ok := n.Get(key)
	return ok
}

// Set adds or replaces a member keeping its original position.
// It returns n so that calls can be chained.
func (n *Node) Set(key string, value *Node) *Node {
	if n.index == nil {
		n.index = make(map[string]int)
	}
	if i, ok := n.index[key]; ok {
		n.members[i].Value = value
		return n
	}
	n.index[key] = len(n.members)
	n.members = append(n.members, Member{Key: key, Value: value})
	return n
}

// Delete removes a member. It is a no-op when the member does not exist.
func (n *Node) Delete(key string) {
	i, ok := n.index[key]
	if !ok {
		return
	}
	n.members = append(n.members[:i], n.members[i+1:]...)
	delete(n.index, key)
	for j := i; j < len(n.members); j++ {
		n.index[n.members[j].Key] = j
	}
}

// Keys returns object member names in order.
func (n *Node) Keys() []string {
	if !n.IsObject() {
		return nil
	}
	keys := make([]string, len(n.members))
	for i, m := range n.members {
		keys[i] = m.Key
	}
	return keys
}

// Members returns a copy of the object's members in order.
func (n *Node) Members() []Member {
	if !n.IsObject() {
		return nil
	}
	res := make([]Member, len(n.members))
	copy(res, n.members)
	return res
}

// Index returns the i-th array item.
func (n *Node) Index(i int) (*Node, bool) {
	if !n.IsArray() || i < 0 || i >= len(n.Items) {
		return nil, false
	}
	return n.Items[i], true
}

// Append adds items to an array node.
func (n *Node) Append(items ...*Node) *Node {
	n.Items = append(n.Items, items...)
	return n
}

// AsString returns the string value of a string node.
func (n *Node) AsString() (string, bool) {
	if n == nil || n.Kind != KindString {
		return "", false
	}
	return n.Str, true
}

// AsBool returns the value of a boolean node.
func (n *Node) AsBool() (bool, bool) {
	if n == nil || n.Kind != KindBool {
		return false, false
	}
	return n.Bool, true
}

// AsFloat returns the value of a number node.
func (n *Node) AsFloat() (float64, bool) {
	if n == nil || n.Kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(n.Str, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// IsNull reports whether n is nil or a null node.
func (n *Node) IsNull() bool {
	return n == nil || n.Kind == KindNull
}

// Ref returns the value of the $ref member if n is a JSON reference.
// A $ref member holding anything but a string is plain data.
func (n *Node) Ref() (string, bool) {
	v, ok := n.Get(RefKey)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// IsExtendedRef reports whether n is a reference with additional members.
func (n *Node) IsExtendedRef() bool {
	_, ok := n.Ref()
	return ok && len(n.members) > 1
}

// Lookup walks path from n. Each segment is an object member name or
// an array index. The error names the failing location and wraps
// ErrShapeMismatch or ErrMissing.
func (n *Node) Lookup(path ...string) (*Node, error) {
	cur := n
	for i, seg := range path {
		at := "/" + strings.Join(path[:i], "/")
		switch {
		case cur.IsObject():
			next, ok := cur.Get(seg)
			if !ok {
				return nil, fmt.Errorf("%w: %q at %s", ErrMissing, seg, at)
			}
			cur = next
		case cur.IsArray():
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return nil, fmt.Errorf("%w: at %s: index %q is not a number", ErrShapeMismatch, at, seg)
			}
			next, ok := cur.Index(idx)
			if !ok {
				return nil, fmt.Errorf("%w: index %d at %s", ErrMissing, idx, at)
			}
			cur = next
		default:
			kind := KindNull
			if cur != nil {
				kind = cur.Kind
			}
			return nil, fmt.Errorf("%w: at %s: expected object or array, got %s", ErrShapeMismatch, at, kind)
		}
	}
	return cur, nil
}

// LookupString is Lookup followed by a string check.
func (n *Node) LookupString(path ...string) (string, error) {
	v, err := n.Lookup(path...)
	if err != nil {
		return "", err
	}
	s, ok := v.AsString()
	if !ok {
		return "", fmt.Errorf("%w: at /%s: expected string, got %s", ErrShapeMismatch, strings.Join(path, "/"), v.Kind)
	}
	return s, nil
}

// Clone returns a deep copy of n. The copy shares no nodes with n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	res := &Node{Kind: n.Kind, Str: n.Str, Bool: n.Bool}
	switch n.Kind {
	case KindArray:
		res.Items = make([]*Node, len(n.Items))
		for i, item := range n.Items {
			res.Items[i] = item.Clone()
		}
	case KindObject:
		res.members = make([]Member, len(n.members))
		res.index = make(map[string]int, len(n.members))
		for i, m := range n.members {
			res.members[i] = Member{Key: m.Key, Value: m.Value.Clone()}
			res.index[m.Key] = i
		}
	}
	return res
}

// Assign replaces the content of n with the content of src.
// n keeps its identity, src must not be used afterwards.
func (n *Node) Assign(src *Node) {
	*n = *src
	if n.Kind == KindObject && n.index == nil {
		n.index = make(map[string]int)
	}
}

// Equal reports whether a and b are structurally equal.
// Object member order is not significant, numbers compare by value.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a.IsNull() && b.IsNull()
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindString:
		return a.Str == b.Str
	case KindNumber:
		return equalNumbers(a.Str, b.Str)
	case KindArray:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.members) != len(b.members) {
			return false
		}
		for _, m := range a.members {
			other, ok := b.Get(m.Key)
			if !ok || !Equal(m.Value, other) {
				return false
			}
		}
		return true
	}
	return false
}

// ContainsRef reports whether n or any of its descendants is a reference.
func ContainsRef(n *Node) bool {
	if _, ok := n.Ref(); ok {
		return true
	}
	switch {
	case n.IsObject():
		for _, m := range n.members {
			if ContainsRef(m.Value) {
				return true
			}
		}
	case n.IsArray():
		for _, item := range n.Items {
			if ContainsRef(item) {
				return true
			}
		}
	}
	return false
}
