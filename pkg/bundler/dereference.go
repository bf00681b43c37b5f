package bundler

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cubahno/refbundle/pkg/document"
	"github.com/cubahno/refbundle/pkg/pointer"
)

type derefState struct {
	*resolver

	// expanding holds the targets currently being expanded on the path
	// from the root to the current node.
	expanding map[string]bool
	refs      int
}

func (b *Bundler) dereference(ctx context.Context, root *document.Node, location string) (*document.Node, error) {
	if root == nil {
		return nil, &InputError{Location: location, Err: errors.New("nil document")}
	}

	// the input is only read, every output node is a fresh copy
	registry, _ := b.resolveAll(ctx, root, location, false)
	s := &derefState{
		resolver:  newResolver(ctx, b, root, location, registry),
		expanding: make(map[string]bool),
	}

	out, err := s.expand(root, location, nil)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("Dereferenced document",
		"location", location,
		"documents", registry.Len(),
		"refs", s.refs)
	return out, nil
}

func (s *derefState) expand(n *document.Node, base string, path pointer.Pointer) (*document.Node, error) {
	if ref, ok := n.Ref(); ok {
		return s.expandRef(n, ref, base, path)
	}

	switch {
	case n.IsObject():
		res := document.NewObject()
		for _, m := range n.Members() {
			v, err := s.expand(m.Value, base, path.Append(m.Key))
			if err != nil {
				return nil, err
			}
			res.Set(m.Key, v)
		}
		return res, nil

	case n.IsArray():
		res := document.NewArray()
		for i, item := range n.Items {
			v, err := s.expand(item, base, path.Append(strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			res.Append(v)
		}
		return res, nil
	}

	return n.Clone(), nil
}

func (s *derefState) expandRef(n *document.Node, ref, base string, path pointer.Pointer) (*document.Node, error) {
	fail := func(err error) error {
		return &ResolutionError{Ref: ref, Path: path.String(), Err: err}
	}

	parsed, err := pointer.ParseRef(ref)
	if err != nil {
		return nil, fail(errors.Join(ErrInvalidRef, err))
	}

	target, final, err := s.resolve(parsed.Resolve(base))
	if err != nil {
		return nil, fail(err)
	}

	key := final.String()
	if s.expanding[key] {
		return nil, fail(fmt.Errorf("%w: %s contains a reference to itself", ErrCircularRef, key))
	}
	s.expanding[key] = true
	s.refs++

	res, err := s.expand(target, final.Location, path)
	delete(s.expanding, key)
	if err != nil {
		return nil, err
	}

	if !n.IsExtendedRef() || !res.IsObject() {
		return res, nil
	}

	for _, m := range n.Members() {
		if m.Key == document.RefKey {
			continue
		}
		v, err := s.expand(m.Value, base, path.Append(m.Key))
		if err != nil {
			return nil, err
		}
		res.Set(m.Key, v)
	}
	return res, nil
}
