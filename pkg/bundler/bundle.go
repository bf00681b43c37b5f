package bundler

import (
	"context"
	"errors"
	"strconv"

	"github.com/cubahno/refbundle/pkg/document"
	"github.com/cubahno/refbundle/pkg/pointer"
	"github.com/zeebo/blake3"
)

// bundleState is the state of a single Bundle call.
type bundleState struct {
	*resolver

	// canonical maps absolute addresses of external nodes to the location
	// in the output where they are materialized.
	canonical map[string]pointer.Pointer

	// fingerprints maps content hashes of inlined reference-free subtrees
	// to their location when deduplication is enabled.
	fingerprints map[[32]byte]pointer.Pointer

	// deferred holds extended references to external nodes that were not
	// materialized when they were reached.
	deferred []occurrence
}

// occurrence is a node of the output together with its address in the
// output and the address it came from.
type occurrence struct {
	node   *document.Node
	path   pointer.Pointer
	origin pointer.Ref
}

func (b *Bundler) bundle(ctx context.Context, root *document.Node, location string) (*document.Node, error) {
	if root == nil {
		return nil, &InputError{Location: location, Err: errors.New("nil document")}
	}

	out := root.Clone()
	registry, _ := b.resolveAll(ctx, root, location, false)

	s := &bundleState{
		resolver:     newResolver(ctx, b, out, location, registry),
		canonical:    make(map[string]pointer.Pointer),
		fingerprints: make(map[[32]byte]pointer.Pointer),
	}

	if err := s.walk(occurrence{node: out, origin: pointer.Ref{Location: location}}); err != nil {
		return nil, err
	}

	for len(s.deferred) > 0 {
		occ := s.deferred[0]
		s.deferred = s.deferred[1:]
		if err := s.bundleRef(occ, false); err != nil {
			return nil, err
		}
	}

	b.logger.Debug("Bundled document",
		"location", location,
		"documents", registry.Len(),
		"inlined", len(s.canonical))
	return out, nil
}

func (s *bundleState) walk(occ occurrence) error {
	if _, ok := occ.node.Ref(); ok {
		return s.bundleRef(occ, true)
	}
	if !occ.node.IsObject() && !occ.node.IsArray() {
		return nil
	}

	if occ.origin.Location != s.rootLoc {
		key := occ.origin.String()
		if p, ok := s.canonical[key]; ok && !p.Equal(occ.path) {
			// materialized earlier in document order
			occ.node.Assign(document.NewRef(p.Fragment()))
			s.rewritten[occ.node] = true
			return nil
		}
		s.canonical[key] = occ.path
	}

	return s.walkChildren(occ, nil)
}

// walkChildren walks the members or items of occ. Members listed in
// local keep the origin of the reference they were siblings of.
func (s *bundleState) walkChildren(occ occurrence, local map[string]pointer.Ref) error {
	switch {
	case occ.node.IsObject():
		for _, m := range occ.node.Members() {
			if m.Key == document.RefKey {
				if _, isRef := occ.node.Ref(); isRef {
					continue
				}
			}
			origin := occ.origin.Child(m.Key)
			if o, ok := local[m.Key]; ok {
				origin = o
			}
			if err := s.walk(occurrence{node: m.Value, path: occ.path.Append(m.Key), origin: origin}); err != nil {
				return err
			}
		}
	case occ.node.IsArray():
		for i, item := range occ.node.Items {
			tok := strconv.Itoa(i)
			if err := s.walk(occurrence{node: item, path: occ.path.Append(tok), origin: occ.origin.Child(tok)}); err != nil {
				return err
			}
		}
	}
	return nil
}

// bundleRef processes a reference object. Extended references to external
// nodes that are not materialized yet are deferred when deferOK is set.
func (s *bundleState) bundleRef(occ occurrence, deferOK bool) error {
	node := occ.node
	ref, _ := node.Ref()

	fail := func(err error) error {
		return &ResolutionError{Ref: ref, Path: occ.path.String(), Err: err}
	}

	parsed, err := pointer.ParseRef(ref)
	if err != nil {
		return fail(errors.Join(ErrInvalidRef, err))
	}

	target, final, err := s.resolve(parsed.Resolve(s.baseOf(node, occ.origin.Location)))
	if err != nil {
		return fail(err)
	}

	if final.Location == s.rootLoc {
		s.point(occ, final.Pointer)
		return s.walkSiblings(occ)
	}

	key := final.String()
	if p, ok := s.canonical[key]; ok {
		s.point(occ, p)
		return s.walkSiblings(occ)
	}

	var fp [32]byte
	hashable := s.b.dedupe && !document.ContainsRef(target)
	if hashable {
		fp, err = fingerprint(target)
		if err != nil {
			return fail(err)
		}
		if p, ok := s.fingerprints[fp]; ok {
			s.canonical[key] = p
			s.point(occ, p)
			return s.walkSiblings(occ)
		}
	}

	if node.IsExtendedRef() && deferOK {
		s.deferred = append(s.deferred, occ)
		return nil
	}

	// inline the first occurrence
	content := target.Clone()
	local := make(map[string]pointer.Ref)
	if content.IsObject() {
		for _, m := range node.Members() {
			if m.Key == document.RefKey {
				continue
			}
			content.Set(m.Key, m.Value)
			local[m.Key] = occ.origin.Child(m.Key)
		}
	}
	node.Assign(content)
	delete(s.rewritten, node)
	s.bases[node] = final.Location
	s.canonical[key] = occ.path
	if hashable {
		s.fingerprints[fp] = occ.path
	}

	s.b.logger.Debug("Inlined external reference",
		"ref", ref,
		"path", occ.path.String(),
		"target", key)

	return s.walkChildren(occurrence{node: node, path: occ.path, origin: final}, local)
}

// point rewrites the reference of occ to a location in the output.
func (s *bundleState) point(occ occurrence, p pointer.Pointer) {
	ref, _ := occ.node.Ref()
	fragment := p.Fragment()
	occ.node.Set(document.RefKey, document.NewString(fragment))
	s.rewritten[occ.node] = true

	if ref != fragment {
		s.b.logger.Debug("Rewrote reference",
			"path", occ.path.String(),
			"from", ref,
			"to", fragment)
	}
}

// walkSiblings walks the members next to $ref of an extended reference.
func (s *bundleState) walkSiblings(occ occurrence) error {
	if !occ.node.IsExtendedRef() {
		return nil
	}
	return s.walkChildren(occ, nil)
}

func fingerprint(n *document.Node) ([32]byte, error) {
	data, err := document.Canonical(n)
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(data), nil
}
