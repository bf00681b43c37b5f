package bundler

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/cubahno/refbundle/pkg/document"
	"github.com/cubahno/refbundle/pkg/loader"
	"github.com/cubahno/refbundle/pkg/pointer"
)

// Resolve loads every document reachable from root through external
// references. Documents are loaded concurrently, level by level.
// The registry also holds root under location.
func (b *Bundler) Resolve(ctx context.Context, root *document.Node, location string) (*loader.Registry, error) {
	return b.resolveAll(ctx, root, pointer.NormalizeLocation(location), true)
}

// ResolveFile parses the document at location and resolves it.
func (b *Bundler) ResolveFile(ctx context.Context, location string) (*loader.Registry, error) {
	location = pointer.NormalizeLocation(location)
	root, err := b.load(ctx, location)
	if err != nil {
		return nil, err
	}
	return b.resolveAll(ctx, root, location, true)
}

func (b *Bundler) resolveAll(ctx context.Context, root *document.Node, location string, strict bool) (*loader.Registry, error) {
	registry := loader.NewRegistry()
	registry.Add(location, root)

	pending := externalLocations(root, location, registry)
	for len(pending) > 0 {
		docs, err := b.loadAll(ctx, pending)
		if err != nil {
			if strict {
				return nil, err
			}
			b.logger.Debug("Prefetch incomplete", "error", err)
		}

		next := make(map[string]bool)
		for _, loc := range pending {
			doc, ok := docs[loc]
			if !ok {
				continue
			}
			registry.Add(loc, doc)
		}
		for _, loc := range pending {
			doc, ok := docs[loc]
			if !ok {
				continue
			}
			for _, l := range externalLocations(doc, loc, registry) {
				next[l] = true
			}
		}

		pending = sortedKeys(next)
	}

	return registry, nil
}

// loadAll loads locations concurrently. On failure it returns the documents
// that did load together with the error of the first failing location.
func (b *Bundler) loadAll(ctx context.Context, locations []string) (map[string]*document.Node, error) {
	semaphore := make(chan struct{}, b.concurrency)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		docs = make(map[string]*document.Node, len(locations))
		errs = make(map[string]error)
	)

	for _, loc := range locations {
		semaphore <- struct{}{} // Acquire
		wg.Add(1)
		go func(loc string) {
			defer wg.Done()
			defer func() { <-semaphore }() // Release

			doc, err := b.load(ctx, loc)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[loc] = err
				return
			}
			docs[loc] = doc
		}(loc)
	}

	wg.Wait()

	for _, loc := range locations {
		if err, ok := errs[loc]; ok {
			return docs, err
		}
	}
	return docs, nil
}

// externalLocations lists the locations referenced from doc that are not
// in the registry yet. Malformed references are skipped here and reported
// when they are resolved.
func externalLocations(doc *document.Node, base string, registry *loader.Registry) []string {
	seen := make(map[string]bool)
	var visit func(n *document.Node)
	visit = func(n *document.Node) {
		if ref, ok := n.Ref(); ok {
			if parsed, err := pointer.ParseRef(ref); err == nil {
				loc := parsed.Resolve(base).Location
				if _, known := registry.Get(loc); !known && loc != base {
					seen[loc] = true
				}
			}
		}
		switch {
		case n.IsObject():
			for _, m := range n.Members() {
				visit(m.Value)
			}
		case n.IsArray():
			for _, item := range n.Items {
				visit(item)
			}
		}
	}
	visit(doc)
	return sortedKeys(seen)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// resolver finds the materialized node a reference points to.
// The root document is the tree being produced; other documents come
// from the registry or are loaded on demand.
type resolver struct {
	b        *Bundler
	ctx      context.Context
	root     *document.Node
	rootLoc  string
	registry *loader.Registry

	// bases maps roots of copied subtrees to the location they came from.
	bases map[*document.Node]string

	// rewritten holds references already rewritten relative to the root.
	rewritten map[*document.Node]bool
}

func newResolver(ctx context.Context, b *Bundler, root *document.Node, rootLoc string, registry *loader.Registry) *resolver {
	return &resolver{
		b:         b,
		ctx:       ctx,
		root:      root,
		rootLoc:   rootLoc,
		registry:  registry,
		bases:     make(map[*document.Node]string),
		rewritten: make(map[*document.Node]bool),
	}
}

func (r *resolver) document(location string) (*document.Node, error) {
	if location == r.rootLoc {
		return r.root, nil
	}
	if doc, ok := r.registry.Get(location); ok {
		return doc, nil
	}

	doc, err := r.b.load(r.ctx, location)
	if err != nil {
		return nil, err
	}
	r.registry.Add(location, doc)
	return doc, nil
}

// baseOf returns the location references inside n resolve against.
func (r *resolver) baseOf(n *document.Node, inherited string) string {
	if r.rewritten[n] {
		return r.rootLoc
	}
	if b, ok := r.bases[n]; ok {
		return b
	}
	return inherited
}

// resolve follows target, and any reference met on the way, to a node
// that is not a reference. It returns that node and its absolute address.
// Following the same reference object twice means the chain loops.
func (r *resolver) resolve(target pointer.Ref) (*document.Node, pointer.Ref, error) {
	followed := make(map[*document.Node]bool)

	for {
		doc, err := r.document(target.Location)
		if err != nil {
			return nil, target, err
		}

		node, via, next, err := r.walkPointer(doc, target)
		if err != nil {
			return nil, target, err
		}
		if via == nil {
			return node, target, nil
		}

		if followed[via] {
			return nil, target, fmt.Errorf("%w through %s", ErrCircularRef, target)
		}
		followed[via] = true
		target = next
	}
}

// walkPointer descends target.Pointer from doc. When it meets a reference
// it returns that reference object and the redirected target with the
// remaining tokens appended.
func (r *resolver) walkPointer(doc *document.Node, target pointer.Ref) (*document.Node, *document.Node, pointer.Ref, error) {
	cur := doc
	base := target.Location

	for i := 0; ; i++ {
		base = r.baseOf(cur, base)
		if ref, ok := cur.Ref(); ok {
			parsed, err := pointer.ParseRef(ref)
			if err != nil {
				return nil, nil, target, fmt.Errorf("%w: %v", ErrInvalidRef, err)
			}
			return nil, cur, parsed.Resolve(base).Child(target.Pointer[i:]...), nil
		}
		if i == len(target.Pointer) {
			return cur, nil, target, nil
		}

		next, ok := child(cur, target.Pointer[i])
		if !ok {
			at := pointer.Ref{Location: target.Location, Pointer: target.Pointer[:i]}
			return nil, nil, target, fmt.Errorf("%w: %s has no %q", ErrPointerNotFound, at, target.Pointer[i])
		}
		cur = next
	}
}

func child(n *document.Node, token string) (*document.Node, bool) {
	switch {
	case n.IsObject():
		return n.Get(token)
	case n.IsArray():
		idx, err := strconv.Atoi(token)
		if err != nil {
			return nil, false
		}
		return n.Index(idx)
	}
	return nil, false
}
