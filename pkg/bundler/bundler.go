// Package bundler resolves JSON references ($ref) in JSON and YAML documents.
//
// Bundle produces a self-contained document in which every referenced
// subtree is materialized exactly once, at its canonical occurrence, and
// every other occurrence is a $ref pointing there:
//
//   - a subtree of the root document is canonical at its own location, all
//     references to it are rewritten to its normalized JSON Pointer;
//   - a subtree of another document is copied into the first reference
//     reached in document order and later references point at that copy.
//
// Dereference replaces every reference with a copy of its target.
//
// Documents are traversed depth-first in member order. Neither operation
// modifies its input.
package bundler

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/cubahno/refbundle/pkg/config"
	"github.com/cubahno/refbundle/pkg/db"
	"github.com/cubahno/refbundle/pkg/document"
	"github.com/cubahno/refbundle/pkg/loader"
	"github.com/cubahno/refbundle/pkg/pointer"
)

// Bundler holds the configuration of bundle and dereference calls.
// It is safe for concurrent use.
type Bundler struct {
	loader      loader.Loader
	logger      *slog.Logger
	dedupe      bool
	concurrency int
	closers     []io.Closer
}

// Option configures a Bundler.
type Option func(*Bundler)

// WithLoader sets the loader used for documents other than the root.
// Passing nil disables external references.
func WithLoader(l loader.Loader) Option {
	return func(b *Bundler) {
		b.loader = l
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bundler) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithDedupeIdentical makes structurally identical external subtrees
// without references share one canonical occurrence even when they come
// from different locations.
func WithDedupeIdentical() Option {
	return func(b *Bundler) {
		b.dedupe = true
	}
}

// WithConcurrency limits concurrent document loads.
func WithConcurrency(n int) Option {
	return func(b *Bundler) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// New creates a Bundler. Without options it loads external documents
// from the filesystem relative to the working directory.
func New(opts ...Option) *Bundler {
	b := &Bundler{
		loader:      loader.NewFileLoader(""),
		logger:      slog.Default(),
		concurrency: loader.LoadConcurrency(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewFromConfig creates a Bundler with a file loader rooted at cfg.BaseDir
// and the configured source cache. Close releases the cache.
func NewFromConfig(cfg *config.Config, opts ...Option) *Bundler {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	var l loader.Loader = loader.NewFileLoader(cfg.BaseDir)
	var closers []io.Closer
	if cfg.Cache != nil {
		if table := db.NewTable(cfg.Cache, "sources"); table != nil {
			l = loader.NewCachedLoader(l, table, cfg.Cache.TTL)
			closers = append(closers, table)
		}
	}

	base := []Option{WithLoader(l)}
	if cfg.DedupeIdentical {
		base = append(base, WithDedupeIdentical())
	}

	b := New(append(base, opts...)...)
	b.closers = closers
	return b
}

// Close releases resources acquired by NewFromConfig.
func (b *Bundler) Close() error {
	var errs []error
	for _, c := range b.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// Parse loads and decodes the document at location.
// Failures are returned as *InputError.
func (b *Bundler) Parse(ctx context.Context, location string) (*document.Node, error) {
	return b.load(ctx, pointer.NormalizeLocation(location))
}

// Bundle bundles an in-memory document. Relative external references are
// resolved by the loader as given.
func (b *Bundler) Bundle(ctx context.Context, root *document.Node) (*document.Node, error) {
	return b.bundle(ctx, root, "")
}

// BundleFile parses the document at location and bundles it.
// Relative references are resolved against location.
func (b *Bundler) BundleFile(ctx context.Context, location string) (*document.Node, error) {
	location = pointer.NormalizeLocation(location)
	root, err := b.load(ctx, location)
	if err != nil {
		return nil, err
	}
	return b.bundle(ctx, root, location)
}

// Dereference replaces every reference in an in-memory document with a
// copy of its target.
func (b *Bundler) Dereference(ctx context.Context, root *document.Node) (*document.Node, error) {
	return b.dereference(ctx, root, "")
}

// DereferenceFile parses the document at location and dereferences it.
func (b *Bundler) DereferenceFile(ctx context.Context, location string) (*document.Node, error) {
	location = pointer.NormalizeLocation(location)
	root, err := b.load(ctx, location)
	if err != nil {
		return nil, err
	}
	return b.dereference(ctx, root, location)
}

func (b *Bundler) load(ctx context.Context, location string) (*document.Node, error) {
	if b.loader == nil {
		return nil, &InputError{Location: location, Err: ErrNoLoader}
	}
	if err := ctx.Err(); err != nil {
		return nil, &InputError{Location: location, Err: err}
	}

	data, err := b.loader.Load(ctx, location)
	if err != nil {
		return nil, &InputError{Location: location, Err: err}
	}

	doc, err := document.Decode(location, data)
	if err != nil {
		return nil, &InputError{Location: location, Err: err}
	}

	b.logger.Debug("Parsed document", "location", location)
	return doc, nil
}
