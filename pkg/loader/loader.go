// Package loader reads source documents for the bundler.
//
// A Loader maps a location (a slash-separated path or a file:// URL) to the
// bytes of a document. Loaders do not decode; the bundler does that.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cubahno/refbundle/pkg/db"
)

var (
	ErrNotFound          = errors.New("source not found")
	ErrUnsupportedScheme = errors.New("unsupported location scheme")
)

// Loader loads the raw content of a document.
type Loader interface {
	Load(ctx context.Context, location string) ([]byte, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, location string) ([]byte, error)

func (f LoaderFunc) Load(ctx context.Context, location string) ([]byte, error) {
	return f(ctx, location)
}

// FileLoader reads documents from the filesystem.
// Relative locations are resolved against Root.
type FileLoader struct {
	Root string
}

// NewFileLoader creates a FileLoader rooted at root.
func NewFileLoader(root string) *FileLoader {
	return &FileLoader{Root: root}
}

// Load reads the file at location.
func (l *FileLoader) Load(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath, err := l.filePath(location)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", location, err)
	}

	slog.Debug("Loaded source", "location", location, "path", filePath, "bytes", len(data))
	return data, nil
}

func (l *FileLoader) filePath(location string) (string, error) {
	if strings.Contains(location, "://") {
		u, err := url.Parse(location)
		if err != nil {
			return "", fmt.Errorf("parsing location %s: %w", location, err)
		}
		if u.Scheme != "file" {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
		}
		location = u.Path
	}

	filePath := filepath.FromSlash(location)
	if !filepath.IsAbs(filePath) && l.Root != "" {
		filePath = filepath.Join(l.Root, filePath)
	}
	return filePath, nil
}

// MemoryLoader serves documents from memory. It is safe for concurrent use.
type MemoryLoader struct {
	mu      sync.RWMutex
	sources map[string][]byte
}

// NewMemoryLoader creates a MemoryLoader with the given sources.
func NewMemoryLoader(sources map[string][]byte) *MemoryLoader {
	l := &MemoryLoader{sources: make(map[string][]byte, len(sources))}
	for location, data := range sources {
		l.Add(location, data)
	}
	return l
}

// Add registers or replaces a document.
func (l *MemoryLoader) Add(location string, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sources[cleanLocation(location)] = data
}

// Load returns the document registered under location.
func (l *MemoryLoader) Load(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	data, ok := l.sources[cleanLocation(location)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
	}
	return data, nil
}

func cleanLocation(location string) string {
	if strings.Contains(location, "://") {
		return location
	}
	return path.Clean(location)
}

// CachedLoader keeps loaded documents in a table.
type CachedLoader struct {
	next  Loader
	table db.Table
	ttl   time.Duration
}

// NewCachedLoader wraps next with a cache. A nil table disables caching.
func NewCachedLoader(next Loader, table db.Table, ttl time.Duration) *CachedLoader {
	return &CachedLoader{
		next:  next,
		table: table,
		ttl:   ttl,
	}
}

// Load returns the cached document or loads and caches it.
// Failures are not cached.
func (l *CachedLoader) Load(ctx context.Context, location string) ([]byte, error) {
	if l.table == nil {
		return l.next.Load(ctx, location)
	}

	if data, ok := l.table.Get(ctx, location); ok {
		slog.Debug("Source cache hit", "location", location)
		return data, nil
	}

	data, err := l.next.Load(ctx, location)
	if err != nil {
		return nil, err
	}

	l.table.Set(ctx, location, data, l.ttl)
	return data, nil
}
