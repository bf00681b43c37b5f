package db

import (
	"context"
	"slices"
	"sync"
	"time"
)

var _ Table = (*memoryTable)(nil)

// cachedSource is a raw source document kept by memoryTable.
type cachedSource struct {
	data    []byte
	expires time.Time
}

func (s cachedSource) liveAt(now time.Time) bool {
	return s.expires.IsZero() || now.Before(s.expires)
}

// memoryTable caches source documents in process memory.
// Stored bytes are copied on the way in and out, so callers decoding or
// patching a source never change what the next load sees.
type memoryTable struct {
	mu      sync.RWMutex
	now     func() time.Time
	sources map[string]cachedSource
}

func newMemoryTable() *memoryTable {
	return &memoryTable{
		now:     time.Now,
		sources: make(map[string]cachedSource),
	}
}

// NewMemoryTable returns a Table private to this process.
func NewMemoryTable() Table {
	return newMemoryTable()
}

func (t *memoryTable) Get(_ context.Context, key string) ([]byte, bool) {
	now := t.now()

	t.mu.RLock()
	src, ok := t.sources[key]
	t.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !src.liveAt(now) {
		t.mu.Lock()
		// another Set may have replaced it meanwhile
		if cur, ok := t.sources[key]; ok && !cur.liveAt(now) {
			delete(t.sources, key)
		}
		t.mu.Unlock()
		return nil, false
	}

	return slices.Clone(src.data), true
}

// Set stores value under key. A zero ttl keeps it until deleted or cleared.
func (t *memoryTable) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	src := cachedSource{data: slices.Clone(value)}
	if ttl > 0 {
		src.expires = t.now().Add(ttl)
	}

	t.mu.Lock()
	t.sources[key] = src
	t.mu.Unlock()
}

func (t *memoryTable) Delete(_ context.Context, key string) {
	t.mu.Lock()
	delete(t.sources, key)
	t.mu.Unlock()
}

// Keys returns the sorted keys of live entries and drops expired ones.
func (t *memoryTable) Keys(_ context.Context) []string {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]string, 0, len(t.sources))
	for k, src := range t.sources {
		if !src.liveAt(now) {
			delete(t.sources, k)
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (t *memoryTable) Clear(_ context.Context) {
	t.mu.Lock()
	clear(t.sources)
	t.mu.Unlock()
}

func (t *memoryTable) Close() error {
	return nil
}
