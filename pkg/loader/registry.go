package loader

import (
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/cubahno/refbundle/pkg/document"
)

const (
	// DefaultLoadConcurrency is the default number of concurrent document loads
	DefaultLoadConcurrency = 10
)

// Registry holds decoded documents by location.
// It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	docs map[string]*document.Node
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		docs: make(map[string]*document.Node),
	}
}

// Add stores a document, replacing any previous one at the same location.
func (r *Registry) Add(location string, doc *document.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.docs[location] = doc
}

// Get retrieves a document by location.
func (r *Registry) Get(location string) (*document.Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[location]
	return doc, ok
}

// Locations returns all registered locations, sorted.
func (r *Registry) Locations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	locations := make([]string, 0, len(r.docs))
	for location := range r.docs {
		locations = append(locations, location)
	}
	sort.Strings(locations)
	return locations
}

// Len returns the number of registered documents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.docs)
}

// LoadConcurrency returns the concurrency limit from LOAD_CONCURRENCY env var or default
func LoadConcurrency() int {
	if val := os.Getenv("LOAD_CONCURRENCY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return DefaultLoadConcurrency
}
