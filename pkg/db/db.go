// Package db provides key-value tables with memory and redis backends.
// Tables hold raw bytes and are used to cache loaded source documents.
package db

import (
	"context"
	"time"
)

// Table is a byte-valued key-value store with optional TTL support.
type Table interface {
	// Get retrieves a value by key.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value with the given key.
	// If ttl is 0, the table default applies (no expiry for memory tables).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// Delete removes a value by key.
	Delete(ctx context.Context, key string)

	// Keys returns the sorted keys of all non-expired entries.
	Keys(ctx context.Context) []string

	// Clear removes all data from the table.
	Clear(ctx context.Context)

	// Close releases any resources held by the table.
	Close() error
}
