package db

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ensure redisTable implements Table interface.
var _ Table = (*redisTable)(nil)

// redisTable is a Redis-backed implementation of Table.
// Keys are namespaced as {prefix}:{tableName}:{key}
type redisTable struct {
	client    *redis.Client
	namespace string // format: {prefix}:{tableName}
	ttl       time.Duration
}

// newRedisTable creates a new Redis-backed table.
// ttl is used for entries stored without their own TTL.
func newRedisTable(client *redis.Client, prefix, tableName string, ttl time.Duration) *redisTable {
	return &redisTable{
		client:    client,
		namespace: prefix + ":" + tableName,
		ttl:       ttl,
	}
}

// Get retrieves a value by key.
func (t *redisTable) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := t.client.Get(ctx, t.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("Redis get failed", "key", key, "error", err)
		return nil, false
	}
	return data, true
}

// Set stores a value with the given key.
func (t *redisTable) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl == 0 {
		ttl = t.ttl
	}
	if err := t.client.Set(ctx, t.fullKey(key), value, ttl).Err(); err != nil {
		slog.Warn("Redis set failed", "key", key, "error", err)
	}
}

// Delete removes a value by key.
func (t *redisTable) Delete(ctx context.Context, key string) {
	t.client.Del(ctx, t.fullKey(key))
}

// Keys returns all keys with the table namespace.
// Note: This scans the keyspace, which can be slow for large datasets.
func (t *redisTable) Keys(ctx context.Context) []string {
	pattern := t.namespace + ":*"

	var keys []string
	iter := t.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), t.namespace+":"))
	}
	sort.Strings(keys)
	return keys
}

// Clear removes all data from the table.
func (t *redisTable) Clear(ctx context.Context) {
	pattern := t.namespace + ":*"

	iter := t.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if len(keys) > 0 {
		t.client.Del(ctx, keys...)
	}
}

// Close closes the underlying client.
func (t *redisTable) Close() error {
	return t.client.Close()
}

func (t *redisTable) fullKey(key string) string {
	return t.namespace + ":" + key
}
