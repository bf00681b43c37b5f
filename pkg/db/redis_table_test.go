package db

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func newTestRedisTable(t *testing.T, ttl time.Duration) (*redisTable, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	table := newRedisTable(client, "test", "sources", ttl)
	return table, mr
}

func TestRedisTable_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("get existing key", func(t *testing.T) {
		table, _ := newTestRedisTable(t, 0)
		table.Set(ctx, "foo", []byte("bar"), 0)

		val, ok := table.Get(ctx, "foo")
		assert.True(t, ok)
		assert.Equal(t, []byte("bar"), val)
	})

	t.Run("get non-existing key", func(t *testing.T) {
		table, _ := newTestRedisTable(t, 0)

		val, ok := table.Get(ctx, "foo")
		assert.False(t, ok)
		assert.Nil(t, val)
	})

	t.Run("reads raw values", func(t *testing.T) {
		table, mr := newTestRedisTable(t, 0)
		_ = mr.Set("test:sources:raw", `{"a":1}`)

		val, ok := table.Get(ctx, "raw")
		assert.True(t, ok)
		assert.Equal(t, `{"a":1}`, string(val))
	})
}

func TestRedisTable_Set(t *testing.T) {
	ctx := context.Background()

	t.Run("set with TTL", func(t *testing.T) {
		table, mr := newTestRedisTable(t, 0)
		table.Set(ctx, "foo", []byte("bar"), 1*time.Hour)

		ttl := mr.TTL("test:sources:foo")
		assert.True(t, ttl > 0)
	})

	t.Run("table ttl applies when none given", func(t *testing.T) {
		table, mr := newTestRedisTable(t, time.Minute)
		table.Set(ctx, "foo", []byte("bar"), 0)

		assert.Equal(t, time.Minute, mr.TTL("test:sources:foo"))
	})

	t.Run("no ttl", func(t *testing.T) {
		table, mr := newTestRedisTable(t, 0)
		table.Set(ctx, "foo", []byte("bar"), 0)

		assert.Equal(t, time.Duration(0), mr.TTL("test:sources:foo"))
	})

	t.Run("expires", func(t *testing.T) {
		table, mr := newTestRedisTable(t, 0)
		table.Set(ctx, "foo", []byte("bar"), time.Second)
		mr.FastForward(2 * time.Second)

		_, ok := table.Get(ctx, "foo")
		assert.False(t, ok)
	})
}

func TestRedisTable_Delete(t *testing.T) {
	ctx := context.Background()

	table, _ := newTestRedisTable(t, 0)
	table.Set(ctx, "foo", []byte("bar"), 0)

	table.Delete(ctx, "foo")
	table.Delete(ctx, "nonexistent")

	_, ok := table.Get(ctx, "foo")
	assert.False(t, ok)
}

func TestRedisTable_KeysAndClear(t *testing.T) {
	ctx := context.Background()

	table, mr := newTestRedisTable(t, 0)
	table.Set(ctx, "b.json", []byte("{}"), 0)
	table.Set(ctx, "a.yaml", []byte("a: 1"), 0)
	_ = mr.Set("other:sources:c", "x")

	assert.Equal(t, []string{"a.yaml", "b.json"}, table.Keys(ctx))

	table.Clear(ctx)
	assert.Empty(t, table.Keys(ctx))
	assert.True(t, mr.Exists("other:sources:c"))
}
