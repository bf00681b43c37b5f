package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cubahno/refbundle/pkg/db"
	"github.com/cubahno/refbundle/pkg/document"
	assert2 "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLoader(t *testing.T) {
	assert := assert2.New(t)
	ctx := context.Background()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "common"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "common", "pet.yaml"), []byte("Pet: {}"), 0644))

	t.Run("relative to root", func(t *testing.T) {
		l := NewFileLoader(dir)
		data, err := l.Load(ctx, "common/pet.yaml")
		require.NoError(t, err)
		assert.Equal("Pet: {}", string(data))
	})

	t.Run("absolute path ignores root", func(t *testing.T) {
		l := NewFileLoader("/nonexistent")
		data, err := l.Load(ctx, filepath.ToSlash(filepath.Join(dir, "common", "pet.yaml")))
		require.NoError(t, err)
		assert.Equal("Pet: {}", string(data))
	})

	t.Run("file url", func(t *testing.T) {
		l := NewFileLoader("")
		data, err := l.Load(ctx, "file://"+filepath.ToSlash(filepath.Join(dir, "common", "pet.yaml")))
		require.NoError(t, err)
		assert.Equal("Pet: {}", string(data))
	})

	t.Run("missing file", func(t *testing.T) {
		l := NewFileLoader(dir)
		_, err := l.Load(ctx, "missing.json")
		assert.ErrorIs(err, ErrNotFound)
	})

	t.Run("remote locations are not supported", func(t *testing.T) {
		l := NewFileLoader(dir)
		_, err := l.Load(ctx, "https://example.com/pet.yaml")
		assert.ErrorIs(err, ErrUnsupportedScheme)
	})

	t.Run("cancelled context", func(t *testing.T) {
		l := NewFileLoader(dir)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := l.Load(cctx, "common/pet.yaml")
		assert.ErrorIs(err, context.Canceled)
	})
}

func TestMemoryLoader(t *testing.T) {
	assert := assert2.New(t)
	ctx := context.Background()

	l := NewMemoryLoader(map[string][]byte{
		"./specs/api.json": []byte(`{}`),
	})

	data, err := l.Load(ctx, "specs/api.json")
	require.NoError(t, err)
	assert.Equal("{}", string(data))

	l.Add("specs/../common.json", []byte(`[]`))
	data, err = l.Load(ctx, "common.json")
	require.NoError(t, err)
	assert.Equal("[]", string(data))

	_, err = l.Load(ctx, "other.json")
	assert.ErrorIs(err, ErrNotFound)
}

func TestCachedLoader(t *testing.T) {
	assert := assert2.New(t)
	ctx := context.Background()

	t.Run("loads once", func(t *testing.T) {
		calls := 0
		next := LoaderFunc(func(_ context.Context, location string) ([]byte, error) {
			calls++
			return []byte(location), nil
		})
		table := db.NewMemoryTable()
		l := NewCachedLoader(next, table, 0)

		for i := 0; i < 3; i++ {
			data, err := l.Load(ctx, "a.json")
			require.NoError(t, err)
			assert.Equal("a.json", string(data))
		}

		assert.Equal(1, calls)
		assert.Equal([]string{"a.json"}, table.Keys(ctx))
	})

	t.Run("errors are not cached", func(t *testing.T) {
		calls := 0
		next := LoaderFunc(func(_ context.Context, location string) ([]byte, error) {
			calls++
			return nil, errors.New("boom")
		})
		l := NewCachedLoader(next, db.NewMemoryTable(), 0)

		_, err := l.Load(ctx, "a.json")
		assert.Error(err)
		_, err = l.Load(ctx, "a.json")
		assert.Error(err)
		assert.Equal(2, calls)
	})

	t.Run("nil table passes through", func(t *testing.T) {
		calls := 0
		next := LoaderFunc(func(_ context.Context, location string) ([]byte, error) {
			calls++
			return []byte("x"), nil
		})
		l := NewCachedLoader(next, nil, 0)

		_, _ = l.Load(ctx, "a.json")
		_, _ = l.Load(ctx, "a.json")
		assert.Equal(2, calls)
	})
}

func TestRegistry(t *testing.T) {
	assert := assert2.New(t)

	t.Run("add and get", func(t *testing.T) {
		r := NewRegistry()
		doc := document.NewObject()
		r.Add("a.json", doc)

		got, ok := r.Get("a.json")
		assert.True(ok)
		assert.Same(doc, got)

		_, ok = r.Get("b.json")
		assert.False(ok)
	})

	t.Run("locations are sorted", func(t *testing.T) {
		r := NewRegistry()
		r.Add("b.json", document.NewNull())
		r.Add("a.json", document.NewNull())
		r.Add("", document.NewNull())

		assert.Equal([]string{"", "a.json", "b.json"}, r.Locations())
		assert.Equal(3, r.Len())
	})

	t.Run("concurrent access", func(t *testing.T) {
		r := NewRegistry()
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				location := fmt.Sprintf("doc-%d.json", i)
				r.Add(location, document.NewInt(int64(i)))
				_, _ = r.Get(location)
			}(i)
		}
		wg.Wait()
		assert.Equal(20, r.Len())
	})
}

func TestLoadConcurrency(t *testing.T) {
	assert := assert2.New(t)

	t.Run("default", func(t *testing.T) {
		t.Setenv("LOAD_CONCURRENCY", "")
		assert.Equal(DefaultLoadConcurrency, LoadConcurrency())
	})

	t.Run("from env", func(t *testing.T) {
		t.Setenv("LOAD_CONCURRENCY", "3")
		assert.Equal(3, LoadConcurrency())
	})

	t.Run("invalid env", func(t *testing.T) {
		t.Setenv("LOAD_CONCURRENCY", "-1")
		assert.Equal(DefaultLoadConcurrency, LoadConcurrency())
	})
}
