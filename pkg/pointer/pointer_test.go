package pointer

import (
	"testing"

	assert2 "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	assert := assert2.New(t)

	t.Run("root", func(t *testing.T) {
		p, err := Parse("")
		require.NoError(t, err)
		assert.Len(p, 0)
		assert.Equal("", p.String())
		assert.Equal("#", p.Fragment())
	})

	t.Run("escaped tokens", func(t *testing.T) {
		p, err := Parse("/paths/~1foo/get/content/application~1json/a~0b")
		require.NoError(t, err)
		assert.Equal(Pointer{"paths", "/foo", "get", "content", "application/json", "a~b"}, p)
	})

	t.Run("empty token", func(t *testing.T) {
		p, err := Parse("/")
		require.NoError(t, err)
		assert.Equal(Pointer{""}, p)
	})

	t.Run("missing leading slash", func(t *testing.T) {
		_, err := Parse("paths")
		assert.ErrorIs(err, ErrInvalid)
	})
}

func TestPointer_String(t *testing.T) {
	assert := assert2.New(t)

	p := Pointer{"paths", "/foo", "get", "responses", "200", "content", "application/json", "schema"}
	assert.Equal("/paths/~1foo/get/responses/200/content/application~1json/schema", p.String())
	assert.Equal("#/paths/~1foo/get/responses/200/content/application~1json/schema", p.Fragment())

	assert.Equal("/~0tilde~1slash", Pointer{"~tilde/slash"}.String())
}

func TestPointer_Append(t *testing.T) {
	assert := assert2.New(t)

	base := Pointer{"a"}
	child := base.Append("b", "c")

	assert.Equal(Pointer{"a", "b", "c"}, child)
	assert.Equal(Pointer{"a"}, base)
	assert.True(child.HasPrefix(base))
	assert.False(base.HasPrefix(child))
	assert.True(child.Equal(Pointer{"a", "b", "c"}))
}

func TestParseFragment(t *testing.T) {
	assert := assert2.New(t)

	t.Run("percent encoded", func(t *testing.T) {
		p, err := ParseFragment("#/paths/%7E1foo/x%20y")
		require.NoError(t, err)
		assert.Equal(Pointer{"paths", "/foo", "x y"}, p)
	})

	t.Run("malformed escape is literal", func(t *testing.T) {
		p, err := ParseFragment("#/rates/100%")
		require.NoError(t, err)
		assert.Equal(Pointer{"rates", "100%"}, p)
	})

	t.Run("plain name fragment", func(t *testing.T) {
		_, err := ParseFragment("#foo")
		assert.ErrorIs(err, ErrInvalid)
	})
}

func TestParseRef(t *testing.T) {
	assert := assert2.New(t)

	tests := []struct {
		ref      string
		location string
		pointer  Pointer
	}{
		{"#/components/schemas/Pet", "", Pointer{"components", "schemas", "Pet"}},
		{"#", "", Pointer{}},
		{"common.yaml", "common.yaml", Pointer{}},
		{"common.yaml#/Pet", "common.yaml", Pointer{"Pet"}},
		{"https://example.com/s.json#/a", "https://example.com/s.json", Pointer{"a"}},
	}

	for _, tc := range tests {
		t.Run(tc.ref, func(t *testing.T) {
			r, err := ParseRef(tc.ref)
			require.NoError(t, err)
			assert.Equal(tc.location, r.Location)
			assert.Equal(tc.pointer.String(), r.Pointer.String())
		})
	}
}

func TestRef_Resolve(t *testing.T) {
	assert := assert2.New(t)

	r, _ := ParseRef("#/a")
	assert.Equal("specs/api.yaml#/a", r.Resolve("specs/api.yaml").String())

	r, _ = ParseRef("../common/pet.yaml#/Pet")
	assert.Equal("common/pet.yaml#/Pet", r.Resolve("specs/api.yaml").String())

	r, _ = ParseRef("pet.yaml")
	assert.Equal("pet.yaml#", r.Resolve("").String())

	assert.Equal("specs/api.yaml#/a/b", Ref{Location: "specs/api.yaml", Pointer: Pointer{"a"}}.Child("b").String())
}

func TestJoinLocation(t *testing.T) {
	assert := assert2.New(t)

	assert.Equal("a/b.json", JoinLocation("a/root.json", "b.json"))
	assert.Equal("b.json", JoinLocation("a/root.json", "../b.json"))
	assert.Equal("/abs/b.json", JoinLocation("a/root.json", "/abs/b.json"))
	assert.Equal("b.json", JoinLocation("", "./b.json"))
	assert.Equal("https://x.io/s/b.json", JoinLocation("https://x.io/s/a.json", "b.json"))
	assert.Equal("https://y.io/c.json", JoinLocation("a/root.json", "https://y.io/c.json"))
	assert.Equal("a/b.json", JoinLocation(`a\root.json`, `b.json`))
}

func TestNormalizeLocation(t *testing.T) {
	assert := assert2.New(t)

	assert.Equal("", NormalizeLocation(""))
	assert.Equal("a/b.json", NormalizeLocation("./a/x/../b.json"))
	assert.Equal("https://x.io/a/../b", NormalizeLocation("https://x.io/a/../b"))
}
