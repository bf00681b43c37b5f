package openapi

import (
	"context"
	"testing"

	"github.com/cubahno/refbundle/pkg/bundler"
	"github.com/cubahno/refbundle/pkg/document"
	"github.com/cubahno/refbundle/pkg/loader"
	assert2 "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundleFile(t *testing.T) {
	assert := assert2.New(t)
	ctx := context.Background()
	b := bundler.New(bundler.WithLoader(loader.NewFileLoader("testdata")))

	t.Run("petstore", func(t *testing.T) {
		doc, err := BundleFile(ctx, b, "petstore/openapi.yaml")
		require.NoError(t, err)

		assert.Equal("3.0.3", doc.GetVersion())
		assert.Equal(map[string][]string{"/pets": {"GET", "POST"}}, doc.GetResources())

		pet := doc.Components.Schemas["Pet"]
		require.NotNil(t, pet)
		require.NotNil(t, pet.Value)
		assert.Equal([]string{"id", "name"}, pet.Value.Required)

		items := doc.Paths.Find("/pets").Get.Responses.Status(200).Value.Content.Get("application/json").Schema.Value.Items
		assert.Equal("#/components/schemas/Pet", items.Ref)

		ref, err := doc.Source.LookupString("paths", "/pets", "post", "requestBody", "content", "application/json", "schema", "$ref")
		require.NoError(t, err)
		assert.Equal("#/components/schemas/Pet", ref)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := BundleFile(ctx, b, "petstore/missing.yaml")
		var inputErr *bundler.InputError
		assert.ErrorAs(err, &inputErr)
	})
}

func TestValidate(t *testing.T) {
	assert := assert2.New(t)
	ctx := context.Background()

	decode := func(src string) *document.Node {
		n, err := document.DecodeJSON([]byte(src))
		require.NoError(t, err)
		return n
	}

	t.Run("valid", func(t *testing.T) {
		err := Validate(ctx, decode(`{
			"openapi": "3.0.3",
			"info": {"title": "t", "version": "1"},
			"paths": {}
		}`))
		assert.NoError(err)
	})

	t.Run("missing info", func(t *testing.T) {
		err := Validate(ctx, decode(`{"openapi": "3.0.3", "paths": {}}`))
		assert.ErrorIs(err, ErrInvalidDocument)
	})

	t.Run("external reference", func(t *testing.T) {
		err := Validate(ctx, decode(`{
			"openapi": "3.0.3",
			"info": {"title": "t", "version": "1"},
			"paths": {},
			"components": {"schemas": {"Pet": {"$ref": "pet.yaml"}}}
		}`))
		assert.ErrorIs(err, ErrInvalidDocument)
	})
}
