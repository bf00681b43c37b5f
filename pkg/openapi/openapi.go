// Package openapi checks bundled OpenAPI 3 documents with kin-openapi.
package openapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/cubahno/refbundle/pkg/bundler"
	"github.com/cubahno/refbundle/pkg/document"
	"github.com/getkin/kin-openapi/openapi3"
)

var ErrInvalidDocument = errors.New("invalid openapi document")

// Document is a bundled OpenAPI document.
// Source is the bundled tree the document was loaded from.
type Document struct {
	*openapi3.T
	Source *document.Node
}

// BundleFile bundles the document at location and validates the result.
func BundleFile(ctx context.Context, b *bundler.Bundler, location string) (*Document, error) {
	node, err := b.BundleFile(ctx, location)
	if err != nil {
		return nil, err
	}
	return Load(ctx, node)
}

// Load loads a bundled document and validates it.
// References to other documents are rejected.
func Load(ctx context.Context, node *document.Node) (*Document, error) {
	data, err := json.Marshal(node)
	if err != nil {
		return nil, err
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = false

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	return &Document{T: doc, Source: node}, nil
}

// Validate reports whether node is a valid self-contained OpenAPI document.
func Validate(ctx context.Context, node *document.Node) error {
	_, err := Load(ctx, node)
	return err
}

// GetVersion returns the OpenAPI version of the document
func (d *Document) GetVersion() string {
	return d.OpenAPI
}

// GetResources returns a map of resource names and their methods.
func (d *Document) GetResources() map[string][]string {
	res := make(map[string][]string)
	if d.Paths == nil {
		return res
	}
	for resName, pathItem := range d.Paths.Map() {
		res[resName] = make([]string, 0)
		for method := range pathItem.Operations() {
			res[resName] = append(res[resName], method)
		}
		sort.Strings(res[resName])
	}
	return res
}
