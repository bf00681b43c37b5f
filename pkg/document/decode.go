package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Decode decodes data using the location's extension to pick the format.
// .yaml and .yml are YAML, .json and .jsonc are JSON with comments allowed.
// Anything else is tried as JSON first and then as YAML.
func Decode(location string, data []byte) (*Node, error) {
	switch strings.ToLower(path.Ext(location)) {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	case ".json", ".jsonc":
		return DecodeJSON(data)
	}

	if n, err := DecodeJSON(data); err == nil {
		return n, nil
	}
	return DecodeYAML(data)
}

// DecodeJSON decodes a JSON document. Comments and trailing commas are
// stripped first, so JSONC input is accepted as well.
func DecodeJSON(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()

	n, err := decodeJSONValue(dec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("decoding json: empty document")
		}
		return nil, fmt.Errorf("decoding json: %w", err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decoding json: unexpected data after top-level value")
	}
	return n, nil
}

func decodeJSONValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				value, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := NewArray()
			for dec.More() {
				item, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				arr.Append(item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", rune(v))
	case string:
		return NewString(v), nil
	case json.Number:
		return NewNumber(v.String()), nil
	case bool:
		return NewBool(v), nil
	case nil:
		return NewNull(), nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// ErrTooManyAliases is returned for YAML documents whose aliases expand
// into far more nodes than the document itself holds.
var ErrTooManyAliases = errors.New("document contains excessive aliasing")

// DecodeYAML decodes a YAML document. Anchors and aliases are expanded
// into independent copies and merge keys (<<) are applied.
func DecodeYAML(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	if doc.Kind == 0 || (doc.Kind == yaml.DocumentNode && len(doc.Content) == 0) {
		return NewNull(), nil
	}

	n, err := newYAMLDecoder().decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	return n, nil
}

// yamlDecoder converts yaml.v3 nodes and keeps count of what alias
// expansion costs. The limits follow the ones yaml.v3 applies when
// decoding into Go values.
type yamlDecoder struct {
	nodes      int
	aliasNodes int
	aliasDepth int
	expanding  map[*yaml.Node]bool
}

func newYAMLDecoder() *yamlDecoder {
	return &yamlDecoder{expanding: make(map[*yaml.Node]bool)}
}

// allowedAliasRatio returns the share of nodes that may come from alias
// expansion once nodes have been built.
func allowedAliasRatio(nodes int) float64 {
	switch {
	case nodes <= 400_000:
		return 0.99
	case nodes >= 4_000_000:
		return 0.10
	}
	return 0.99 - 0.89*(float64(nodes-400_000)/3_600_000)
}

func (d *yamlDecoder) count() error {
	d.nodes++
	if d.aliasDepth == 0 {
		return nil
	}
	d.aliasNodes++
	if d.aliasNodes > 100 && d.nodes > 1000 &&
		float64(d.aliasNodes)/float64(d.nodes) > allowedAliasRatio(d.nodes) {
		return ErrTooManyAliases
	}
	return nil
}

func (d *yamlDecoder) decode(y *yaml.Node) (*Node, error) {
	if err := d.count(); err != nil {
		return nil, err
	}

	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return NewNull(), nil
		}
		return d.decode(y.Content[0])
	case yaml.AliasNode:
		return d.alias(y)
	case yaml.ScalarNode:
		return fromYAMLScalar(y)
	case yaml.SequenceNode:
		arr := NewArray()
		for _, item := range y.Content {
			n, err := d.decode(item)
			if err != nil {
				return nil, err
			}
			arr.Append(n)
		}
		return arr, nil
	case yaml.MappingNode:
		return d.mapping(y)
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", y.Line, y.Kind)
}

func (d *yamlDecoder) alias(y *yaml.Node) (*Node, error) {
	if y.Alias == nil {
		return nil, fmt.Errorf("line %d: unknown anchor %q", y.Line, y.Value)
	}
	if d.expanding[y.Alias] {
		return nil, fmt.Errorf("line %d: anchor %q value contains itself", y.Line, y.Value)
	}

	d.expanding[y.Alias] = true
	d.aliasDepth++
	defer func() {
		delete(d.expanding, y.Alias)
		d.aliasDepth--
	}()

	return d.decode(y.Alias)
}

func fromYAMLScalar(y *yaml.Node) (*Node, error) {
	switch y.ShortTag() {
	case "!!null":
		return NewNull(), nil
	case "!!bool":
		var b bool
		if err := y.Decode(&b); err != nil {
			return nil, err
		}
		return NewBool(b), nil
	case "!!int":
		if json.Valid([]byte(y.Value)) {
			return NewNumber(y.Value), nil
		}
		var i int64
		if err := y.Decode(&i); err != nil {
			return nil, err
		}
		return NewInt(i), nil
	case "!!float":
		if json.Valid([]byte(y.Value)) {
			return NewNumber(y.Value), nil
		}
		var f float64
		if err := y.Decode(&f); err != nil {
			return nil, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("line %d: %s has no JSON representation", y.Line, y.Value)
		}
		return NewNumber(strconv.FormatFloat(f, 'g', -1, 64)), nil
	}
	return NewString(y.Value), nil
}

func (d *yamlDecoder) mapping(y *yaml.Node) (*Node, error) {
	obj := NewObject()
	var merges []*yaml.Node

	for i := 0; i+1 < len(y.Content); i += 2 {
		k, v := y.Content[i], y.Content[i+1]
		if k.ShortTag() == "!!merge" {
			merges = append(merges, v)
			continue
		}
		if k.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
		}
		value, err := d.decode(v)
		if err != nil {
			return nil, err
		}
		obj.Set(k.Value, value)
	}

	// explicit keys win over merged ones
	for _, m := range merges {
		sources := []*yaml.Node{m}
		if m.Kind == yaml.SequenceNode {
			sources = m.Content
		}
		for _, src := range sources {
			merged, err := d.decode(src)
			if err != nil {
				return nil, err
			}
			if !merged.IsObject() {
				return nil, fmt.Errorf("line %d: merge value must be a mapping", src.Line)
			}
			for _, mem := range merged.members {
				if !obj.Has(mem.Key) {
					obj.Set(mem.Key, mem.Value)
				}
			}
		}
	}

	return obj, nil
}
