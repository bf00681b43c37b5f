package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// MarshalJSON encodes n keeping object member order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, n, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON replaces n with the decoded document.
func (n *Node) UnmarshalJSON(data []byte) error {
	v, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	n.Assign(v)
	return nil
}

// MarshalYAML returns the yaml.v3 representation of n.
func (n *Node) MarshalYAML() (any, error) {
	return toYAML(n), nil
}

// UnmarshalYAML replaces n with the decoded yaml node.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	v, err := newYAMLDecoder().decode(value)
	if err != nil {
		return err
	}
	n.Assign(v)
	return nil
}

// Canonical returns a compact encoding with object members sorted by key
// and numbers normalized, so structurally equal documents encode equally.
func Canonical(n *Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, n, true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, n *Node, canonical bool) error {
	if n == nil {
		buf.WriteString("null")
		return nil
	}

	switch n.Kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(n.Bool))
	case KindNumber:
		if !json.Valid([]byte(n.Str)) {
			return fmt.Errorf("invalid number literal %q", n.Str)
		}
		if !canonical {
			buf.WriteString(n.Str)
			return nil
		}
		lit, err := normalizeNumber(n.Str)
		if err != nil {
			return err
		}
		buf.WriteString(lit)
	case KindString:
		writeJSONString(buf, n.Str)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range n.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item, canonical); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		members := n.members
		if canonical {
			members = n.Members()
			sort.Slice(members, func(i, j int) bool { return members[i].Key < members[j].Key })
		}
		buf.WriteByte('{')
		for i, m := range members {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, m.Key)
			buf.WriteByte(':')
			if err := writeJSON(buf, m.Value, canonical); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown node kind %s", n.Kind)
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) {
	var sb bytes.Buffer
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	// strings always encode
	_ = enc.Encode(s)
	buf.Write(bytes.TrimSuffix(sb.Bytes(), []byte("\n")))
}

func toYAML(n *Node) *yaml.Node {
	if n == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}

	switch n.Kind {
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(n.Bool)}
	case KindNumber:
		tag := "!!int"
		if strings.ContainsAny(n.Str, ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: n.Str}
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.Str}
	case KindArray:
		res := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range n.Items {
			res.Content = append(res.Content, toYAML(item))
		}
		return res
	case KindObject:
		res := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, m := range n.members {
			res.Content = append(res.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: m.Key},
				toYAML(m.Value))
		}
		return res
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}
