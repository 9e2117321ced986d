package settings

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
)

// FromYAML parses a YAML mapping into a container, keeping key order
func FromYAML(text string) (*Data, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, errors.WrapInvalid(err, "Settings", "FromYAML", "parse document")
	}
	if doc.Kind == 0 {
		return New(), nil
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Settings", "FromYAML", "expect top-level mapping")
	}

	d, err := fromYAMLMapping(root, 1)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Settings", "FromYAML", "decode mapping")
	}
	return d, nil
}

func fromYAMLMapping(n *yaml.Node, depth int) (*Data, error) {
	if depth > maxJSONDepth {
		return nil, fmt.Errorf("nesting depth exceeds %d", maxJSONDepth)
	}
	d := New()
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		v, err := fromYAMLValue(n.Content[i+1], depth)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		if v != nil {
			d.set(layerUser, key, v)
		}
	}
	return d, nil
}

func fromYAMLValue(n *yaml.Node, depth int) (any, error) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}

	switch n.Kind {
	case yaml.MappingNode:
		return fromYAMLMapping(n, depth+1)
	case yaml.SequenceNode:
		a := NewArray()
		for _, c := range n.Content {
			if c.Kind != yaml.MappingNode {
				continue
			}
			obj, err := fromYAMLMapping(c, depth+1)
			if err != nil {
				return nil, err
			}
			a.Push(obj)
		}
		return a, nil
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!null":
			return nil, nil
		case "!!bool":
			return strconv.ParseBool(n.Value)
		case "!!int":
			var i int64
			if err := n.Decode(&i); err != nil {
				return nil, err
			}
			return i, nil
		case "!!float":
			var f float64
			if err := n.Decode(&f); err != nil {
				return nil, err
			}
			return f, nil
		default:
			return n.Value, nil
		}
	}
	return nil, fmt.Errorf("unsupported yaml node kind %d", n.Kind)
}

// YAML returns the user values as a YAML document
func (d *Data) YAML() (string, error) {
	out, err := yaml.Marshal(d.yamlNode())
	if err != nil {
		return "", errors.Wrap(err, "Settings", "YAML", "encode")
	}
	return string(out), nil
}

// MarshalYAML implements yaml.Marshaler
func (d *Data) MarshalYAML() (any, error) {
	return d.yamlNode(), nil
}

func (d *Data) yamlNode() *yaml.Node {
	d.mu.RLock()
	keys := make([]string, 0, len(d.keys))
	vals := make([]any, 0, len(d.keys))
	for _, k := range d.keys {
		if v := d.items[k].values[layerUser]; v != nil {
			keys = append(keys, k)
			vals = append(vals, v)
		}
	}
	d.mu.RUnlock()

	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i, k := range keys {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			yamlValue(vals[i]))
	}
	return node
}

func yamlValue(v any) *yaml.Node {
	switch t := v.(type) {
	case *Data:
		return t.yamlNode()
	case *Array:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, it := range t.Items() {
			seq.Content = append(seq.Content, it.yamlNode())
		}
		return seq
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(t)}
	case int64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(t, 10)}
	case float64:
		s := strconv.FormatFloat(t, 'g', -1, 64)
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			s += ".0"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: s}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprint(t)}
	}
}
