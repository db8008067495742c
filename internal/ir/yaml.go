package ir

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML decodes a mapping into a payload, keeping YAML floats as
// exact decimals and ~/null as explicit nulls.
func (p *Payload) UnmarshalYAML(node *yaml.Node) error {
	obj, err := objectFromYAML(node)
	if err != nil {
		return err
	}
	*p = Payload(obj)
	return nil
}

// UnmarshalYAML decodes a mapping of identity columns.
func (k *Keys) UnmarshalYAML(node *yaml.Node) error {
	obj, err := objectFromYAML(node)
	if err != nil {
		return err
	}
	*k = Keys(obj)
	return nil
}

// ValueFromYAML converts a yaml.v3 node into a Value.
func ValueFromYAML(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null{}, nil
		}
		return ValueFromYAML(node.Content[0])
	case yaml.AliasNode:
		return ValueFromYAML(node.Alias)
	case yaml.MappingNode:
		return objectFromYAML(node)
	case yaml.SequenceNode:
		arr := make(Array, len(node.Content))
		for i, child := range node.Content {
			v, err := ValueFromYAML(child)
			if err != nil {
				return nil, fmt.Errorf("line %d: [%d]: %w", child.Line, i, err)
			}
			arr[i] = v
		}
		return arr, nil
	case yaml.ScalarNode:
		return scalarFromYAML(node)
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", node.Line, node.Kind)
	}
}

func objectFromYAML(node *yaml.Node) (Object, error) {
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected mapping", node.Line)
	}
	obj := make(Object, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		v, err := ValueFromYAML(node.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		obj[key] = v
	}
	return obj, nil
}

func scalarFromYAML(node *yaml.Node) (Value, error) {
	switch node.ShortTag() {
	case "!!null":
		return Null{}, nil
	case "!!bool":
		b, err := strconv.ParseBool(node.Value)
		if err != nil {
			var yb bool
			if derr := node.Decode(&yb); derr != nil {
				return nil, fmt.Errorf("line %d: invalid bool %q", node.Line, node.Value)
			}
			return Bool(yb), nil
		}
		return Bool(b), nil
	case "!!int":
		n, err := strconv.ParseInt(node.Value, 0, 64)
		if err != nil {
			return ParseDecimal(node.Value)
		}
		return Int(n), nil
	case "!!float":
		return ParseDecimal(node.Value)
	default:
		return String(node.Value), nil
	}
}
