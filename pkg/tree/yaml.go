package tree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DecodeYAML parses a YAML document whose root is a mapping. Mapping order is
// preserved and scalars are converted to the same value kinds DecodeJSON
// produces.
func DecodeYAML(data []byte) (*Object, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("tree: decode yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("tree: decode yaml: document is empty")
	}
	value, err := fromYAMLNode(doc.Content[0])
	if err != nil {
		return nil, fmt.Errorf("tree: decode yaml: %w", err)
	}
	root, ok := value.(*Object)
	if !ok {
		return nil, fmt.Errorf("tree: decode yaml: root must be a mapping, got %s", KindOf(value))
	}
	return root, nil
}

func fromYAMLNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.AliasNode:
		if node.Alias == nil {
			return nil, fmt.Errorf("line %d: dangling alias", node.Line)
		}
		return fromYAMLNode(node.Alias)
	case yaml.MappingNode:
		obj := &Object{}
		for idx := 0; idx+1 < len(node.Content); idx += 2 {
			keyNode, valueNode := node.Content[idx], node.Content[idx+1]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", keyNode.Line)
			}
			if obj.Has(keyNode.Value) {
				return nil, fmt.Errorf("line %d: duplicate mapping key %q", keyNode.Line, keyNode.Value)
			}
			value, err := fromYAMLNode(valueNode)
			if err != nil {
				return nil, err
			}
			obj.Members = append(obj.Members, Member{Key: keyNode.Value, Value: value})
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			value, err := fromYAMLNode(child)
			if err != nil {
				return nil, err
			}
			arr = append(arr, value)
		}
		return arr, nil
	case yaml.ScalarNode:
		return fromYAMLScalar(node)
	default:
		return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", node.Line, node.Kind)
	}
}

func fromYAMLScalar(node *yaml.Node) (any, error) {
	switch node.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return b, nil
	case "!!int", "!!float":
		if json.Valid([]byte(node.Value)) {
			return json.Number(node.Value), nil
		}
		var f float64
		if err := node.Decode(&f); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, fmt.Errorf("line %d: %q has no JSON representation", node.Line, node.Value)
		}
		return json.Number(strconv.FormatFloat(f, 'g', -1, 64)), nil
	default:
		return node.Value, nil
	}
}

// EncodeYAML serialises the object as a block-style YAML document with a
// two-space indent.
func EncodeYAML(root *Object) ([]byte, error) {
	if root == nil {
		return nil, errors.New("tree: encode yaml: object is nil")
	}
	node, err := toYAMLNode(root)
	if err != nil {
		return nil, fmt.Errorf("tree: encode yaml: %w", err)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("tree: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("tree: encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func toYAMLNode(value any) (*yaml.Node, error) {
	switch typed := value.(type) {
	case *Object:
		if typed == nil {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
		}
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		if len(typed.Members) == 0 {
			node.Style = yaml.FlowStyle
		}
		for _, m := range typed.Members {
			child, err := toYAMLNode(m.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", m.Key, err)
			}
			key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: m.Key}
			node.Content = append(node.Content, key, child)
		}
		return node, nil
	case []any:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		if len(typed) == 0 {
			node.Style = yaml.FlowStyle
		}
		for idx, item := range typed {
			child, err := toYAMLNode(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", idx, err)
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: typed}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(typed)}, nil
	case json.Number:
		tag := "!!float"
		if _, err := typed.Int64(); err == nil {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: typed.String()}, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", value)
	}
}
