package deploy

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var ErrInvalidManifest = errors.New("invalid manifest")

// Manifest is an immutable view of a service document. Every change returns
// a new manifest; the wrapped document is never modified.
type Manifest struct {
	doc *yaml.Node
}

// NewManifest wraps a copy of doc. A nil doc yields an empty manifest.
func NewManifest(doc *yaml.Node) (*Manifest, error) {
	if doc == nil {
		return &Manifest{doc: emptyDocument()}, nil
	}
	root := doc
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return &Manifest{doc: emptyDocument()}, nil
		}
		root = doc.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: document must be a mapping", ErrInvalidManifest)
	}
	return &Manifest{doc: &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{cloneNode(root)}}}, nil
}

// ParseManifest parses YAML into a manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	if doc.Kind == 0 {
		return NewManifest(nil)
	}
	return NewManifest(&doc)
}

func emptyDocument() *yaml.Node {
	return &yaml.Node{
		Kind:    yaml.DocumentNode,
		Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
	}
}

func (m *Manifest) root() *yaml.Node {
	return m.doc.Content[0]
}

// WithFunction returns a manifest with functions.<key> set to v, replacing
// any existing entry in place.
func (m *Manifest) WithFunction(key string, v any) (*Manifest, error) {
	var value yaml.Node
	if err := value.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding function %s: %w", key, err)
	}

	next := &Manifest{doc: cloneNode(m.doc)}
	root := next.root()

	functions := mappingValue(root, "functions")
	if functions == nil {
		functions = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "functions"},
			functions,
		)
	} else if functions.Kind != yaml.MappingNode {
		if functions.Kind == yaml.ScalarNode && functions.Tag == "!!null" {
			*functions = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		} else {
			return nil, fmt.Errorf("%w: functions must be a mapping", ErrInvalidManifest)
		}
	}

	for i := 0; i+1 < len(functions.Content); i += 2 {
		if functions.Content[i].Value == key {
			functions.Content[i+1] = &value
			return next, nil
		}
	}
	functions.Content = append(functions.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&value,
	)
	return next, nil
}

// Function decodes functions.<key> into out.
func (m *Manifest) Function(key string, out any) (bool, error) {
	node := mappingValue(mappingValue(m.root(), "functions"), key)
	if node == nil {
		return false, nil
	}
	if err := node.Decode(out); err != nil {
		return true, fmt.Errorf("decoding function %s: %w", key, err)
	}
	return true, nil
}

// FunctionKeys returns the declared function keys in order.
func (m *Manifest) FunctionKeys() []string {
	functions := mappingValue(m.root(), "functions")
	if functions == nil || functions.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(functions.Content)/2)
	for i := 0; i+1 < len(functions.Content); i += 2 {
		keys = append(keys, functions.Content[i].Value)
	}
	return keys
}

// Document returns a copy of the underlying document.
func (m *Manifest) Document() *yaml.Node {
	return cloneNode(m.doc)
}

// Marshal renders the manifest as YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m.doc); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return buf.Bytes(), nil
}

func cloneNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Content != nil {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = cloneNode(child)
		}
	}
	// Alias targets stay shared with the source tree; neither side mutates them.
	return &c
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
