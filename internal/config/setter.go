package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrEmptyKeyPath is returned for an empty dotted key.
	ErrEmptyKeyPath = errors.New("empty key path")
	errEmptySegment = errors.New("empty segment")
)

// ParseKeyPath splits a dotted key such as "tag_rename.version".
func ParseKeyPath(path string) ([]string, error) {
	if path == "" {
		return nil, ErrEmptyKeyPath
	}
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid key path %q: %w", path, errEmptySegment)
		}
	}
	return parts, nil
}

// SetConfigValue validates value against the schema of key and writes it to
// the YAML file at path, creating the file and its directory as needed.
// Existing keys and comments are kept.
func SetConfigValue(path, key, value string) error {
	parsed, err := ValidateValue(key, value)
	if err != nil {
		return err
	}
	keyPath, err := ParseKeyPath(key)
	if err != nil {
		return err
	}

	var root yaml.Node
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := ValidateYAMLSyntaxFromBytes(data, path); err != nil {
			return err
		}
		if err := yaml.Unmarshal(data, &root); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if err := SetNestedValue(&root, keyPath, parsed.Parsed); err != nil {
		return err
	}

	out, err := yaml.Marshal(&root)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// SetNestedValue sets keyPath to value inside the document node root,
// creating intermediate mappings.
func SetNestedValue(root *yaml.Node, keyPath []string, value interface{}) error {
	if len(keyPath) == 0 {
		return ErrEmptyKeyPath
	}
	if root.Kind == 0 {
		root.Kind = yaml.DocumentNode
	}
	if root.Kind != yaml.DocumentNode {
		return fmt.Errorf("expected a YAML document, got node kind %d", root.Kind)
	}
	if len(root.Content) == 0 {
		root.Content = []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}
	}

	node := root.Content[0]
	for i, key := range keyPath {
		if node.Kind != yaml.MappingNode {
			return fmt.Errorf("cannot set %s: %s is not a mapping", strings.Join(keyPath, "."), strings.Join(keyPath[:i], "."))
		}
		child := mappingValue(node, key)
		last := i == len(keyPath)-1
		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, child)
		}
		if last {
			var encoded yaml.Node
			if err := encoded.Encode(value); err != nil {
				return fmt.Errorf("encoding value for %s: %w", key, err)
			}
			child.Kind = encoded.Kind
			child.Tag = encoded.Tag
			child.Value = encoded.Value
			child.Style = encoded.Style
			child.Content = encoded.Content
		}
		node = child
	}
	return nil
}

// GetNestedValue returns the node at keyPath, or nil when it is absent.
func GetNestedValue(root *yaml.Node, keyPath []string) *yaml.Node {
	if len(keyPath) == 0 || root == nil || len(root.Content) == 0 {
		return nil
	}
	node := root
	if node.Kind == yaml.DocumentNode {
		node = node.Content[0]
	}
	for _, key := range keyPath {
		if node.Kind != yaml.MappingNode {
			return nil
		}
		node = mappingValue(node, key)
		if node == nil {
			return nil
		}
	}
	return node
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
