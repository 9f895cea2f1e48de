package environment

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadCatalog reads a repos.yaml catalog. Each top-level key is a repository
// name whose value is either a clone URL or a mapping with url and ref.
// Duplicate keys are rejected.
func LoadCatalog(path string) (map[string]RepositorySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Field: "repos_yaml", Err: err}
	}
	catalog, err := ParseCatalog(data)
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			cfgErr.Path = path
			return nil, cfgErr
		}
		return nil, &ConfigError{Path: path, Err: err}
	}
	return catalog, nil
}

// ParseCatalog decodes repos.yaml content.
func ParseCatalog(data []byte) (map[string]RepositorySpec, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse repository catalog: %w", err)
	}

	catalog := map[string]RepositorySpec{}
	if len(root.Content) == 0 {
		return catalog, nil
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("repository catalog: expected a mapping at line %d", mapping.Line)
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode, valueNode := mapping.Content[i], mapping.Content[i+1]
		name := keyNode.Value
		if _, exists := catalog[name]; exists {
			return nil, configErrorf(name, "duplicate repository at line %d", keyNode.Line)
		}
		var entry any
		if err := valueNode.Decode(&entry); err != nil {
			return nil, configErrorf(name, "line %d: %v", valueNode.Line, err)
		}
		spec, err := repositoryEntry(name, entry)
		if err != nil {
			return nil, configErrorf(name, "line %d: %v", valueNode.Line, err)
		}
		catalog[name] = spec
	}
	return catalog, nil
}
