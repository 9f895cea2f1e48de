package environment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/amonks/tkt/internal/paths"
)

// Document is a decoded environment document before a kind interprets it.
type Document struct {
	Module             string
	Class              string
	Kind               string
	Name               string
	EupsPath           string
	ReposYAML          string
	Repos              map[string]RepositorySpec
	WorkspacePath      string
	EupsPrelude        string
	Shell              string
	DefaultTag         string
	DefaultMetapackage string
	BranchPrefix       string
	Declare            bool
	Externals          map[string]string
	Editors            map[string]EditorSpec

	// Dir is the directory relative paths are resolved against.
	Dir string
}

var documentKeys = map[string]bool{
	"module":              true,
	"cls":                 true,
	"kind":                true,
	"name":                true,
	"eups_path":           true,
	"repos_yaml":          true,
	"repos":               true,
	"workspace_path":      true,
	"eups_prelude":        true,
	"shell":               true,
	"default_tag":         true,
	"default_metapackage": true,
	"branch_prefix":       true,
	"declare":             true,
	"externals":           true,
	"editors":             true,
}

// Selector returns the registry key the document asks for.
func (d *Document) Selector() string {
	if d.Kind != "" {
		return d.Kind
	}
	return d.Class
}

// ResolvePath expands ~ and environment variables in path and makes it
// absolute relative to the document directory.
func (d *Document) ResolvePath(path string) string {
	if path == "" {
		return ""
	}
	path = paths.ExpandHome(os.ExpandEnv(path))
	if !filepath.IsAbs(path) && d.Dir != "" {
		path = filepath.Join(d.Dir, path)
	}
	return filepath.Clean(path)
}

func parseDocument(raw map[string]any) (*Document, error) {
	for _, key := range sortedKeys(raw) {
		if !documentKeys[key] {
			return nil, configErrorf(key, "unknown field")
		}
	}

	doc := &Document{}
	var err error
	fields := []struct {
		key    string
		target *string
	}{
		{"module", &doc.Module},
		{"cls", &doc.Class},
		{"kind", &doc.Kind},
		{"name", &doc.Name},
		{"eups_path", &doc.EupsPath},
		{"repos_yaml", &doc.ReposYAML},
		{"workspace_path", &doc.WorkspacePath},
		{"eups_prelude", &doc.EupsPrelude},
		{"shell", &doc.Shell},
		{"default_tag", &doc.DefaultTag},
		{"default_metapackage", &doc.DefaultMetapackage},
		{"branch_prefix", &doc.BranchPrefix},
	}
	for _, field := range fields {
		if *field.target, err = stringField(raw, field.key); err != nil {
			return nil, err
		}
	}

	if value, ok := raw["declare"]; ok {
		declare, ok := value.(bool)
		if !ok {
			return nil, configErrorf("declare", "expected a boolean, got %T", value)
		}
		doc.Declare = declare
	}

	doc.Name = strings.TrimSpace(doc.Name)
	if doc.Selector() == "" {
		return nil, configErrorf("cls", "required field is missing (set kind or module/cls)")
	}

	if doc.Repos, err = parseInlineRepos(raw["repos"]); err != nil {
		return nil, err
	}
	if doc.ReposYAML == "" && raw["repos"] == nil {
		return nil, configErrorf("repos_yaml", "required field is missing")
	}

	if doc.Externals, err = stringMap(raw, "externals"); err != nil {
		return nil, err
	}

	if doc.Editors, err = parseEditors(raw["editors"]); err != nil {
		return nil, err
	}

	return doc, nil
}

func stringField(raw map[string]any, key string) (string, error) {
	value, ok := raw[key]
	if !ok || value == nil {
		return "", nil
	}
	s, ok := value.(string)
	if !ok {
		return "", configErrorf(key, "expected a string, got %T", value)
	}
	return s, nil
}

func stringMap(raw map[string]any, key string) (map[string]string, error) {
	result := map[string]string{}
	value, ok := raw[key]
	if !ok || value == nil {
		return result, nil
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, configErrorf(key, "expected a table, got %T", value)
	}
	for name, entry := range m {
		s, ok := entry.(string)
		if !ok {
			return nil, configErrorf(key+"."+name, "expected a string, got %T", entry)
		}
		result[name] = s
	}
	return result, nil
}

func parseInlineRepos(value any) (map[string]RepositorySpec, error) {
	result := map[string]RepositorySpec{}
	if value == nil {
		return result, nil
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, configErrorf("repos", "expected a table, got %T", value)
	}
	for name, entry := range m {
		spec, err := repositoryEntry(name, entry)
		if err != nil {
			return nil, &ConfigError{Field: "repos." + name, Err: err}
		}
		result[name] = spec
	}
	return result, nil
}

// repositoryEntry accepts either a bare URL or a table with url and ref.
func repositoryEntry(name string, entry any) (RepositorySpec, error) {
	switch v := entry.(type) {
	case string:
		if v == "" {
			return RepositorySpec{}, fmt.Errorf("empty url")
		}
		return RepositorySpec{Name: name, URL: v}, nil
	case map[string]any:
		spec := RepositorySpec{Name: name}
		for key, field := range v {
			s, ok := field.(string)
			switch key {
			case "url":
				if !ok {
					return RepositorySpec{}, fmt.Errorf("url: expected a string, got %T", field)
				}
				spec.URL = s
			case "ref":
				if !ok {
					return RepositorySpec{}, fmt.Errorf("ref: expected a string, got %T", field)
				}
				spec.Ref = s
			}
		}
		if spec.URL == "" {
			return RepositorySpec{}, fmt.Errorf("missing url")
		}
		return spec, nil
	default:
		return RepositorySpec{}, fmt.Errorf("expected a url or a table, got %T", entry)
	}
}

func parseEditors(value any) (map[string]EditorSpec, error) {
	result := map[string]EditorSpec{}
	if value == nil {
		return result, nil
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, configErrorf("editors", "expected a table, got %T", value)
	}
	for kind, entry := range m {
		field := "editors." + kind
		section, ok := entry.(map[string]any)
		if !ok {
			return nil, configErrorf(field, "expected a table, got %T", entry)
		}
		spec := EditorSpec{
			Kind:     kind,
			Base:     map[string]any{},
			Packages: map[string]map[string]any{},
			Options:  map[string]any{},
		}
		var err error
		if spec.Module, err = stringField(section, "module"); err != nil {
			return nil, &ConfigError{Field: field + ".module", Err: err}
		}
		if spec.Class, err = stringField(section, "cls"); err != nil {
			return nil, &ConfigError{Field: field + ".cls", Err: err}
		}
		if spec.Class == "" {
			spec.Class = kind
		}
		for key, raw := range section {
			switch key {
			case "module", "cls":
			case "base":
				base, err := normalizeObject(raw)
				if err != nil {
					return nil, configErrorf(field+".base", "%v", err)
				}
				spec.Base = base
			case "packages":
				packages, err := normalizeObject(raw)
				if err != nil {
					return nil, configErrorf(field+".packages", "%v", err)
				}
				for repo, fragment := range packages {
					object, ok := fragment.(map[string]any)
					if !ok {
						return nil, configErrorf(field+".packages."+repo, "expected a table, got %T", fragment)
					}
					spec.Packages[repo] = object
				}
			default:
				normalized, err := normalizeValue(raw)
				if err != nil {
					return nil, configErrorf(field+"."+key, "%v", err)
				}
				spec.Options[key] = normalized
			}
		}
		result[kind] = spec
	}
	return result, nil
}

// normalizeValue converts decoder-specific values (TOML int64, YAML int,
// nested map types) into the shapes encoding/json produces.
func normalizeValue(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

func normalizeObject(value any) (map[string]any, error) {
	normalized, err := normalizeValue(value)
	if err != nil {
		return nil, err
	}
	if normalized == nil {
		return map[string]any{}, nil
	}
	object, ok := normalized.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a table, got %T", value)
	}
	return object, nil
}
