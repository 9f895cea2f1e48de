package environment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Format identifies an environment document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the document format from a file extension.
// JSON (with comments) is the fallback.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads and builds the environment described by the document at path.
func Load(path string) (Environment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("read: %w", err)}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	base := filepath.Base(path)
	env, err := parse(data, FormatForPath(path), filepath.Dir(abs), strings.TrimSuffix(base, filepath.Ext(base)))
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) && cfgErr.Path == "" {
			cfgErr.Path = path
		}
		return nil, err
	}
	return env, nil
}

// Parse builds an environment from document bytes. Relative paths in the
// document are resolved against dir. A document without a name is named
// after its kind.
func Parse(data []byte, format Format, dir string) (Environment, error) {
	return parse(data, format, dir, "")
}

// parse names an unnamed document fallbackName, or its kind when that is
// empty too.
func parse(data []byte, format Format, dir, fallbackName string) (Environment, error) {
	raw, err := decode(data, format)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	doc, err := parseDocument(raw)
	if err != nil {
		return nil, err
	}
	doc.Dir = dir
	if doc.Name == "" {
		doc.Name = firstNonEmpty(fallbackName, doc.Selector())
	}

	factory, err := lookup(doc.Selector())
	if err != nil {
		return nil, err
	}
	return factory(doc)
}

func decode(data []byte, format Format) (map[string]any, error) {
	raw := map[string]any{}
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}
