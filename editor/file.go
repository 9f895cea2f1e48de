package editor

import (
	"fmt"
	"path/filepath"
)

// renderJSONFile writes the merged config as one JSON document at the
// "path" option, relative to the workspace root.
func renderJSONFile(in *Input) ([]File, error) {
	value, ok := in.Option("path")
	if !ok {
		return nil, fmt.Errorf("missing path option")
	}
	name, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("path: expected a string, got %T", value)
	}
	if err := validRelativePath(name); err != nil {
		return nil, err
	}
	preserve := false
	if value, ok := in.Option("preserve"); ok {
		preserve, _ = value.(bool)
	}

	file, err := jsonFile(filepath.ToSlash(filepath.Clean(name)), in.Config, preserve)
	if err != nil {
		return nil, err
	}
	return []File{file}, nil
}
