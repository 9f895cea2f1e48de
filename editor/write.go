package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/amonks/tkt/internal/state"
)

// WriteFiles writes files under root. A file marked Preserve is merged over
// the existing document at its path, which may contain comments and trailing
// commas; folder lists are unioned by path.
func WriteFiles(root string, files []File) error {
	for _, file := range files {
		if err := validRelativePath(file.Path); err != nil {
			return err
		}
		target := filepath.Join(root, filepath.FromSlash(file.Path))
		content := file.Content
		if file.Preserve {
			merged, err := mergeExisting(target, content)
			if err != nil {
				return err
			}
			content = merged
		}
		if err := state.WriteFileAtomic(target, content); err != nil {
			return fmt.Errorf("write %s: %w", file.Path, err)
		}
	}
	return nil
}

func mergeExisting(target string, rendered []byte) ([]byte, error) {
	data, err := os.ReadFile(target)
	if errors.Is(err, fs.ErrNotExist) {
		return rendered, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}

	var existing any
	if err := json.Unmarshal(jsonc.ToJSON(data), &existing); err != nil {
		return nil, fmt.Errorf("parse existing %s: %w", target, err)
	}
	var fresh any
	if err := json.Unmarshal(rendered, &fresh); err != nil {
		return nil, fmt.Errorf("parse rendered %s: %w", target, err)
	}

	merged := Merge(existing, fresh)
	if object, ok := merged.(map[string]any); ok {
		if folders := unionFolders(existing, fresh); folders != nil {
			object["folders"] = folders
		}
	}
	return marshalJSON(merged)
}

func unionFolders(existing, fresh any) []any {
	oldFolders := folderList(existing)
	newFolders := folderList(fresh)
	if oldFolders == nil || newFolders == nil {
		return nil
	}
	result := make([]any, 0, len(oldFolders)+len(newFolders))
	seen := map[string]bool{}
	for _, folder := range append(oldFolders, newFolders...) {
		if object, ok := folder.(map[string]any); ok {
			if p, ok := object["path"].(string); ok {
				if seen[p] {
					continue
				}
				seen[p] = true
			}
		}
		result = append(result, folder)
	}
	return result
}

func folderList(document any) []any {
	object, ok := document.(map[string]any)
	if !ok {
		return nil
	}
	folders, _ := object["folders"].([]any)
	return folders
}
