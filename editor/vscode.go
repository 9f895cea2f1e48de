package editor

import (
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/amonks/tkt/workspace"
)

// renderVSCode produces a multi-root workspace file listing every bound
// repository, plus per-repository settings and language-server config.
//
// Options: "settings_key" names the override key copied into a repository's
// .vscode/settings.json (default "settings"); "pyrightconfig" and
// "c_cpp_properties" are written into each repository, the latter only when
// it has a lib/ directory. With "dotenv" true, each repository also gets a
// .env of the exported search-path variables and the workspace file gets
// python.analysis.extraPaths from PYTHONPATH.
func renderVSCode(in *Input) ([]File, error) {
	ws := in.Workspace
	config := in.Config

	dotenv := false
	if value, ok := in.Option("dotenv"); ok {
		enabled, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("dotenv: expected a boolean, got %T", value)
		}
		dotenv = enabled
	}
	if dotenv {
		if pythonPath := in.Variables["PYTHONPATH"]; pythonPath != "" {
			settings, ok := config["settings"].(map[string]any)
			if !ok {
				settings = map[string]any{}
				config["settings"] = settings
			}
			extraPaths := []any{}
			for _, entry := range strings.Split(pythonPath, ":") {
				extraPaths = append(extraPaths, entry)
			}
			settings["python.analysis.extraPaths"] = extraPaths
		}
	}

	folders := []any{}
	seen := map[string]bool{}
	if existing, ok := config["folders"].([]any); ok {
		for _, folder := range existing {
			folders = append(folders, folder)
			if object, ok := folder.(map[string]any); ok {
				if p, ok := object["path"].(string); ok {
					seen[p] = true
				}
			}
		}
	}
	for _, binding := range ws.Bound() {
		if seen[binding.Name] {
			continue
		}
		folders = append(folders, map[string]any{"path": binding.Name})
	}
	config["folders"] = folders

	name := workspace.SanitizeTicket(ws.Ticket) + ".code-workspace"
	file, err := jsonFile(name, config, true)
	if err != nil {
		return nil, err
	}
	files := []File{file}

	settingsKey := "settings"
	if value, ok := in.Option("settings_key"); ok {
		key, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("settings_key: expected a string, got %T", value)
		}
		settingsKey = key
	}
	pyright, hasPyright := in.Option("pyrightconfig")
	cpp, hasCpp := in.Option("c_cpp_properties")

	for _, binding := range ws.Bound() {
		if override, ok := in.Overrides[binding.Name]; ok {
			if settings, ok := override[settingsKey].(map[string]any); ok {
				file, err := jsonFile(path.Join(binding.Name, ".vscode", "settings.json"), settings, true)
				if err != nil {
					return nil, err
				}
				files = append(files, file)
			}
		}
		if hasPyright {
			file, err := jsonFile(path.Join(binding.Name, "pyrightconfig.json"), pyright, false)
			if err != nil {
				return nil, err
			}
			files = append(files, file)
		}
		if hasCpp && isDir(in.FS, path.Join(binding.Name, "lib")) {
			file, err := jsonFile(path.Join(binding.Name, ".vscode", "c_cpp_properties.json"), cpp, false)
			if err != nil {
				return nil, err
			}
			files = append(files, file)
		}
		if dotenv {
			files = append(files, File{Path: path.Join(binding.Name, ".env"), Content: dotenvContent(in.Variables)})
		}
	}
	return files, nil
}

var searchPathVariables = []string{"LD_LIBRARY_PATH", "MYPYPATH", "PATH", "PYTHONPATH"}

// dotenvContent lists the search-path variables plus every NAME_DIR whose
// product is set up (SETUP_NAME is present), sorted by name.
func dotenvContent(vars map[string]string) []byte {
	var names []string
	for _, name := range searchPathVariables {
		if _, ok := vars[name]; ok {
			names = append(names, name)
		}
	}
	for name := range vars {
		if product, ok := strings.CutSuffix(name, "_DIR"); ok && product != "" {
			if _, setup := vars["SETUP_"+product]; setup {
				names = append(names, name)
			}
		}
	}
	slices.Sort(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s=%s\n", name, vars[name])
	}
	return []byte(b.String())
}

func isDir(fsys fs.FS, name string) bool {
	info, err := fs.Stat(fsys, name)
	return err == nil && info.IsDir()
}
