// Package environment loads the organization-specific description of where
// repositories come from, where ticket workspaces live, and which editor
// integrations are enabled.
//
// An environment document names a kind (through `kind`, or the `module`/`cls`
// pair), a repository catalog, externally managed data packages and editor
// sections:
//
//	{
//	    "module": "tkt.rubin",
//	    "cls": "RubinEnvironment",
//	    "name": "rubin-dev",
//	    "eups_path": "~/eups",
//	    "repos_yaml": "~/repos.yaml",
//	    "workspace_path": "~/tickets",
//	    "eups_prelude": "source ~/stack/loadLSST.bash",
//	    "externals": {"testdata_ci_hsc": "/data/testdata_ci_hsc"},
//	    "editors": {"vscode": {"cls": "VSCode", "base": {}, "packages": {}}}
//	}
//
// Documents may be JSON, JSONC, TOML or YAML; the format follows the file
// extension. Kinds are resolved through a registry populated by [Register].
package environment

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrRepositoryNotFound indicates a repository is absent from the catalog.
	ErrRepositoryNotFound = errors.New("repository not found")
	// ErrEditorNotFound indicates no editor section exists for a kind.
	ErrEditorNotFound = errors.New("editor not configured")
	// ErrNoWorkspacePath indicates the environment has no workspace_path.
	ErrNoWorkspacePath = errors.New("environment has no workspace_path")
)

// Environment describes one organizational environment.
type Environment interface {
	// Name identifies the environment in logs and workspace records.
	Name() string
	// Kind is the registered kind the environment was built from.
	Kind() string

	// ResolveRepository looks up a repository in the catalog.
	ResolveRepository(name string) (RepositorySpec, error)
	// Repositories returns every catalog name, sorted.
	Repositories() []string

	// External returns the filesystem location of an external data package.
	External(name string) (string, bool)
	// Externals returns a copy of the external data package map.
	Externals() map[string]string

	// Editor returns the editor section for kind.
	Editor(kind string) (EditorSpec, error)
	// EditorKinds returns every configured editor kind, sorted.
	EditorKinds() []string

	// BranchName derives the branch every repository of a ticket uses.
	BranchName(ticket string) string
	// WorkspaceDir returns the default workspace root for a ticket.
	WorkspaceDir(ticket string) (string, error)
	// MetapackageName derives the name the workspace is declared under.
	MetapackageName(ticket string) string
	// DefaultMetapackage is the product the workspace metapackage builds on.
	DefaultMetapackage() string
	// DefaultTag is the tag used to set up DefaultMetapackage.
	DefaultTag() string

	// PackageRoot is the package-environment root (eups_path).
	PackageRoot() string
	// Prelude is the shell snippet run before package-environment commands.
	Prelude() string
	// Shell runs Prelude.
	Shell() string
	// Declare reports whether the metapackage is declared with eups after
	// its table is written.
	Declare() bool
}

// RepositorySpec is one repository catalog entry.
type RepositorySpec struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	// Ref is the branch new ticket branches start from. Empty means the
	// remote's default branch.
	Ref string `json:"ref,omitempty"`
}

// BaseRef returns the ref ticket branches are created from in a fresh clone.
func (r RepositorySpec) BaseRef() string {
	if r.Ref == "" {
		return "origin/HEAD"
	}
	return "origin/" + r.Ref
}

// EditorSpec is one editor section of an environment document.
type EditorSpec struct {
	// Kind is the key the section is stored under.
	Kind string
	// Module is carried for compatibility and otherwise unused.
	Module string
	// Class selects the editor implementation. Defaults to Kind.
	Class string
	// Base is the template every render starts from.
	Base map[string]any
	// Packages holds per-repository override fragments.
	Packages map[string]map[string]any
	// Options holds every other key of the section.
	Options map[string]any
}

// Override returns the override fragment for repo, if any.
func (e EditorSpec) Override(repo string) (map[string]any, bool) {
	fragment, ok := e.Packages[repo]
	return fragment, ok
}

// ConfigError reports a malformed or incomplete environment document.
type ConfigError struct {
	// Path is the document the error was found in, if known.
	Path string
	// Field is the offending key, dotted for nested sections.
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	prefix := "environment config"
	if e.Path != "" {
		prefix = fmt.Sprintf("environment config %s", e.Path)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
