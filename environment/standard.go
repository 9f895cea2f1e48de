package environment

import (
	"fmt"
	"path/filepath"
	"strings"

	internalstrings "github.com/amonks/tkt/internal/strings"
)

// Defaults are the values a kind supplies for fields a document omits.
type Defaults struct {
	Kind               string
	DefaultMetapackage string
	DefaultTag         string
	BranchPrefix       string
	Shell              string
}

// Standard is the environment implementation behind the built-in kinds.
type Standard struct {
	kind               string
	name               string
	eupsPath           string
	workspacePath      string
	prelude            string
	shell              string
	defaultTag         string
	defaultMetapackage string
	branchPrefix       string
	declare            bool
	repos              map[string]RepositorySpec
	externals          map[string]string
	editors            map[string]EditorSpec
}

// NewStandard builds a Standard environment from doc, reading the repository
// catalog named by repos_yaml. Other referenced paths are not checked.
func NewStandard(doc *Document, defaults Defaults) (*Standard, error) {
	env := &Standard{
		kind:               defaults.Kind,
		name:               doc.Name,
		eupsPath:           doc.ResolvePath(doc.EupsPath),
		workspacePath:      doc.ResolvePath(doc.WorkspacePath),
		prelude:            doc.EupsPrelude,
		shell:              firstNonEmpty(doc.Shell, defaults.Shell),
		defaultTag:         firstNonEmpty(doc.DefaultTag, defaults.DefaultTag),
		defaultMetapackage: firstNonEmpty(doc.DefaultMetapackage, defaults.DefaultMetapackage),
		branchPrefix:       firstNonEmpty(doc.BranchPrefix, defaults.BranchPrefix),
		declare:            doc.Declare,
		repos:              map[string]RepositorySpec{},
		externals:          map[string]string{},
		editors:            map[string]EditorSpec{},
	}

	if doc.ReposYAML != "" {
		catalog, err := LoadCatalog(doc.ResolvePath(doc.ReposYAML))
		if err != nil {
			return nil, err
		}
		env.repos = catalog
	}
	for _, name := range sortedKeys(doc.Repos) {
		if _, exists := env.repos[name]; exists {
			return nil, configErrorf("repos."+name, "duplicate repository (also defined in repos_yaml)")
		}
		env.repos[name] = doc.Repos[name]
	}

	for name, path := range doc.Externals {
		if _, exists := env.repos[name]; exists {
			return nil, configErrorf("externals."+name, "name is also a catalog repository")
		}
		env.externals[name] = doc.ResolvePath(path)
	}
	for kind, spec := range doc.Editors {
		env.editors[kind] = spec
	}

	return env, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func (e *Standard) Name() string { return e.name }
func (e *Standard) Kind() string { return e.kind }

func (e *Standard) ResolveRepository(name string) (RepositorySpec, error) {
	spec, ok := e.repos[name]
	if !ok {
		return RepositorySpec{}, fmt.Errorf("%w: %s", ErrRepositoryNotFound, name)
	}
	return spec, nil
}

func (e *Standard) Repositories() []string { return sortedKeys(e.repos) }

func (e *Standard) External(name string) (string, bool) {
	path, ok := e.externals[name]
	return path, ok
}

func (e *Standard) Externals() map[string]string {
	result := make(map[string]string, len(e.externals))
	for name, path := range e.externals {
		result[name] = path
	}
	return result
}

func (e *Standard) Editor(kind string) (EditorSpec, error) {
	spec, ok := e.editors[kind]
	if !ok {
		return EditorSpec{}, fmt.Errorf("%w: %s", ErrEditorNotFound, kind)
	}
	return spec, nil
}

func (e *Standard) EditorKinds() []string { return sortedKeys(e.editors) }

// BranchName is the branch prefix followed by the sanitized ticket.
func (e *Standard) BranchName(ticket string) string {
	return e.branchPrefix + internalstrings.SanitizeRefComponent(ticket)
}

func (e *Standard) WorkspaceDir(ticket string) (string, error) {
	if e.workspacePath == "" {
		return "", ErrNoWorkspacePath
	}
	return filepath.Join(e.workspacePath, internalstrings.SanitizeRefComponent(ticket)), nil
}

// MetapackageName is "tkt_" followed by the ticket as an identifier.
func (e *Standard) MetapackageName(ticket string) string {
	return "tkt_" + internalstrings.Identifier(ticket)
}

func (e *Standard) DefaultMetapackage() string { return e.defaultMetapackage }
func (e *Standard) DefaultTag() string         { return e.defaultTag }
func (e *Standard) PackageRoot() string        { return e.eupsPath }
func (e *Standard) Prelude() string            { return e.prelude }
func (e *Standard) Shell() string              { return e.shell }
func (e *Standard) Declare() bool              { return e.declare }
