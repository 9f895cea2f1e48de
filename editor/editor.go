// Package editor renders editor configuration for a ticket workspace.
//
// Each editor section of an environment names a class. The class turns the
// section's base template, merged with the override fragment of every bound
// repository in workspace order, into a set of files relative to the
// workspace root. Rendering never writes; [WriteFiles] does that.
package editor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/amonks/tkt/environment"
	"github.com/amonks/tkt/workspace"
)

// File is one rendered file.
type File struct {
	// Path is relative to the workspace root, slash separated.
	Path    string
	Content []byte
	// Preserve merges the rendered document over an existing file instead of
	// replacing it, so keys the user added survive.
	Preserve bool
}

// UnsupportedEditorError reports an editor kind that cannot be rendered.
type UnsupportedEditorError struct {
	Kind  string
	Class string
	Err   error
}

func (e *UnsupportedEditorError) Error() string {
	if e.Class != "" {
		return fmt.Sprintf("unsupported editor %q: unknown class %q", e.Kind, e.Class)
	}
	if e.Err != nil {
		return fmt.Sprintf("unsupported editor %q: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("unsupported editor %q", e.Kind)
}

func (e *UnsupportedEditorError) Unwrap() error {
	return e.Err
}

// ErrUnknownClass indicates an editor class that was never registered.
var ErrUnknownClass = errors.New("unknown editor class")

// Source is the part of an environment a Renderer consults.
type Source interface {
	Editor(kind string) (environment.EditorSpec, error)
}

// Input is what a class renders from.
type Input struct {
	Spec      environment.EditorSpec
	Workspace *workspace.Workspace
	// Config is the base template merged with every bound repository's
	// override, placeholders expanded.
	Config map[string]any
	// Overrides holds each bound repository's override fragment with
	// placeholders expanded, keyed by repository name.
	Overrides    map[string]map[string]any
	Placeholders Placeholders
	// FS is rooted at the workspace root and is only read.
	FS fs.FS
	// Variables is the environment the renderer runs in, for classes that
	// export it to the editor.
	Variables map[string]string
}

// Option returns the class option name with placeholders expanded.
func (in *Input) Option(name string) (any, bool) {
	value, ok := in.Spec.Options[name]
	if !ok {
		return nil, false
	}
	return in.Placeholders.Apply(value), true
}

// Class renders one kind of editor configuration.
type Class interface {
	Render(in *Input) ([]File, error)
}

// ClassFunc adapts a function to Class.
type ClassFunc func(in *Input) ([]File, error)

func (f ClassFunc) Render(in *Input) ([]File, error) {
	return f(in)
}

var (
	classesMu sync.RWMutex
	classes   = map[string]Class{}
)

// RegisterClass makes class available under name and aliases.
func RegisterClass(name string, class Class, aliases ...string) {
	classesMu.Lock()
	defer classesMu.Unlock()
	classes[name] = class
	for _, alias := range aliases {
		classes[alias] = class
	}
}

// Classes returns the registered class names, sorted.
func Classes() []string {
	classesMu.RLock()
	defer classesMu.RUnlock()
	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupClass(name string) (Class, bool) {
	classesMu.RLock()
	defer classesMu.RUnlock()
	class, ok := classes[name]
	return class, ok
}

func init() {
	RegisterClass("vscode", ClassFunc(renderVSCode), "VSCode")
	RegisterClass("file", ClassFunc(renderJSONFile), "JSONFile")
}

// Options configures a Renderer.
type Options struct {
	// FS replaces the workspace filesystem classes inspect.
	FS fs.FS
	// Environ replaces os.Environ as the source of Input.Variables.
	Environ func() []string
	Logger  *slog.Logger
}

// Renderer renders editor kinds for bound workspaces.
type Renderer struct {
	fs      fs.FS
	environ func() []string
	logger  *slog.Logger
}

// NewRenderer returns a Renderer.
func NewRenderer(opts Options) *Renderer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ
	}
	return &Renderer{fs: opts.FS, environ: environ, logger: logger}
}

// Render produces the files for editor kind. Only successful bindings
// contribute, in workspace order.
func (r *Renderer) Render(kind string, ws *workspace.Workspace, source Source) ([]File, error) {
	spec, err := source.Editor(kind)
	if err != nil {
		return nil, &UnsupportedEditorError{Kind: kind, Err: err}
	}
	class, ok := lookupClass(spec.Class)
	if !ok {
		return nil, &UnsupportedEditorError{Kind: kind, Class: spec.Class, Err: ErrUnknownClass}
	}

	in := r.input(spec, ws)
	files, err := class.Render(in)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", kind, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (r *Renderer) input(spec environment.EditorSpec, ws *workspace.Workspace) *Input {
	placeholders := Placeholders{Root: ws.Root, Ticket: ws.Ticket, Repos: map[string]string{}}
	for _, binding := range ws.Bound() {
		placeholders.Repos[binding.Name] = binding.Path
	}
	for _, ext := range ws.Externals {
		placeholders.Repos[ext.Name] = ext.Path
	}

	var overlays []map[string]any
	overrides := map[string]map[string]any{}
	for _, binding := range ws.Bound() {
		fragment, ok := spec.Override(binding.Name)
		if !ok {
			continue
		}
		overlays = append(overlays, fragment)
		overrides[binding.Name], _ = placeholders.Apply(fragment).(map[string]any)
	}
	for repo := range spec.Packages {
		if _, ok := placeholders.Repos[repo]; !ok {
			r.logger.Debug("override for repository not in workspace", "editor", spec.Kind, "repository", repo)
		}
	}

	config, _ := placeholders.Apply(MergeObjects(spec.Base, overlays...)).(map[string]any)

	fsys := r.fs
	if fsys == nil {
		fsys = os.DirFS(ws.Root)
	}
	return &Input{
		Spec:         spec,
		Workspace:    ws,
		Config:       config,
		Overrides:    overrides,
		Placeholders: placeholders,
		FS:           fsys,
		Variables:    variables(r.environ()),
	}
}

func variables(environ []string) map[string]string {
	vars := make(map[string]string, len(environ))
	for _, entry := range environ {
		if name, value, ok := strings.Cut(entry, "="); ok && name != "" {
			vars[name] = value
		}
	}
	return vars
}

// Outcome is the result of rendering one editor kind.
type Outcome struct {
	Kind  string
	Files []File
	Err   error
}

// RenderAll renders every kind independently; one failing kind does not stop
// the others.
func (r *Renderer) RenderAll(kinds []string, ws *workspace.Workspace, source Source) []Outcome {
	outcomes := make([]Outcome, 0, len(kinds))
	for _, kind := range kinds {
		files, err := r.Render(kind, ws, source)
		if err != nil {
			r.logger.Warn("render failed", "editor", kind, "error", err)
		}
		outcomes = append(outcomes, Outcome{Kind: kind, Files: files, Err: err})
	}
	return outcomes
}

func marshalJSON(value any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func jsonFile(path string, value any, preserve bool) (File, error) {
	content, err := marshalJSON(value)
	if err != nil {
		return File{}, fmt.Errorf("encode %s: %w", path, err)
	}
	return File{Path: path, Content: content, Preserve: preserve}, nil
}

func validRelativePath(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return fmt.Errorf("path %q must be relative to the workspace", path)
	}
	if !fs.ValidPath(filepath.ToSlash(filepath.Clean(path))) {
		return fmt.Errorf("path %q escapes the workspace", path)
	}
	return nil
}
