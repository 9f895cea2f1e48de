package workspace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/amonks/tkt/internal/state"
)

// DescriptionFile is the name of the workspace description in a workspace root.
const DescriptionFile = "tkt.json"

// Description is the persisted summary of a ticket workspace.
type Description struct {
	Ticket      string         `json:"ticket"`
	Environment string         `json:"environment,omitempty"`
	Packages    []PackageEntry `json:"packages"`
	// Pending lists requested repositories that have not bound yet. Updates
	// retry them.
	Pending     []PackageEntry    `json:"pending,omitempty"`
	Externals   map[string]string `json:"externals,omitempty"`
	Metapackage string            `json:"metapackage,omitempty"`
	Tag         string            `json:"tag,omitempty"`
	Product     string            `json:"workspace_eups_product,omitempty"`
}

// PackageEntry records one repository and the branch it was bound to.
type PackageEntry struct {
	Name   string `json:"name"`
	Branch string `json:"branch"`
}

// Describe summarizes ws. Failed bindings are recorded as pending.
func Describe(ws *Workspace) *Description {
	desc := &Description{Ticket: ws.Ticket, Packages: []PackageEntry{}}
	for _, binding := range ws.Bindings {
		entry := PackageEntry{Name: binding.Name, Branch: binding.Branch}
		if binding.OK() {
			desc.Packages = append(desc.Packages, entry)
		} else {
			desc.Pending = append(desc.Pending, entry)
		}
	}
	if len(ws.Externals) > 0 {
		desc.Externals = make(map[string]string, len(ws.Externals))
		for _, ext := range ws.Externals {
			desc.Externals[ext.Name] = ext.Path
		}
	}
	return desc
}

// UnmarshalJSON also accepts the older layout, where packages is an object
// of name to branch and externals a list of names.
func (d *Description) UnmarshalJSON(data []byte) error {
	type plain Description
	var raw struct {
		plain
		Packages  json.RawMessage `json:"packages"`
		Externals json.RawMessage `json:"externals"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = Description(raw.plain)

	packages, err := decodePackages(raw.Packages)
	if err != nil {
		return fmt.Errorf("packages: %w", err)
	}
	d.Packages = packages
	externals, err := decodeExternals(raw.Externals)
	if err != nil {
		return fmt.Errorf("externals: %w", err)
	}
	d.Externals = externals
	return nil
}

func decodePackages(data json.RawMessage) ([]PackageEntry, error) {
	if isNull(data) {
		return nil, nil
	}
	if data[0] == '{' {
		var branches map[string]string
		if err := json.Unmarshal(data, &branches); err != nil {
			return nil, err
		}
		entries := make([]PackageEntry, 0, len(branches))
		for _, name := range sortedNames(branches) {
			entries = append(entries, PackageEntry{Name: name, Branch: branches[name]})
		}
		return entries, nil
	}
	var entries []PackageEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// decodeExternals leaves the path empty for externals recorded by name only;
// binding resolves it from the environment.
func decodeExternals(data json.RawMessage) (map[string]string, error) {
	if isNull(data) {
		return nil, nil
	}
	if data[0] == '[' {
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, nil
		}
		externals := make(map[string]string, len(names))
		for _, name := range names {
			externals[name] = ""
		}
		return externals, nil
	}
	var externals map[string]string
	if err := json.Unmarshal(data, &externals); err != nil {
		return nil, err
	}
	return externals, nil
}

func isNull(data json.RawMessage) bool {
	data = bytes.TrimSpace(data)
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}

// Names returns the recorded repository, pending and external names.
func (d *Description) Names() []string {
	names := make([]string, 0, len(d.Packages)+len(d.Pending)+len(d.Externals))
	for _, pkg := range d.Packages {
		names = append(names, pkg.Name)
	}
	for _, pkg := range d.Pending {
		names = append(names, pkg.Name)
	}
	names = append(names, d.ExternalNames()...)
	return names
}

// ExternalNames returns the recorded external names, sorted.
func (d *Description) ExternalNames() []string {
	return sortedNames(d.Externals)
}

// Branches returns the recorded branch for each bound or pending repository.
func (d *Description) Branches() map[string]string {
	branches := make(map[string]string, len(d.Packages)+len(d.Pending))
	for _, pkg := range d.Pending {
		if pkg.Branch != "" {
			branches[pkg.Name] = pkg.Branch
		}
	}
	for _, pkg := range d.Packages {
		branches[pkg.Name] = pkg.Branch
	}
	return branches
}

// Merge adds entries from other that d does not already record. A
// repository other records as bound stays bound even if it is pending in d,
// since its clone is still on disk.
func (d *Description) Merge(other *Description) {
	bound := map[string]bool{}
	for _, pkg := range d.Packages {
		bound[pkg.Name] = true
	}
	for _, pkg := range other.Packages {
		if bound[pkg.Name] {
			continue
		}
		d.Packages = append(d.Packages, pkg)
		bound[pkg.Name] = true
		d.Pending = slices.DeleteFunc(d.Pending, func(p PackageEntry) bool { return p.Name == pkg.Name })
	}
	pending := map[string]bool{}
	for _, pkg := range d.Pending {
		pending[pkg.Name] = true
	}
	for _, pkg := range other.Pending {
		if !bound[pkg.Name] && !pending[pkg.Name] {
			d.Pending = append(d.Pending, pkg)
			pending[pkg.Name] = true
		}
	}
	for name, path := range other.Externals {
		if d.Externals == nil {
			d.Externals = map[string]string{}
		}
		if _, ok := d.Externals[name]; !ok {
			d.Externals[name] = path
		}
	}
}

// Workspace reconstructs the workspace rooted at root from the recorded
// packages, without touching the repositories.
func (d *Description) Workspace(root string) *Workspace {
	ws := &Workspace{Ticket: d.Ticket, Root: root}
	for _, pkg := range d.Packages {
		ws.Bindings = append(ws.Bindings, Binding{
			Name:   pkg.Name,
			Path:   filepath.Join(root, pkg.Name),
			Branch: pkg.Branch,
			Action: ActionUnchanged,
		})
	}
	for _, name := range sortedNames(d.Externals) {
		ws.Externals = append(ws.Externals, External{Name: name, Path: d.Externals[name]})
	}
	return ws
}

// ReadDescription loads the description from the workspace root dir.
func ReadDescription(dir string) (*Description, error) {
	path := filepath.Join(dir, DescriptionFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w in %s", ErrNoDescription, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", DescriptionFile, err)
	}

	var desc Description
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if desc.Ticket == "" {
		return nil, fmt.Errorf("parse %s: missing ticket", path)
	}
	return &desc, nil
}

// FindRoot returns the nearest directory at or above path holding a
// workspace description.
func FindRoot(path string) (string, error) {
	dir := filepath.Clean(path)
	for {
		if _, err := os.Stat(filepath.Join(dir, DescriptionFile)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w at or above %s", ErrNoDescription, path)
		}
		dir = parent
	}
}

// WriteDescription writes desc into the workspace root dir.
func WriteDescription(dir string, desc *Description) error {
	data, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal description: %w", err)
	}
	data = append(data, '\n')
	if err := state.WriteFileAtomic(filepath.Join(dir, DescriptionFile), data); err != nil {
		return fmt.Errorf("write %s: %w", DescriptionFile, err)
	}
	return nil
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
