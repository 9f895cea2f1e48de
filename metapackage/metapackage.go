// Package metapackage derives a ticket's metapackage from a bound workspace.
//
// A metapackage is an EUPS product whose table requires a base product at a
// tag plus every repository bound into the workspace. Setting it up makes the
// workspace checkouts shadow the base release. The descriptor is computed
// from scratch on every run and depends only on the set of successful
// bindings, so equal workspaces produce byte-identical tables.
package metapackage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/amonks/tkt/workspace"
)

var (
	// ErrEmptyWorkspace indicates no repository was bound successfully.
	ErrEmptyWorkspace = errors.New("workspace has no bound repositories")
	// ErrDeclareFailed indicates the package-environment tool rejected a descriptor.
	ErrDeclareFailed = errors.New("declare metapackage")
)

// Naming is the part of an environment that names metapackages.
type Naming interface {
	MetapackageName(ticket string) string
	DefaultMetapackage() string
	DefaultTag() string
}

// Options override the environment's naming.
type Options struct {
	// Product replaces the derived metapackage name.
	Product string
	// Base replaces the environment's default base product.
	Base string
	// Tag replaces the environment's default tag.
	Tag string
}

// Requirement is a product set up at a tag.
type Requirement struct {
	Product string
	Tag     string
}

// Member is a repository pinned by the metapackage.
type Member struct {
	Name   string
	Branch string
}

// External is a product pinned to a directory outside the workspace.
type External struct {
	Name string
	Path string
}

// Descriptor describes a ticket metapackage.
type Descriptor struct {
	Name   string
	Ticket string
	// Root is the workspace root, which is also the product directory.
	Root      string
	Base      Requirement
	Members   []Member
	Externals []External
}

// Synthesize computes the descriptor for the successful bindings of ws.
func Synthesize(ws *workspace.Workspace, naming Naming, opts Options) (*Descriptor, error) {
	bound := ws.Bound()
	if len(bound) == 0 {
		return nil, ErrEmptyWorkspace
	}

	d := &Descriptor{
		Name:   firstNonEmpty(opts.Product, naming.MetapackageName(ws.Ticket)),
		Ticket: ws.Ticket,
		Root:   ws.Root,
		Base: Requirement{
			Product: firstNonEmpty(opts.Base, naming.DefaultMetapackage()),
			Tag:     firstNonEmpty(opts.Tag, naming.DefaultTag()),
		},
	}
	for _, binding := range bound {
		d.Members = append(d.Members, Member{Name: binding.Name, Branch: binding.Branch})
	}
	for _, ext := range ws.Externals {
		d.Externals = append(d.Externals, External{Name: ext.Name, Path: ext.Path})
	}
	sort.Slice(d.Members, func(i, j int) bool { return d.Members[i].Name < d.Members[j].Name })
	sort.Slice(d.Externals, func(i, j int) bool { return d.Externals[i].Name < d.Externals[j].Name })
	return d, nil
}

// TablePath returns the table file location relative to the product directory.
func (d *Descriptor) TablePath() string {
	return filepath.Join("ups", d.Name+".table")
}

// Table renders the descriptor as an EUPS table.
func (d *Descriptor) Table() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s: workspace for %s\n", d.Name, d.Ticket)
	if d.Base.Product != "" {
		if d.Base.Tag != "" {
			fmt.Fprintf(&buf, "setupRequired(%s -t %s)\n", d.Base.Product, d.Base.Tag)
		} else {
			fmt.Fprintf(&buf, "setupRequired(%s)\n", d.Base.Product)
		}
	}
	for _, ext := range d.Externals {
		fmt.Fprintf(&buf, "setupRequired(%s -j -r %s)\n", ext.Name, ext.Path)
	}
	for _, member := range d.Members {
		fmt.Fprintf(&buf, "setupRequired(%s -j -r ${PRODUCT_DIR}/%s)\n", member.Name, member.Name)
	}
	return buf.Bytes()
}

// MemberNames returns the member names in table order.
func (d *Descriptor) MemberNames() []string {
	names := make([]string, len(d.Members))
	for i, member := range d.Members {
		names[i] = member.Name
	}
	return names
}

// Declarer registers a descriptor with the package-environment tool.
type Declarer interface {
	Declare(ctx context.Context, d *Descriptor) error
}

// Register hands d to declarer exactly once.
func Register(ctx context.Context, d *Descriptor, declarer Declarer) error {
	if err := declarer.Declare(ctx, d); err != nil {
		return fmt.Errorf("%w %s: %w", ErrDeclareFailed, d.Name, err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
