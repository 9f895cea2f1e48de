package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/amonks/tkt/environment"
	internalstrings "github.com/amonks/tkt/internal/strings"
)

// DefaultJobs caps concurrent repository operations when Options.Jobs is unset.
const DefaultJobs = 8

// VCS is the version-control client a Binder drives.
type VCS interface {
	Exists(path string) bool
	Clone(ctx context.Context, url, dest string) error
	CurrentBranch(ctx context.Context, repoPath string) (string, error)
	HasBranch(ctx context.Context, repoPath, branch string) (bool, error)
	CreateBranch(ctx context.Context, repoPath, branch, baseRef string) error
	Checkout(ctx context.Context, repoPath, branch string) error
}

// Catalog is the part of an environment a Binder consults.
type Catalog interface {
	ResolveRepository(name string) (environment.RepositorySpec, error)
	External(name string) (string, bool)
	BranchName(ticket string) string
}

// Options configures a Binder.
type Options struct {
	// Jobs bounds concurrent repository operations. Zero means
	// min(len(repositories), DefaultJobs).
	Jobs int
	// Branches overrides the derived branch per repository name.
	Branches map[string]string
	// DryRun inspects repositories without cloning or switching branches.
	DryRun bool
	Logger *slog.Logger
}

// Binder clones repositories into a workspace and puts them on the ticket branch.
type Binder struct {
	vcs     VCS
	catalog Catalog
	opts    Options
	logger  *slog.Logger
}

// NewBinder returns a Binder using vcs for repository operations.
func NewBinder(vcs VCS, catalog Catalog, opts Options) *Binder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Binder{vcs: vcs, catalog: catalog, opts: opts, logger: logger}
}

// SanitizeTicket returns ticket in the form used for branch and directory names.
func SanitizeTicket(ticket string) string {
	return internalstrings.SanitizeRefComponent(ticket)
}

type planned struct {
	spec environment.RepositorySpec
}

// Plan is a validated repository request.
type Plan struct {
	repos     []planned
	Externals []External
}

// Repositories returns the repositories the plan clones, in request order.
func (p *Plan) Repositories() []string {
	names := make([]string, 0, len(p.repos))
	for _, repo := range p.repos {
		names = append(names, repo.spec.Name)
	}
	return names
}

// Validate checks a repository request without touching the filesystem.
func (b *Binder) Validate(names []string) (*Plan, error) {
	if len(names) == 0 {
		return nil, ErrNoRepositories
	}

	plan := &Plan{}
	seen := make(map[string]bool, len(names))
	var unknown []string
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRepository, name)
		}
		seen[name] = true

		if path, ok := b.catalog.External(name); ok {
			plan.Externals = append(plan.Externals, External{Name: name, Path: path})
			continue
		}
		spec, err := b.catalog.ResolveRepository(name)
		if err != nil {
			unknown = append(unknown, name)
			continue
		}
		if spec.Name == "" {
			spec.Name = name
		}
		plan.repos = append(plan.repos, planned{spec: spec})
	}
	if len(unknown) > 0 {
		return nil, &UnknownRepositoryError{Names: unknown}
	}
	return plan, nil
}

// Bind validates names and binds every repository under root.
//
// The returned error wraps ErrBindFailed when any repository failed; the
// workspace is returned alongside it and lists every binding.
func (b *Binder) Bind(ctx context.Context, ticket string, names []string, root string) (*Workspace, error) {
	plan, err := b.Validate(names)
	if err != nil {
		return nil, err
	}

	ws := &Workspace{
		Ticket:    ticket,
		Root:      root,
		Bindings:  make([]Binding, len(plan.repos)),
		Externals: plan.Externals,
	}
	if len(plan.repos) == 0 {
		return ws, nil
	}

	if !b.opts.DryRun {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("create workspace root: %w", err)
		}
	}

	jobs := b.opts.Jobs
	if jobs <= 0 {
		jobs = min(len(plan.repos), DefaultJobs)
	}

	var g errgroup.Group
	g.SetLimit(jobs)
	for i, repo := range plan.repos {
		g.Go(func() error {
			ws.Bindings[i] = b.bindOne(ctx, ticket, repo.spec, root)
			return nil
		})
	}
	_ = g.Wait()

	if failed := ws.Failed(); len(failed) > 0 {
		return ws, fmt.Errorf("%w: %d of %d", ErrBindFailed, len(failed), len(ws.Bindings))
	}
	return ws, nil
}

func (b *Binder) branchFor(ticket, name string) string {
	if branch, ok := b.opts.Branches[name]; ok && branch != "" {
		return branch
	}
	return b.catalog.BranchName(ticket)
}

func (b *Binder) bindOne(ctx context.Context, ticket string, spec environment.RepositorySpec, root string) Binding {
	binding := Binding{
		Name:   spec.Name,
		Path:   filepath.Join(root, spec.Name),
		Branch: b.branchFor(ticket, spec.Name),
	}
	logger := b.logger.With("repository", spec.Name, "branch", binding.Branch)

	fail := func(step Step, err error) Binding {
		binding.Action = ActionFailed
		binding.Err = &RepositoryBindError{Repository: spec.Name, Step: step, Err: err}
		logger.Warn("bind failed", "step", string(step), "error", err)
		return binding
	}

	if err := ctx.Err(); err != nil {
		return fail(StepClone, err)
	}

	cloned := false
	if !b.vcs.Exists(binding.Path) {
		if b.opts.DryRun {
			logger.Info("would clone", "url", spec.URL)
			binding.Action = ActionPlanned
			return binding
		}
		logger.Info("cloning", "url", spec.URL)
		if err := b.vcs.Clone(ctx, spec.URL, binding.Path); err != nil {
			return fail(StepClone, err)
		}
		cloned = true
	}

	current, err := b.vcs.CurrentBranch(ctx, binding.Path)
	if err != nil {
		return fail(StepInspect, err)
	}
	if current == binding.Branch {
		binding.Action = ActionUnchanged
		if cloned {
			binding.Action = ActionCloned
		}
		logger.Debug("already on branch")
		return binding
	}

	exists, err := b.vcs.HasBranch(ctx, binding.Path, binding.Branch)
	if err != nil {
		return fail(StepInspect, err)
	}
	if b.opts.DryRun {
		logger.Info("would switch branch", "from", current, "create", !exists)
		binding.Action = ActionPlanned
		return binding
	}

	created := false
	if !exists {
		base := spec.BaseRef()
		logger.Info("creating branch", "base", base)
		if err := b.vcs.CreateBranch(ctx, binding.Path, binding.Branch, base); err != nil {
			return fail(StepBranch, err)
		}
		created = true
	}

	if err := b.vcs.Checkout(ctx, binding.Path, binding.Branch); err != nil {
		return fail(StepCheckout, err)
	}

	switch {
	case cloned:
		binding.Action = ActionCloned
	case created:
		binding.Action = ActionCreated
	default:
		binding.Action = ActionCheckedOut
	}
	logger.Debug("bound", "action", string(binding.Action))
	return binding
}
