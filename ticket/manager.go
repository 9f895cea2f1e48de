// Package ticket builds and updates ticket workspaces end to end.
//
// A run moves through validating the request, binding repositories,
// synthesizing and declaring the metapackage, and rendering editor
// configuration. Validation failures stop before anything is created.
// Repository failures are recorded and the run continues with the rest;
// only a run where no repository bound stops at binding. Failures after
// binding leave the workspace on disk for a later re-run.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amonks/tkt/editor"
	"github.com/amonks/tkt/environment"
	"github.com/amonks/tkt/internal/logging"
	"github.com/amonks/tkt/internal/state"
	internalstrings "github.com/amonks/tkt/internal/strings"
	"github.com/amonks/tkt/metapackage"
	"github.com/amonks/tkt/workspace"
)

var (
	// ErrNoTicket indicates an empty ticket identifier.
	ErrNoTicket = errors.New("ticket is required")
	// ErrNothingBound indicates every repository failed to bind.
	ErrNothingBound = errors.New("no repository was bound")
	// ErrAllEditorsFailed indicates every requested editor failed to render.
	ErrAllEditorsFailed = errors.New("every editor failed")
	// ErrTicketMismatch indicates an update named a different ticket than the workspace.
	ErrTicketMismatch = errors.New("ticket does not match workspace")
)

// Request describes the workspace a run should produce.
type Request struct {
	Ticket       string
	Repositories []string
	// Root overrides the environment's workspace directory.
	Root string
	// Branches overrides the derived branch per repository.
	Branches map[string]string
	// Editors selects editor kinds. Nil renders every configured kind.
	Editors     []string
	Metapackage metapackage.Options
	DryRun      bool
}

// Config wires a Manager to its collaborators.
type Config struct {
	Environment environment.Environment
	VCS         workspace.VCS
	Declarer    metapackage.Declarer
	// Store records workspaces and provides the per-ticket lock. Optional.
	Store   *state.Store
	Tracker Tracker
	// Renderer defaults to one reading the workspace root.
	Renderer *editor.Renderer
	Jobs     int
	Logger   *slog.Logger
	Now      func() time.Time
}

// Manager runs the workspace pipeline.
type Manager struct {
	env      environment.Environment
	vcs      workspace.VCS
	declarer metapackage.Declarer
	store    *state.Store
	tracker  Tracker
	renderer *editor.Renderer
	jobs     int
	logger   *slog.Logger
	now      func() time.Time
}

// New returns a Manager.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("ticket")
	}
	tracker := cfg.Tracker
	if tracker == nil {
		tracker = AcceptAll{}
	}
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = editor.NewRenderer(editor.Options{Logger: logger})
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		env:      cfg.Environment,
		vcs:      cfg.VCS,
		declarer: cfg.Declarer,
		store:    cfg.Store,
		tracker:  tracker,
		renderer: renderer,
		jobs:     cfg.Jobs,
		logger:   logger,
		now:      now,
	}
}

// Create builds the workspace for req.Ticket.
//
// The returned error is the Result's Err; the Result is always returned and
// describes whatever was done before the run stopped.
func (m *Manager) Create(ctx context.Context, req Request) (*Result, error) {
	return m.run(ctx, req, nil)
}

// Update re-binds the workspace rooted at dir, adding req.Repositories to the
// ones it already records. Recorded branch and metapackage choices apply
// unless req overrides them.
func (m *Manager) Update(ctx context.Context, dir string, req Request) (*Result, error) {
	desc, err := workspace.ReadDescription(dir)
	if err != nil {
		result := m.newResult(req)
		result.Root = dir
		return result, result.fail(StageValidating, err)
	}
	if req.Ticket != "" && req.Ticket != desc.Ticket {
		result := m.newResult(req)
		result.Root = dir
		return result, result.fail(StageValidating, fmt.Errorf("%w: %s is %s", ErrTicketMismatch, dir, desc.Ticket))
	}

	merged := Request{
		Ticket:       desc.Ticket,
		Repositories: desc.Names(),
		Root:         dir,
		Branches:     desc.Branches(),
		Editors:      req.Editors,
		Metapackage: metapackage.Options{
			Product: firstNonEmpty(req.Metapackage.Product, desc.Product),
			Base:    firstNonEmpty(req.Metapackage.Base, desc.Metapackage),
			Tag:     firstNonEmpty(req.Metapackage.Tag, desc.Tag),
		},
		DryRun: req.DryRun,
	}
	known := map[string]bool{}
	for _, name := range merged.Repositories {
		known[name] = true
	}
	for _, name := range req.Repositories {
		if !known[name] {
			merged.Repositories = append(merged.Repositories, name)
			known[name] = true
		}
	}
	for name, branch := range req.Branches {
		merged.Branches[name] = branch
	}
	return m.run(ctx, merged, desc)
}

func (m *Manager) newResult(req Request) *Result {
	return &Result{
		RunID:  logging.NewRunID(),
		Ticket: req.Ticket,
		DryRun: req.DryRun,
		Stages: []Stage{StageStart},
	}
}

func (r *Result) enter(stage Stage) {
	r.Stages = append(r.Stages, stage)
}

func (r *Result) fail(stage Stage, err error) error {
	if r.Stage() != stage {
		r.enter(stage)
	}
	r.Err = &StageError{Stage: stage, Err: err}
	return r.Err
}

func (m *Manager) run(ctx context.Context, req Request, previous *workspace.Description) (*Result, error) {
	result := m.newResult(req)
	logger := logging.WithRun(m.logger, result.RunID).With("ticket", req.Ticket)

	// Validating
	result.enter(StageValidating)
	if internalstrings.IsBlank(req.Ticket) {
		return result, result.fail(StageValidating, ErrNoTicket)
	}
	if internalstrings.SanitizeRefComponent(req.Ticket) == "" || internalstrings.Identifier(req.Ticket) == "" {
		return result, result.fail(StageValidating, fmt.Errorf("%w: %q has no usable characters", ErrInvalidTicket, req.Ticket))
	}
	ok, err := m.tracker.ValidateTicket(ctx, req.Ticket)
	if err != nil {
		return result, result.fail(StageValidating, fmt.Errorf("validate ticket: %w", err))
	}
	if !ok {
		return result, result.fail(StageValidating, fmt.Errorf("%w: %s", ErrInvalidTicket, req.Ticket))
	}
	root := req.Root
	if root == "" {
		root, err = m.env.WorkspaceDir(req.Ticket)
		if err != nil {
			return result, result.fail(StageValidating, err)
		}
	}
	result.Root = root

	binder := workspace.NewBinder(m.vcs, m.env, workspace.Options{
		Jobs:     m.jobs,
		Branches: req.Branches,
		DryRun:   req.DryRun,
		Logger:   logger,
	})
	if _, err := binder.Validate(req.Repositories); err != nil {
		return result, result.fail(StageValidating, err)
	}

	// Binding
	result.enter(StageBinding)
	logger.Info("binding", "root", root, "repositories", len(req.Repositories))
	ws, err := m.bind(ctx, binder, req, root)
	result.Workspace = ws
	if err != nil && !errors.Is(err, workspace.ErrBindFailed) {
		return result, result.fail(StageBinding, err)
	}
	if len(ws.Bound()) == 0 {
		m.record(result, req, state.TicketStatusFailed)
		return result, result.fail(StageBinding, ErrNothingBound)
	}
	for _, binding := range ws.Failed() {
		logger.Warn("repository not bound", "repository", binding.Name, "error", binding.Err)
	}

	// Synthesizing
	result.enter(StageSynthesizing)
	descriptor, err := metapackage.Synthesize(ws, m.env, req.Metapackage)
	if err != nil {
		return result, result.fail(StageSynthesizing, err)
	}
	result.Metapackage = descriptor
	if !req.DryRun {
		if err := m.describe(ws, descriptor, req, previous); err != nil {
			return result, result.fail(StageSynthesizing, err)
		}
	}
	if m.declarer != nil {
		if err := metapackage.Register(ctx, descriptor, m.declarer); err != nil {
			logger.Warn("metapackage not declared", "error", err)
			result.DeclareErr = err
		} else {
			result.Declared = !req.DryRun
		}
	}

	// Rendering
	if err := m.render(result, ws, req.Editors, req.DryRun, logger); err != nil {
		m.record(result, req, state.TicketStatusPartial)
		return result, err
	}

	result.enter(StageDone)
	status := state.TicketStatusReady
	if result.Partial() {
		status = state.TicketStatusPartial
	}
	m.record(result, req, status)
	logger.Info("done", "bound", len(ws.Bound()), "failed", len(ws.Failed()))
	return result, nil
}

// Render re-renders editor configuration for the workspace rooted at dir
// from its recorded description, without binding repositories or touching
// the metapackage. Nil editors renders every configured kind.
func (m *Manager) Render(ctx context.Context, dir string, editors []string, dryRun bool) (*Result, error) {
	result := m.newResult(Request{DryRun: dryRun})
	result.Root = dir
	result.enter(StageValidating)
	desc, err := workspace.ReadDescription(dir)
	if err != nil {
		return result, result.fail(StageValidating, err)
	}
	if err := ctx.Err(); err != nil {
		return result, result.fail(StageValidating, err)
	}
	result.Ticket = desc.Ticket
	result.Workspace = desc.Workspace(dir)
	logger := logging.WithRun(m.logger, result.RunID).With("ticket", desc.Ticket)

	if err := m.render(result, result.Workspace, editors, dryRun, logger); err != nil {
		return result, err
	}
	result.enter(StageDone)
	return result, nil
}

// render runs the rendering stage, writing files unless dryRun.
func (m *Manager) render(result *Result, ws *workspace.Workspace, kinds []string, dryRun bool, logger *slog.Logger) error {
	result.enter(StageRendering)
	if kinds == nil {
		kinds = m.env.EditorKinds()
	}
	for _, outcome := range m.renderer.RenderAll(kinds, ws, m.env) {
		editorResult := EditorResult{Kind: outcome.Kind, Err: outcome.Err}
		if outcome.Err == nil {
			for _, file := range outcome.Files {
				editorResult.Files = append(editorResult.Files, file.Path)
			}
			if !dryRun {
				if err := editor.WriteFiles(ws.Root, outcome.Files); err != nil {
					logger.Warn("editor files not written", "editor", outcome.Kind, "error", err)
					editorResult.Err = err
				}
			}
		}
		result.Editors = append(result.Editors, editorResult)
	}
	if len(kinds) > 0 && len(result.FailedEditors()) == len(kinds) {
		return result.fail(StageRendering, ErrAllEditorsFailed)
	}
	return nil
}

// bind holds the per-ticket lock around binding when a store is configured.
func (m *Manager) bind(ctx context.Context, binder *workspace.Binder, req Request, root string) (*workspace.Workspace, error) {
	if m.store != nil && !req.DryRun {
		unlock, err := m.store.LockTicket(req.Ticket)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}
	return binder.Bind(ctx, req.Ticket, req.Repositories, root)
}

func (m *Manager) describe(ws *workspace.Workspace, d *metapackage.Descriptor, req Request, previous *workspace.Description) error {
	desc := workspace.Describe(ws)
	desc.Environment = m.env.Name()
	desc.Metapackage = d.Base.Product
	desc.Tag = d.Base.Tag
	desc.Product = d.Name
	if previous != nil {
		desc.Merge(previous)
	}
	return workspace.WriteDescription(ws.Root, desc)
}

func (m *Manager) record(result *Result, req Request, status state.TicketStatus) {
	if m.store == nil || req.DryRun {
		return
	}
	info := state.TicketInfo{
		Ticket:      result.Ticket,
		Path:        result.Root,
		Environment: m.env.Name(),
		Branch:      m.env.BranchName(result.Ticket),
		Status:      status,
		LastRunID:   result.RunID,
		UpdatedAt:   m.now(),
	}
	if result.Metapackage != nil {
		info.Metapackage = result.Metapackage.Name
	}
	if result.Workspace != nil {
		info.Repositories = result.Workspace.BoundNames()
	}
	if err := m.store.PutTicket(info); err != nil {
		m.logger.Warn("workspace not recorded", "ticket", result.Ticket, "error", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
