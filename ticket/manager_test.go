package ticket_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/amonks/tkt/environment"
	"github.com/amonks/tkt/internal/state"
	"github.com/amonks/tkt/metapackage"
	"github.com/amonks/tkt/ticket"
	"github.com/amonks/tkt/workspace"
)

const envJSON = `{
	"cls": "RubinEnvironment",
	"name": "test-env",
	"repos": {
		"afw": "https://example.com/afw.git",
		"obs_base": "https://example.com/obs_base.git",
		"pipe_base": {"url": "https://example.com/pipe_base.git", "ref": "main"}
	},
	"externals": {"testdata_ci": "/data/testdata_ci"},
	"editors": {
		"vscode": {
			"cls": "VSCode",
			"base": {"settings": {"editor.formatOnSave": true}},
			"pyrightconfig": {"venvPath": "${workspaceRoot}"}
		}
	}
}`

type fakeVCS struct {
	mu       sync.Mutex
	branches map[string]map[string]bool
	current  map[string]string
	clones   []string
	fail     map[string]bool
}

func newFakeVCS() *fakeVCS {
	return &fakeVCS{
		branches: map[string]map[string]bool{},
		current:  map[string]string{},
		fail:     map[string]bool{},
	}
}

func (f *fakeVCS) Exists(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.current[path]
	return ok
}

func (f *fakeVCS) Clone(ctx context.Context, url, dest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[filepath.Base(dest)] {
		return fmt.Errorf("clone %s: connection refused", url)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	f.clones = append(f.clones, filepath.Base(dest))
	f.current[dest] = "main"
	f.branches[dest] = map[string]bool{"main": true}
	return nil
}

func (f *fakeVCS) CurrentBranch(ctx context.Context, repoPath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current[repoPath], nil
}

func (f *fakeVCS) HasBranch(ctx context.Context, repoPath, branch string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.branches[repoPath][branch], nil
}

func (f *fakeVCS) CreateBranch(ctx context.Context, repoPath, branch, baseRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.branches[repoPath][branch] = true
	return nil
}

func (f *fakeVCS) Checkout(ctx context.Context, repoPath, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current[repoPath] = branch
	return nil
}

type fakeDeclarer struct {
	calls int
	err   error
}

func (d *fakeDeclarer) Declare(ctx context.Context, desc *metapackage.Descriptor) error {
	d.calls++
	return d.err
}

type rejectTracker struct{}

func (rejectTracker) ValidateTicket(context.Context, string) (bool, error) {
	return false, nil
}

type fixture struct {
	env      environment.Environment
	vcs      *fakeVCS
	declarer *fakeDeclarer
	store    *state.Store
	root     string
	manager  *ticket.Manager
}

func newFixture(t *testing.T, configure ...func(*ticket.Config)) *fixture {
	t.Helper()
	env, err := environment.Parse([]byte(envJSON), environment.FormatJSON, t.TempDir())
	if err != nil {
		t.Fatalf("parse environment: %v", err)
	}
	f := &fixture{
		env:      env,
		vcs:      newFakeVCS(),
		declarer: &fakeDeclarer{},
		store:    state.NewStore(t.TempDir()),
		root:     filepath.Join(t.TempDir(), "DM-1"),
	}
	cfg := ticket.Config{
		Environment: f.env,
		VCS:         f.vcs,
		Declarer:    f.declarer,
		Store:       f.store,
	}
	for _, fn := range configure {
		fn(&cfg)
	}
	f.manager = ticket.New(cfg)
	return f
}

func (f *fixture) request(repos ...string) ticket.Request {
	return ticket.Request{Ticket: "DM-1", Repositories: repos, Root: f.root}
}

func stages(stages ...ticket.Stage) []ticket.Stage {
	return append([]ticket.Stage{ticket.StageStart}, stages...)
}

func TestCreate_Success(t *testing.T) {
	f := newFixture(t)

	result, err := f.manager.Create(context.Background(), f.request("afw", "testdata_ci", "obs_base"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	expectedStages := stages(ticket.StageValidating, ticket.StageBinding, ticket.StageSynthesizing, ticket.StageRendering, ticket.StageDone)
	if diff := cmp.Diff(expectedStages, result.Stages); diff != "" {
		t.Errorf("stages mismatch (-want +got):\n%s", diff)
	}
	if result.ExitCode() != 0 {
		t.Errorf("expected exit code 0, got %d", result.ExitCode())
	}
	if f.declarer.calls != 1 || !result.Declared {
		t.Errorf("expected one declaration, got %d (declared=%v)", f.declarer.calls, result.Declared)
	}
	if diff := cmp.Diff([]string{"afw", "obs_base"}, result.Metapackage.MemberNames()); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}

	desc, err := workspace.ReadDescription(f.root)
	if err != nil {
		t.Fatalf("read description: %v", err)
	}
	if desc.Product != "tkt_dm_1" || desc.Metapackage != "lsst_distrib" || desc.Tag != "current" {
		t.Errorf("unexpected description metapackage fields: %+v", desc)
	}
	if _, err := os.Stat(filepath.Join(f.root, "DM-1.code-workspace")); err != nil {
		t.Errorf("expected workspace file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.root, "afw", "pyrightconfig.json")); err != nil {
		t.Errorf("expected pyrightconfig: %v", err)
	}

	info, err := f.store.Ticket("DM-1")
	if err != nil {
		t.Fatalf("ticket record: %v", err)
	}
	if info.Status != state.TicketStatusReady || info.Path != f.root || info.Branch != "tickets/DM-1" {
		t.Errorf("unexpected ticket record: %+v", info)
	}
}

func TestCreate_UnknownRepositoryStopsBeforeBinding(t *testing.T) {
	f := newFixture(t)

	result, err := f.manager.Create(context.Background(), f.request("afw", "not_a_repo"))
	var unknown *workspace.UnknownRepositoryError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownRepositoryError, got %v", err)
	}
	var stageErr *ticket.StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != ticket.StageValidating {
		t.Fatalf("expected validating stage error, got %v", err)
	}
	if result.ExitCode() != 1 {
		t.Errorf("expected exit code 1, got %d", result.ExitCode())
	}
	if _, err := os.Stat(f.root); !os.IsNotExist(err) {
		t.Errorf("expected no workspace root, got %v", err)
	}
	if len(f.vcs.clones) != 0 || f.declarer.calls != 0 {
		t.Errorf("expected nothing to run, got clones=%v declares=%d", f.vcs.clones, f.declarer.calls)
	}
}

func TestCreate_AllRepositoriesFail(t *testing.T) {
	f := newFixture(t)
	f.vcs.fail["afw"] = true
	f.vcs.fail["obs_base"] = true

	result, err := f.manager.Create(context.Background(), f.request("afw", "obs_base"))
	if !errors.Is(err, ticket.ErrNothingBound) {
		t.Fatalf("expected ErrNothingBound, got %v", err)
	}
	if result.Stage() != ticket.StageBinding {
		t.Errorf("expected to stop in binding, got %s", result.Stage())
	}
	if result.Metapackage != nil || f.declarer.calls != 0 {
		t.Errorf("expected synthesis not to run")
	}
	if len(result.FailedBindings()) != 2 {
		t.Errorf("expected both failures reported, got %d", len(result.FailedBindings()))
	}
	if result.ExitCode() != 1 {
		t.Errorf("expected exit code 1, got %d", result.ExitCode())
	}
}

func TestCreate_PartialFailureContinues(t *testing.T) {
	f := newFixture(t)
	f.vcs.fail["obs_base"] = true

	result, err := f.manager.Create(context.Background(), f.request("afw", "obs_base"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.Stage() != ticket.StageDone {
		t.Errorf("expected done, got %s", result.Stage())
	}
	if result.ExitCode() != 2 {
		t.Errorf("expected exit code 2, got %d", result.ExitCode())
	}
	if diff := cmp.Diff([]string{"afw"}, result.Metapackage.MemberNames()); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}
	info, err := f.store.Ticket("DM-1")
	if err != nil {
		t.Fatalf("ticket record: %v", err)
	}
	if info.Status != state.TicketStatusPartial {
		t.Errorf("expected partial status, got %q", info.Status)
	}
}

func TestCreate_EditorFailures(t *testing.T) {
	f := newFixture(t)

	req := f.request("afw")
	req.Editors = []string{"vscode", "emacs"}
	result, err := f.manager.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.ExitCode() != 2 {
		t.Errorf("expected soft failure exit code 2, got %d", result.ExitCode())
	}
	failed := result.FailedEditors()
	if len(failed) != 1 || failed[0].Kind != "emacs" {
		t.Errorf("expected only emacs to fail, got %+v", failed)
	}

	req.Editors = []string{"emacs"}
	result, err = f.manager.Create(context.Background(), req)
	if !errors.Is(err, ticket.ErrAllEditorsFailed) {
		t.Fatalf("expected ErrAllEditorsFailed, got %v", err)
	}
	if result.Stage() != ticket.StageRendering || result.ExitCode() != 1 {
		t.Errorf("expected failed rendering with exit code 1, got %s/%d", result.Stage(), result.ExitCode())
	}
}

func TestCreate_DeclareFailureIsSoft(t *testing.T) {
	f := newFixture(t)
	f.declarer.err = errors.New("eups: command not found")

	result, err := f.manager.Create(context.Background(), f.request("afw"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.Declared {
		t.Errorf("expected metapackage not to be declared")
	}
	if !errors.Is(result.DeclareErr, metapackage.ErrDeclareFailed) {
		t.Errorf("expected ErrDeclareFailed, got %v", result.DeclareErr)
	}
	if result.ExitCode() != 2 {
		t.Errorf("expected exit code 2, got %d", result.ExitCode())
	}
}

func TestCreate_TrackerRejects(t *testing.T) {
	f := newFixture(t, func(cfg *ticket.Config) { cfg.Tracker = rejectTracker{} })

	_, err := f.manager.Create(context.Background(), f.request("afw"))
	if !errors.Is(err, ticket.ErrInvalidTicket) {
		t.Fatalf("expected ErrInvalidTicket, got %v", err)
	}
}

func TestCreate_RequiresTicket(t *testing.T) {
	f := newFixture(t)

	result, err := f.manager.Create(context.Background(), ticket.Request{Repositories: []string{"afw"}, Root: f.root})
	if !errors.Is(err, ticket.ErrNoTicket) {
		t.Fatalf("expected ErrNoTicket, got %v", err)
	}
	if result.Stage() != ticket.StageValidating {
		t.Errorf("expected validating, got %s", result.Stage())
	}
}

func TestCreate_RejectsTicketsWithoutUsableCharacters(t *testing.T) {
	for _, id := range []string{".", "-", "///", "_", "~^"} {
		t.Run(id, func(t *testing.T) {
			f := newFixture(t)

			result, err := f.manager.Create(context.Background(), ticket.Request{Ticket: id, Repositories: []string{"afw"}})
			if !errors.Is(err, ticket.ErrInvalidTicket) {
				t.Fatalf("expected ErrInvalidTicket, got %v", err)
			}
			if result.Stage() != ticket.StageValidating {
				t.Errorf("expected validating, got %s", result.Stage())
			}
			if result.Root != "" {
				t.Errorf("expected no workspace root, got %q", result.Root)
			}
			if len(f.vcs.clones) != 0 {
				t.Errorf("expected no clones, got %v", f.vcs.clones)
			}
		})
	}
}

func TestCreate_DryRunWritesNothing(t *testing.T) {
	f := newFixture(t)

	req := f.request("afw")
	req.DryRun = true
	result, err := f.manager.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.Stage() != ticket.StageDone {
		t.Errorf("expected done, got %s", result.Stage())
	}
	if _, err := os.Stat(f.root); !os.IsNotExist(err) {
		t.Errorf("expected no workspace root in dry run, got %v", err)
	}
	if _, err := f.store.Ticket("DM-1"); !errors.Is(err, state.ErrTicketNotFound) {
		t.Errorf("expected no ticket record in dry run, got %v", err)
	}
}

func TestUpdate_AddsRepositories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.manager.Create(ctx, f.request("afw")); err != nil {
		t.Fatalf("create: %v", err)
	}
	result, err := f.manager.Update(ctx, f.root, ticket.Request{Repositories: []string{"pipe_base"}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if diff := cmp.Diff([]string{"afw", "pipe_base"}, f.vcs.clones); diff != "" {
		t.Errorf("clones mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"afw", "pipe_base"}, result.Workspace.BoundNames()); diff != "" {
		t.Errorf("bound mismatch (-want +got):\n%s", diff)
	}
	afw, _ := result.Workspace.Binding("afw")
	if afw.Action != workspace.ActionUnchanged {
		t.Errorf("expected afw to be unchanged, got %q", afw.Action)
	}

	desc, err := workspace.ReadDescription(f.root)
	if err != nil {
		t.Fatalf("read description: %v", err)
	}
	if diff := cmp.Diff([]string{"afw", "pipe_base"}, desc.Names()); diff != "" {
		t.Errorf("description mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdate_RetriesFailedRepositories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.vcs.fail["obs_base"] = true

	if _, err := f.manager.Create(ctx, f.request("afw", "obs_base")); err != nil {
		t.Fatalf("create: %v", err)
	}
	desc, err := workspace.ReadDescription(f.root)
	if err != nil {
		t.Fatalf("read description: %v", err)
	}
	if diff := cmp.Diff([]string{"afw", "obs_base"}, desc.Names()); diff != "" {
		t.Errorf("description after create mismatch (-want +got):\n%s", diff)
	}

	delete(f.vcs.fail, "obs_base")
	result, err := f.manager.Update(ctx, f.root, ticket.Request{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if result.ExitCode() != 0 {
		t.Errorf("expected exit code 0, got %d", result.ExitCode())
	}
	if diff := cmp.Diff([]string{"afw", "obs_base"}, f.vcs.clones); diff != "" {
		t.Errorf("clones mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"afw", "obs_base"}, result.Metapackage.MemberNames()); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}

	desc, err = workspace.ReadDescription(f.root)
	if err != nil {
		t.Fatalf("read description: %v", err)
	}
	if len(desc.Pending) != 0 {
		t.Errorf("expected nothing pending, got %v", desc.Pending)
	}
	info, err := f.store.Ticket("DM-1")
	if err != nil {
		t.Fatalf("ticket record: %v", err)
	}
	if info.Status != state.TicketStatusReady {
		t.Errorf("expected ready status, got %q", info.Status)
	}
}

func TestUpdate_KeepsRecordedChoices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.request("afw")
	req.Branches = map[string]string{"afw": "tickets/DM-0"}
	req.Metapackage = metapackage.Options{Tag: "w_2026_10"}
	if _, err := f.manager.Create(ctx, req); err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := f.manager.Update(ctx, f.root, ticket.Request{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	afw, _ := result.Workspace.Binding("afw")
	if afw.Branch != "tickets/DM-0" {
		t.Errorf("expected recorded branch, got %q", afw.Branch)
	}
	if result.Metapackage.Base.Tag != "w_2026_10" {
		t.Errorf("expected recorded tag, got %q", result.Metapackage.Base.Tag)
	}
}

func TestUpdate_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.Update(ctx, t.TempDir(), ticket.Request{})
	if !errors.Is(err, workspace.ErrNoDescription) {
		t.Fatalf("expected ErrNoDescription, got %v", err)
	}

	if _, err := f.manager.Create(ctx, f.request("afw")); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = f.manager.Update(ctx, f.root, ticket.Request{Ticket: "DM-2"})
	if !errors.Is(err, ticket.ErrTicketMismatch) {
		t.Fatalf("expected ErrTicketMismatch, got %v", err)
	}
}

func TestRender_RewritesEditorFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.manager.Create(ctx, f.request("afw", "obs_base")); err != nil {
		t.Fatalf("create: %v", err)
	}
	workspaceFile := filepath.Join(f.root, "DM-1.code-workspace")
	if err := os.Remove(workspaceFile); err != nil {
		t.Fatalf("remove: %v", err)
	}
	clones := len(f.vcs.clones)

	result, err := f.manager.Render(ctx, f.root, nil, false)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	expectedStages := stages(ticket.StageValidating, ticket.StageRendering, ticket.StageDone)
	if diff := cmp.Diff(expectedStages, result.Stages); diff != "" {
		t.Errorf("stages mismatch (-want +got):\n%s", diff)
	}
	if result.Ticket != "DM-1" {
		t.Errorf("expected ticket from description, got %q", result.Ticket)
	}
	if _, err := os.Stat(workspaceFile); err != nil {
		t.Errorf("expected workspace file to be rewritten: %v", err)
	}
	if len(f.vcs.clones) != clones {
		t.Errorf("expected no repository activity, got clones %v", f.vcs.clones)
	}
}

func TestRender_RequiresDescription(t *testing.T) {
	f := newFixture(t)

	result, err := f.manager.Render(context.Background(), t.TempDir(), nil, false)
	if !errors.Is(err, workspace.ErrNoDescription) {
		t.Fatalf("expected ErrNoDescription, got %v", err)
	}
	if result.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got %d", result.ExitCode())
	}
}

func TestResultExitCode(t *testing.T) {
	failedBinding := workspace.Binding{Name: "x", Err: errors.New("boom")}
	cases := []struct {
		name   string
		result ticket.Result
		want   int
	}{
		{name: "success", result: ticket.Result{Workspace: &workspace.Workspace{}}, want: 0},
		{name: "hard failure", result: ticket.Result{Err: errors.New("stop")}, want: 1},
		{name: "repository failure", result: ticket.Result{Workspace: &workspace.Workspace{Bindings: []workspace.Binding{failedBinding}}}, want: 2},
		{name: "editor failure", result: ticket.Result{Editors: []ticket.EditorResult{{Kind: "vscode", Err: errors.New("bad")}}}, want: 2},
		{name: "declare failure", result: ticket.Result{DeclareErr: errors.New("eups")}, want: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.result.ExitCode(); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}
