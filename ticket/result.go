package ticket

import (
	"github.com/amonks/tkt/metapackage"
	"github.com/amonks/tkt/workspace"
)

// EditorResult is the outcome of rendering one editor kind.
type EditorResult struct {
	Kind string
	// Files lists written paths relative to the workspace root.
	Files []string
	Err   error
}

// Result reports everything a run did, including partial work.
type Result struct {
	RunID  string
	Ticket string
	Root   string
	DryRun bool
	// Stages lists every stage entered, in order.
	Stages []Stage
	// Err is set when the run stopped before StageDone; it is a *StageError.
	Err error

	Workspace   *workspace.Workspace
	Metapackage *metapackage.Descriptor
	Declared    bool
	DeclareErr  error
	Editors     []EditorResult
}

// Stage returns the last stage the run entered.
func (r *Result) Stage() Stage {
	if len(r.Stages) == 0 {
		return StageStart
	}
	return r.Stages[len(r.Stages)-1]
}

// Failed reports whether the run stopped before StageDone.
func (r *Result) Failed() bool {
	return r.Err != nil
}

// Bound returns the successful bindings.
func (r *Result) Bound() []workspace.Binding {
	if r.Workspace == nil {
		return nil
	}
	return r.Workspace.Bound()
}

// FailedBindings returns the failed bindings.
func (r *Result) FailedBindings() []workspace.Binding {
	if r.Workspace == nil {
		return nil
	}
	return r.Workspace.Failed()
}

// FailedEditors returns the editor kinds that did not render.
func (r *Result) FailedEditors() []EditorResult {
	var failed []EditorResult
	for _, editor := range r.Editors {
		if editor.Err != nil {
			failed = append(failed, editor)
		}
	}
	return failed
}

// Partial reports a completed run where some repository, editor or the
// metapackage declaration failed.
func (r *Result) Partial() bool {
	return len(r.FailedBindings()) > 0 || len(r.FailedEditors()) > 0 || r.DeclareErr != nil
}

// ExitCode is 0 for full success, 1 when the run stopped early and 2 when it
// completed with failures.
func (r *Result) ExitCode() int {
	switch {
	case r.Failed():
		return 1
	case r.Partial():
		return 2
	default:
		return 0
	}
}
