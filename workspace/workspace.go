package workspace

// Action describes what binding did to a repository.
type Action string

const (
	// ActionCloned indicates the repository was cloned and put on the branch.
	ActionCloned Action = "cloned"
	// ActionCreated indicates the branch was created and checked out.
	ActionCreated Action = "created"
	// ActionCheckedOut indicates an existing branch was checked out.
	ActionCheckedOut Action = "checked-out"
	// ActionUnchanged indicates the repository was already on the branch.
	ActionUnchanged Action = "unchanged"
	// ActionPlanned indicates a dry run that changed nothing.
	ActionPlanned Action = "planned"
	// ActionFailed indicates the binding failed.
	ActionFailed Action = "failed"
)

// Binding is the outcome of binding one repository.
type Binding struct {
	Name   string
	Path   string
	Branch string
	Action Action
	// Err is a *RepositoryBindError when binding failed.
	Err error
}

// OK reports whether the repository is on its branch.
func (b Binding) OK() bool {
	return b.Err == nil
}

// External is a requested package provided outside the workspace.
type External struct {
	Name string
	Path string
}

// Workspace is the result of binding a ticket's repositories.
type Workspace struct {
	Ticket string
	Root   string
	// Bindings holds one entry per requested repository, in request order.
	Bindings []Binding
	// Externals holds requested external data packages, in request order.
	Externals []External
}

// Bound returns the successful bindings in request order.
func (w *Workspace) Bound() []Binding {
	var bound []Binding
	for _, binding := range w.Bindings {
		if binding.OK() {
			bound = append(bound, binding)
		}
	}
	return bound
}

// BoundNames returns the names of successful bindings in request order.
func (w *Workspace) BoundNames() []string {
	var names []string
	for _, binding := range w.Bound() {
		names = append(names, binding.Name)
	}
	return names
}

// Failed returns the failed bindings in request order.
func (w *Workspace) Failed() []Binding {
	var failed []Binding
	for _, binding := range w.Bindings {
		if !binding.OK() {
			failed = append(failed, binding)
		}
	}
	return failed
}

// Binding returns the binding for name.
func (w *Workspace) Binding(name string) (Binding, bool) {
	for _, binding := range w.Bindings {
		if binding.Name == name {
			return binding, true
		}
	}
	return Binding{}, false
}
