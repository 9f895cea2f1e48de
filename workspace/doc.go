// Package workspace realizes a ticket workspace on disk.
//
// A workspace is one directory holding a clone of every repository a ticket
// touches, each checked out on the same branch. The branch name is derived
// from the ticket alone, so every repository in the workspace agrees on it.
//
// # Basic Usage
//
// Build a binder from a version-control client and an environment, then bind
// the requested repositories:
//
//	binder := workspace.NewBinder(git.New(), env, workspace.Options{Jobs: 4})
//	ws, err := binder.Bind(ctx, "DM-1234", []string{"afw", "daf_butler"}, root)
//	if errors.Is(err, workspace.ErrBindFailed) {
//	    // some repositories failed; ws.Bound() still lists the rest
//	}
//
// # Failure Isolation
//
// Every repository is cloned, branched and checked out independently. A
// failure is recorded on that repository's [Binding] as a
// [RepositoryBindError] and never stops its siblings. Requests naming a
// repository the environment does not know fail with
// [UnknownRepositoryError] before anything is created.
//
// # Re-running
//
// Binding is idempotent. Repositories that already exist are not cloned
// again, and repositories already on the ticket branch are left untouched, so
// a workspace can be re-bound after fixing a failure or to add repositories.
//
// # Concurrency
//
// Repositories are bound concurrently by a bounded pool. The result always
// lists bindings in request order, whatever order they finished in. A
// workspace root must not be bound by two processes at once; callers that
// need that guarantee hold a per-ticket lock around Bind.
package workspace
