package main

import (
	"errors"
	"fmt"

	"github.com/amonks/tkt/internal/state"
	"github.com/amonks/tkt/workspace"
)

// resolveWorkspaceRoot returns the root of the named ticket's workspace, or
// of the workspace containing the current directory when args is empty.
func resolveWorkspaceRoot(args []string) (string, error) {
	if len(args) > 0 {
		store, err := openStore()
		if err != nil {
			return "", err
		}
		info, err := store.Ticket(args[0])
		if errors.Is(err, state.ErrTicketNotFound) {
			return "", fmt.Errorf("no workspace recorded for %s: %w", args[0], err)
		}
		if err != nil {
			return "", err
		}
		return info.Path, nil
	}
	cwd, err := resolvePath("")
	if err != nil {
		return "", err
	}
	return workspace.FindRoot(cwd)
}
