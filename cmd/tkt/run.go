package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amonks/tkt/environment"
	"github.com/amonks/tkt/internal/config"
	"github.com/amonks/tkt/internal/eups"
	"github.com/amonks/tkt/internal/git"
	"github.com/amonks/tkt/internal/logging"
	"github.com/amonks/tkt/internal/ui"
	"github.com/amonks/tkt/ticket"
)

// newManager wires a ticket manager to git, eups and the state store.
func newManager(env environment.Environment, jobs int, dryRun bool) (*ticket.Manager, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	declarer := eups.New(eups.Options{
		PackageRoot: env.PackageRoot(),
		Prelude:     env.Prelude(),
		Shell:       env.Shell(),
		Declare:     env.Declare(),
		DryRun:      dryRun,
		Logger:      logging.New("eups"),
	})
	return ticket.New(ticket.Config{
		Environment: env,
		VCS:         git.New(),
		Declarer:    declarer,
		Store:       store,
		Jobs:        jobs,
		Logger:      logging.New("ticket"),
	}), nil
}

// finishRun prints the summary of a run, runs the hook script when the run
// produced a workspace, and converts the outcome to an exit status.
func finishRun(cmd *cobra.Command, result *ticket.Result, hookName, hook string) error {
	writeSummary(cmd.OutOrStdout(), result, ui.TerminalWidth(80))
	if hook == "" || result.Failed() || result.DryRun {
		return exitFromResult(result)
	}

	env := []string{"TKT_TICKET=" + result.Ticket, "TKT_WORKSPACE=" + result.Root}
	if result.Metapackage != nil {
		env = append(env, "TKT_PRODUCT="+result.Metapackage.Name)
	}
	if err := config.RunScript(cmd.Context(), result.Root, hook, env, cmd.OutOrStdout(), cmd.ErrOrStderr()); err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "\nhook %s: %s %v\n", hookName, ui.Status("failed"), err)
		return exitError{code: 2}
	}
	return exitFromResult(result)
}
