package main

import (
	"github.com/spf13/cobra"
)

var newOpts struct {
	workspaceFlags
	directory string
}

var newCmd = &cobra.Command{
	Use:   "new TICKET [REPO...]",
	Short: "Create the workspace for a ticket",
	Long: `Create the workspace for a ticket.

Each repository is cloned into the workspace if needed and put on the
ticket branch. Repositories that fail are reported and the rest continue.
The workspace metapackage is written and, when the environment asks for
it, declared. Editor configuration is rendered last, then the on-create
hook from the config file runs in the workspace root.

Exit status is 0 on success, 1 when nothing usable was produced and 2
when the workspace was built with some failures.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNew,
}

func init() {
	rootCmd.AddCommand(newCmd)
	addWorkspaceFlags(newCmd, &newOpts.workspaceFlags)
	newCmd.Flags().StringVarP(&newOpts.directory, "directory", "d", "", "workspace root (default from the environment)")
}

func runNew(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	manager, err := newManager(env, newOpts.jobLimit(cmd), newOpts.dryRun)
	if err != nil {
		return err
	}

	req := newOpts.request(cmd, args[0], args[1:])
	if newOpts.directory != "" {
		req.Root, err = resolvePath(newOpts.directory)
		if err != nil {
			return err
		}
	}

	result, _ := manager.Create(cmd.Context(), req)
	return finishRun(cmd, result, "on-create", userConfig.Hooks.OnCreate)
}
