package main

import (
	"github.com/spf13/cobra"

	"github.com/amonks/tkt/workspace"
)

var updateOpts struct {
	workspaceFlags
	directory string
}

var updateCmd = &cobra.Command{
	Use:   "update [REPO...]",
	Short: "Add repositories to an existing workspace and re-bind it",
	Long: `Add repositories to an existing workspace and re-bind it.

The workspace is found from --directory or the current directory by
looking for tkt.json. Repositories, branches and metapackage choices it
records are kept unless overridden by flags.`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
	addWorkspaceFlags(updateCmd, &updateOpts.workspaceFlags)
	updateCmd.Flags().StringVarP(&updateOpts.directory, "directory", "d", "", "directory inside the workspace (default current directory)")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	start, err := resolvePath(updateOpts.directory)
	if err != nil {
		return err
	}
	root, err := workspace.FindRoot(start)
	if err != nil {
		return err
	}

	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	manager, err := newManager(env, updateOpts.jobLimit(cmd), updateOpts.dryRun)
	if err != nil {
		return err
	}

	result, _ := manager.Update(cmd.Context(), root, updateOpts.request(cmd, "", args))
	return finishRun(cmd, result, "on-update", userConfig.Hooks.OnUpdate)
}
