package main

import (
	"github.com/spf13/cobra"
)

var renderOpts struct {
	editors []string
	dryRun  bool
}

var renderCmd = &cobra.Command{
	Use:   "render [TICKET]",
	Short: "Re-render editor configuration for a workspace",
	Long: `Re-render editor configuration for a workspace.

Repositories are not touched; the workspace is read from its tkt.json.
Without TICKET the workspace containing the current directory is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringSliceVar(&renderOpts.editors, "editor", nil, "editor kinds to render (default all configured)")
	renderCmd.Flags().BoolVarP(&renderOpts.dryRun, "dry-run", "n", false, "report files without writing them")
}

func runRender(cmd *cobra.Command, args []string) error {
	root, err := resolveWorkspaceRoot(args)
	if err != nil {
		return err
	}
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	manager, err := newManager(env, 0, renderOpts.dryRun)
	if err != nil {
		return err
	}

	editors := userConfig.Editors
	if hasChangedFlags(cmd, "editor") {
		editors = append([]string{}, renderOpts.editors...)
	}
	result, _ := manager.Render(cmd.Context(), root, editors, renderOpts.dryRun)
	return finishRun(cmd, result, "", "")
}
