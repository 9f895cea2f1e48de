package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amonks/tkt/editor"
	"github.com/amonks/tkt/environment"
	"github.com/amonks/tkt/internal/launch"
	"github.com/amonks/tkt/internal/ui"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Inspect and edit the environment file",
}

var envShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the loaded environment",
	Args:  cobra.NoArgs,
	RunE:  runEnvShow,
}

var envEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the environment file in $EDITOR and check it",
	Args:  cobra.NoArgs,
	RunE:  runEnvEdit,
}

var envKindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List environment kinds and editor classes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "environments: %s\n", strings.Join(environment.Kinds(), ", "))
		fmt.Fprintf(w, "editors: %s\n", strings.Join(editor.Classes(), ", "))
	},
}

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.AddCommand(envShowCmd, envEditCmd, envKindsCmd)
}

func runEnvShow(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	writeEnvironment(cmd.OutOrStdout(), env)
	return nil
}

func runEnvEdit(cmd *cobra.Command, args []string) error {
	path, err := resolveEnvironmentPath()
	if err != nil {
		return err
	}
	if !launch.IsInteractive() {
		return launch.ErrNotInteractive
	}
	if err := launch.Edit(path); err != nil {
		return err
	}
	env, err := environment.Load(path)
	if err != nil {
		return fmt.Errorf("%s no longer loads: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, ui.Status("ok"))
	writeEnvironment(cmd.OutOrStdout(), env)
	return nil
}

func writeEnvironment(w io.Writer, env environment.Environment) {
	fmt.Fprintln(w, ui.Heading(env.Name()))
	fmt.Fprintf(w, "kind: %s\n", env.Kind())
	if dir, err := env.WorkspaceDir("TICKET"); err == nil {
		fmt.Fprintf(w, "workspaces: %s\n", dir)
	}
	fmt.Fprintf(w, "branch: %s\n", env.BranchName("TICKET"))
	base := env.DefaultMetapackage()
	if tag := env.DefaultTag(); tag != "" {
		base += " -t " + tag
	}
	fmt.Fprintf(w, "metapackage: %s requires %s\n", env.MetapackageName("TICKET"), base)
	if root := env.PackageRoot(); root != "" {
		fmt.Fprintf(w, "eups path: %s (declare %v)\n", root, env.Declare())
	}
	if kinds := env.EditorKinds(); len(kinds) > 0 {
		fmt.Fprintf(w, "editors: %s\n", strings.Join(kinds, ", "))
	}

	names := env.Repositories()
	externals := env.Externals()
	builder := ui.NewTableBuilder([]string{"NAME", "SOURCE", "BASE"}, len(names)+len(externals))
	for _, name := range names {
		spec, err := env.ResolveRepository(name)
		if err != nil {
			continue
		}
		builder.AddRow(name, spec.URL, spec.BaseRef())
	}
	externalNames := make([]string, 0, len(externals))
	for name := range externals {
		externalNames = append(externalNames, name)
	}
	slices.Sort(externalNames)
	for _, name := range externalNames {
		builder.AddRow(name, externals[name], "external")
	}
	if builder.Len() > 0 {
		fmt.Fprintln(w)
		fmt.Fprint(w, builder.String())
	}
}
