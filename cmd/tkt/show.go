package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/amonks/tkt/internal/git"
	"github.com/amonks/tkt/internal/markdown"
	"github.com/amonks/tkt/internal/state"
	"github.com/amonks/tkt/internal/ui"
	"github.com/amonks/tkt/workspace"
)

var showCmd = &cobra.Command{
	Use:   "show [TICKET]",
	Short: "Show a ticket workspace",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	root, err := resolveWorkspaceRoot(args)
	if err != nil {
		return err
	}
	desc, err := workspace.ReadDescription(root)
	if err != nil {
		return err
	}

	var info *state.TicketInfo
	store, err := openStore()
	if err != nil {
		return err
	}
	recorded, ok, err := store.TicketForPath(root)
	if err != nil {
		return err
	}
	if ok {
		info = &recorded
	}

	repos := inspectRepositories(cmd.Context(), git.New(), root, desc)
	doc := formatWorkspaceMarkdown(root, desc, info, repos, time.Now())
	out := markdown.Render(ui.TerminalWidth(80), 0, []byte(doc))
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// repositoryState is what a workspace repository is on right now.
type repositoryState struct {
	Missing bool
	Branch  string
	Commit  string
	Err     error
}

type repositoryInspector interface {
	Exists(path string) bool
	CurrentBranch(ctx context.Context, repoPath string) (string, error)
	RevParse(ctx context.Context, repoPath, rev string) (string, error)
}

func inspectRepositories(ctx context.Context, vcs repositoryInspector, root string, desc *workspace.Description) map[string]repositoryState {
	states := make(map[string]repositoryState, len(desc.Packages))
	for _, pkg := range desc.Packages {
		path := filepath.Join(root, pkg.Name)
		if !vcs.Exists(path) {
			states[pkg.Name] = repositoryState{Missing: true}
			continue
		}
		var st repositoryState
		st.Branch, st.Err = vcs.CurrentBranch(ctx, path)
		if st.Err == nil {
			st.Commit, st.Err = vcs.RevParse(ctx, path, "HEAD")
		}
		states[pkg.Name] = st
	}
	return states
}

func formatWorkspaceMarkdown(root string, desc *workspace.Description, info *state.TicketInfo, repos map[string]repositoryState, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", desc.Ticket)
	fmt.Fprintf(&b, "- **path**: %s\n", root)
	if desc.Environment != "" {
		fmt.Fprintf(&b, "- **environment**: %s\n", desc.Environment)
	}
	if info != nil {
		fmt.Fprintf(&b, "- **status**: %s\n", info.Status)
		fmt.Fprintf(&b, "- **updated**: %s\n", ui.FormatTimeAgo(info.UpdatedAt, now))
	}
	if desc.Product != "" {
		requires := desc.Metapackage
		if desc.Tag != "" {
			requires += " -t " + desc.Tag
		}
		fmt.Fprintf(&b, "- **metapackage**: %s (requires %s)\n", desc.Product, requires)
	}

	b.WriteString("\n## Repositories\n\n")
	if len(desc.Packages) == 0 {
		b.WriteString("None.\n")
	}
	for _, pkg := range desc.Packages {
		fmt.Fprintf(&b, "- %s on `%s`%s\n", pkg.Name, pkg.Branch, describeState(pkg.Branch, repos[pkg.Name]))
	}

	if len(desc.Pending) > 0 {
		b.WriteString("\n## Not bound\n\n")
		for _, pkg := range desc.Pending {
			fmt.Fprintf(&b, "- %s (retried by `tkt update`)\n", pkg.Name)
		}
	}

	if len(desc.Externals) > 0 {
		b.WriteString("\n## Externals\n\n")
		for _, name := range desc.ExternalNames() {
			if path := desc.Externals[name]; path != "" {
				fmt.Fprintf(&b, "- %s: %s\n", name, path)
			} else {
				fmt.Fprintf(&b, "- %s\n", name)
			}
		}
	}
	return b.String()
}

func describeState(recorded string, st repositoryState) string {
	switch {
	case st.Missing:
		return " (missing)"
	case st.Err != nil:
		return fmt.Sprintf(" (%v)", st.Err)
	}
	var notes []string
	if st.Commit != "" {
		notes = append(notes, "at "+shortCommit(st.Commit))
	}
	switch {
	case st.Branch == "":
		notes = append(notes, "detached")
	case st.Branch != recorded:
		notes = append(notes, "now on `"+st.Branch+"`")
	}
	if len(notes) == 0 {
		return ""
	}
	return " (" + strings.Join(notes, ", ") + ")"
}

func shortCommit(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}
