package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/amonks/tkt/metapackage"
	"github.com/amonks/tkt/ticket"
)

// branchOverrides collects repeated -b repo=branch flags.
type branchOverrides map[string]string

var _ pflag.Value = (*branchOverrides)(nil)

func (b *branchOverrides) String() string {
	if b == nil || len(*b) == 0 {
		return ""
	}
	names := make([]string, 0, len(*b))
	for name := range *b {
		names = append(names, name)
	}
	slices.Sort(names)
	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = name + "=" + (*b)[name]
	}
	return strings.Join(pairs, ",")
}

func (b *branchOverrides) Set(value string) error {
	name, branch, ok := strings.Cut(value, "=")
	name = strings.TrimSpace(name)
	branch = strings.TrimSpace(branch)
	if !ok || name == "" || branch == "" {
		return fmt.Errorf("expected repo=branch, got %q", value)
	}
	if *b == nil {
		*b = branchOverrides{}
	}
	(*b)[name] = branch
	return nil
}

func (b *branchOverrides) Type() string {
	return "repo=branch"
}

// workspaceFlags are shared by commands that build a workspace.
type workspaceFlags struct {
	branches    branchOverrides
	tag         string
	metapackage string
	product     string
	editors     []string
	jobs        int
	dryRun      bool
}

func addWorkspaceFlags(cmd *cobra.Command, opts *workspaceFlags) {
	flags := cmd.Flags()
	flags.VarP(&opts.branches, "branch", "b", "use this branch for a repository (repeatable)")
	flags.StringVarP(&opts.tag, "tag", "t", "", "tag of the base metapackage")
	flags.StringVarP(&opts.metapackage, "metapackage", "m", "", "base metapackage the workspace requires")
	flags.StringVar(&opts.product, "product", "", "name of the workspace metapackage")
	flags.StringSliceVar(&opts.editors, "editor", nil, "editor kinds to render (default all configured)")
	flags.IntVarP(&opts.jobs, "jobs", "j", 0, "repositories to bind concurrently")
	flags.BoolVarP(&opts.dryRun, "dry-run", "n", false, "report what would be done without changing anything")
}

// jobLimit returns --jobs when given, else the configured limit.
func (opts *workspaceFlags) jobLimit(cmd *cobra.Command) int {
	if hasChangedFlags(cmd, "jobs") {
		return opts.jobs
	}
	return userConfig.Jobs
}

func hasChangedFlags(cmd *cobra.Command, flags ...string) bool {
	for _, flag := range flags {
		if cmd.Flags().Changed(flag) {
			return true
		}
	}
	return false
}

func (opts *workspaceFlags) request(cmd *cobra.Command, ticketName string, repos []string) ticket.Request {
	req := ticket.Request{
		Ticket:       ticketName,
		Repositories: repos,
		Branches:     map[string]string(opts.branches),
		Metapackage: metapackage.Options{
			Product: opts.product,
			Base:    opts.metapackage,
			Tag:     opts.tag,
		},
		DryRun: opts.dryRun,
	}
	switch {
	case hasChangedFlags(cmd, "editor"):
		req.Editors = opts.editors
		if req.Editors == nil {
			req.Editors = []string{}
		}
	case userConfig.Editors != nil:
		req.Editors = userConfig.Editors
	}
	return req
}
