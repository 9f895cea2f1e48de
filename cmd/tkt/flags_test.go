package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
)

func TestBranchOverridesSet(t *testing.T) {
	var b branchOverrides
	for _, value := range []string{"afw=tickets/DM-0", " obs_base = u/me/x ", "afw=tickets/DM-2"} {
		if err := b.Set(value); err != nil {
			t.Fatalf("set %q: %v", value, err)
		}
	}

	want := branchOverrides{"afw": "tickets/DM-2", "obs_base": "u/me/x"}
	if diff := cmp.Diff(want, b); diff != "" {
		t.Fatalf("overrides mismatch (-want +got):\n%s", diff)
	}
	if got := b.String(); got != "afw=tickets/DM-2,obs_base=u/me/x" {
		t.Fatalf("expected sorted pairs, got %q", got)
	}
}

func TestBranchOverridesRejectsMalformed(t *testing.T) {
	for _, value := range []string{"afw", "=branch", "afw=", ""} {
		var b branchOverrides
		if err := b.Set(value); err == nil {
			t.Errorf("expected error for %q", value)
		}
	}
}

func TestWorkspaceFlagsRequest(t *testing.T) {
	var opts workspaceFlags
	cmd := &cobra.Command{Use: "test"}
	addWorkspaceFlags(cmd, &opts)
	if err := cmd.ParseFlags([]string{"-b", "afw=u/me/x", "--tag", "w_2026_10", "--product", "mine", "-n"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	req := opts.request(cmd, "DM-1", []string{"afw"})
	if req.Ticket != "DM-1" || !req.DryRun {
		t.Fatalf("unexpected request: %+v", req)
	}
	if diff := cmp.Diff(map[string]string{"afw": "u/me/x"}, req.Branches); diff != "" {
		t.Errorf("branches mismatch (-want +got):\n%s", diff)
	}
	if req.Metapackage.Tag != "w_2026_10" || req.Metapackage.Product != "mine" || req.Metapackage.Base != "" {
		t.Errorf("unexpected metapackage options: %+v", req.Metapackage)
	}
	if req.Editors != nil {
		t.Errorf("expected nil editors without --editor, got %v", req.Editors)
	}
}

func TestWorkspaceFlagsEmptyEditorList(t *testing.T) {
	var opts workspaceFlags
	cmd := &cobra.Command{Use: "test"}
	addWorkspaceFlags(cmd, &opts)
	if err := cmd.ParseFlags([]string{"--editor="}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	req := opts.request(cmd, "DM-1", nil)
	if req.Editors == nil || len(req.Editors) != 0 {
		t.Fatalf("expected an empty editor selection, got %#v", req.Editors)
	}
}
