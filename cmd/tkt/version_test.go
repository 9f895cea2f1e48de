package main

import (
	"runtime/debug"
	"testing"
)

func TestVersionString(t *testing.T) {
	prevChangeID := buildChangeID
	prevCommitID := buildCommitID
	t.Cleanup(func() {
		buildChangeID = prevChangeID
		buildCommitID = prevCommitID
	})

	buildChangeID = "change123"
	buildCommitID = "commit456"

	got := versionString()
	want := "change_id change123\ncommit_id commit456"
	if got != want {
		t.Fatalf("expected version string %q, got %q", want, got)
	}
}

func TestVersionStringFallsBackToModuleVersion(t *testing.T) {
	prevChangeID, prevCommitID, prevRead := buildChangeID, buildCommitID, readBuildInfo
	t.Cleanup(func() {
		buildChangeID, buildCommitID, readBuildInfo = prevChangeID, prevCommitID, prevRead
	})

	buildChangeID = "unknown"
	buildCommitID = "unknown"
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "v1.2.3"}}, true
	}
	if got := versionString(); got != "tkt v1.2.3" {
		t.Fatalf("expected module version, got %q", got)
	}

	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true
	}
	if got := versionString(); got != "change_id unknown\ncommit_id unknown" {
		t.Fatalf("expected unknown ids for a devel build, got %q", got)
	}
}

func TestRootCommandHasVersion(t *testing.T) {
	if rootCmd.Version == "" {
		t.Fatal("expected root command version to be set")
	}
}
