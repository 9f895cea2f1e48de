package launch

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEditorCommandPrefersVisual(t *testing.T) {
	t.Setenv("VISUAL", "code --wait")
	t.Setenv("EDITOR", "nano")

	if diff := cmp.Diff([]string{"code", "--wait"}, EditorCommand()); diff != "" {
		t.Fatalf("command mismatch (-want +got):\n%s", diff)
	}
}

func TestEditorCommandFallsBackToVi(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", " ")

	if diff := cmp.Diff([]string{"vi"}, EditorCommand()); diff != "" {
		t.Fatalf("command mismatch (-want +got):\n%s", diff)
	}
}

func TestEditReportsExitStatus(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "false")

	err := Edit(t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "status 1") {
		t.Fatalf("expected exit status error, got %v", err)
	}
}

func TestEditSucceeds(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "true")

	if err := Edit(t.TempDir()); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}
