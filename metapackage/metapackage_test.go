package metapackage_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/amonks/tkt/metapackage"
	"github.com/amonks/tkt/workspace"
)

type naming struct {
	base string
	tag  string
}

func (n naming) MetapackageName(ticket string) string { return "tkt_" + ticket }
func (n naming) DefaultMetapackage() string           { return n.base }
func (n naming) DefaultTag() string                   { return n.tag }

var rubin = naming{base: "lsst_distrib", tag: "current"}

func bound(names ...string) []workspace.Binding {
	var bindings []workspace.Binding
	for _, name := range names {
		bindings = append(bindings, workspace.Binding{Name: name, Branch: "tickets/DM-1"})
	}
	return bindings
}

func TestSynthesize_Table(t *testing.T) {
	ws := &workspace.Workspace{
		Ticket:    "DM-1",
		Root:      "/work/DM-1",
		Bindings:  bound("obs_base", "afw"),
		Externals: []workspace.External{{Name: "testdata_ci", Path: "/data/testdata_ci"}},
	}

	d, err := metapackage.Synthesize(ws, rubin, metapackage.Options{})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	expected := "# tkt_DM-1: workspace for DM-1\n" +
		"setupRequired(lsst_distrib -t current)\n" +
		"setupRequired(testdata_ci -j -r /data/testdata_ci)\n" +
		"setupRequired(afw -j -r ${PRODUCT_DIR}/afw)\n" +
		"setupRequired(obs_base -j -r ${PRODUCT_DIR}/obs_base)\n"
	if diff := cmp.Diff(expected, string(d.Table())); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
	if d.TablePath() != "ups/tkt_DM-1.table" {
		t.Errorf("unexpected table path %q", d.TablePath())
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	failed := workspace.Binding{Name: "broken", Err: errors.New("boom")}

	first := &workspace.Workspace{Ticket: "DM-1", Bindings: bound("c", "a", "b")}
	second := &workspace.Workspace{Ticket: "DM-1", Bindings: append(bound("b", "c"), failed, bound("a")[0])}

	d1, err := metapackage.Synthesize(first, rubin, metapackage.Options{})
	if err != nil {
		t.Fatalf("synthesize first: %v", err)
	}
	d2, err := metapackage.Synthesize(second, rubin, metapackage.Options{})
	if err != nil {
		t.Fatalf("synthesize second: %v", err)
	}
	if !bytes.Equal(d1.Table(), d2.Table()) {
		t.Errorf("expected identical tables:\n%s\nvs\n%s", d1.Table(), d2.Table())
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, d2.MemberNames()); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}
}

func TestSynthesize_Empty(t *testing.T) {
	ws := &workspace.Workspace{
		Ticket:   "DM-1",
		Bindings: []workspace.Binding{{Name: "afw", Err: errors.New("boom")}},
	}
	if _, err := metapackage.Synthesize(ws, rubin, metapackage.Options{}); !errors.Is(err, metapackage.ErrEmptyWorkspace) {
		t.Fatalf("expected ErrEmptyWorkspace, got %v", err)
	}
}

func TestSynthesize_Overrides(t *testing.T) {
	ws := &workspace.Workspace{Ticket: "DM-1", Bindings: bound("afw")}

	d, err := metapackage.Synthesize(ws, rubin, metapackage.Options{Product: "mywork", Base: "lsst_apps", Tag: "w_2026_10"})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	expected := metapackage.Requirement{Product: "lsst_apps", Tag: "w_2026_10"}
	if d.Base != expected {
		t.Errorf("expected base %+v, got %+v", expected, d.Base)
	}
	if d.Name != "mywork" {
		t.Errorf("expected product override, got %q", d.Name)
	}
}

func TestSynthesize_NoBaseProduct(t *testing.T) {
	ws := &workspace.Workspace{Ticket: "X", Bindings: bound("tool")}

	d, err := metapackage.Synthesize(ws, naming{}, metapackage.Options{})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	expected := "# tkt_X: workspace for X\nsetupRequired(tool -j -r ${PRODUCT_DIR}/tool)\n"
	if string(d.Table()) != expected {
		t.Errorf("expected %q, got %q", expected, d.Table())
	}
}

type recordingDeclarer struct {
	calls []*metapackage.Descriptor
	err   error
}

func (r *recordingDeclarer) Declare(ctx context.Context, d *metapackage.Descriptor) error {
	r.calls = append(r.calls, d)
	return r.err
}

func TestRegister(t *testing.T) {
	d := &metapackage.Descriptor{Name: "tkt_dm_1"}

	declarer := &recordingDeclarer{}
	if err := metapackage.Register(context.Background(), d, declarer); err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(declarer.calls) != 1 || declarer.calls[0] != d {
		t.Fatalf("expected exactly one declare of d, got %d", len(declarer.calls))
	}

	cause := errors.New("eups: permission denied")
	failing := &recordingDeclarer{err: cause}
	err := metapackage.Register(context.Background(), d, failing)
	if !errors.Is(err, metapackage.ErrDeclareFailed) || !errors.Is(err, cause) {
		t.Fatalf("expected wrapped declare failure, got %v", err)
	}
	if len(failing.calls) != 1 {
		t.Errorf("expected one declare attempt, got %d", len(failing.calls))
	}
}
