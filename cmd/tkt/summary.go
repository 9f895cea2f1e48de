package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/amonks/tkt/internal/ui"
	"github.com/amonks/tkt/ticket"
)

const causeIndent = 4

// writeSummary reports every repository, the metapackage and every editor
// of a run, followed by the error that stopped it.
func writeSummary(w io.Writer, result *ticket.Result, width int) {
	title := result.Ticket
	if result.Root != "" {
		title += "  " + result.Root
	}
	if result.DryRun {
		title += "  (dry run)"
	}
	fmt.Fprintln(w, ui.Heading(title))

	if result.Workspace != nil {
		fmt.Fprintln(w)
		fmt.Fprint(w, bindingTable(result))
		for _, binding := range result.FailedBindings() {
			fmt.Fprintf(w, "  %s:\n%s\n", binding.Name, ui.WrapIndented(binding.Err.Error(), width, causeIndent))
		}
	}

	if d := result.Metapackage; d != nil {
		fmt.Fprintln(w)
		status := "written"
		switch {
		case result.DeclareErr != nil:
			status = "not declared"
		case result.DryRun:
			status = "planned"
		case result.Declared:
			status = "declared"
		}
		base := d.Base.Product
		if d.Base.Tag != "" {
			base += " -t " + d.Base.Tag
		}
		fmt.Fprintf(w, "metapackage %s requires %s: %s\n", d.Name, base, ui.Status(status))
		if result.DeclareErr != nil {
			fmt.Fprintln(w, ui.WrapIndented(result.DeclareErr.Error(), width, causeIndent))
		}
	}

	if len(result.Editors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprint(w, editorTable(result))
		for _, editor := range result.FailedEditors() {
			fmt.Fprintf(w, "  %s:\n%s\n", editor.Kind, ui.WrapIndented(editor.Err.Error(), width, causeIndent))
		}
	}

	if result.Err != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %s\n", ui.Status("error"), result.Err)
	}
}

func bindingTable(result *ticket.Result) string {
	builder := ui.NewTableBuilder([]string{"REPOSITORY", "BRANCH", "STATUS"}, len(result.Workspace.Bindings)+len(result.Workspace.Externals))
	for _, binding := range result.Workspace.Bindings {
		builder.AddRow(binding.Name, binding.Branch, ui.Status(string(binding.Action)))
	}
	for _, ext := range result.Workspace.Externals {
		builder.AddRow(ext.Name, "-", "external "+ext.Path)
	}
	return builder.String()
}

func editorTable(result *ticket.Result) string {
	builder := ui.NewTableBuilder([]string{"EDITOR", "FILES", "STATUS"}, len(result.Editors))
	for _, editor := range result.Editors {
		status := "written"
		switch {
		case editor.Err != nil:
			status = "failed"
		case result.DryRun:
			status = "planned"
		}
		files := strings.Join(editor.Files, ", ")
		if files == "" {
			files = "-"
		}
		builder.AddRow(editor.Kind, files, ui.Status(status))
	}
	return builder.String()
}
