package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/term"
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
)

// ansiEnabled is swapped out by tests.
var ansiEnabled = func() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Status colors a status word by its meaning when stdout is a terminal.
func Status(word string) string {
	if !ansiEnabled() {
		return word
	}
	switch word {
	case "ok", "ready", "cloned", "created", "checked-out", "unchanged", "written", "declared", "done":
		return okStyle.Render(word)
	case "partial", "planned", "skipped", "not declared":
		return warnStyle.Render(word)
	case "failed", "error":
		return failStyle.Render(word)
	default:
		return word
	}
}

// Heading styles a section heading.
func Heading(text string) string {
	if !ansiEnabled() {
		return text
	}
	return headingStyle.Render(text)
}

// WrapIndented word-wraps text to width and indents every line.
func WrapIndented(text string, width, indent int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	wrapWidth := width - indent
	if wrapWidth < 20 {
		wrapWidth = 20
	}
	prefix := strings.Repeat(" ", indent)
	lines := strings.Split(wordwrap.String(text, wrapWidth), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

// TerminalWidth returns the width of stdout, or fallback when unknown.
func TerminalWidth(fallback int) int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}
