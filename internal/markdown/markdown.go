// Package markdown renders markdown for the terminal.
package markdown

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"

	internalstrings "github.com/amonks/tkt/internal/strings"
)

type renderer interface {
	Render(string) (string, error)
}

var (
	rendererMu sync.Mutex
	renderers  = map[int]renderer{}
)

// Render formats markdown text for terminal output, falling back to the
// input text when the renderer fails.
func Render(width, indent int, input []byte) []byte {
	value := internalstrings.TrimTrailingNewlines(internalstrings.NormalizeNewlines(string(input)))
	if strings.TrimSpace(value) == "" {
		return nil
	}
	renderWidth := max(width-max(indent, 0), 1)

	rendered := value
	if r := markdownRenderer(renderWidth); r != nil {
		if formatted, ok := safeRender(r, value); ok {
			rendered = formatted
		}
	}
	rendered = internalstrings.TrimTrailingNewlines(rendered)
	if strings.TrimSpace(rendered) == "" {
		return nil
	}
	return []byte(internalstrings.IndentBlock(rendered, indent))
}

func safeRender(r renderer, value string) (out string, ok bool) {
	defer func() {
		if recover() != nil {
			out, ok = "", false
		}
	}()
	formatted, err := r.Render(value)
	if err != nil {
		return "", false
	}
	return formatted, true
}

func markdownRenderer(width int) renderer {
	rendererMu.Lock()
	defer rendererMu.Unlock()
	if cached, ok := renderers[width]; ok {
		return cached
	}
	style := styles.ASCIIStyleConfig
	style.Item.BlockPrefix = "- "
	created, err := glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	renderers[width] = created
	return created
}
