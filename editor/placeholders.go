package editor

import (
	"regexp"
)

var placeholderPattern = regexp.MustCompile(`\$\{(workspaceRoot|ticket|repo:([^}]+))\}`)

// Placeholders resolves the templated references an editor config may use:
// ${workspaceRoot}, ${ticket} and ${repo:<name>}.
type Placeholders struct {
	Root   string
	Ticket string
	// Repos maps repository and external names to their directories.
	Repos map[string]string
}

// Expand replaces placeholders in s. Unknown repository references are left
// as written.
func (p Placeholders) Expand(s string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := placeholderPattern.FindStringSubmatch(match)
		switch {
		case groups[1] == "workspaceRoot":
			return p.Root
		case groups[1] == "ticket":
			return p.Ticket
		default:
			if path, ok := p.Repos[groups[2]]; ok {
				return path
			}
			return match
		}
	})
}

// Apply returns a copy of value with every string expanded.
func (p Placeholders) Apply(value any) any {
	switch v := value.(type) {
	case string:
		return p.Expand(v)
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, item := range v {
			result[key] = p.Apply(item)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = p.Apply(item)
		}
		return result
	default:
		return v
	}
}
