package strings

import (
	"regexp"
	"strings"
)

var (
	refInvalidChars   = regexp.MustCompile(`[\x00-\x20\x7f~^:?*\[\\]+`)
	refRepeatedDots   = regexp.MustCompile(`\.{2,}`)
	refRepeatedSlash  = regexp.MustCompile(`/{2,}`)
	identifierInvalid = regexp.MustCompile(`[^a-z0-9]+`)
)

// SanitizeRefComponent converts a free-form string into something git
// accepts inside a ref name. Whitespace and forbidden characters become
// hyphens.
func SanitizeRefComponent(value string) string {
	value = NormalizeWhitespace(value)
	value = refInvalidChars.ReplaceAllString(value, "-")
	value = refRepeatedDots.ReplaceAllString(value, ".")
	value = refRepeatedSlash.ReplaceAllString(value, "/")
	value = strings.ReplaceAll(value, "@{", "-")
	value = strings.Trim(value, "-./")
	value = strings.TrimSuffix(value, ".lock")
	return value
}

// Identifier converts value to a lowercase identifier made of letters,
// digits and underscores.
func Identifier(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = identifierInvalid.ReplaceAllString(value, "_")
	return strings.Trim(value, "_")
}
