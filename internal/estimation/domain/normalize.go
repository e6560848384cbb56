package domain

import (
	"strings"
	"unicode"
)

// NormalizeTitle builds the lookup key for a submodule title:
// lower-cased with every whitespace rune removed.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range strings.ToLower(title) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
