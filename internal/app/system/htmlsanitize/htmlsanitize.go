// Package htmlsanitize strips markup from user-entered text (task titles,
// markdown descriptions, direct messages) before it is stored. Clients
// render markdown themselves; stored text never carries HTML.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// maxPasses bounds the strip/decode loop for entity-encoded markup.
const maxPasses = 3

// PlainText removes every HTML element from s and decodes entities, so
// "a &amp; b" is stored as "a & b". Markup hidden behind entities is
// stripped on the next pass; if it keeps resurfacing the escaped form wins.
func PlainText(s string) string {
	for i := 0; i < maxPasses; i++ {
		out := html.UnescapeString(strict.Sanitize(s))
		if out == s {
			return out
		}
		s = out
	}
	return strict.Sanitize(s)
}

// Line is PlainText collapsed to a single trimmed line, for titles and names.
func Line(s string) string {
	return strings.Join(strings.Fields(PlainText(s)), " ")
}

// IsPlainText reports whether s contains no HTML elements.
func IsPlainText(s string) bool {
	return PlainText(s) == s
}
