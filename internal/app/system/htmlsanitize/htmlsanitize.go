// Package htmlsanitize strips markup from user-supplied campaign text.
// Titles, descriptions and organizer fields are stored as plain text.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText removes all HTML elements from s. The contents of script and
// style elements are dropped entirely; entities are decoded so the stored
// value is the text a reader would see.
func PlainText(s string) string {
	if s == "" || !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
