// internal/app/system/htmlsanitize/htmlsanitize.go

// Package htmlsanitize sanitizes human-entered HTML before storage.
//
// Administration legal text (consent/assent documents) may carry rich
// formatting; everything else (names, tags) is plain text. Sanitize keeps a
// UGC-safe subset plus tables; StripTags removes markup entirely.
package htmlsanitize

import (
	"html/template"

	"github.com/microcosm-cc/bluemonday"
)

var richPolicy = buildRichPolicy()
var textPolicy = bluemonday.StrictPolicy()

func buildRichPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowTables()
	p.AllowAttrs("class", "style").OnElements("table", "thead", "tbody", "tr", "th", "td")
	return p
}

// Sanitize returns input with unsafe HTML removed. Safe formatting (text
// styles, links, lists, headings, code, tables) is preserved.
func Sanitize(input string) string {
	if input == "" {
		return ""
	}
	return richPolicy.Sanitize(input)
}

// SanitizeToHTML sanitizes input and marks the result as safe template HTML.
func SanitizeToHTML(input string) template.HTML {
	return template.HTML(Sanitize(input))
}

// StripTags removes all HTML, leaving plain text. Used for single-line
// fields like names and tags.
func StripTags(input string) string {
	if input == "" {
		return ""
	}
	return textPolicy.Sanitize(input)
}
