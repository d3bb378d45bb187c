package crawl

import (
	"html"
	"regexp"
	"strings"
)

var (
	scriptPattern  = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</\w+>`)
	commentPattern = regexp.MustCompile(`(?s)<!--.*?-->`)
	tagPattern     = regexp.MustCompile(`(?s)<[^>]*>`)
)

// Flatten strips HTML down to whitespace-normalized text. Script, style,
// and comment blocks are dropped entirely; remaining tags become word
// boundaries.
func Flatten(s string) string {
	s = scriptPattern.ReplaceAllString(s, " ")
	s = commentPattern.ReplaceAllString(s, " ")
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
