package extract

import "strings"

// Normalize collapses whitespace runs to single spaces and trims the edges.
// Normalization is whitespace-only: no lowercasing, stemming, or punctuation
// stripping, so the embedding model sees natural text. Empty or
// whitespace-only input normalizes to the empty string; callers must treat
// that as a rejection condition rather than embedding a zero-length query.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
