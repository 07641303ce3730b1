// Package textnorm canonicalizes free text for the full-text index. Stored tag
// text and search queries both pass through Normalize so they share one
// alphabet.
package textnorm

import (
	"regexp"
	"strings"
)

var (
	disallowed = regexp.MustCompile(`[^a-zA-Z0-9, ]`)
	spaceRuns  = regexp.MustCompile(`\s{2,}`)
)

// Normalize turns text into its search-safe form:
// apostrophes are dropped ("it's" -> "its"), every character other than an
// ASCII letter, digit, comma or space becomes a space, runs of whitespace
// collapse to one space and the result is trimmed.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "'", "")
	text = disallowed.ReplaceAllString(text, " ")
	text = spaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Tokens splits normalized text into its search terms. Commas and spaces
// both separate terms.
func Tokens(text string) []string {
	return strings.FieldsFunc(Normalize(text), func(r rune) bool {
		return r == ' ' || r == ','
	})
}

// MatchQuery builds an FTS5 match expression for text. Every term becomes a
// quoted prefix query and terms are implicitly ANDed, so "star wa" matches
// "star wars". It returns "" when text has no searchable terms.
func MatchQuery(text string) string {
	tokens := Tokens(text)
	if len(tokens) == 0 {
		return ""
	}

	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte('"')
		b.WriteString(tok)
		b.WriteString(`"*`)
	}
	return b.String()
}
