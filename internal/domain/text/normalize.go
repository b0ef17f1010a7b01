// Package text cleans extracted document text before it is embedded and stored.
package text

import (
	"strings"
	"unicode"
)

const (
	// MaxStorageChars bounds normalized content and embedding input, in runes.
	MaxStorageChars = 5000
	// SummaryWindow bounds content handed to the summarization model, in runes.
	SummaryWindow = 6000
	// MaxKeywords is the size of the keyword digest appended to cleaned text.
	MaxKeywords = 50
)

// Normalize lower-cases text, replaces punctuation with spaces, collapses
// whitespace and appends a digest of the first unique tokens. The result is
// bounded to MaxStorageChars runes.
func Normalize(s string) string {
	cleaned := Clean(s)
	if cleaned == "" {
		return ""
	}
	keywords := Keywords(cleaned, MaxKeywords)
	return Window(cleaned+" "+strings.Join(keywords, " "), MaxStorageChars)
}

// Clean lower-cases s, maps every rune that is not a letter, digit,
// underscore or space to a space, and collapses whitespace runs.
func Clean(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			return unicode.ToLower(r)
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// Keywords returns up to limit unique tokens of cleaned text in first-seen order.
func Keywords(cleaned string, limit int) []string {
	fields := strings.Fields(cleaned)
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, min(limit, len(fields)))
	for _, f := range fields {
		if len(out) == limit {
			break
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Window truncates s to at most n runes.
func Window(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// CollapseSpace collapses every whitespace run to a single space and trims.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
