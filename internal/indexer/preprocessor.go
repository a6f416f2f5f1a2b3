package indexer

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Preprocess normalizes a cue body to NFC, so decomposed Hangul from some
// transcribers matches composed query text, and collapses whitespace runs.
// Zero-width and control characters are dropped.
func Preprocess(text string) string {
	text = norm.NFC.String(strings.TrimSpace(text))
	var b strings.Builder
	b.Grow(len(text))
	wasSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !wasSpace && b.Len() > 0 {
				b.WriteRune(' ')
				wasSpace = true
			}
		case isInvisible(r):
		default:
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return strings.TrimRight(b.String(), " ")
}

func isInvisible(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
		return true
	}
	return unicode.IsControl(r)
}
