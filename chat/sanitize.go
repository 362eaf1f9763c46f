package chat

import (
	"strings"
	"unicode"
)

// CleanText prepares untrusted text for display. It drops control
// characters other than tab and newline, bidi embedding, override and
// isolate marks, and U+FFFD (which also removes invalid UTF-8), then trims
// surrounding space. A positive maxLen caps the trimmed result at maxLen
// runes; maxLen <= 0 leaves the length alone.
func CleanText(s string, maxLen int) string {
	s = strings.TrimSpace(strings.Map(displayRune, s))
	if maxLen <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return strings.TrimRightFunc(s[:i], unicode.IsSpace)
		}
		n++
	}
	return s
}

func displayRune(r rune) rune {
	switch {
	case r == '\t', r == '\n':
		return r
	case unicode.IsControl(r), r == unicode.ReplacementChar, isBidiControl(r):
		return -1
	}
	return r
}

func isBidiControl(r rune) bool {
	return (r >= '\u202A' && r <= '\u202E') || (r >= '\u2066' && r <= '\u2069')
}
