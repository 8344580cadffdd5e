package textproc

import (
	"strings"
	"unicode"
)

// CleanText normalizes scraped text before chunking and keyword indexing:
// control characters are dropped, unicode space variants become plain
// spaces, and runs of whitespace collapse to one space.
// An empty return value means the document should be skipped, not failed.
func CleanText(raw string) string {
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))

	lastSpace := true // leading whitespace is dropped
	for _, r := range raw {
		switch {
		case unicode.IsControl(r) && r != '\n' && r != '\t':
			continue
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}

	return strings.TrimSpace(b.String())
}

// Snippet returns the first max runes of text, cut at a word boundary
// with an ellipsis when truncated. Used for query-time result snippets.
func Snippet(text string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	cut := max
	for cut > 0 && !unicode.IsSpace(runes[cut-1]) {
		cut--
	}
	if cut == 0 {
		cut = max
	}
	return strings.TrimSpace(string(runes[:cut])) + "…"
}
