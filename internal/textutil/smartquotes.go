package textutil

import (
	"strings"
	"unicode"
)

var punctuationReplacer = strings.NewReplacer(
	"...", "…",
	". . .", "…",
	"--", "—",
)

// SmartQuotes converts typewriter punctuation the way Overcast presents
// episode titles: straight quotes become curly, "--" an em dash, and "..."
// an ellipsis. Feed titles pass through it so they resolve to the same
// filenames as titles taken from the export.
func SmartQuotes(s string) string {
	s = punctuationReplacer.Replace(s)
	if !strings.ContainsAny(s, `"'`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	prev := ' '
	for _, r := range s {
		switch r {
		case '"':
			if opensQuote(prev) {
				b.WriteRune('“')
			} else {
				b.WriteRune('”')
			}
		case '\'':
			if opensQuote(prev) {
				b.WriteRune('‘')
			} else {
				b.WriteRune('’')
			}
		default:
			b.WriteRune(r)
		}
		prev = r
	}
	return b.String()
}

func opensQuote(prev rune) bool {
	if unicode.IsSpace(prev) {
		return true
	}
	switch prev {
	case '(', '[', '{', '-', '—', '–', '“', '‘':
		return true
	}
	return false
}
