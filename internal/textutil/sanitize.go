package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"\x00", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is trimmed of leading/trailing whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// NormalizeTitle returns the NFC form of a title with runs of whitespace
// (including newlines from feed XML) collapsed to single spaces. Composed and
// decomposed spellings of the same title normalize to the same string.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(norm.NFC.String(title)), " ")
}

// SafeSegment produces a single path segment for title. Dot-only names are
// rejected so a segment can never escape its parent directory. Returns
// fallback when nothing usable remains.
func SafeSegment(title, fallback string) string {
	segment := SanitizeFileName(NormalizeTitle(title))
	if strings.Trim(segment, ".") == "" {
		return fallback
	}
	return segment
}
