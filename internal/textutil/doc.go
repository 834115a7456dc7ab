// Package textutil provides title cleanup for archive paths.
//
// Podcast and episode titles come straight from third-party feeds, so every
// path segment derived from them passes through SafeSegment: titles are
// NFC-normalized, whitespace is collapsed, and path-hostile characters are
// replaced or dropped. SmartQuotes matches feed titles to the typographic
// punctuation used in the Overcast export.
package textutil
