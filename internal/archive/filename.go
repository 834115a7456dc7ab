package archive

import (
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"podarchive/internal/textutil"
)

const (
	defaultExtension = ".mp3"
	fallbackStem     = "episode"
	// Leaves room for the "_<id>" suffix, the extension and ".json" within
	// common 255-byte filename limits.
	maxStemBytes = 180
	maxExtBytes  = 8
	metadataExt  = ".json"
)

// reservedExtensions never name audio, so audio files cannot collide with
// metadata, feed snapshots, or temporary downloads.
var reservedExtensions = map[string]bool{
	metadataExt: true,
	".xml":      true,
	".tmp":      true,
}

// ResolveFilename derives the audio filename for an episode. The extension
// comes from the audio URL's path (query and fragment ignored) and the stem
// from the title with path-hostile characters escaped. The result depends
// only on its inputs.
func ResolveFilename(title, audioURL string) string {
	stem := titleStem(title)
	if stem == "" {
		stem = urlStem(audioURL)
	}
	if stem == "" {
		stem = fallbackStem
	}
	return stem + urlExtension(audioURL)
}

// BaseName strips the extension from filename.
func BaseName(filename string) string {
	return strings.TrimSuffix(filename, path.Ext(filename))
}

// MetadataName returns the metadata filename paired with an audio filename.
// It keeps the full audio filename, so audio files sharing a stem with
// different extensions never share a record.
func MetadataName(filename string) string {
	return filename + metadataExt
}

// DisambiguatedName suffixes the episode identifier onto the stem of
// filename, keeping its extension.
func DisambiguatedName(filename, overcastID string) string {
	ext := path.Ext(filename)
	return BaseName(filename) + "_" + textutil.SafeSegment(overcastID, "id") + ext
}

func titleStem(title string) string {
	return truncateBytes(textutil.SafeSegment(title, ""), maxStemBytes)
}

func urlPath(audioURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(audioURL))
	if err != nil {
		return ""
	}
	return parsed.Path
}

func urlExtension(audioURL string) string {
	ext := strings.ToLower(path.Ext(urlPath(audioURL)))
	if len(ext) < 2 || len(ext) > maxExtBytes || reservedExtensions[ext] {
		return defaultExtension
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return defaultExtension
		}
	}
	return ext
}

func urlStem(audioURL string) string {
	p := urlPath(audioURL)
	if p == "" || strings.HasSuffix(p, "/") {
		return ""
	}
	base := path.Base(p)
	return truncateBytes(textutil.SafeSegment(strings.TrimSuffix(base, path.Ext(base)), ""), maxStemBytes)
}

func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut])
}
