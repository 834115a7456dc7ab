package archive_test

import (
	"strings"
	"testing"

	"podarchive/internal/archive"
)

func TestResolveFilename(t *testing.T) {
	tests := []struct {
		name  string
		title string
		url   string
		want  string
	}{
		{"plain", "Episode 1", "https://cdn.example.com/files/ep1.mp3", "Episode 1.mp3"},
		{"query ignored", "Episode 1", "https://cdn.example.com/ep1.m4a?token=abc#t=30", "Episode 1.m4a"},
		{"extension lowercased", "Loud", "https://cdn.example.com/LOUD.MP3", "Loud.mp3"},
		{"colon and slash escaped", "Part 1: Start/Finish", "https://x.test/a.mp3", "Part 1- Start-Finish.mp3"},
		{"quotes dropped", `Say "Hi"?`, "https://x.test/a.mp3", "Say Hi.mp3"},
		{"no extension defaults", "Live", "https://x.test/stream", "Live.mp3"},
		{"odd extension defaults", "Live", "https://x.test/stream.php-x", "Live.mp3"},
		{"json extension defaults", "Live", "https://x.test/stream.json", "Live.mp3"},
		{"xml extension defaults", "Live", "https://x.test/feed.xml", "Live.mp3"},
		{"tmp extension defaults", "Live", "https://x.test/part.TMP", "Live.mp3"},
		{"empty title uses url stem", "", "https://x.test/files/show-042.mp3", "show-042.mp3"},
		{"dot title uses url stem", "..", "https://x.test/files/show-042.mp3", "show-042.mp3"},
		{"nothing usable", "", "https://x.test/", "episode.mp3"},
		{"decomposed accents normalized", "Cafe\u0301", "https://x.test/a.mp3", "Caf\u00e9.mp3"},
		{"whitespace collapsed", "  Two \n  Lines ", "https://x.test/a.ogg", "Two Lines.ogg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := archive.ResolveFilename(tt.title, tt.url); got != tt.want {
				t.Fatalf("ResolveFilename(%q, %q) = %q, want %q", tt.title, tt.url, got, tt.want)
			}
		})
	}
}

func TestResolveFilenameDeterministicAndBounded(t *testing.T) {
	title := strings.Repeat("é", 400)
	first := archive.ResolveFilename(title, "https://x.test/a.mp3")
	second := archive.ResolveFilename(title, "https://x.test/a.mp3")
	if first != second {
		t.Fatalf("expected deterministic result, got %q and %q", first, second)
	}
	if len(first) > 200 {
		t.Fatalf("expected bounded filename, got %d bytes", len(first))
	}
	if !strings.HasSuffix(first, "é.mp3") {
		t.Fatalf("expected truncation on a rune boundary, got %q", first[len(first)-8:])
	}
}

func TestDerivedNames(t *testing.T) {
	if got := archive.MetadataName("Ep. 5.mp3"); got != "Ep. 5.mp3.json" {
		t.Fatalf("MetadataName = %q", got)
	}
	if got := archive.DisambiguatedName("Episode-1.mp3", "B"); got != "Episode-1_B.mp3" {
		t.Fatalf("DisambiguatedName = %q", got)
	}
	if got := archive.DisambiguatedName("Episode-1.mp3", "a/b"); got != "Episode-1_a-b.mp3" {
		t.Fatalf("DisambiguatedName with hostile id = %q", got)
	}
}
