package archive_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"podarchive/internal/archive"
	"podarchive/internal/episode"
	"podarchive/internal/failure"
)

func sampleEpisode(id, title, enclosure string) episode.Episode {
	return episode.Episode{
		Podcast:       episode.Podcast{Title: "Example Show", Text: "Example Show", FeedURL: "https://example.org/feed.xml"},
		Title:         title,
		PublishedDate: "2001-01-01T01:01:01-00:00",
		URL:           "https://example.net/podcast/" + id,
		OvercastID:    id,
		OvercastURL:   "https://overcast.fm/+" + id,
		EnclosureURL:  enclosure,
	}
}

func TestMetadataEncodingHasSortedKeys(t *testing.T) {
	data, err := archive.NewMetadata(sampleEpisode("12345", "First", "https://x.test/1.mp3"), "First.mp3").Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	doc := string(data)
	order := []string{`"episode"`, `"enclosure_url"`, `"overcast_id"`, `"overcast_url"`, `"published_date"`, `"title"`, `"url"`, `"filename"`, `"podcast"`, `"feed_url"`, `"text"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(doc[last+1:], key)
		if idx < 0 {
			t.Fatalf("key %s missing or out of order in %s", key, doc)
		}
		last += idx + 1
	}
	if !strings.HasSuffix(doc, "}\n") {
		t.Fatalf("expected trailing newline, got %q", doc[len(doc)-3:])
	}
}

func TestLoadMetadata(t *testing.T) {
	dir := t.TempDir()

	if _, found, err := archive.LoadMetadata(filepath.Join(dir, "missing.json")); err != nil || found {
		t.Fatalf("expected missing metadata to be not found without error, got found=%v err=%v", found, err)
	}

	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{oops"},
		{"missing id", `{"episode": {"title": "x"}, "filename": "x.mp3"}`},
		{"missing filename", `{"episode": {"overcast_id": "1"}}`},
		{"filename escapes dir", `{"episode": {"overcast_id": "1"}, "filename": "../x.mp3"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			_, _, err := archive.LoadMetadata(path)
			if !errors.Is(err, failure.ErrMetadataCorrupt) {
				t.Fatalf("expected ErrMetadataCorrupt, got %v", err)
			}
		})
	}
}

func TestWriteMetadataSkipsUnchangedContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "First.json")
	record := archive.NewMetadata(sampleEpisode("1", "First", "https://x.test/1.mp3"), "First.mp3")

	wrote, err := archive.WriteMetadata(path, record)
	if err != nil || !wrote {
		t.Fatalf("first write: wrote=%v err=%v", wrote, err)
	}
	wrote, err = archive.WriteMetadata(path, record)
	if err != nil || wrote {
		t.Fatalf("expected unchanged record to skip write, wrote=%v err=%v", wrote, err)
	}

	loaded, found, err := archive.LoadMetadata(path)
	if err != nil || !found {
		t.Fatalf("LoadMetadata: found=%v err=%v", found, err)
	}
	if loaded != record {
		t.Fatalf("round trip mismatch: %+v vs %+v", loaded, record)
	}
}
