package feeds_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"podarchive/internal/feeds"
	"podarchive/internal/testsupport"
)

func writeSnapshot(t *testing.T, dir, name string, items ...string) {
	t.Helper()
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>Show</title>`)
	for _, item := range items {
		b.WriteString(item)
	}
	b.WriteString(`</channel></rss>`)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
}

func item(title, url string) string {
	return fmt.Sprintf(`<item><title>%s</title><enclosure url="%s" type="audio/mpeg" length="5"/></item>`, title, url)
}

func TestBackfillDownloadsMissingEnclosures(t *testing.T) {
	origin := testsupport.NewOrigin(t)
	one := origin.Serve("/1.mp3", []byte("one"))
	two := origin.Serve("/2.mp3", []byte("two"))
	gone := origin.URL("/gone.mp3")

	root := t.TempDir()
	showDir := filepath.Join(root, "Show")
	writeSnapshot(t, showDir, "feed.2026-05-01.xml",
		item("Episode 1", one),
		item("Don&apos;t Stop", two),
		`<item><title>No audio</title></item>`,
	)
	writeSnapshot(t, showDir, "feed.2026-05-02.xml",
		item("Episode 1", one),
		item("Lost", gone),
	)
	testsupport.WriteFile(t, filepath.Join(showDir, "Episode 1.mp3"), 3)

	result, err := feeds.Backfill(context.Background(), newFetcher(), root, feeds.BackfillOptions{}, nil)
	if err != nil {
		t.Fatalf("Backfill returned error: %v", err)
	}
	if result.Podcasts != 1 || result.Snapshots != 2 {
		t.Fatalf("unexpected walk counts %+v", result)
	}
	if result.Downloaded != 1 || result.Existing != 1 || result.Skipped != 1 || len(result.Failures) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, err := os.Stat(filepath.Join(showDir, "Don’t Stop.mp3")); err != nil {
		t.Fatalf("expected smart-quoted filename: %v", err)
	}
	if origin.Hits("/1.mp3") != 0 {
		t.Fatalf("existing episode must not be fetched, got %d", origin.Hits("/1.mp3"))
	}
	if result.Failures[0].URL != gone {
		t.Fatalf("unexpected failure %+v", result.Failures[0])
	}
}

func TestBackfillDryRunAndPodcastFilter(t *testing.T) {
	origin := testsupport.NewOrigin(t)
	url := origin.Serve("/1.mp3", []byte("one"))

	root := t.TempDir()
	writeSnapshot(t, filepath.Join(root, "Show"), "feed.2026-05-01.xml", item("Episode 1", url))
	writeSnapshot(t, filepath.Join(root, "Other"), "feed.2026-05-01.xml", item("Episode 9", url))

	result, err := feeds.Backfill(context.Background(), newFetcher(), root, feeds.BackfillOptions{Podcast: "Show", DryRun: true}, nil)
	if err != nil {
		t.Fatalf("Backfill returned error: %v", err)
	}
	if result.Podcasts != 1 || result.Missing != 1 || result.Downloaded != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if origin.Total() != 0 {
		t.Fatalf("dry run must not download, got %d requests", origin.Total())
	}
}
