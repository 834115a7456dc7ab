package feeds_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"podarchive/internal/episode"
	"podarchive/internal/failure"
	"podarchive/internal/feeds"
	"podarchive/internal/fetch"
	"podarchive/internal/testsupport"
)

func newFetcher() *fetch.Fetcher {
	return fetch.New(fetch.Config{Attempts: 1}, fetch.WithSleeper(func(time.Duration) {}))
}

func day(n int) func() time.Time {
	return func() time.Time {
		return time.Date(2026, 5, n, 9, 0, 0, 0, time.UTC)
	}
}

func snapshotNames(t *testing.T, dir string) []string {
	t.Helper()
	paths, err := feeds.Snapshots(dir)
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	return names
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestArchiveSnapshotPruning(t *testing.T) {
	tests := []struct {
		name   string
		bodies []string
		want   []string
	}{
		{
			name:   "unchanged three days",
			bodies: []string{"<rss>v1</rss>", "<rss>v1</rss>", "<rss>v1</rss>"},
			want:   []string{"feed.2026-05-01.xml"},
		},
		{
			name:   "changed on day three",
			bodies: []string{"<rss>v1</rss>", "<rss>v1</rss>", "<rss>v2</rss>"},
			want:   []string{"feed.2026-05-01.xml", "feed.2026-05-03.xml"},
		},
		{
			name:   "changed then reverted",
			bodies: []string{"<rss>v1</rss>", "<rss>v2</rss>", "<rss>v1</rss>"},
			want:   []string{"feed.2026-05-01.xml", "feed.2026-05-02.xml", "feed.2026-05-03.xml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origin := testsupport.NewOrigin(t)
			dir := t.TempDir()
			podcast := episode.Podcast{Title: "Show", FeedURL: origin.URL("/feed.xml")}
			for i, body := range tt.bodies {
				origin.Serve("/feed.xml", []byte(body))
				a := feeds.NewArchiver(newFetcher(), nil, feeds.WithClock(day(i+1)))
				if err := a.Archive(context.Background(), podcast, dir); err != nil {
					t.Fatalf("day %d: Archive returned error: %v", i+1, err)
				}
			}
			if got := snapshotNames(t, dir); !equalNames(got, tt.want) {
				t.Fatalf("expected snapshots %v, got %v", tt.want, got)
			}
		})
	}
}

func TestArchiveMemoizesPerRun(t *testing.T) {
	origin := testsupport.NewOrigin(t)
	origin.Serve("/feed.xml", []byte("<rss/>"))
	dir := t.TempDir()
	podcast := episode.Podcast{Title: "Show", FeedURL: origin.URL("/feed.xml")}

	a := feeds.NewArchiver(newFetcher(), nil, feeds.WithClock(day(1)))
	for i := 0; i < 3; i++ {
		if err := a.Archive(context.Background(), podcast, dir); err != nil {
			t.Fatalf("Archive returned error: %v", err)
		}
	}
	if origin.Hits("/feed.xml") != 1 {
		t.Fatalf("expected one fetch per run, got %d", origin.Hits("/feed.xml"))
	}
	if a.Attempted() != 1 {
		t.Fatalf("expected one attempted feed, got %d", a.Attempted())
	}

	sameDay := feeds.NewArchiver(newFetcher(), nil, feeds.WithClock(day(1)))
	if err := sameDay.Archive(context.Background(), podcast, dir); err != nil {
		t.Fatalf("Archive returned error: %v", err)
	}
	if origin.Hits("/feed.xml") != 1 {
		t.Fatalf("expected same-day run to reuse dated snapshot, got %d fetches", origin.Hits("/feed.xml"))
	}
}

func TestArchiveMemoizesFailures(t *testing.T) {
	origin := testsupport.NewOrigin(t)
	dir := t.TempDir()
	podcast := episode.Podcast{Title: "Show", FeedURL: origin.URL("/gone.xml")}

	a := feeds.NewArchiver(newFetcher(), nil, feeds.WithClock(day(1)))
	first := a.Archive(context.Background(), podcast, dir)
	if !errors.Is(first, failure.ErrDownloadFailed) {
		t.Fatalf("expected ErrDownloadFailed, got %v", first)
	}
	second := a.Archive(context.Background(), podcast, dir)
	if second != first {
		t.Fatalf("expected memoized error, got %v", second)
	}
	if origin.Hits("/gone.xml") != 1 {
		t.Fatalf("expected failed feed attempted once, got %d", origin.Hits("/gone.xml"))
	}
}

func TestArchiveSkipsPodcastWithoutFeed(t *testing.T) {
	dir := t.TempDir()
	a := feeds.NewArchiver(newFetcher(), nil)
	if err := a.Archive(context.Background(), episode.Podcast{Title: "No Feed"}, dir); err != nil {
		t.Fatalf("Archive returned error: %v", err)
	}
	if got := snapshotNames(t, dir); len(got) != 0 {
		t.Fatalf("expected no snapshots, got %v", got)
	}
}

func TestSnapshotsIgnoresUndatedFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"feed.2026-05-02.xml", "feed.2026-05-01.xml", "feed.latest.xml", "feed.2026-13-01.xml", "Episode.mp3"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	want := []string{"feed.2026-05-01.xml", "feed.2026-05-02.xml"}
	if got := snapshotNames(t, dir); !equalNames(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
