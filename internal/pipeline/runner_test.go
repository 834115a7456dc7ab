package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"podarchive/internal/archive"
	"podarchive/internal/episode"
	"podarchive/internal/failure"
	"podarchive/internal/fetch"
	"podarchive/internal/ledger"
	"podarchive/internal/pipeline"
	"podarchive/internal/testsupport"
)

type fixture struct {
	origin  *testsupport.Origin
	root    string
	fetcher *fetch.Fetcher
	ledger  *ledger.Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return &fixture{
		origin:  testsupport.NewOrigin(t),
		root:    cfg.Paths.DownloadDir,
		fetcher: fetch.New(fetch.Config{Attempts: 1}, fetch.WithSleeper(func(time.Duration) {})),
		ledger:  testsupport.MustOpenLedger(t, cfg),
	}
}

func (f *fixture) runner(ledger pipeline.Ledger) *pipeline.Runner {
	if ledger == nil {
		ledger = f.ledger
	}
	return pipeline.New(pipeline.Options{
		DownloadDir: f.root,
		Snapshots:   true,
		Clock:       func() time.Time { return time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC) },
	}, f.fetcher, ledger, nil)
}

func (f *fixture) episode(id, title, audioPath string) episode.Episode {
	return episode.Episode{
		Podcast:      episode.Podcast{Title: "Example: Show", FeedURL: f.origin.URL("/feed.xml")},
		Title:        title,
		OvercastID:   id,
		OvercastURL:  "https://overcast.fm/+" + id,
		EnclosureURL: f.origin.URL(audioPath),
	}
}

func tree(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(root, path)
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	sort.Strings(files)
	return files
}

func contents(t *testing.T, root string, files []string) map[string]string {
	t.Helper()
	out := make(map[string]string, len(files))
	for _, f := range files {
		if filepath.Ext(f) == ".sqlite" || filepath.Ext(f) == ".sqlite-wal" || filepath.Ext(f) == ".sqlite-shm" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, f))
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		out[f] = string(data)
	}
	return out
}

func TestRunIsIdempotentWithZeroNetworkOnRerun(t *testing.T) {
	f := newFixture(t)
	f.origin.Serve("/feed.xml", []byte("<rss/>"))
	f.origin.Serve("/a.mp3", []byte("audio a"))
	f.origin.Serve("/b.mp3", []byte("audio b, different"))
	f.origin.Serve("/c.mp3", []byte("audio a"))

	episodes := []episode.Episode{
		f.episode("A", "Episode-1", "/a.mp3"),
		f.episode("B", "Episode-1", "/b.mp3"),
		f.episode("C", "Episode-1", "/c.mp3"),
	}

	first, err := f.runner(nil).Run(context.Background(), episodes)
	if err != nil {
		t.Fatalf("first run returned error: %v", err)
	}
	if first.Failed() != 0 {
		t.Fatalf("unexpected failures: %+v", first.Failures())
	}
	if first.Count(pipeline.Outcome(archive.OutcomeDownloaded)) != 1 ||
		first.Count(pipeline.Outcome(archive.OutcomeDisambiguated)) != 1 ||
		first.Count(pipeline.Outcome(archive.OutcomeCollapsed)) != 1 {
		t.Fatalf("unexpected outcomes: %+v", first.Results)
	}
	if first.FeedsAttempted != 1 || f.origin.Hits("/feed.xml") != 1 {
		t.Fatalf("expected feed fetched once per run, got %d", f.origin.Hits("/feed.xml"))
	}

	podcastDir := filepath.Join(f.root, "Example- Show")
	if _, err := os.Stat(filepath.Join(podcastDir, "feed.2026-05-01.xml")); err != nil {
		t.Fatalf("expected feed snapshot: %v", err)
	}
	filesAfterFirst := tree(t, f.root)
	snapshot := contents(t, f.root, filesAfterFirst)

	f.origin.Reset()
	second, err := f.runner(nil).Run(context.Background(), episodes)
	if err != nil {
		t.Fatalf("second run returned error: %v", err)
	}
	if second.Count(pipeline.OutcomeSkipped) != len(episodes) {
		t.Fatalf("expected all episodes skipped, got %+v", second.Results)
	}
	if f.origin.Total() != 0 {
		t.Fatalf("expected zero network calls on re-run, got %d", f.origin.Total())
	}
	filesAfterSecond := tree(t, f.root)
	if len(filesAfterSecond) != len(filesAfterFirst) {
		t.Fatalf("file set changed: %v -> %v", filesAfterFirst, filesAfterSecond)
	}
	for name, body := range contents(t, f.root, filesAfterSecond) {
		if snapshot[name] != body {
			t.Fatalf("content of %s changed on re-run", name)
		}
	}
}

func TestRunCompletesInterruptedCommit(t *testing.T) {
	f := newFixture(t)
	f.origin.Serve("/feed.xml", []byte("<rss/>"))
	f.origin.Serve("/a.mp3", []byte("audio a"))
	ep := f.episode("A", "Episode 1", "/a.mp3")

	// Simulate a run that placed the audio and crashed before marking.
	placer := archive.NewPlacer(f.fetcher, nil)
	if _, err := placer.Place(context.Background(), ep, pipeline.PodcastDir(f.root, ep.Podcast)); err != nil {
		t.Fatalf("Place: %v", err)
	}
	if f.ledger.Has(context.Background(), "A") {
		t.Fatal("ledger must not be marked by placement alone")
	}

	summary, err := f.runner(nil).Run(context.Background(), []episode.Episode{ep})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := summary.Results[0].Outcome; got != pipeline.Outcome(archive.OutcomeExisting) {
		t.Fatalf("expected existing outcome, got %s", got)
	}
	if f.origin.Hits("/a.mp3") != 1 {
		t.Fatalf("expected no re-download, got %d audio requests", f.origin.Hits("/a.mp3"))
	}
	if !f.ledger.Has(context.Background(), "A") {
		t.Fatal("expected ledger mark after re-run")
	}
}

func TestRunContinuesAfterEpisodeFailure(t *testing.T) {
	f := newFixture(t)
	f.origin.Serve("/good.mp3", []byte("good"))

	episodes := []episode.Episode{
		f.episode("BAD", "Gone", "/gone.mp3"),
		{OvercastID: "", Title: "No id"},
		f.episode("GOOD", "Fine", "/good.mp3"),
	}
	summary, err := f.runner(nil).Run(context.Background(), episodes)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Failed() != 2 {
		t.Fatalf("expected 2 failures, got %+v", summary.Results)
	}
	if !errors.Is(summary.Results[0].Err, failure.ErrDownloadFailed) {
		t.Fatalf("expected download failure, got %v", summary.Results[0].Err)
	}
	if !errors.Is(summary.Results[1].Err, failure.ErrInvalidEpisode) {
		t.Fatalf("expected invalid episode, got %v", summary.Results[1].Err)
	}
	if summary.Results[2].Outcome != pipeline.Outcome(archive.OutcomeDownloaded) {
		t.Fatalf("expected later episode to be archived, got %s", summary.Results[2].Outcome)
	}
	if summary.Results[2].SnapshotErr == nil || summary.SnapshotFailures() != 1 {
		t.Fatal("expected missing feed to be reported as a snapshot failure")
	}
	if f.ledger.Has(context.Background(), "BAD") {
		t.Fatal("failed episode must not be marked")
	}
	if !f.ledger.Has(context.Background(), "GOOD") {
		t.Fatal("snapshot failure must not block the ledger mark")
	}
}

type brokenLedger struct{ marks int }

func (l *brokenLedger) Has(context.Context, string) bool { return false }

func (l *brokenLedger) Mark(context.Context, string) error {
	l.marks++
	return failure.Wrap(failure.ErrLedgerUnavailable, "ledger", "mark", "disk full", nil)
}

func TestRunSurfacesLedgerWriteFailure(t *testing.T) {
	f := newFixture(t)
	f.origin.Serve("/a.mp3", []byte("audio"))
	l := &brokenLedger{}

	summary, err := f.runner(l).Run(context.Background(), []episode.Episode{f.episode("A", "Episode", "/a.mp3")})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if l.marks != 1 {
		t.Fatalf("expected one mark attempt, got %d", l.marks)
	}
	if !errors.Is(summary.Results[0].Err, failure.ErrLedgerUnavailable) {
		t.Fatalf("expected ledger failure in summary, got %v", summary.Results[0].Err)
	}
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := f.runner(nil).Run(ctx, []episode.Episode{f.episode("A", "Episode", "/a.mp3")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(summary.Results) != 0 || f.origin.Total() != 0 {
		t.Fatalf("expected no work after cancellation, got %d results and %d requests", len(summary.Results), f.origin.Total())
	}
}
