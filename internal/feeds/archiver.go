package feeds

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"podarchive/internal/episode"
	"podarchive/internal/fileutil"
	"podarchive/internal/logging"
)

const (
	snapshotPrefix     = "feed."
	snapshotSuffix     = ".xml"
	snapshotDateLayout = "2006-01-02"
)

// Downloader fetches url into dest, skipping the fetch when dest exists.
type Downloader interface {
	Download(ctx context.Context, url, dest string) (string, error)
}

type feedKey struct {
	title string
	url   string
}

// Archiver keeps dated snapshots of podcast feeds. Each feed is attempted at
// most once per Archiver, so callers create one per run.
type Archiver struct {
	downloader Downloader
	logger     *slog.Logger
	now        func() time.Time

	attempted map[feedKey]error
}

// Option customizes an Archiver.
type Option func(*Archiver)

// WithClock overrides the clock used to date snapshots.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) {
		if now != nil {
			a.now = now
		}
	}
}

// NewArchiver returns an Archiver for a single run.
func NewArchiver(d Downloader, logger *slog.Logger, opts ...Option) *Archiver {
	a := &Archiver{
		downloader: d,
		logger:     logging.NewComponentLogger(logger, "feeds"),
		now:        time.Now,
		attempted:  map[feedKey]error{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Archive stores today's snapshot of the podcast feed in podcastDir and then
// drops trailing snapshots identical to their predecessor. Repeat calls for
// the same (title, feed URL) return the first call's result without work.
func (a *Archiver) Archive(ctx context.Context, podcast episode.Podcast, podcastDir string) error {
	feedURL := strings.TrimSpace(podcast.FeedURL)
	if feedURL == "" {
		return nil
	}
	key := feedKey{title: podcast.Title, url: feedURL}
	if err, done := a.attempted[key]; done {
		return err
	}

	err := a.archive(ctx, feedURL, podcastDir)
	a.attempted[key] = err
	return err
}

// Attempted returns how many distinct feeds this Archiver has tried.
func (a *Archiver) Attempted() int {
	return len(a.attempted)
}

func (a *Archiver) archive(ctx context.Context, feedURL, podcastDir string) error {
	dest := filepath.Join(podcastDir, SnapshotName(a.now()))
	if _, err := a.downloader.Download(ctx, feedURL, dest); err != nil {
		return err
	}
	removed, err := Prune(podcastDir)
	if err != nil {
		return err
	}
	logging.WithContext(ctx, a.logger).Debug("feed snapshot archived",
		logging.String("path", dest),
		logging.Int("pruned", len(removed)),
	)
	return nil
}

// SnapshotName returns the snapshot filename for the calendar day of t.
func SnapshotName(t time.Time) string {
	return snapshotPrefix + t.Format(snapshotDateLayout) + snapshotSuffix
}

// Snapshots lists the snapshot files in dir in chronological order. Files
// whose names do not carry a valid date are ignored.
func Snapshots(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotSuffix) {
			continue
		}
		date := strings.TrimSuffix(strings.TrimPrefix(name, snapshotPrefix), snapshotSuffix)
		if _, err := time.Parse(snapshotDateLayout, date); err != nil {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// Prune deletes the newest snapshot while it is byte-identical to the one
// before it, so every retained snapshot differs from its predecessor. It
// returns the removed paths.
func Prune(dir string) ([]string, error) {
	snapshots, err := Snapshots(dir)
	if err != nil {
		return nil, err
	}
	var removed []string
	for len(snapshots) >= 2 {
		newest := snapshots[len(snapshots)-1]
		previous := snapshots[len(snapshots)-2]
		same, err := fileutil.SameContents(previous, newest)
		if err != nil {
			return removed, err
		}
		if !same {
			break
		}
		if err := os.Remove(newest); err != nil {
			return removed, err
		}
		removed = append(removed, newest)
		snapshots = snapshots[:len(snapshots)-1]
	}
	return removed, nil
}

