package feeds

import (
	"context"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"podarchive/internal/archive"
	"podarchive/internal/failure"
	"podarchive/internal/fileutil"
	"podarchive/internal/logging"
	"podarchive/internal/textutil"
)

// BackfillOptions narrows a backfill run.
type BackfillOptions struct {
	// Podcast limits the walk to one podcast directory name.
	Podcast string
	// DryRun reports missing files without downloading them.
	DryRun bool
}

// BackfillFailure records an item that could not be downloaded.
type BackfillFailure struct {
	Path string
	URL  string
	Err  error
}

// BackfillResult counts what a backfill run did.
type BackfillResult struct {
	Podcasts   int
	Snapshots  int
	Downloaded int
	Existing   int
	Missing    int
	Skipped    int
	Failures   []BackfillFailure
}

// Backfill downloads every enclosure listed in the archived feed snapshots
// under root that is not on disk yet, including episodes that were never
// played. Filenames are resolved exactly as for played episodes, so audio
// already archived from the export is recognised. No metadata or ledger
// entries are written. Per-item failures are collected and the walk goes on.
func Backfill(ctx context.Context, d Downloader, root string, opts BackfillOptions, logger *slog.Logger) (BackfillResult, error) {
	logger = logging.NewComponentLogger(logger, "backfill")
	var result BackfillResult

	entries, err := os.ReadDir(root)
	if err != nil {
		return result, failure.Wrap(failure.ErrPermanent, "backfill", "read archive root", root, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if opts.Podcast != "" && entry.Name() != opts.Podcast {
			continue
		}
		podcastDir := filepath.Join(root, entry.Name())
		snapshots, err := Snapshots(podcastDir)
		if err != nil {
			return result, failure.Wrap(failure.ErrPermanent, "backfill", "list snapshots", podcastDir, err)
		}
		if len(snapshots) == 0 {
			continue
		}
		result.Podcasts++

		seen := map[string]struct{}{}
		for _, snapshot := range snapshots {
			result.Snapshots++
			feed, err := ParseRSSFile(snapshot)
			if err != nil {
				logging.WarnWithContext(logger, "skipping unreadable feed snapshot", "backfill_snapshot_invalid",
					logging.String("path", snapshot),
					logging.Error(err),
					logging.String(logging.FieldImpact, "episodes only listed in this snapshot are not backfilled"),
				)
				continue
			}
			for _, item := range feed.Channel.Items {
				if err := ctx.Err(); err != nil {
					return result, err
				}
				backfillItem(ctx, d, podcastDir, item, opts, seen, &result, logger)
			}
		}
	}
	return result, nil
}

func backfillItem(ctx context.Context, d Downloader, podcastDir string, item Item, opts BackfillOptions, seen map[string]struct{}, result *BackfillResult, logger *slog.Logger) {
	if item.Enclosure == nil || strings.TrimSpace(item.Enclosure.URL) == "" {
		result.Skipped++
		return
	}
	enclosureURL := strings.TrimSpace(item.Enclosure.URL)
	title := textutil.SmartQuotes(html.UnescapeString(item.Title))
	path := filepath.Join(podcastDir, archive.ResolveFilename(title, enclosureURL))
	if _, dup := seen[path]; dup {
		return
	}
	seen[path] = struct{}{}

	exists, err := fileutil.Exists(path)
	if err == nil && exists {
		result.Existing++
		return
	}
	if opts.DryRun {
		result.Missing++
		logger.Info("missing episode", logging.String("path", path), logging.String("url", enclosureURL))
		return
	}

	logger.Info("downloading episode", logging.String("title", title), logging.String("path", path))
	if _, err := d.Download(ctx, enclosureURL, path); err != nil {
		result.Failures = append(result.Failures, BackfillFailure{Path: path, URL: enclosureURL, Err: err})
		logging.WarnWithContext(logger, "backfill download failed", "backfill_download_failed",
			logging.String("url", enclosureURL),
			logging.Error(err),
			logging.String(logging.FieldErrorKind, failure.Kind(err)),
			logging.String(logging.FieldImpact, "episode stays missing until the next backfill"),
		)
		return
	}
	result.Downloaded++
}
