package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"podarchive/internal/archive"
	"podarchive/internal/episode"
	"podarchive/internal/failure"
	"podarchive/internal/feeds"
	"podarchive/internal/logging"
	"podarchive/internal/textutil"
)

const unknownPodcastDir = "Unknown Podcast"

// Downloader is shared by audio placement and feed snapshots.
type Downloader interface {
	Download(ctx context.Context, url, dest string) (string, error)
}

// Ledger is the commit log consulted before and written after each episode.
type Ledger interface {
	Has(ctx context.Context, id string) bool
	Mark(ctx context.Context, id string) error
}

// Options configures a Runner.
type Options struct {
	DownloadDir string
	Snapshots   bool
	// Clock dates feed snapshots; defaults to time.Now.
	Clock func() time.Time
}

// Runner drives one archive pass over an export.
type Runner struct {
	opts       Options
	downloader Downloader
	ledger     Ledger
	logger     *slog.Logger
}

// New builds a Runner.
func New(opts Options, downloader Downloader, ledger Ledger, logger *slog.Logger) *Runner {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Runner{
		opts:       opts,
		downloader: downloader,
		ledger:     ledger,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
	}
}

// PodcastDir returns the directory holding a podcast's archive.
func PodcastDir(root string, podcast episode.Podcast) string {
	return filepath.Join(root, textutil.SafeSegment(podcast.Title, unknownPodcastDir))
}

// Run processes episodes in order. Per-episode failures are recorded in the
// summary and processing continues; only context cancellation stops the run
// early. An episode is marked in the ledger only after its audio and
// metadata are in place.
func (r *Runner) Run(ctx context.Context, episodes []episode.Episode) (Summary, error) {
	runID, ok := logging.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = logging.WithRunID(ctx, runID)
	}
	summary := Summary{RunID: runID, Started: time.Now()}
	placer := archive.NewPlacer(r.downloader, r.logger)
	archiver := feeds.NewArchiver(r.downloader, r.logger, feeds.WithClock(r.opts.Clock))
	logger := logging.WithContext(ctx, r.logger)

	logger.Info("archive run started",
		logging.Int("episodes", len(episodes)),
		logging.String("download_dir", r.opts.DownloadDir),
	)

	for _, ep := range episodes {
		if err := ctx.Err(); err != nil {
			summary.Finished = time.Now()
			return summary, err
		}
		summary.Results = append(summary.Results, r.process(ctx, placer, archiver, ep))
	}

	summary.Finished = time.Now()
	summary.FeedsAttempted = archiver.Attempted()
	logger.Info("archive run finished",
		logging.Int("episodes", len(summary.Results)),
		logging.Int(string(OutcomeSkipped), summary.Count(OutcomeSkipped)),
		logging.Int(string(archive.OutcomeDownloaded), summary.Count(Outcome(archive.OutcomeDownloaded))),
		logging.Int("failed", summary.Failed()),
		logging.Duration("elapsed", summary.Finished.Sub(summary.Started)),
	)
	return summary, nil
}

func (r *Runner) process(ctx context.Context, placer *archive.Placer, archiver *feeds.Archiver, ep episode.Episode) Result {
	ctx = logging.WithOvercastID(ctx, ep.OvercastID)
	logger := logging.WithContext(ctx, r.logger)
	result := Result{Episode: ep}

	if err := ep.Validate(); err != nil {
		return r.fail(logger, result, err)
	}
	if r.ledger.Has(ctx, ep.OvercastID) {
		result.Outcome = OutcomeSkipped
		logger.Debug("episode already archived", logging.String("episode", ep.Label()))
		return result
	}

	podcastDir := PodcastDir(r.opts.DownloadDir, ep.Podcast)
	entry, err := placer.Place(ctx, ep, podcastDir)
	if err != nil {
		return r.fail(logger, result, err)
	}
	result.Entry = entry
	result.Outcome = Outcome(entry.Outcome)

	if r.opts.Snapshots {
		if err := archiver.Archive(ctx, ep.Podcast, podcastDir); err != nil {
			result.SnapshotErr = err
			logging.WarnWithContext(logger, "feed snapshot failed", "feed_snapshot_failed",
				logging.String(logging.FieldPodcast, ep.Podcast.Title),
				logging.String("feed_url", ep.Podcast.FeedURL),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the feed may be offline; the next run retries"),
				logging.String(logging.FieldImpact, "no feed snapshot for this podcast today"),
			)
		}
	}

	if err := r.ledger.Mark(ctx, ep.OvercastID); err != nil {
		return r.fail(logger, result, err)
	}

	logger.Info("episode archived",
		logging.String("episode", ep.Label()),
		logging.String("outcome", string(result.Outcome)),
		logging.String("path", entry.AudioPath),
	)
	return result
}

func (r *Runner) fail(logger *slog.Logger, result Result, err error) Result {
	result.Outcome = OutcomeFailed
	result.Err = err
	logging.ErrorWithContext(logger, "episode failed", "episode_failed",
		logging.String("episode", result.Episode.Label()),
		logging.String(logging.FieldErrorKind, failure.Kind(err)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hintFor(err)),
	)
	return result
}

func hintFor(err error) string {
	switch failure.Kind(err) {
	case "metadata_corrupt":
		return "inspect or remove the metadata file named in the error"
	case "ledger_unavailable":
		return "check permissions on the ledger database in download_dir"
	case "invalid_episode":
		return "the export entry lacks an id or enclosure url"
	case "download_failed_permanent":
		return "the source no longer serves this file"
	default:
		return "re-run later; transient failures are retried next time"
	}
}
