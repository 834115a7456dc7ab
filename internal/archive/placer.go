package archive

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"podarchive/internal/episode"
	"podarchive/internal/failure"
	"podarchive/internal/fileutil"
	"podarchive/internal/logging"
)

// Outcome describes how Place settled an episode.
type Outcome string

const (
	// OutcomeDownloaded means the audio was fetched to its natural filename.
	OutcomeDownloaded Outcome = "downloaded"
	// OutcomeExisting means the episode was already archived; nothing was fetched.
	OutcomeExisting Outcome = "existing"
	// OutcomeDisambiguated means a distinct episode held the natural filename
	// and this one was stored under an identifier-suffixed name.
	OutcomeDisambiguated Outcome = "disambiguated"
	// OutcomeCollapsed means the audio was byte-identical to the episode
	// holding the natural filename; only metadata was kept.
	OutcomeCollapsed Outcome = "collapsed"
)

// Entry locates an archived episode on disk.
type Entry struct {
	AudioPath    string
	MetadataPath string
	Filename     string
	Outcome      Outcome
}

// Downloader fetches url into dest, returning the final path.
type Downloader interface {
	Download(ctx context.Context, url, dest string) (string, error)
}

// Placer decides where an episode's audio lives inside a podcast directory,
// resolving filename collisions between distinct episodes and collapsing
// republished duplicates.
type Placer struct {
	downloader Downloader
	logger     *slog.Logger
}

// NewPlacer returns a placer that downloads through d.
func NewPlacer(d Downloader, logger *slog.Logger) *Placer {
	return &Placer{
		downloader: d,
		logger:     logging.NewComponentLogger(logger, "archive"),
	}
}

// Place archives ep under podcastDir and writes its metadata. An existing
// metadata file is never overwritten with another episode's record, and a
// corrupt one stops placement with failure.ErrMetadataCorrupt.
func (p *Placer) Place(ctx context.Context, ep episode.Episode, podcastDir string) (Entry, error) {
	if err := ep.Validate(); err != nil {
		return Entry{}, err
	}
	logger := logging.WithContext(ctx, p.logger)

	filename := ResolveFilename(ep.Title, ep.EnclosureURL)
	entry := Entry{
		AudioPath:    filepath.Join(podcastDir, filename),
		MetadataPath: filepath.Join(podcastDir, MetadataName(filename)),
		Filename:     filename,
	}

	current, found, err := LoadMetadata(entry.MetadataPath)
	if err != nil {
		return Entry{}, err
	}
	exists, err := fileutil.Exists(entry.AudioPath)
	if err != nil {
		return Entry{}, failure.Wrap(failure.ErrPermanent, "archive", "stat audio", entry.AudioPath, err)
	}
	claimed := found && current.Episode.OvercastID != ep.OvercastID

	switch {
	case claimed:
		logger.Debug("filename collision",
			logging.String("filename", filename),
			logging.String("holder", current.Episode.OvercastID),
			logging.Bool("holder_audio_present", exists),
		)
		return p.placeCollision(ctx, ep, podcastDir, entry)
	case !exists:
		if _, err := p.downloader.Download(ctx, ep.EnclosureURL, entry.AudioPath); err != nil {
			return Entry{}, err
		}
		entry.Outcome = OutcomeDownloaded
		return p.finish(entry, ep, filename)
	case !found:
		logger.Info("adopting audio file without metadata",
			logging.String("path", entry.AudioPath),
			logging.String(logging.FieldEventType, "archive_adopt"),
		)
		entry.Outcome = OutcomeExisting
		return p.finish(entry, ep, filename)
	default:
		entry.Outcome = OutcomeExisting
		return p.finish(entry, ep, filename)
	}
}

func (p *Placer) placeCollision(ctx context.Context, ep episode.Episode, podcastDir string, original Entry) (Entry, error) {
	logger := logging.WithContext(ctx, p.logger)

	altName := DisambiguatedName(original.Filename, ep.OvercastID)
	alt := Entry{
		AudioPath:    filepath.Join(podcastDir, altName),
		MetadataPath: filepath.Join(podcastDir, MetadataName(altName)),
		Filename:     altName,
	}

	recorded, found, err := LoadMetadata(alt.MetadataPath)
	if err != nil {
		return Entry{}, err
	}
	if found {
		if recorded.Episode.OvercastID != ep.OvercastID {
			return Entry{}, failure.Wrap(failure.ErrMetadataCorrupt, "archive", "resolve collision",
				alt.MetadataPath+" records episode "+recorded.Episode.OvercastID, nil)
		}
		target := filepath.Join(podcastDir, recorded.Filename)
		ok, err := fileutil.Exists(target)
		if err != nil {
			return Entry{}, failure.Wrap(failure.ErrPermanent, "archive", "stat recorded audio", target, err)
		}
		if ok {
			resolved := Entry{
				AudioPath:    target,
				MetadataPath: alt.MetadataPath,
				Filename:     recorded.Filename,
				Outcome:      OutcomeExisting,
			}
			return p.finish(resolved, ep, recorded.Filename)
		}
	}

	if _, err := p.downloader.Download(ctx, ep.EnclosureURL, alt.AudioPath); err != nil {
		return Entry{}, err
	}

	// The natural filename may be claimed only by a record, as after a
	// collapse; with no audio there is nothing to compare against.
	holderExists, err := fileutil.Exists(original.AudioPath)
	if err != nil {
		return Entry{}, failure.Wrap(failure.ErrPermanent, "archive", "stat audio", original.AudioPath, err)
	}
	same := false
	if holderExists {
		same, err = fileutil.SameContents(original.AudioPath, alt.AudioPath)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, failure.Wrap(failure.ErrDownloadFailed, "archive", "compare duplicate", "downloaded file missing", err)
		}
		return Entry{}, failure.Wrap(failure.ErrPermanent, "archive", "compare duplicate", alt.AudioPath, err)
	}
	if !same {
		alt.Outcome = OutcomeDisambiguated
		logger.Info("stored colliding episode under disambiguated name",
			logging.String("filename", altName),
			logging.String(logging.FieldEventType, "archive_disambiguated"),
		)
		return p.finish(alt, ep, altName)
	}

	if err := os.Remove(alt.AudioPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Entry{}, failure.Wrap(failure.ErrPermanent, "archive", "remove duplicate", alt.AudioPath, err)
	}
	logger.Info("collapsed duplicate audio",
		logging.String("canonical", original.Filename),
		logging.String(logging.FieldEventType, "archive_collapsed"),
	)
	collapsed := Entry{
		AudioPath:    original.AudioPath,
		MetadataPath: alt.MetadataPath,
		Filename:     original.Filename,
		Outcome:      OutcomeCollapsed,
	}
	return p.finish(collapsed, ep, original.Filename)
}

func (p *Placer) finish(entry Entry, ep episode.Episode, filename string) (Entry, error) {
	if _, err := WriteMetadata(entry.MetadataPath, NewMetadata(ep, filename)); err != nil {
		return Entry{}, err
	}
	return entry, nil
}
