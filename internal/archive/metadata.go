package archive

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"podarchive/internal/episode"
	"podarchive/internal/failure"
	"podarchive/internal/fileutil"
)

// Metadata is the JSON record stored next to each archived audio file.
// Fields are declared in key order so the encoded document has sorted keys.
type Metadata struct {
	Episode  EpisodeRecord `json:"episode"`
	Filename string        `json:"filename"`
	Podcast  PodcastRecord `json:"podcast"`
}

// EpisodeRecord mirrors episode.Episode without the podcast.
type EpisodeRecord struct {
	EnclosureURL  string `json:"enclosure_url"`
	OvercastID    string `json:"overcast_id"`
	OvercastURL   string `json:"overcast_url"`
	PublishedDate string `json:"published_date"`
	Title         string `json:"title"`
	URL           string `json:"url"`
}

// PodcastRecord mirrors episode.Podcast.
type PodcastRecord struct {
	FeedURL string `json:"feed_url"`
	Text    string `json:"text"`
	Title   string `json:"title"`
}

// NewMetadata builds the record for ep stored under filename.
func NewMetadata(ep episode.Episode, filename string) Metadata {
	return Metadata{
		Episode: EpisodeRecord{
			EnclosureURL:  ep.EnclosureURL,
			OvercastID:    ep.OvercastID,
			OvercastURL:   ep.OvercastURL,
			PublishedDate: ep.PublishedDate,
			Title:         ep.Title,
			URL:           ep.URL,
		},
		Filename: filename,
		Podcast: PodcastRecord{
			FeedURL: ep.Podcast.FeedURL,
			Text:    ep.Podcast.Text,
			Title:   ep.Podcast.Title,
		},
	}
}

// Validate checks the fields placement decisions depend on.
func (m Metadata) Validate() error {
	if strings.TrimSpace(m.Episode.OvercastID) == "" {
		return errors.New("missing episode.overcast_id")
	}
	name := strings.TrimSpace(m.Filename)
	if name == "" {
		return errors.New("missing filename")
	}
	if filepath.Base(name) != name || name == "." || name == ".." {
		return errors.New("filename must be a plain file name")
	}
	return nil
}

// Encode renders the record as indented JSON with a trailing newline.
func (m Metadata) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// LoadMetadata reads the record at path. A missing file reports found=false
// with no error; anything unreadable or invalid is failure.ErrMetadataCorrupt.
func LoadMetadata(path string) (Metadata, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Metadata{}, false, nil
		}
		return Metadata{}, false, failure.Wrap(failure.ErrMetadataCorrupt, "archive", "read metadata", path, err)
	}
	var record Metadata
	if err := json.Unmarshal(data, &record); err != nil {
		return Metadata{}, false, failure.Wrap(failure.ErrMetadataCorrupt, "archive", "decode metadata", path, err)
	}
	if err := record.Validate(); err != nil {
		return Metadata{}, false, failure.Wrap(failure.ErrMetadataCorrupt, "archive", "validate metadata", path, err)
	}
	return record, true, nil
}

// WriteMetadata stores m at path atomically. The file is left alone when its
// content would not change. It reports whether a write happened.
func WriteMetadata(path string, m Metadata) (bool, error) {
	data, err := m.Encode()
	if err != nil {
		return false, failure.Wrap(failure.ErrPermanent, "archive", "encode metadata", path, err)
	}
	if current, err := os.ReadFile(path); err == nil && bytes.Equal(current, data) {
		return false, nil
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return false, failure.Wrap(failure.ErrPermanent, "archive", "write metadata", path, err)
	}
	return true, nil
}
