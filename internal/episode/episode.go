package episode

import (
	"strings"

	"podarchive/internal/failure"
)

// Podcast identifies the show an episode belongs to.
type Podcast struct {
	Title   string
	Text    string
	FeedURL string
}

// Episode is a single listened episode taken from the export. OvercastID is
// the durable identity; titles and enclosure URLs may repeat across distinct
// episodes.
type Episode struct {
	Podcast       Podcast
	Title         string
	PublishedDate string
	URL           string
	OvercastID    string
	OvercastURL   string
	EnclosureURL  string
}

// Validate checks the fields the archive cannot work without.
func (e Episode) Validate() error {
	if strings.TrimSpace(e.OvercastID) == "" {
		return failure.Wrap(failure.ErrInvalidEpisode, "episode", "validate", "missing overcast id", nil)
	}
	if strings.TrimSpace(e.EnclosureURL) == "" {
		return failure.Wrap(failure.ErrInvalidEpisode, "episode", "validate", "missing enclosure url for "+e.OvercastID, nil)
	}
	return nil
}

// Label returns a human-friendly description for logs and summaries.
func (e Episode) Label() string {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		title = e.OvercastID
	}
	if podcast := strings.TrimSpace(e.Podcast.Title); podcast != "" {
		return podcast + " / " + title
	}
	return title
}
