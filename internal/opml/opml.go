package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"podarchive/internal/episode"
)

const (
	feedsOutlineText   = "feeds"
	podcastOutlineType = "rss"
	episodeOutlineType = "podcast-episode"
)

type document struct {
	XMLName xml.Name  `xml:"opml"`
	Body    []outline `xml:"body>outline"`
}

type outline struct {
	Text         string    `xml:"text,attr"`
	Type         string    `xml:"type,attr"`
	Title        string    `xml:"title,attr"`
	XMLURL       string    `xml:"xmlUrl,attr"`
	OvercastID   string    `xml:"overcastId,attr"`
	PubDate      string    `xml:"pubDate,attr"`
	URL          string    `xml:"url,attr"`
	OvercastURL  string    `xml:"overcastUrl,attr"`
	EnclosureURL string    `xml:"enclosureUrl,attr"`
	Children     []outline `xml:"outline"`
}

// Parse reads an Overcast OPML export and returns the played episodes in
// document order. Only episodes under the "feeds" outline are returned;
// playlists and other sections are ignored.
func Parse(r io.Reader) ([]episode.Episode, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode opml: %w", err)
	}

	var episodes []episode.Episode
	for _, section := range doc.Body {
		if section.Text != feedsOutlineText {
			continue
		}
		for _, feed := range section.Children {
			if feed.Type != podcastOutlineType {
				continue
			}
			podcast := episode.Podcast{
				Title:   strings.TrimSpace(feed.Title),
				Text:    strings.TrimSpace(feed.Text),
				FeedURL: strings.TrimSpace(feed.XMLURL),
			}
			if podcast.Title == "" {
				podcast.Title = podcast.Text
			}
			for _, item := range feed.Children {
				if item.Type != episodeOutlineType {
					continue
				}
				episodes = append(episodes, episode.Episode{
					Podcast:       podcast,
					Title:         item.Title,
					PublishedDate: item.PubDate,
					URL:           item.URL,
					OvercastID:    strings.TrimSpace(item.OvercastID),
					OvercastURL:   item.OvercastURL,
					EnclosureURL:  strings.TrimSpace(item.EnclosureURL),
				})
			}
		}
	}
	return episodes, nil
}

// ParseFile reads the export at path.
func ParseFile(path string) ([]episode.Episode, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	episodes, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return episodes, nil
}
