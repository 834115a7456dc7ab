package feeds

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// RSS is the subset of an RSS 2.0 podcast feed needed to recover episode
// audio from a snapshot.
type RSS struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel Channel  `xml:"channel"`
}

type Channel struct {
	Title string `xml:"title"`
	Link  string `xml:"link"`
	Items []Item `xml:"item"`
}

type Item struct {
	Title     string     `xml:"title"`
	GUID      string     `xml:"guid"`
	PubDate   string     `xml:"pubDate"`
	Enclosure *Enclosure `xml:"enclosure"`
}

type Enclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length int64  `xml:"length,attr"`
}

// ParseRSS decodes a feed document. Non-UTF-8 encodings declared in the XML
// prolog are transcoded.
func ParseRSS(r io.Reader) (*RSS, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.CharsetReader = charsetReader
	var feed RSS
	if err := dec.Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode rss: %w", err)
	}
	return &feed, nil
}

// ParseRSSFile decodes the feed stored at path.
func ParseRSSFile(path string) (*RSS, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	feed, err := ParseRSS(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return feed, nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(strings.TrimSpace(label))
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}
