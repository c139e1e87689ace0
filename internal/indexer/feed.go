package indexer

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fetcharr/fetcharr/internal/release"
)

// FeedItem is one entry of a parsed newznab/torznab feed.
type FeedItem struct {
	Title       string
	DownloadURL string
	Description string
	Size        int64
	PublishDate time.Time
	Protocol    release.Protocol
	Seeders     int
	Leechers    int
}

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string       `xml:"title"`
	Link        string       `xml:"link"`
	GUID        string       `xml:"guid"`
	PubDate     string       `xml:"pubDate"`
	Description string       `xml:"description"`
	Size        int64        `xml:"size"`
	Enclosure   rssEnclosure `xml:"enclosure"`
	Attrs       []rssAttr    `xml:"attr"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

// rssAttr covers both newznab:attr and torznab:attr elements; the XML
// decoder matches on the local name.
type rssAttr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ParseFeed parses a newznab/torznab XML response.
func ParseFeed(data []byte) ([]FeedItem, error) {
	var feed rssFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("invalid feed xml: %w", err)
	}

	var items []FeedItem
	for _, item := range feed.Channel.Items {
		downloadURL := item.Link
		if downloadURL == "" && item.Enclosure.URL != "" {
			downloadURL = item.Enclosure.URL
		}
		if downloadURL == "" {
			continue
		}

		size := item.Size
		if size == 0 && item.Enclosure.Length > 0 {
			size = item.Enclosure.Length
		}

		fi := FeedItem{
			Title:       item.Title,
			DownloadURL: downloadURL,
			Description: item.Description,
			Size:        size,
			PublishDate: parseDate(item.PubDate),
			Protocol:    inferProtocol(downloadURL, item.Enclosure.Type),
		}

		for _, attr := range item.Attrs {
			switch attr.Name {
			case "size":
				if v, err := strconv.ParseInt(attr.Value, 10, 64); err == nil && v > 0 {
					fi.Size = v
				}
			case "seeders":
				if v, err := strconv.Atoi(attr.Value); err == nil {
					fi.Seeders = v
					fi.Protocol = release.ProtocolTorrent
				}
			case "peers", "leechers":
				if v, err := strconv.Atoi(attr.Value); err == nil {
					fi.Leechers = v
				}
			case "magneturl":
				if attr.Value != "" {
					fi.DownloadURL = attr.Value
					fi.Protocol = release.ProtocolTorrentMagnet
				}
			}
		}

		items = append(items, fi)
	}

	return items, nil
}

func parseDate(s string) time.Time {
	for _, layout := range []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC3339,
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func inferProtocol(url, enclosureType string) release.Protocol {
	if strings.HasPrefix(url, "magnet:") {
		return release.ProtocolTorrentMagnet
	}
	if enclosureType == "application/x-nzb" || strings.Contains(url, ".nzb") {
		return release.ProtocolUsenet
	}
	if enclosureType == "application/x-bittorrent" || strings.Contains(url, ".torrent") {
		return release.ProtocolTorrent
	}
	return release.ProtocolUsenet
}
