package collector

import (
	"encoding/xml"
	"fmt"
	"strings"
	"sync"
	"time"
)

// FeedItem is one entry normalized across RSS 2.0 and Atom.
type FeedItem struct {
	Title       string
	Link        string
	Summary     string
	PublishedAt *time.Time
}

type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

type atomDoc struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

// parseFeed decodes data as RSS first, then Atom, over the same bytes.
func parseFeed(data []byte) ([]FeedItem, error) {
	var rss rssDoc
	if err := xml.Unmarshal(data, &rss); err == nil {
		items := make([]FeedItem, 0, len(rss.Channel.Items))
		for _, it := range rss.Channel.Items {
			items = append(items, FeedItem{
				Title:       strings.TrimSpace(it.Title),
				Link:        strings.TrimSpace(it.Link),
				Summary:     strings.TrimSpace(it.Description),
				PublishedAt: parseFeedDate(it.PubDate),
			})
		}
		return items, nil
	}

	var atom atomDoc
	if err := xml.Unmarshal(data, &atom); err != nil {
		return nil, fmt.Errorf("failed to parse feed as RSS or Atom: %w", err)
	}
	items := make([]FeedItem, 0, len(atom.Entries))
	for _, e := range atom.Entries {
		summary := strings.TrimSpace(e.Summary)
		if summary == "" {
			summary = strings.TrimSpace(e.Content)
		}
		published := e.Published
		if published == "" {
			published = e.Updated
		}
		items = append(items, FeedItem{
			Title:       strings.TrimSpace(e.Title),
			Link:        atomEntryLink(e),
			Summary:     summary,
			PublishedAt: parseFeedDate(published),
		})
	}
	return items, nil
}

// atomEntryLink prefers the alternate link, falling back to the first.
func atomEntryLink(e atomEntry) string {
	for _, l := range e.Links {
		if l.Rel == "" || l.Rel == "alternate" {
			return strings.TrimSpace(l.Href)
		}
	}
	if len(e.Links) > 0 {
		return strings.TrimSpace(e.Links[0].Href)
	}
	return ""
}

// Date formats seen in the wild across RSS and Atom feeds.
var feedDateFormats = []string{
	time.RFC3339,
	time.RFC1123,
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
}

func parseFeedDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, format := range feedDateFormats {
		if t, err := time.Parse(format, s); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

// feedCache holds conditional-GET validators per feed URL for the lifetime
// of the process. A restart refetches everything; URL dedup absorbs that.
type feedCache struct {
	mu      sync.Mutex
	entries map[string]feedCacheEntry
}

type feedCacheEntry struct {
	lastModified string
	etag         string
}

func newFeedCache() *feedCache {
	return &feedCache{entries: make(map[string]feedCacheEntry)}
}

func (c *feedCache) get(feedURL string) feedCacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[feedURL]
}

func (c *feedCache) set(feedURL, lastModified, etag string) {
	if lastModified == "" && etag == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[feedURL] = feedCacheEntry{lastModified: lastModified, etag: etag}
}
