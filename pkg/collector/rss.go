package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/constraint-watch/chokepoint/pkg/canonical"
	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

// collectFeed pulls a source's RSS/Atom feed and stores unseen entries.
// Each new entry gets a full-article fetch for its body text, falling back
// to the feed summary when the article is unreachable or empty.
func (c *Collector) collectFeed(ctx context.Context, src models.Source) (int, error) {
	if src.FeedURL == nil || *src.FeedURL == "" {
		c.logger.Warn("Source has no feed_url, skipping", "source_id", src.SourceID)
		return 0, nil
	}
	feedURL := *src.FeedURL

	data, notModified, err := c.fetchFeed(ctx, feedURL)
	if err != nil {
		c.logger.Error("Failed to fetch feed", "source_id", src.SourceID, "url", feedURL, "error", err)
		return 0, nil
	}
	if notModified {
		return 0, nil
	}

	entries, err := parseFeed(data)
	if err != nil {
		c.logger.Error("Failed to parse feed", "source_id", src.SourceID, "url", feedURL, "error", err)
		return 0, nil
	}

	newCount := 0
	for _, entry := range entries {
		if entry.Link == "" {
			continue
		}
		urlHash := canonical.URLHash(entry.Link)
		seen, err := c.store.Items.URLSeen(ctx, urlHash)
		if err != nil {
			return newCount, err
		}
		if seen {
			continue
		}

		rawText := ""
		if body, err := c.fetcher.Get(ctx, entry.Link, FetchOptions{Timeout: articleTimeout}); err == nil {
			rawText = ExtractArticle(string(body))
		} else {
			c.logger.Debug("Could not fetch article body, using feed summary", "url", entry.Link, "error", err)
		}
		if rawText == "" {
			rawText = entry.Summary
		}

		var contentHash *string
		if rawText != "" {
			h := canonical.ContentHash(rawText)
			dup, err := c.store.Items.ContentSeen(ctx, h)
			if err != nil {
				return newCount, err
			}
			if dup {
				continue
			}
			contentHash = &h
		}

		inserted, err := c.store.Items.Insert(ctx, store.NewItem{
			SourceID:    src.SourceID,
			URL:         entry.Link,
			URLHash:     urlHash,
			ContentHash: contentHash,
			Title:       entry.Title,
			RawText:     rawText,
			Language:    src.Language,
			PublishedAt: entry.PublishedAt,
		})
		if err != nil {
			return newCount, err
		}
		if inserted {
			newCount++
		}
	}
	if newCount > 0 {
		c.logger.Info("Feed collected new items", "source_id", src.SourceID, "count", newCount)
	}
	return newCount, nil
}

// fetchFeed performs a conditional GET against feedURL, reusing validators
// from the previous fetch in this process.
func (c *Collector) fetchFeed(ctx context.Context, feedURL string) (data []byte, notModified bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, feedTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, false, err
	}
	cached := c.feeds.get(feedURL)
	if cached.lastModified != "" {
		req.Header.Set("If-Modified-Since", cached.lastModified)
	}
	if cached.etag != "" {
		req.Header.Set("If-None-Match", cached.etag)
	}

	resp, err := c.fetcher.Do(req, FetchOptions{})
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}
	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}
	c.feeds.set(feedURL, resp.Header.Get("Last-Modified"), resp.Header.Get("ETag"))
	return data, false, nil
}
