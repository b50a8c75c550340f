package collector

import (
	"context"

	"github.com/constraint-watch/chokepoint/pkg/canonical"
	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

// sweepTarget picks the page a scraping strategy should start from.
func sweepTarget(src models.Source) string {
	if src.ScrapeTarget != nil && *src.ScrapeTarget != "" {
		return *src.ScrapeTarget
	}
	if src.URL != nil {
		return *src.URL
	}
	return ""
}

// collectHTML scrapes a static listing page: discover article links, fetch
// each unseen one, and store whatever yields text. When no links are found
// the listing page itself is treated as the article.
func (c *Collector) collectHTML(ctx context.Context, src models.Source) (int, error) {
	target := sweepTarget(src)
	if target == "" {
		c.logger.Warn("Source has no URL to scrape, skipping", "source_id", src.SourceID)
		return 0, nil
	}

	listing, err := c.fetcher.Get(ctx, target, FetchOptions{Timeout: listingTimeout, Insecure: true})
	if err != nil {
		c.logger.Error("Failed to fetch listing page", "source_id", src.SourceID, "url", target, "error", err)
		return 0, nil
	}

	links := FindArticleLinks(string(listing), target)
	if len(links) == 0 {
		links = []string{target}
	}
	if len(links) > maxArticlesPerSweep {
		links = links[:maxArticlesPerSweep]
	}

	newCount := 0
	for _, link := range links {
		urlHash := canonical.URLHash(link)
		seen, err := c.store.Items.URLSeen(ctx, urlHash)
		if err != nil {
			return newCount, err
		}
		if seen {
			continue
		}

		body, err := c.fetcher.Get(ctx, link, FetchOptions{Timeout: articleTimeout, Insecure: true})
		if err != nil {
			c.logger.Debug("Could not fetch article", "url", link, "error", err)
			continue
		}
		html := string(body)
		text := ExtractArticle(html)
		if text == "" {
			continue
		}

		contentHash := canonical.ContentHash(text)
		dup, err := c.store.Items.ContentSeen(ctx, contentHash)
		if err != nil {
			return newCount, err
		}
		if dup {
			continue
		}

		inserted, err := c.store.Items.Insert(ctx, store.NewItem{
			SourceID:    src.SourceID,
			URL:         link,
			URLHash:     urlHash,
			ContentHash: &contentHash,
			Title:       ExtractTitle(html),
			RawText:     text,
			Language:    src.Language,
		})
		if err != nil {
			return newCount, err
		}
		if inserted {
			newCount++
		}
	}
	if newCount > 0 {
		c.logger.Info("Scrape collected new items", "source_id", src.SourceID, "count", newCount)
	}
	return newCount, nil
}
