package collector

import (
	"context"
	"net/url"
	"path"

	"github.com/constraint-watch/chokepoint/pkg/canonical"
	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

// collectPDF watches a publications page for new PDF documents, downloads
// unseen ones, and stores their extracted text. Regulators and market
// researchers publish almost exclusively this way.
func (c *Collector) collectPDF(ctx context.Context, src models.Source) (int, error) {
	target := sweepTarget(src)
	if target == "" {
		c.logger.Warn("Source has no URL to monitor, skipping", "source_id", src.SourceID)
		return 0, nil
	}

	listing, err := c.fetcher.Get(ctx, target, FetchOptions{Timeout: listingTimeout, Insecure: true})
	if err != nil {
		c.logger.Error("Failed to fetch publications page", "source_id", src.SourceID, "url", target, "error", err)
		return 0, nil
	}

	links := FindPDFLinks(string(listing), target)
	if len(links) > maxPDFsPerSweep {
		links = links[:maxPDFsPerSweep]
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

		data, err := c.fetcher.Get(ctx, link, FetchOptions{Timeout: pdfTimeout, Insecure: true})
		if err != nil {
			c.logger.Debug("Could not download PDF", "url", link, "error", err)
			continue
		}
		text := extractPDFText(data)
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
			Title:       pdfTitle(link),
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
		c.logger.Info("Collected new PDFs", "source_id", src.SourceID, "count", newCount)
	}
	return newCount, nil
}

// pdfTitle derives a title from the document's filename.
func pdfTitle(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Path == "" {
		return link
	}
	return path.Base(u.Path)
}
