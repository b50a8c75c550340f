package collector

import (
	"context"

	"github.com/constraint-watch/chokepoint/pkg/canonical"
	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

// collectHeadless renders a JavaScript-driven page in the shared browser
// and stores it as a single item keyed on the target URL. The URL check
// runs before the render so an already-collected page costs no Chrome tab.
func (c *Collector) collectHeadless(ctx context.Context, src models.Source) (int, error) {
	target := sweepTarget(src)
	if target == "" {
		c.logger.Warn("Source has no URL to render, skipping", "source_id", src.SourceID)
		return 0, nil
	}

	urlHash := canonical.URLHash(target)
	seen, err := c.store.Items.URLSeen(ctx, urlHash)
	if err != nil {
		return 0, err
	}
	if seen {
		return 0, nil
	}

	html, err := c.browser.Render(ctx, target)
	if err != nil {
		c.logger.Error("Headless render failed", "source_id", src.SourceID, "url", target, "error", err)
		return 0, nil
	}
	text := ExtractArticle(html)
	if text == "" {
		return 0, nil
	}

	contentHash := canonical.ContentHash(text)
	dup, err := c.store.Items.ContentSeen(ctx, contentHash)
	if err != nil {
		return 0, err
	}
	if dup {
		return 0, nil
	}

	inserted, err := c.store.Items.Insert(ctx, store.NewItem{
		SourceID:    src.SourceID,
		URL:         target,
		URLHash:     urlHash,
		ContentHash: &contentHash,
		Title:       ExtractTitle(html),
		RawText:     text,
		Language:    src.Language,
	})
	if err != nil {
		return 0, err
	}
	if !inserted {
		return 0, nil
	}
	c.logger.Info("Rendered page collected", "source_id", src.SourceID, "url", target)
	return 1, nil
}
