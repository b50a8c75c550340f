// Package collector pulls raw documents from confirmed sources into the
// items table. Five strategies cover feeds, static HTML listings,
// JS-rendered pages, PDF publication pages, and web search sweeps. Every
// strategy dedups on canonical URL hash and content hash before inserting,
// so overlapping sources cannot produce duplicate items.
package collector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/search"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

// Per-sweep budgets keep a single source from flooding one cycle.
const (
	maxArticlesPerSweep = 20
	maxPDFsPerSweep     = 10
	queriesPerSweep     = 3
	searchResultCount   = 20
)

// Announcer is told when a sweep stored new items, so downstream
// processing can start before its next poll. events.Publisher implements
// it.
type Announcer interface {
	ItemsCollected(ctx context.Context, sourceID string, count int) error
}

// Collector fetches new documents for sources and records them as
// COLLECTED items for the pipeline to pick up.
type Collector struct {
	store    *store.Store
	fetcher  *Fetcher
	provider search.Provider
	querygen *QueryGenerator
	announce Announcer
	browser  *headlessBrowser
	feeds    *feedCache
	logger   *slog.Logger
}

// New creates a Collector. provider may be nil, which turns web search
// sweeps into logged no-ops; querygen may be nil, in which case sources
// without explicit search queries are skipped; announce may be nil, in
// which case new items wait for the pipeline's next poll.
func New(st *store.Store, fetcher *Fetcher, provider search.Provider, querygen *QueryGenerator, announce Announcer) *Collector {
	return &Collector{
		store:    st,
		fetcher:  fetcher,
		provider: provider,
		querygen: querygen,
		announce: announce,
		browser:  &headlessBrowser{},
		feeds:    newFeedCache(),
		logger:   slog.Default().With("component", "collector"),
	}
}

// CollectSource runs the strategy matching src.FetchMethod and returns the
// number of new items stored. Fetch-level failures are logged and absorbed;
// only storage errors propagate.
func (c *Collector) CollectSource(ctx context.Context, src models.Source) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("collection panicked for source %s: %v", src.SourceID, r)
		}
	}()

	switch src.FetchMethod {
	case models.FetchMethodFeed:
		n, err = c.collectFeed(ctx, src)
	case models.FetchMethodHTML:
		n, err = c.collectHTML(ctx, src)
	case models.FetchMethodHeadless:
		n, err = c.collectHeadless(ctx, src)
	case models.FetchMethodPDF:
		n, err = c.collectPDF(ctx, src)
	case models.FetchMethodWebSearch:
		n, err = c.collectWebSearch(ctx, src)
	default:
		c.logger.Warn("Unknown fetch method, skipping source",
			"source_id", src.SourceID, "fetch_method", string(src.FetchMethod))
		return 0, nil
	}
	if err != nil {
		return n, err
	}

	if terr := c.store.Sources.TouchFetched(ctx, src.SourceID); terr != nil {
		c.logger.Warn("Failed to update last_fetched_at", "source_id", src.SourceID, "error", terr)
	}
	if n > 0 {
		if aerr := c.store.Sources.AddRelevantArticles(ctx, src.SourceID, n); aerr != nil {
			c.logger.Warn("Failed to bump relevant article count", "source_id", src.SourceID, "error", aerr)
		}
		if c.announce != nil {
			if perr := c.announce.ItemsCollected(ctx, src.SourceID, n); perr != nil {
				c.logger.Warn("Failed to announce new items", "source_id", src.SourceID, "error", perr)
			}
		}
	}
	return n, nil
}

// RunAllOnce sweeps every confirmed source immediately, feeds first since
// they are cheap and usually carry the freshest material. Per-source errors
// are logged and the sweep continues. Returns the total number of new items.
func (c *Collector) RunAllOnce(ctx context.Context) (int, error) {
	sources, err := c.store.Sources.ListConfirmed(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list confirmed sources: %w", err)
	}

	var feeds, rest []models.Source
	for _, src := range sources {
		if src.FetchMethod == models.FetchMethodFeed {
			feeds = append(feeds, src)
		} else {
			rest = append(rest, src)
		}
	}
	ordered := append(feeds, rest...)

	total := 0
	for i, src := range ordered {
		c.logger.Info("Collecting source",
			"progress", fmt.Sprintf("%d/%d", i+1, len(ordered)),
			"source_id", src.SourceID, "fetch_method", string(src.FetchMethod))
		n, err := c.CollectSource(ctx, src)
		if err != nil {
			c.logger.Error("Source collection failed", "source_id", src.SourceID, "error", err)
			continue
		}
		total += n
	}
	c.logger.Info("Initial collection sweep complete", "sources", len(ordered), "new_items", total)
	return total, nil
}

// Close releases the shared headless browser if one was started.
func (c *Collector) Close() {
	c.browser.Close()
}
