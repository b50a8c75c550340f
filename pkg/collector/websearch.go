package collector

import (
	"context"
	"math/rand/v2"

	"github.com/constraint-watch/chokepoint/pkg/canonical"
	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/search"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

// collectWebSearch sweeps a search provider for the source's queries.
// Explicit search_queries on the source win; otherwise the query generator
// supplies the next rotation. Results keep their snippet as body text
// unless fetching the page yields something longer.
func (c *Collector) collectWebSearch(ctx context.Context, src models.Source) (int, error) {
	if c.provider == nil {
		c.logger.Debug("No search API key configured, skipping web search", "source_id", src.SourceID)
		return 0, nil
	}

	queries := src.SearchQueries
	if len(queries) == 0 && c.querygen != nil {
		queries = c.querygen.GetNextQueries(src.SourceID, queriesPerSweep)
	}
	if len(queries) == 0 {
		c.logger.Debug("Source has no search queries, skipping", "source_id", src.SourceID)
		return 0, nil
	}
	queries = sampleQueries(queries, queriesPerSweep)

	newCount := 0
	for _, query := range queries {
		results, err := c.provider.Search(ctx, query, search.Config{
			MaxResults: searchResultCount,
			Language:   src.Language,
		})
		if err != nil {
			c.logger.Error("Web search failed", "source_id", src.SourceID, "query", query, "error", err)
			continue
		}

		for _, r := range results {
			if r.URL == "" {
				continue
			}
			urlHash := canonical.URLHash(r.URL)
			seen, err := c.store.Items.URLSeen(ctx, urlHash)
			if err != nil {
				return newCount, err
			}
			if seen {
				continue
			}

			rawText := r.Snippet
			if body, err := c.fetcher.Get(ctx, r.URL, FetchOptions{Timeout: articleTimeout, Insecure: true}); err == nil {
				if extracted := ExtractArticle(string(body)); len(extracted) > len(rawText) {
					rawText = extracted
				}
			}
			if rawText == "" {
				continue
			}

			contentHash := canonical.ContentHash(rawText)
			dup, err := c.store.Items.ContentSeen(ctx, contentHash)
			if err != nil {
				return newCount, err
			}
			if dup {
				continue
			}

			inserted, err := c.store.Items.Insert(ctx, store.NewItem{
				SourceID:    src.SourceID,
				URL:         r.URL,
				URLHash:     urlHash,
				ContentHash: &contentHash,
				Title:       r.Title,
				RawText:     rawText,
				Language:    src.Language,
			})
			if err != nil {
				return newCount, err
			}
			if inserted {
				newCount++
			}
		}
	}
	if newCount > 0 {
		c.logger.Info("Web search collected new items", "source_id", src.SourceID, "count", newCount)
	}
	return newCount, nil
}

// sampleQueries picks n queries at random without replacement, so sources
// with long explicit query lists rotate organically across sweeps.
func sampleQueries(queries []string, n int) []string {
	if len(queries) <= n {
		return queries
	}
	shuffled := make([]string, len(queries))
	copy(shuffled, queries)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:n]
}
