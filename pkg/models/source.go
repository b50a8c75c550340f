package models

import "time"

// Source is a monitored publication: a feed, a scrapable site, a PDF
// library, or a standing web search. Only CONFIRMED sources are scheduled.
type Source struct {
	SourceID             string       `json:"source_id"`
	Name                 string       `json:"name"`
	URL                  *string      `json:"url"`
	FeedURL              *string      `json:"feed_url"`
	FetchMethod          FetchMethod  `json:"fetch_method"`
	ScrapeTarget         *string      `json:"scrape_target,omitempty"`
	Language             string       `json:"language"`
	Tier                 int          `json:"tier"`
	Reliability          float64      `json:"reliability"`
	Earliness            float64      `json:"earliness"`
	ScheduleMinutes      int          `json:"schedule_minutes"`
	Layers               []string     `json:"layers"`
	SearchQueries        []string     `json:"search_queries,omitempty"`
	Status               SourceStatus `json:"status"`
	Notes                *string      `json:"notes,omitempty"`
	RelevantArticleCount int          `json:"relevant_article_count"`
	LastFetchedAt        *time.Time   `json:"last_fetched_at,omitempty"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// TierWeight maps the editorial tier to the quality weight used in theme
// scoring. Unknown tiers weigh like tier 3.
func TierWeight(tier int) float64 {
	switch tier {
	case 1:
		return 1.0
	case 2:
		return 0.6
	case 3:
		return 0.3
	default:
		return 0.3
	}
}
