package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/constraint-watch/chokepoint/pkg/models"
)

// SourceStore persists the monitored source registry.
type SourceStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewSourceStore creates a SourceStore backed by pool.
func NewSourceStore(pool *pgxpool.Pool) *SourceStore {
	return &SourceStore{
		pool:   pool,
		logger: slog.Default().With("component", "source-store"),
	}
}

const sourceColumns = `source_id, name, url, feed_url, fetch_method, scrape_target,
	language, tier, reliability, earliness, schedule_minutes, layers,
	search_queries, status, notes, relevant_article_count, last_fetched_at,
	created_at, updated_at`

func scanSource(row pgx.Row) (models.Source, error) {
	var src models.Source
	err := row.Scan(&src.SourceID, &src.Name, &src.URL, &src.FeedURL, &src.FetchMethod,
		&src.ScrapeTarget, &src.Language, &src.Tier, &src.Reliability, &src.Earliness,
		&src.ScheduleMinutes, &src.Layers, &src.SearchQueries, &src.Status, &src.Notes,
		&src.RelevantArticleCount, &src.LastFetchedAt, &src.CreatedAt, &src.UpdatedAt)
	return src, err
}

func collectSources(rows pgx.Rows) ([]models.Source, error) {
	defer rows.Close()
	var sources []models.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// Get loads one source by id.
func (s *SourceStore) Get(ctx context.Context, sourceID string) (*models.Source, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+sourceColumns+" FROM sources WHERE source_id = $1", sourceID)
	src, err := scanSource(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load source: %w", err)
	}
	return &src, nil
}

// ListConfirmed returns every CONFIRMED source. Only confirmed sources are
// scheduled for collection.
func (s *SourceStore) ListConfirmed(ctx context.Context) ([]models.Source, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+sourceColumns+" FROM sources WHERE status = 'CONFIRMED' ORDER BY tier, source_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed sources: %w", err)
	}
	return collectSources(rows)
}

// SourceFilter narrows List results. Zero values mean no filtering.
type SourceFilter struct {
	Status      string
	FetchMethod string
	Limit       int
}

// List returns sources ordered by tier then name, optionally filtered by
// status and fetch method.
func (s *SourceStore) List(ctx context.Context, filter SourceFilter) ([]models.Source, error) {
	query := "SELECT " + sourceColumns + " FROM sources"
	var conditions []string
	var params []any

	if filter.Status != "" {
		params = append(params, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(params)))
	}
	if filter.FetchMethod != "" {
		params = append(params, filter.FetchMethod)
		conditions = append(conditions, fmt.Sprintf("fetch_method = $%d", len(params)))
	}
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	params = append(params, limit)
	query += fmt.Sprintf(" ORDER BY tier, name LIMIT $%d", len(params))

	rows, err := s.pool.Query(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return collectSources(rows)
}

// SourceStats aggregates registry and item counters for the stats endpoint.
type SourceStats struct {
	TotalSources          int            `json:"total_sources"`
	ByStatus              map[string]int `json:"by_status"`
	ByMethod              map[string]int `json:"by_method"`
	TotalItems            int            `json:"total_items"`
	ItemsByPipelineStatus map[string]int `json:"items_by_pipeline_status"`
}

// Stats returns aggregate counts over sources and items.
func (s *SourceStore) Stats(ctx context.Context) (*SourceStats, error) {
	stats := &SourceStats{
		ByStatus:              make(map[string]int),
		ByMethod:              make(map[string]int),
		ItemsByPipelineStatus: make(map[string]int),
	}

	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM sources").Scan(&stats.TotalSources); err != nil {
		return nil, fmt.Errorf("failed to count sources: %w", err)
	}
	if err := s.groupCount(ctx, "SELECT status, COUNT(*) FROM sources GROUP BY status", stats.ByStatus); err != nil {
		return nil, err
	}
	if err := s.groupCount(ctx, "SELECT fetch_method, COUNT(*) FROM sources GROUP BY fetch_method", stats.ByMethod); err != nil {
		return nil, err
	}
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM items").Scan(&stats.TotalItems); err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}
	if err := s.groupCount(ctx, "SELECT pipeline_status, COUNT(*) FROM items GROUP BY pipeline_status", stats.ItemsByPipelineStatus); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *SourceStore) groupCount(ctx context.Context, query string, dst map[string]int) error {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to aggregate counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("failed to scan count row: %w", err)
		}
		dst[key] = n
	}
	return rows.Err()
}

// CountConfirmed returns the number of CONFIRMED sources.
func (s *SourceStore) CountConfirmed(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM sources WHERE status = 'CONFIRMED'").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count confirmed sources: %w", err)
	}
	return n, nil
}

// TouchFetched records a completed collection pass for a source.
func (s *SourceStore) TouchFetched(ctx context.Context, sourceID string) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE sources SET last_fetched_at = now(), updated_at = now() WHERE source_id = $1",
		sourceID)
	if err != nil {
		return fmt.Errorf("failed to touch source: %w", err)
	}
	return nil
}

// AddRelevantArticles bumps a source's relevant article counter by n.
func (s *SourceStore) AddRelevantArticles(ctx context.Context, sourceID string, n int) error {
	if n <= 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE sources SET relevant_article_count = relevant_article_count + $2, updated_at = now()
		 WHERE source_id = $1`,
		sourceID, n)
	if err != nil {
		return fmt.Errorf("failed to bump relevant article count: %w", err)
	}
	return nil
}

// SeedSource inserts a CONFIRMED source from seed configuration. Existing
// rows are left untouched; returns true when a row was inserted.
func (s *SourceStore) SeedSource(ctx context.Context, src models.Source) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO sources (source_id, name, url, feed_url, fetch_method, scrape_target,
		                      language, tier, reliability, earliness, schedule_minutes,
		                      layers, search_queries, status, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 'CONFIRMED', $14)
		 ON CONFLICT (source_id) DO NOTHING`,
		src.SourceID, src.Name, src.URL, src.FeedURL, src.FetchMethod, src.ScrapeTarget,
		src.Language, src.Tier, src.Reliability, src.Earliness, src.ScheduleMinutes,
		src.Layers, src.SearchQueries, src.Notes)
	if err != nil {
		return false, fmt.Errorf("failed to seed source: %w", err)
	}
	if tag.RowsAffected() > 0 {
		s.logger.Info("Seeded source", "source_id", src.SourceID)
		return true, nil
	}
	return false, nil
}
