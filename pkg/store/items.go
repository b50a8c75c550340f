package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/constraint-watch/chokepoint/pkg/models"
)

// ItemStore persists collected articles and their pipeline bookkeeping.
type ItemStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewItemStore creates an ItemStore backed by pool.
func NewItemStore(pool *pgxpool.Pool) *ItemStore {
	return &ItemStore{
		pool:   pool,
		logger: slog.Default().With("component", "item-store"),
	}
}

// NewItem is a collected article before insertion. The id, fetched_at, and
// pipeline_status columns are assigned by the database.
type NewItem struct {
	SourceID    string
	URL         string
	URLHash     string
	ContentHash *string
	Title       string
	RawText     string
	Language    string
	PublishedAt *time.Time
}

// URLSeen reports whether an item with the given URL hash already exists.
func (s *ItemStore) URLSeen(ctx context.Context, urlHash string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, "SELECT 1 FROM items WHERE url_hash = $1 LIMIT 1", urlHash).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check url hash: %w", err)
	}
	return true, nil
}

// ContentSeen reports whether an item with the given content hash already
// exists. Items without text carry no content hash and are never matched.
func (s *ItemStore) ContentSeen(ctx context.Context, contentHash string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, "SELECT 1 FROM items WHERE content_hash = $1 LIMIT 1", contentHash).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check content hash: %w", err)
	}
	return true, nil
}

// Insert stores a new item in COLLECTED status. It reports false when the
// URL hash collided with an existing row.
func (s *ItemStore) Insert(ctx context.Context, item NewItem) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO items (source_id, url, url_hash, content_hash, title, raw_text,
		                    language, published_at, pipeline_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'COLLECTED')
		 ON CONFLICT (url_hash) DO NOTHING`,
		item.SourceID, item.URL, item.URLHash, item.ContentHash, item.Title,
		item.RawText, item.Language, item.PublishedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ClaimedItem is the working set a pipeline stage receives for each item it
// claimed.
type ClaimedItem struct {
	ID       uuid.UUID
	SourceID string
	Title    string
	RawText  string
	TextEN   *string
	Language *string
}

// Text returns the English text when present, the raw text otherwise.
func (c ClaimedItem) Text() string {
	if c.TextEN != nil && *c.TextEN != "" {
		return *c.TextEN
	}
	return c.RawText
}

// ClaimBatch atomically advances up to limit items from one pipeline status
// to the next and returns them oldest-first. The inner select locks rows
// with SKIP LOCKED so concurrent workers never claim the same item twice;
// items that later fail are tagged ERROR rather than returned to the queue.
func (s *ItemStore) ClaimBatch(ctx context.Context, from, to models.PipelineStatus, limit int) ([]ClaimedItem, error) {
	rows, err := s.pool.Query(ctx,
		`UPDATE items SET pipeline_status = $2, updated_at = now()
		 WHERE id IN (
		     SELECT id FROM items
		     WHERE pipeline_status = $1
		     ORDER BY fetched_at
		     LIMIT $3
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, source_id, title, raw_text, text_en, language`,
		from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim items: %w", err)
	}
	defer rows.Close()

	var claimed []ClaimedItem
	for rows.Next() {
		var c ClaimedItem
		if err := rows.Scan(&c.ID, &c.SourceID, &c.Title, &c.RawText, &c.TextEN, &c.Language); err != nil {
			return nil, fmt.Errorf("failed to scan claimed item: %w", err)
		}
		claimed = append(claimed, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read claimed items: %w", err)
	}
	return claimed, nil
}

// SetNormalized records the detected language and English text for an item.
func (s *ItemStore) SetNormalized(ctx context.Context, id uuid.UUID, language, textEN string, confidence float64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE items SET language = $2, text_en = $3, translation_confidence = $4, updated_at = now()
		 WHERE id = $1`,
		id, language, textEN, confidence)
	if err != nil {
		return fmt.Errorf("failed to set normalized fields: %w", err)
	}
	return nil
}

// SetStatus moves an item to the given pipeline status.
func (s *ItemStore) SetStatus(ctx context.Context, id uuid.UUID, status models.PipelineStatus) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE items SET pipeline_status = $2, updated_at = now() WHERE id = $1",
		id, status)
	if err != nil {
		return fmt.Errorf("failed to set item status: %w", err)
	}
	return nil
}

// MarkError parks an item in ERROR status with a short tag naming the stage
// that failed.
func (s *ItemStore) MarkError(ctx context.Context, id uuid.UUID, tag string) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE items SET pipeline_status = 'ERROR', pipeline_error = $2, updated_at = now() WHERE id = $1",
		id, tag)
	if err != nil {
		return fmt.Errorf("failed to mark item error: %w", err)
	}
	return nil
}

// ItemWithSource carries the item fields the extractor needs together with
// the publishing source's metadata.
type ItemWithSource struct {
	ID                    uuid.UUID
	SourceID              string
	URL                   string
	Title                 string
	RawText               string
	TextEN                *string
	Language              *string
	TranslationConfidence *float64
	PublishedAt           *time.Time
	SourceName            string
	SourceURL             *string
	SourceTier            int
	SourceLanguage        string
}

// Text returns the English text when present, the raw text otherwise.
func (i ItemWithSource) Text() string {
	if i.TextEN != nil && *i.TextEN != "" {
		return *i.TextEN
	}
	return i.RawText
}

// GetWithSource loads one item joined to its source row.
func (s *ItemStore) GetWithSource(ctx context.Context, id uuid.UUID) (*ItemWithSource, error) {
	var it ItemWithSource
	err := s.pool.QueryRow(ctx,
		`SELECT i.id, i.source_id, i.url, i.title, i.raw_text, i.text_en, i.language,
		        i.translation_confidence, i.published_at, s.name, s.url, s.tier, s.language
		 FROM items i
		 JOIN sources s ON s.source_id = i.source_id
		 WHERE i.id = $1`,
		id).Scan(&it.ID, &it.SourceID, &it.URL, &it.Title, &it.RawText, &it.TextEN,
		&it.Language, &it.TranslationConfidence, &it.PublishedAt, &it.SourceName,
		&it.SourceURL, &it.SourceTier, &it.SourceLanguage)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load item with source: %w", err)
	}
	return &it, nil
}

// CountTotal returns the number of items in all statuses.
func (s *ItemStore) CountTotal(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM items").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return n, nil
}

// CountByStatus returns item counts grouped by pipeline status.
func (s *ItemStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT pipeline_status, COUNT(*) FROM items GROUP BY pipeline_status")
	if err != nil {
		return nil, fmt.Errorf("failed to count items by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CountFetchedSince returns the number of items fetched at or after since.
func (s *ItemStore) CountFetchedSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM items WHERE fetched_at >= $1", since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count fetched items: %w", err)
	}
	return n, nil
}

// ResetForReprocessing moves finished and errored items back to the target
// status so later pipeline changes can replay them. An empty sourceID resets
// items from every source. Returns the number of items reset.
func (s *ItemStore) ResetForReprocessing(ctx context.Context, target models.PipelineStatus, sourceID string) (int, error) {
	var (
		n   int
		err error
	)
	if sourceID != "" {
		err = s.pool.QueryRow(ctx,
			`WITH updated AS (
			     UPDATE items SET pipeline_status = $1, updated_at = now()
			     WHERE pipeline_status IN ('DONE', 'EXTRACTED', 'ERROR')
			       AND source_id = $2
			     RETURNING 1
			 ) SELECT COUNT(*) FROM updated`,
			target, sourceID).Scan(&n)
	} else {
		err = s.pool.QueryRow(ctx,
			`WITH updated AS (
			     UPDATE items SET pipeline_status = $1, updated_at = now()
			     WHERE pipeline_status IN ('DONE', 'EXTRACTED', 'ERROR')
			     RETURNING 1
			 ) SELECT COUNT(*) FROM updated`,
			target).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to reset items: %w", err)
	}
	s.logger.Info("Reset items for reprocessing", "count", n, "target", target)
	return n, nil
}

// PruneTextBefore clears stored document text on finished items fetched
// before cutoff. Extracted events and theme links survive; only the bulky
// raw_text and text_en columns are released. Returns the number of items
// pruned.
func (s *ItemStore) PruneTextBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE items SET raw_text = '', text_en = NULL, updated_at = now()
		 WHERE pipeline_status = 'DONE' AND fetched_at < $1
		   AND (raw_text <> '' OR text_en IS NOT NULL)`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune item text: %w", err)
	}
	return tag.RowsAffected(), nil
}
