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

// EntityStore persists the entity catalog and mention records.
type EntityStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewEntityStore creates an EntityStore backed by pool.
func NewEntityStore(pool *pgxpool.Pool) *EntityStore {
	return &EntityStore{
		pool:   pool,
		logger: slog.Default().With("component", "entity-store"),
	}
}

// AliasRow carries the fields the alias index is built from.
type AliasRow struct {
	EntityID      string
	CanonicalName string
	Aliases       map[string][]string
}

// AliasRows returns every entity's id, canonical name, and alias map. The
// index covers all statuses so repeat mentions of DISCOVERED entities keep
// counting toward promotion.
func (s *EntityStore) AliasRows(ctx context.Context) ([]AliasRow, error) {
	rows, err := s.pool.Query(ctx, "SELECT entity_id, canonical_name, aliases FROM entities")
	if err != nil {
		return nil, fmt.Errorf("failed to load alias rows: %w", err)
	}
	defer rows.Close()

	var out []AliasRow
	for rows.Next() {
		var r AliasRow
		if err := rows.Scan(&r.EntityID, &r.CanonicalName, &r.Aliases); err != nil {
			return nil, fmt.Errorf("failed to scan alias row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FindIDByName looks up an entity id by case-insensitive canonical name.
func (s *EntityStore) FindIDByName(ctx context.Context, name string) (string, bool, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		"SELECT entity_id FROM entities WHERE canonical_name ILIKE $1", name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up entity by name: %w", err)
	}
	return id, true, nil
}

// Exists reports whether an entity id is already registered.
func (s *EntityStore) Exists(ctx context.Context, entityID string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		"SELECT 1 FROM entities WHERE entity_id = $1", entityID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check entity id: %w", err)
	}
	return true, nil
}

// DiscoveredEntity is a new catalog row created from an extracted event
// reference.
type DiscoveredEntity struct {
	EntityID           string
	CanonicalName      string
	Type               string
	Aliases            map[string][]string
	Roles              []string
	Layers             []string
	DiscoveredFromItem uuid.UUID
}

// InsertDiscovered stores a DISCOVERED entity with one initial mention. A
// concurrent insert of the same id bumps the mention count instead.
func (s *EntityStore) InsertDiscovered(ctx context.Context, e DiscoveredEntity) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO entities (entity_id, canonical_name, type, aliases, roles, layers,
		                       status, mention_count, discovered_from_item)
		 VALUES ($1, $2, $3, $4, $5, $6, 'DISCOVERED', 1, $7)
		 ON CONFLICT (entity_id) DO UPDATE SET mention_count = entities.mention_count + 1`,
		e.EntityID, e.CanonicalName, e.Type, e.Aliases, e.Roles, e.Layers, e.DiscoveredFromItem)
	if err != nil {
		return fmt.Errorf("failed to insert discovered entity: %w", err)
	}
	return nil
}

// StoreMentions records alias matches for an item and bumps each entity's
// mention count.
func (s *EntityStore) StoreMentions(ctx context.Context, itemID uuid.UUID, matches []models.AliasMatch, layerHint *string) error {
	if len(matches) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range matches {
		batch.Queue(
			`INSERT INTO entity_mentions (entity_id, item_id, context_snippet, layer_hint)
			 VALUES ($1, $2, $3, $4)`,
			m.EntityID, itemID, m.ContextSnippet, layerHint)
		batch.Queue(
			"UPDATE entities SET mention_count = mention_count + 1, updated_at = now() WHERE entity_id = $1",
			m.EntityID)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to store entity mentions: %w", err)
	}
	return nil
}

// PromotionCandidate is an entity that cleared the mention and source-spread
// thresholds for its next status.
type PromotionCandidate struct {
	EntityID      string
	CanonicalName string
	MentionCount  int
	SourceCount   int
}

// PromotionCandidates returns entities in the given status whose mentions
// meet minMentions and span at least minSources distinct sources.
func (s *EntityStore) PromotionCandidates(ctx context.Context, status models.EntityStatus, minMentions, minSources int) ([]PromotionCandidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT e.entity_id, e.canonical_name, e.mention_count,
		        COUNT(DISTINCT i.source_id) AS source_count
		 FROM entities e
		 JOIN entity_mentions em ON e.entity_id = em.entity_id
		 JOIN items i ON em.item_id = i.id
		 WHERE e.status = $1
		 GROUP BY e.entity_id, e.canonical_name, e.mention_count
		 HAVING e.mention_count >= $2 AND COUNT(DISTINCT i.source_id) >= $3`,
		status, minMentions, minSources)
	if err != nil {
		return nil, fmt.Errorf("failed to query promotion candidates: %w", err)
	}
	defer rows.Close()

	var out []PromotionCandidate
	for rows.Next() {
		var c PromotionCandidate
		if err := rows.Scan(&c.EntityID, &c.CanonicalName, &c.MentionCount, &c.SourceCount); err != nil {
			return nil, fmt.Errorf("failed to scan promotion candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetStatus moves an entity to the given catalog status.
func (s *EntityStore) SetStatus(ctx context.Context, entityID string, status models.EntityStatus) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE entities SET status = $2, updated_at = now() WHERE entity_id = $1",
		entityID, status)
	if err != nil {
		return fmt.Errorf("failed to set entity status: %w", err)
	}
	return nil
}

// FirstMentionAt returns the creation time of an entity's earliest mention,
// or nil when it has none.
func (s *EntityStore) FirstMentionAt(ctx context.Context, entityID string) (*time.Time, error) {
	var first *time.Time
	err := s.pool.QueryRow(ctx,
		"SELECT MIN(created_at) FROM entity_mentions WHERE entity_id = $1", entityID).Scan(&first)
	if err != nil {
		return nil, fmt.Errorf("failed to load first mention time: %w", err)
	}
	return first, nil
}

// NewEntityRow is a recently discovered entity for digest rendering.
type NewEntityRow struct {
	CanonicalName string
	Type          string
	Status        string
	Layers        []string
}

// NewSince returns not-yet-confirmed entities created at or after since,
// newest first.
func (s *EntityStore) NewSince(ctx context.Context, since time.Time, limit int) ([]NewEntityRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT canonical_name, type, status, layers FROM entities
		 WHERE created_at >= $1 AND status IN ('DISCOVERED', 'PROVISIONAL')
		 ORDER BY created_at DESC
		 LIMIT $2`,
		since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list new entities: %w", err)
	}
	defer rows.Close()

	var out []NewEntityRow
	for rows.Next() {
		var r NewEntityRow
		if err := rows.Scan(&r.CanonicalName, &r.Type, &r.Status, &r.Layers); err != nil {
			return nil, fmt.Errorf("failed to scan new entity: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountConfirmed returns the number of CONFIRMED entities.
func (s *EntityStore) CountConfirmed(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM entities WHERE status = 'CONFIRMED'").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count confirmed entities: %w", err)
	}
	return n, nil
}

// CountByStatus returns entity counts grouped by catalog status.
func (s *EntityStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT status, COUNT(*) FROM entities GROUP BY status ORDER BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count entities by status: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan entity status count: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}

// SeedEntity inserts a CONFIRMED entity from seed configuration. Existing
// rows are left untouched; returns true when a row was inserted.
func (s *EntityStore) SeedEntity(ctx context.Context, e models.Entity) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO entities (entity_id, canonical_name, type, aliases, tickers,
		                       roles, layers, ring, geo, status, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'CONFIRMED', $10)
		 ON CONFLICT (entity_id) DO NOTHING`,
		e.EntityID, e.CanonicalName, e.Type, e.Aliases, e.Tickers,
		e.Roles, e.Layers, e.Ring, e.Geo, e.Notes)
	if err != nil {
		return false, fmt.Errorf("failed to seed entity: %w", err)
	}
	if tag.RowsAffected() > 0 {
		s.logger.Info("Seeded entity", "entity_id", e.EntityID, "name", e.CanonicalName)
		return true, nil
	}
	return false, nil
}
