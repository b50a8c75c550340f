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

// EventStore persists extracted constraint events.
type EventStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewEventStore creates an EventStore backed by pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{
		pool:   pool,
		logger: slog.Default().With("component", "event-store"),
	}
}

// Insert stores one extracted event for an item and returns its id.
func (s *EventStore) Insert(ctx context.Context, itemID uuid.UUID, ev models.ConstraintEvent) (int64, error) {
	// Models omit tags often enough that a nil slice must not become NULL
	// in the NOT NULL array column.
	tags := ev.Tags
	if tags == nil {
		tags = []string{}
	}
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO events (item_id, event_type, constraint_layer, secondary_layer,
		                     direction, entities, objects, magnitude, timing,
		                     evidence, tags, confidence)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		itemID, ev.EventType, ev.ConstraintLayer, ev.SecondaryLayer, ev.Direction,
		ev.Entities, ev.Objects, ev.Magnitude, ev.Timing, ev.Evidence, tags,
		ev.Confidence).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	return id, nil
}

// ClusterEvent is an event row joined to its item's source, the working set
// for theme clustering and scoring.
type ClusterEvent struct {
	ID         int64
	ItemID     uuid.UUID
	EventType  models.EventType
	Layer      models.ConstraintLayer
	Direction  models.Direction
	Entities   []models.EntityRef
	Objects    []models.ObjectRef
	Magnitude  models.Magnitude
	Timing     models.Timing
	Evidence   *models.Evidence
	Tags       []string
	Confidence float64
	CreatedAt  time.Time
	SourceID   string
}

// RecentForClustering returns the events of the clustering window, newest
// first, joined to the collecting source id.
func (s *EventStore) RecentForClustering(ctx context.Context, window time.Duration) ([]ClusterEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT e.id, e.item_id, e.event_type, e.constraint_layer, e.direction,
		        e.entities, e.objects, e.magnitude, e.timing, e.evidence,
		        e.tags, e.confidence, e.created_at,
		        i.source_id
		 FROM events e
		 JOIN items i ON e.item_id = i.id
		 WHERE e.created_at > now() - $1::interval
		 ORDER BY e.created_at DESC`,
		window)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for clustering: %w", err)
	}
	defer rows.Close()

	var out []ClusterEvent
	for rows.Next() {
		var ev ClusterEvent
		if err := rows.Scan(&ev.ID, &ev.ItemID, &ev.EventType, &ev.Layer, &ev.Direction,
			&ev.Entities, &ev.Objects, &ev.Magnitude, &ev.Timing, &ev.Evidence,
			&ev.Tags, &ev.Confidence, &ev.CreatedAt, &ev.SourceID); err != nil {
			return nil, fmt.Errorf("failed to scan cluster event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// InflectionEvent is a fresh tier-1 tightening event considered for an
// immediate alert. Field names double as the alert payload keys.
type InflectionEvent struct {
	ID         int64                  `json:"id"`
	EventType  models.EventType       `json:"event_type"`
	Layer      models.ConstraintLayer `json:"constraint_layer"`
	Direction  models.Direction       `json:"direction"`
	Entities   []models.EntityRef     `json:"entities"`
	Objects    []models.ObjectRef     `json:"objects"`
	Magnitude  models.Magnitude       `json:"magnitude"`
	Timing     models.Timing          `json:"timing"`
	Evidence   *models.Evidence       `json:"evidence"`
	Confidence float64                `json:"confidence"`
	CreatedAt  time.Time              `json:"created_at"`
}

// RecentInflections returns tightening events of the named types published
// by tier-1 sources inside the freshness window, newest first.
func (s *EventStore) RecentInflections(ctx context.Context, window time.Duration, eventTypes []string) ([]InflectionEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT e.id, e.event_type, e.constraint_layer, e.direction,
		        e.entities, e.objects, e.magnitude, e.timing, e.evidence,
		        e.confidence, e.created_at
		 FROM events e
		 JOIN items i ON e.item_id = i.id
		 JOIN sources s ON i.source_id = s.source_id
		 WHERE e.created_at > now() - $1::interval
		   AND s.tier = 1
		   AND e.event_type = ANY($2)
		   AND e.direction = 'TIGHTENING'
		 ORDER BY e.created_at DESC`,
		window, eventTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to load inflection events: %w", err)
	}
	defer rows.Close()

	var out []InflectionEvent
	for rows.Next() {
		var ev InflectionEvent
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.Layer, &ev.Direction,
			&ev.Entities, &ev.Objects, &ev.Magnitude, &ev.Timing, &ev.Evidence,
			&ev.Confidence, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inflection event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// DigestEventRow is a high-impact event line for the daily digest.
type DigestEventRow struct {
	EventType  models.EventType
	Layer      models.ConstraintLayer
	Direction  models.Direction
	Objects    []models.ObjectRef
	Confidence float64
	CreatedAt  time.Time
	SourceName string
	Tier       int
}

// TopTighteningSince returns the most confident tightening events from
// tier-1 and tier-2 sources since the given time.
func (s *EventStore) TopTighteningSince(ctx context.Context, since time.Time, limit int) ([]DigestEventRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT e.event_type, e.constraint_layer, e.direction,
		        e.objects, e.confidence, e.created_at,
		        s.name, s.tier
		 FROM events e
		 JOIN items i ON e.item_id = i.id
		 JOIN sources s ON i.source_id = s.source_id
		 WHERE e.created_at >= $1
		   AND e.direction = 'TIGHTENING'
		   AND s.tier <= 2
		 ORDER BY e.confidence DESC, e.created_at DESC
		 LIMIT $2`,
		since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load digest events: %w", err)
	}
	defer rows.Close()

	var out []DigestEventRow
	for rows.Next() {
		var r DigestEventRow
		if err := rows.Scan(&r.EventType, &r.Layer, &r.Direction, &r.Objects,
			&r.Confidence, &r.CreatedAt, &r.SourceName, &r.Tier); err != nil {
			return nil, fmt.Errorf("failed to scan digest event: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// EventCounts aggregates event volume by direction for a time window.
type EventCounts struct {
	Total      int
	Tightening int
	Easing     int
}

// CountsSince returns event totals split by direction since the given time.
func (s *EventStore) CountsSince(ctx context.Context, since time.Time) (EventCounts, error) {
	var c EventCounts
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN direction = 'TIGHTENING' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN direction = 'EASING' THEN 1 ELSE 0 END), 0)
		 FROM events WHERE created_at >= $1`,
		since).Scan(&c.Total, &c.Tightening, &c.Easing)
	if err != nil {
		return c, fmt.Errorf("failed to count events: %w", err)
	}
	return c, nil
}

// EventFilter narrows List results. Zero values mean no filtering.
type EventFilter struct {
	Layer     string
	Direction string
	EventType string
	Limit     int
	Offset    int
}

// EventWithSource is an event row joined to its item and source for the
// listing endpoint.
type EventWithSource struct {
	ID              int64                   `json:"id"`
	EventType       models.EventType        `json:"event_type"`
	ConstraintLayer models.ConstraintLayer  `json:"constraint_layer"`
	SecondaryLayer  *models.ConstraintLayer `json:"secondary_layer"`
	Direction       models.Direction        `json:"direction"`
	Entities        []models.EntityRef      `json:"entities"`
	Objects         []models.ObjectRef      `json:"objects"`
	Magnitude       models.Magnitude        `json:"magnitude"`
	Timing          models.Timing           `json:"timing"`
	Evidence        *models.Evidence        `json:"evidence"`
	Tags            []string                `json:"tags"`
	Confidence      float64                 `json:"confidence"`
	CreatedAt       time.Time               `json:"created_at"`
	Title           string                  `json:"title"`
	URL             string                  `json:"url"`
	SourceID        string                  `json:"source_id"`
	SourceName      string                  `json:"source_name"`
	Tier            int                     `json:"tier"`
}

// List returns events joined to item and source metadata, newest first.
func (s *EventStore) List(ctx context.Context, filter EventFilter) ([]EventWithSource, error) {
	query := `SELECT e.id, e.event_type, e.constraint_layer, e.secondary_layer,
	                 e.direction, e.entities, e.objects, e.magnitude, e.timing,
	                 e.evidence, e.tags, e.confidence, e.created_at,
	                 i.title, i.url, i.source_id, s.name, s.tier
	          FROM events e
	          JOIN items i ON e.item_id = i.id
	          JOIN sources s ON i.source_id = s.source_id`
	var conditions []string
	var params []any

	if filter.Layer != "" {
		params = append(params, filter.Layer)
		conditions = append(conditions, fmt.Sprintf("e.constraint_layer = $%d", len(params)))
	}
	if filter.Direction != "" {
		params = append(params, filter.Direction)
		conditions = append(conditions, fmt.Sprintf("e.direction = $%d", len(params)))
	}
	if filter.EventType != "" {
		params = append(params, filter.EventType)
		conditions = append(conditions, fmt.Sprintf("e.event_type = $%d", len(params)))
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
		limit = 50
	}
	params = append(params, limit)
	query += fmt.Sprintf(" ORDER BY e.created_at DESC LIMIT $%d", len(params))
	params = append(params, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(params))

	rows, err := s.pool.Query(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var out []EventWithSource
	for rows.Next() {
		var ev EventWithSource
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.ConstraintLayer, &ev.SecondaryLayer,
			&ev.Direction, &ev.Entities, &ev.Objects, &ev.Magnitude, &ev.Timing,
			&ev.Evidence, &ev.Tags, &ev.Confidence, &ev.CreatedAt,
			&ev.Title, &ev.URL, &ev.SourceID, &ev.SourceName, &ev.Tier); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ThemeEventRow is a linked event in a theme detail response.
type ThemeEventRow struct {
	ID         int64                  `json:"id"`
	EventType  models.EventType       `json:"event_type"`
	Layer      models.ConstraintLayer `json:"constraint_layer"`
	Direction  models.Direction       `json:"direction"`
	Entities   []models.EntityRef     `json:"entities"`
	Objects    []models.ObjectRef     `json:"objects"`
	Magnitude  models.Magnitude       `json:"magnitude"`
	Timing     models.Timing          `json:"timing"`
	Confidence float64                `json:"confidence"`
	CreatedAt  time.Time              `json:"created_at"`
	Weight     float64                `json:"weight"`
}

// ForTheme returns the events linked to a theme, newest first.
func (s *EventStore) ForTheme(ctx context.Context, themeID string) ([]ThemeEventRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT e.id, e.event_type, e.constraint_layer, e.direction,
		        e.entities, e.objects, e.magnitude, e.timing,
		        e.confidence, e.created_at,
		        te.weight
		 FROM events e
		 JOIN theme_events te ON e.id = te.event_id
		 WHERE te.theme_id = $1
		 ORDER BY e.created_at DESC`,
		themeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load theme events: %w", err)
	}
	defer rows.Close()

	var out []ThemeEventRow
	for rows.Next() {
		var ev ThemeEventRow
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.Layer, &ev.Direction,
			&ev.Entities, &ev.Objects, &ev.Magnitude, &ev.Timing,
			&ev.Confidence, &ev.CreatedAt, &ev.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan theme event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// HeatmapRow is one layer-week bucket of event volume.
type HeatmapRow struct {
	Layer      string
	Week       time.Time
	EventCount int
	Tightening int
	Easing     int
}

// HeatmapSince returns event volume bucketed by constraint layer and ISO
// week since the given time.
func (s *EventStore) HeatmapSince(ctx context.Context, since time.Time) ([]HeatmapRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT constraint_layer,
		        date_trunc('week', created_at) AS week,
		        COUNT(*) AS event_count,
		        SUM(CASE WHEN direction = 'TIGHTENING' THEN 1 ELSE 0 END) AS tightening,
		        SUM(CASE WHEN direction = 'EASING' THEN 1 ELSE 0 END) AS easing
		 FROM events
		 WHERE created_at >= $1
		 GROUP BY constraint_layer, date_trunc('week', created_at)
		 ORDER BY constraint_layer, week`,
		since)
	if err != nil {
		return nil, fmt.Errorf("failed to query heatmap: %w", err)
	}
	defer rows.Close()

	var out []HeatmapRow
	for rows.Next() {
		var r HeatmapRow
		if err := rows.Scan(&r.Layer, &r.Week, &r.EventCount, &r.Tightening, &r.Easing); err != nil {
			return nil, fmt.Errorf("failed to scan heatmap row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// HasTighteningForEntity reports whether any tightening event references the
// entity id.
func (s *EventStore) HasTighteningForEntity(ctx context.Context, entityID string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM events
		 WHERE direction = 'TIGHTENING'
		   AND entities::text ILIKE $1
		 LIMIT 1`,
		"%"+entityID+"%").Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check tightening involvement: %w", err)
	}
	return true, nil
}

// EventEntityRow carries the fields entity-catalog reconciliation needs
// from each stored event.
type EventEntityRow struct {
	ID       int64
	ItemID   uuid.UUID
	Layer    models.ConstraintLayer
	Entities []models.EntityRef
}

// AllEntityRefs returns every event's entity references, oldest first, for
// reconciling the entity catalog against what extraction actually emitted.
func (s *EventStore) AllEntityRefs(ctx context.Context) ([]EventEntityRow, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, item_id, constraint_layer, entities FROM events ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query event entities: %w", err)
	}
	defer rows.Close()

	var out []EventEntityRow
	for rows.Next() {
		var r EventEntityRow
		if err := rows.Scan(&r.ID, &r.ItemID, &r.Layer, &r.Entities); err != nil {
			return nil, fmt.Errorf("failed to scan event entity row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
