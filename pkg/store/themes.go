package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/constraint-watch/chokepoint/pkg/models"
)

// ThemeStore persists theme clusters, their scores, and event links.
type ThemeStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewThemeStore creates a ThemeStore backed by pool.
func NewThemeStore(pool *pgxpool.Pool) *ThemeStore {
	return &ThemeStore{
		pool:   pool,
		logger: slog.Default().With("component", "theme-store"),
	}
}

const themeColumns = `theme_id, name, constraint_layer, status, tightening_score,
	velocity_score, breadth_score, quality_score, allocation_score, novelty_score,
	event_count, tightening_count, easing_count, unique_entities, unique_sources,
	thesis, first_seen_at, updated_at`

func scanTheme(row pgx.Row) (models.Theme, error) {
	var t models.Theme
	err := row.Scan(&t.ThemeID, &t.Name, &t.ConstraintLayer, &t.Status, &t.TighteningScore,
		&t.VelocityScore, &t.BreadthScore, &t.QualityScore, &t.AllocationScore, &t.NoveltyScore,
		&t.EventCount, &t.TighteningCount, &t.EasingCount, &t.UniqueEntities, &t.UniqueSources,
		&t.Thesis, &t.FirstSeenAt, &t.UpdatedAt)
	return t, err
}

// Exists reports whether a theme id is already registered.
func (s *ThemeStore) Exists(ctx context.Context, themeID string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		"SELECT 1 FROM themes WHERE theme_id = $1", themeID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check theme id: %w", err)
	}
	return true, nil
}

// InsertCandidate registers a new CANDIDATE theme for a cluster.
func (s *ThemeStore) InsertCandidate(ctx context.Context, themeID, name string, layer models.ConstraintLayer, eventCount int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO themes (theme_id, name, constraint_layer, status, event_count, first_seen_at)
		 VALUES ($1, $2, $3, 'CANDIDATE', $4, now())`,
		themeID, name, layer, eventCount)
	if err != nil {
		return fmt.Errorf("failed to insert candidate theme: %w", err)
	}
	s.logger.Info("New theme CANDIDATE", "theme_id", themeID, "name", name, "events", eventCount)
	return nil
}

// LinkEvent attaches an event to a theme. Repeated links are no-ops.
func (s *ThemeStore) LinkEvent(ctx context.Context, themeID string, eventID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO theme_events (theme_id, event_id)
		 VALUES ($1, $2)
		 ON CONFLICT (theme_id, event_id) DO NOTHING`,
		themeID, eventID)
	if err != nil {
		return fmt.Errorf("failed to link event to theme: %w", err)
	}
	return nil
}

// ThemeScoreUpdate carries a full recomputed score and counter set for one
// theme.
type ThemeScoreUpdate struct {
	TighteningScore float64
	Velocity        float64
	Breadth         float64
	Quality         float64
	Allocation      float64
	Novelty         float64
	EventCount      int
	TighteningCount int
	EasingCount     int
	UniqueEntities  int
	UniqueSources   int
}

// UpdateScores overwrites a theme's scores and cluster counters.
func (s *ThemeStore) UpdateScores(ctx context.Context, themeID string, u ThemeScoreUpdate) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE themes SET
		    tightening_score = $2, velocity_score = $3, breadth_score = $4,
		    quality_score = $5, allocation_score = $6, novelty_score = $7,
		    event_count = $8, tightening_count = $9, easing_count = $10,
		    unique_entities = $11, unique_sources = $12, updated_at = now()
		 WHERE theme_id = $1`,
		themeID, u.TighteningScore, u.Velocity, u.Breadth, u.Quality, u.Allocation,
		u.Novelty, u.EventCount, u.TighteningCount, u.EasingCount, u.UniqueEntities,
		u.UniqueSources)
	if err != nil {
		return fmt.Errorf("failed to update theme scores: %w", err)
	}
	return nil
}

// PromotionRow holds the fields the lifecycle rules evaluate.
type PromotionRow struct {
	Status          models.ThemeStatus
	FirstSeenAt     time.Time
	TighteningCount int
	EasingCount     int
	UniqueEntities  int
	UniqueSources   int
}

// GetPromotionRow loads the lifecycle fields for one theme.
func (s *ThemeStore) GetPromotionRow(ctx context.Context, themeID string) (*PromotionRow, error) {
	var r PromotionRow
	err := s.pool.QueryRow(ctx,
		`SELECT status, first_seen_at, tightening_count, easing_count, unique_entities, unique_sources
		 FROM themes WHERE theme_id = $1`,
		themeID).Scan(&r.Status, &r.FirstSeenAt, &r.TighteningCount, &r.EasingCount,
		&r.UniqueEntities, &r.UniqueSources)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load promotion fields: %w", err)
	}
	return &r, nil
}

// SetStatus moves a theme to the given lifecycle status.
func (s *ThemeStore) SetStatus(ctx context.Context, themeID string, status models.ThemeStatus) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE themes SET status = $2, updated_at = now() WHERE theme_id = $1",
		themeID, status)
	if err != nil {
		return fmt.Errorf("failed to set theme status: %w", err)
	}
	return nil
}

// GetStatus returns a theme's lifecycle status.
func (s *ThemeStore) GetStatus(ctx context.Context, themeID string) (models.ThemeStatus, error) {
	var status models.ThemeStatus
	err := s.pool.QueryRow(ctx,
		"SELECT status FROM themes WHERE theme_id = $1", themeID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load theme status: %w", err)
	}
	return status, nil
}

// SetThesis stores a generated thesis for a theme.
func (s *ThemeStore) SetThesis(ctx context.Context, themeID string, thesis *models.ThemeThesis) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE themes SET thesis = $2, updated_at = now() WHERE theme_id = $1",
		themeID, thesis)
	if err != nil {
		return fmt.Errorf("failed to set theme thesis: %w", err)
	}
	return nil
}

// Get loads one theme by id.
func (s *ThemeStore) Get(ctx context.Context, themeID string) (*models.Theme, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+themeColumns+" FROM themes WHERE theme_id = $1", themeID)
	t, err := scanTheme(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load theme: %w", err)
	}
	return &t, nil
}

// List returns themes by descending tightening score, optionally filtered by
// status.
func (s *ThemeStore) List(ctx context.Context, status string, limit int) ([]models.Theme, error) {
	if limit <= 0 {
		limit = 50
	}
	var (
		rows pgx.Rows
		err  error
	)
	if status != "" {
		rows, err = s.pool.Query(ctx,
			"SELECT "+themeColumns+" FROM themes WHERE status = $1 ORDER BY tightening_score DESC LIMIT $2",
			status, limit)
	} else {
		rows, err = s.pool.Query(ctx,
			"SELECT "+themeColumns+" FROM themes ORDER BY tightening_score DESC LIMIT $1",
			limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list themes: %w", err)
	}
	defer rows.Close()

	var themes []models.Theme
	for rows.Next() {
		t, err := scanTheme(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan theme: %w", err)
		}
		themes = append(themes, t)
	}
	return themes, rows.Err()
}

// TriageTheme is the theme slice the alert triage works from. Field names
// double as the alert payload keys.
type TriageTheme struct {
	ThemeID         string                 `json:"theme_id"`
	Name            string                 `json:"name"`
	ConstraintLayer models.ConstraintLayer `json:"constraint_layer"`
	TighteningScore float64                `json:"tightening_score"`
	EventCount      int                    `json:"event_count"`
	TighteningCount int                    `json:"tightening_count"`
	UniqueSources   int                    `json:"unique_sources,omitempty"`
	Thesis          *models.ThemeThesis    `json:"thesis"`
}

// CandidatesForAlerting returns CANDIDATE themes with enough events to be
// worth announcing, strongest first.
func (s *ThemeStore) CandidatesForAlerting(ctx context.Context, minEvents int) ([]TriageTheme, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT theme_id, name, constraint_layer, tightening_score,
		        event_count, tightening_count, thesis
		 FROM themes
		 WHERE status = 'CANDIDATE'
		   AND event_count >= $1
		 ORDER BY tightening_score DESC`,
		minEvents)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate themes: %w", err)
	}
	defer rows.Close()

	var out []TriageTheme
	for rows.Next() {
		var t TriageTheme
		if err := rows.Scan(&t.ThemeID, &t.Name, &t.ConstraintLayer, &t.TighteningScore,
			&t.EventCount, &t.TighteningCount, &t.Thesis); err != nil {
			return nil, fmt.Errorf("failed to scan candidate theme: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ActionableThemes returns ACTIVE and MATURE themes above the briefing
// thresholds, strongest first.
func (s *ThemeStore) ActionableThemes(ctx context.Context, minScore float64, minSources int) ([]TriageTheme, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT theme_id, name, constraint_layer, tightening_score,
		        event_count, tightening_count, unique_sources, thesis
		 FROM themes
		 WHERE status IN ('ACTIVE', 'MATURE')
		   AND tightening_score >= $1
		   AND unique_sources >= $2
		 ORDER BY tightening_score DESC`,
		minScore, minSources)
	if err != nil {
		return nil, fmt.Errorf("failed to list actionable themes: %w", err)
	}
	defer rows.Close()

	var out []TriageTheme
	for rows.Next() {
		var t TriageTheme
		if err := rows.Scan(&t.ThemeID, &t.Name, &t.ConstraintLayer, &t.TighteningScore,
			&t.EventCount, &t.TighteningCount, &t.UniqueSources, &t.Thesis); err != nil {
			return nil, fmt.Errorf("failed to scan actionable theme: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TopThemeForEvent returns the strongest theme an event is linked to, or nil
// when the event belongs to no theme yet.
func (s *ThemeStore) TopThemeForEvent(ctx context.Context, eventID int64) (*TriageTheme, error) {
	var t TriageTheme
	err := s.pool.QueryRow(ctx,
		`SELECT t.theme_id, t.name, t.constraint_layer, t.tightening_score,
		        t.event_count, t.tightening_count, t.thesis
		 FROM themes t
		 JOIN theme_events te ON t.theme_id = te.theme_id
		 WHERE te.event_id = $1
		 ORDER BY t.tightening_score DESC
		 LIMIT 1`,
		eventID).Scan(&t.ThemeID, &t.Name, &t.ConstraintLayer, &t.TighteningScore,
		&t.EventCount, &t.TighteningCount, &t.Thesis)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load theme for event: %w", err)
	}
	return &t, nil
}

// DigestThemeRow is a top-theme line for the daily digest.
type DigestThemeRow struct {
	Name            string
	Layer           models.ConstraintLayer
	Status          models.ThemeStatus
	TighteningScore float64
	EventCount      int
	TighteningCount int
	EasingCount     int
}

// TopForDigest returns the strongest not-yet-fading themes.
func (s *ThemeStore) TopForDigest(ctx context.Context, limit int) ([]DigestThemeRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, constraint_layer, status, tightening_score,
		        event_count, tightening_count, easing_count
		 FROM themes
		 WHERE status IN ('CANDIDATE', 'ACTIVE', 'MATURE')
		 ORDER BY tightening_score DESC
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list digest themes: %w", err)
	}
	defer rows.Close()

	var out []DigestThemeRow
	for rows.Next() {
		var r DigestThemeRow
		if err := rows.Scan(&r.Name, &r.Layer, &r.Status, &r.TighteningScore,
			&r.EventCount, &r.TighteningCount, &r.EasingCount); err != nil {
			return nil, fmt.Errorf("failed to scan digest theme: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
