// Package themes clusters recent constraint events into persistent themes,
// scores them, walks them through the lifecycle state machine, and keeps
// their investment theses current.
package themes

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/constraint-watch/chokepoint/pkg/llm"
	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

// CANDIDATE -> ACTIVE promotion thresholds.
const (
	activeMinAgeDays    = 14
	activeMinTightening = 6
	activeMinEntities   = 4
	activeMinSources    = 2
)

// Service runs the theme cycle: cluster, upsert, score, promote, thesis.
type Service struct {
	events *store.EventStore
	themes *store.ThemeStore
	scorer *Scorer
	thesis *ThesisWriter
	logger *slog.Logger
}

// NewService creates the theme Service over the shared store and LLM
// client.
func NewService(st *store.Store, client *llm.Client) *Service {
	return &Service{
		events: st.Events,
		themes: st.Themes,
		scorer: NewScorer(st.Entities),
		thesis: NewThesisWriter(client),
		logger: slog.Default().With("component", "themes"),
	}
}

// RunCycle executes one full theme pass over the recent event window.
func (s *Service) RunCycle(ctx context.Context) error {
	events, err := s.events.RecentForClustering(ctx, clusterWindow)
	if err != nil {
		return err
	}

	clusters := clusterEvents(events)
	if len(clusters) == 0 {
		return nil
	}
	s.logger.Info("Theme cycle", "clusters", len(clusters))

	for key, members := range clusters {
		themeID, err := s.upsertTheme(ctx, key, members)
		if err != nil {
			return err
		}

		status, err := s.themes.GetStatus(ctx, themeID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if status != models.ThemeStatusActive && status != models.ThemeStatusMature {
			continue
		}

		thesis := s.thesis.Generate(ctx, themeID, members)
		if thesis == nil {
			continue
		}
		if err := s.themes.SetThesis(ctx, themeID, thesis); err != nil {
			s.logger.Error("Failed to store thesis", "theme_id", themeID, "error", err)
		}
	}
	return nil
}

// upsertTheme creates the theme for a cluster if new, links its events,
// and refreshes scores, counters, and lifecycle status.
func (s *Service) upsertTheme(ctx context.Context, clusterKey string, events []store.ClusterEvent) (string, error) {
	layer, _ := splitClusterKey(clusterKey)
	themeID := ThemeID(clusterKey)
	name := ThemeName(clusterKey)

	exists, err := s.themes.Exists(ctx, themeID)
	if err != nil {
		return "", err
	}
	if !exists {
		if err := s.themes.InsertCandidate(ctx, themeID, name, models.ConstraintLayer(layer), len(events)); err != nil {
			return "", err
		}
		s.logger.Info("New theme CANDIDATE", "name", name, "events", len(events))
	}

	for _, ev := range events {
		if err := s.themes.LinkEvent(ctx, themeID, ev.ID); err != nil {
			return "", err
		}
	}

	score, err := s.scorer.Score(ctx, events)
	if err != nil {
		return "", err
	}

	tightening, easing := 0, 0
	entitySet := make(map[string]struct{})
	sourceSet := make(map[string]struct{})
	for _, ev := range events {
		switch ev.Direction {
		case models.DirectionTightening:
			tightening++
		case models.DirectionEasing:
			easing++
		}
		for _, ref := range ev.Entities {
			entitySet[ref.EntityID] = struct{}{}
		}
		sourceSet[ev.SourceID] = struct{}{}
	}

	err = s.themes.UpdateScores(ctx, themeID, store.ThemeScoreUpdate{
		TighteningScore: score.Composite,
		Velocity:        score.Velocity,
		Breadth:         score.Breadth,
		Quality:         score.Quality,
		Allocation:      score.Allocation,
		Novelty:         score.Novelty,
		EventCount:      len(events),
		TighteningCount: tightening,
		EasingCount:     easing,
		UniqueEntities:  len(entitySet),
		UniqueSources:   len(sourceSet),
	})
	if err != nil {
		return "", err
	}

	if err := s.checkPromotion(ctx, themeID); err != nil {
		return "", err
	}
	return themeID, nil
}

// nextStatus applies the lifecycle rules to one theme's counters, returning
// the successor status and whether a transition fires.
func nextStatus(row *store.PromotionRow, now time.Time) (models.ThemeStatus, bool) {
	switch row.Status {
	case models.ThemeStatusCandidate:
		ageDays := int(now.Sub(row.FirstSeenAt).Hours() / 24)
		if ageDays >= activeMinAgeDays &&
			row.TighteningCount >= activeMinTightening &&
			row.UniqueEntities >= activeMinEntities &&
			row.UniqueSources >= activeMinSources {
			return models.ThemeStatusActive, true
		}
	case models.ThemeStatusActive:
		if float64(row.EasingCount) > float64(row.TighteningCount)*0.5 {
			return models.ThemeStatusMature, true
		}
	case models.ThemeStatusMature:
		if row.EasingCount > row.TighteningCount {
			return models.ThemeStatusFading, true
		}
	}
	return row.Status, false
}

// checkPromotion evaluates and applies lifecycle transitions for a theme.
func (s *Service) checkPromotion(ctx context.Context, themeID string) error {
	row, err := s.themes.GetPromotionRow(ctx, themeID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	status, changed := nextStatus(row, time.Now().UTC())
	if !changed {
		return nil
	}
	if err := s.themes.SetStatus(ctx, themeID, status); err != nil {
		return err
	}
	if status == models.ThemeStatusActive {
		s.logger.Info("Theme promoted to ACTIVE", "theme_id", themeID)
	}
	return nil
}
