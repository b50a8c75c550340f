package themes

import (
	"context"
	"math"
	"time"

	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

// Composite tightening score weights. They sum to 1 so the composite stays
// in [0,1] and is monotone in each component.
const (
	weightVelocity   = 0.35
	weightBreadth    = 0.20
	weightQuality    = 0.20
	weightAllocation = 0.15
	weightNovelty    = 0.10
)

// FirstMentionSource reports when an entity was first ever mentioned; nil
// means never. *store.EntityStore satisfies it.
type FirstMentionSource interface {
	FirstMentionAt(ctx context.Context, entityID string) (*time.Time, error)
}

// Scorer computes the five tightening score components for a cluster of
// events.
type Scorer struct {
	mentions FirstMentionSource
}

// NewScorer creates a Scorer backed by the given mention history.
func NewScorer(mentions FirstMentionSource) *Scorer {
	return &Scorer{mentions: mentions}
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// Score computes the component and composite scores for a theme's events.
// All outputs are rounded to three decimals.
func (s *Scorer) Score(ctx context.Context, events []store.ClusterEvent) (models.ThemeScore, error) {
	now := time.Now().UTC()
	weekAgo := now.Add(-7 * 24 * time.Hour)
	twoWeeksAgo := now.Add(-14 * 24 * time.Hour)

	// Velocity: tightening events in the rolling week, saturating at 10.
	recentTightening := 0
	for _, ev := range events {
		if ev.Direction == models.DirectionTightening && ev.CreatedAt.After(weekAgo) {
			recentTightening++
		}
	}
	velocity := math.Min(float64(recentTightening)/10.0, 1.0)

	// Breadth: distinct entities and sources across the cluster.
	entitySet := make(map[string]struct{})
	sourceSet := make(map[string]struct{})
	for _, ev := range events {
		for _, ref := range ev.Entities {
			entitySet[ref.EntityID] = struct{}{}
		}
		sourceSet[ev.SourceID] = struct{}{}
	}
	breadth := math.Min((float64(len(entitySet))/10.0+float64(len(sourceSet))/5.0)/2.0, 1.0)

	// Quality: mean per-event source tier weight.
	qualitySum := 0.0
	for _, ev := range events {
		tier := 3
		if ev.Evidence != nil {
			tier = ev.Evidence.SourceTier
		}
		qualitySum += models.TierWeight(tier)
	}
	quality := math.Min(qualitySum/math.Max(float64(len(events)), 1), 1.0)

	// Allocation language: how much of the cluster is hard allocation or
	// lead-time movement.
	allocCount := 0
	for _, ev := range events {
		if ev.EventType == models.EventAllocation || ev.EventType == models.EventLeadTimeExtended {
			allocCount++
		}
	}
	allocation := math.Min(float64(allocCount)/5.0, 1.0)

	// Novelty: entity references in recent events whose first-ever mention
	// is itself recent. Lookups are cached per entity within one scoring
	// pass; MIN(created_at) cannot change mid-cycle.
	firstMentions := make(map[string]*time.Time)
	novelCount := 0
	for _, ev := range events {
		if !ev.CreatedAt.After(twoWeeksAgo) {
			continue
		}
		for _, ref := range ev.Entities {
			first, ok := firstMentions[ref.EntityID]
			if !ok {
				var err error
				first, err = s.mentions.FirstMentionAt(ctx, ref.EntityID)
				if err != nil {
					return models.ThemeScore{}, err
				}
				firstMentions[ref.EntityID] = first
			}
			if first != nil && first.After(twoWeeksAgo) {
				novelCount++
			}
		}
	}
	novelty := math.Min(float64(novelCount)/3.0, 1.0)

	composite := weightVelocity*velocity +
		weightBreadth*breadth +
		weightQuality*quality +
		weightAllocation*allocation +
		weightNovelty*novelty

	return models.ThemeScore{
		Velocity:   round3(velocity),
		Breadth:    round3(breadth),
		Quality:    round3(quality),
		Allocation: round3(allocation),
		Novelty:    round3(novelty),
		Composite:  round3(composite),
	}, nil
}
