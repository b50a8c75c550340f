package themes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

type stubMentions struct {
	first map[string]time.Time
	calls int
}

func (s *stubMentions) FirstMentionAt(_ context.Context, entityID string) (*time.Time, error) {
	s.calls++
	if at, ok := s.first[entityID]; ok {
		return &at, nil
	}
	return nil, nil
}

func TestScoreComponents(t *testing.T) {
	twoDaysAgo := time.Now().UTC().Add(-2 * 24 * time.Hour)
	tier1 := &models.Evidence{SourceTier: 1}

	events := []store.ClusterEvent{
		{
			EventType: models.EventLeadTimeExtended, Direction: models.DirectionTightening,
			CreatedAt: twoDaysAgo, Evidence: tier1, SourceID: "nikkei_asia",
			Entities: []models.EntityRef{{EntityID: "E:company:tsmc"}},
		},
		{
			EventType: models.EventLeadTimeExtended, Direction: models.DirectionTightening,
			CreatedAt: twoDaysAgo, Evidence: tier1, SourceID: "digitimes",
			Entities: []models.EntityRef{{EntityID: "E:company:amkor"}},
		},
		{
			EventType: models.EventAllocation, Direction: models.DirectionTightening,
			CreatedAt: twoDaysAgo, Evidence: tier1, SourceID: "nikkei_asia",
		},
		{
			EventType: models.EventAllocation, Direction: models.DirectionTightening,
			CreatedAt: twoDaysAgo, Evidence: tier1, SourceID: "digitimes",
		},
	}

	scorer := NewScorer(&stubMentions{})
	score, err := scorer.Score(context.Background(), events)
	require.NoError(t, err)

	assert.InDelta(t, 0.4, score.Velocity, 1e-9)   // 4 tightening this week / 10
	assert.InDelta(t, 0.3, score.Breadth, 1e-9)    // (2/10 + 2/5) / 2
	assert.InDelta(t, 1.0, score.Quality, 1e-9)    // all tier 1
	assert.InDelta(t, 0.8, score.Allocation, 1e-9) // 4 allocation-class / 5
	assert.Zero(t, score.Novelty)                  // no first mentions on record
	assert.InDelta(t, 0.52, score.Composite, 1e-9)
}

func TestScoreNovelty(t *testing.T) {
	now := time.Now().UTC()
	stub := &stubMentions{first: map[string]time.Time{
		"E:company:new": now.Add(-3 * 24 * time.Hour),
		"E:company:old": now.Add(-30 * 24 * time.Hour),
	}}

	refs := []models.EntityRef{{EntityID: "E:company:new"}, {EntityID: "E:company:old"}}
	events := []store.ClusterEvent{
		{
			EventType: models.EventDisruption, Direction: models.DirectionTightening,
			CreatedAt: now.Add(-24 * time.Hour), SourceID: "s1", Entities: refs,
		},
		{
			EventType: models.EventDisruption, Direction: models.DirectionTightening,
			CreatedAt: now.Add(-24 * time.Hour), SourceID: "s1", Entities: refs,
		},
	}

	scorer := NewScorer(stub)
	score, err := scorer.Score(context.Background(), events)
	require.NoError(t, err)

	// The new entity counts once per recent event it appears in.
	assert.InDelta(t, 0.667, score.Novelty, 1e-9)
	assert.Equal(t, 2, stub.calls, "first-mention lookups must be cached per entity")
}

func TestScoreDefaults(t *testing.T) {
	// A lone easing event with no evidence: tier defaults to 3, nothing is
	// recent enough for velocity or novelty.
	events := []store.ClusterEvent{
		{
			EventType: models.EventCapacityOnline, Direction: models.DirectionEasing,
			CreatedAt: time.Now().UTC().Add(-20 * 24 * time.Hour), SourceID: "s1",
		},
	}

	scorer := NewScorer(&stubMentions{})
	score, err := scorer.Score(context.Background(), events)
	require.NoError(t, err)

	assert.Zero(t, score.Velocity)
	assert.InDelta(t, 0.1, score.Breadth, 1e-9) // (0/10 + 1/5) / 2
	assert.InDelta(t, 0.3, score.Quality, 1e-9)
	assert.Zero(t, score.Allocation)
	assert.Zero(t, score.Novelty)
	assert.InDelta(t, 0.08, score.Composite, 1e-9)
}

func TestScoreSaturates(t *testing.T) {
	now := time.Now().UTC()
	events := make([]store.ClusterEvent, 0, 12)
	for i := 0; i < 12; i++ {
		events = append(events, store.ClusterEvent{
			EventType: models.EventAllocation, Direction: models.DirectionTightening,
			CreatedAt: now.Add(-time.Hour), Evidence: &models.Evidence{SourceTier: 1},
			SourceID: "s1",
		})
	}

	scorer := NewScorer(&stubMentions{})
	score, err := scorer.Score(context.Background(), events)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, score.Velocity, 1e-9)
	assert.InDelta(t, 1.0, score.Allocation, 1e-9)
	assert.LessOrEqual(t, score.Composite, 1.0)
}
