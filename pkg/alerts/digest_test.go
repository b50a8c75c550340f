package alerts

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

func TestFormatDigest(t *testing.T) {
	now := time.Date(2026, 2, 14, 7, 0, 0, 0, time.UTC)
	counts := store.EventCounts{Total: 18, Tightening: 12, Easing: 3}
	themes := []store.DigestThemeRow{
		{Name: "Adv Packaging: Cowos", Status: models.ThemeStatusActive, TighteningScore: 0.81, TighteningCount: 9, EasingCount: 1},
		{Name: "Memory: Hbm3E Supply", Status: models.ThemeStatusCandidate, TighteningScore: 0.44, TighteningCount: 4},
	}
	events := []store.DigestEventRow{
		{
			EventType:  models.EventLeadTimeExtended,
			Layer:      models.LayerAdvPackaging,
			Objects:    []models.ObjectRef{{Name: "CoWoS"}, {Name: "HBM3E"}, {Name: "ABF substrate"}},
			SourceName: "Nikkei Asia",
			Tier:       1,
		},
		{
			EventType:  models.EventAllocation,
			Layer:      models.LayerMemory,
			SourceName: "TrendForce",
			Tier:       2,
		},
	}
	entities := []store.NewEntityRow{
		{CanonicalName: "Nittobo", Type: "COMPANY", Layers: []string{"SUBSTRATES_FILMS", "PCB_MATERIALS", "ADV_PACKAGING"}},
		{CanonicalName: "T-Glass", Type: "MATERIAL"},
	}

	got := formatDigest(now, 42, counts, themes, events, entities)

	want := strings.Join([]string{
		"📊 <b>AI Constraints Radar — Daily Digest (2026-02-14)</b>",
		"",
		"<b>Pipeline:</b> 42 articles → 18 events (12 tightening, 3 easing)",
		"",
		"<b>Top themes:</b>",
		"  🟠 Adv Packaging: Cowos — score 0.81 (9↑ 1↓)",
		"  🟡 Memory: Hbm3E Supply — score 0.44 (4↑ 0↓)",
		"",
		"<b>Key events:</b>",
		"  • [LEAD_TIME_EXTENDED] CoWoS, HBM3E — Nikkei Asia (T1)",
		"  • [ALLOCATION] MEMORY — TrendForce (T2)",
		"",
		"<b>New entities discovered:</b>",
		"  • Nittobo (COMPANY) in SUBSTRATES_FILMS, PCB_MATERIALS",
		"  • T-Glass (MATERIAL) in ?",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestFormatDigestQuietDay(t *testing.T) {
	now := time.Date(2026, 2, 14, 7, 0, 0, 0, time.UTC)

	got := formatDigest(now, 5, store.EventCounts{}, nil, nil, nil)

	want := strings.Join([]string{
		"📊 <b>AI Constraints Radar — Daily Digest (2026-02-14)</b>",
		"",
		"<b>Pipeline:</b> 5 articles → 0 events (0 tightening, 0 easing)",
		"",
		"<i>No significant activity in the last 24 hours.</i>",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestFormatDigestUnknownStatusIcon(t *testing.T) {
	themes := []store.DigestThemeRow{
		{Name: "Power Delivery: Transformers", Status: models.ThemeStatusFading, TighteningScore: 0.2},
	}

	got := formatDigest(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), 0, store.EventCounts{}, themes, nil, nil)

	assert.Contains(t, got, "  ⚪ Power Delivery: Transformers — score 0.20 (0↑ 0↓)")
}
