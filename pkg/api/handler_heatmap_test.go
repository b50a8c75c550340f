package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constraint-watch/chokepoint/pkg/store"
)

func TestCellScore(t *testing.T) {
	tests := []struct {
		name string
		row  store.HeatmapRow
		want float64
	}{
		{name: "mixed week", row: store.HeatmapRow{EventCount: 4, Tightening: 3, Easing: 1}, want: 0.5},
		{name: "all easing", row: store.HeatmapRow{EventCount: 4, Tightening: 0, Easing: 4}, want: -1.0},
		{name: "all tightening", row: store.HeatmapRow{EventCount: 3, Tightening: 3, Easing: 0}, want: 1.0},
		{name: "rounds to two places", row: store.HeatmapRow{EventCount: 3, Tightening: 2, Easing: 1}, want: 0.33},
		{name: "empty week", row: store.HeatmapRow{EventCount: 0}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cellScore(tt.row), 1e-9)
		})
	}
}

func TestBuildHeatmap(t *testing.T) {
	week1 := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	week2 := week1.AddDate(0, 0, 7)
	rows := []store.HeatmapRow{
		{Layer: "Packaging: CoWoS", Week: week1, EventCount: 4, Tightening: 3, Easing: 1},
		{Layer: "Packaging: CoWoS", Week: week2, EventCount: 2, Tightening: 2, Easing: 0},
		{Layer: "Memory: HBM", Week: week1, EventCount: 1, Tightening: 0, Easing: 1},
	}

	hm := buildHeatmap(rows)
	require.Len(t, hm, 2)

	cowos := hm["Packaging: CoWoS"]
	require.Len(t, cowos, 2)
	assert.Equal(t, week1, cowos[0].Week)
	assert.InDelta(t, 0.5, cowos[0].Score, 1e-9)
	assert.InDelta(t, 1.0, cowos[1].Score, 1e-9)

	hbm := hm["Memory: HBM"]
	require.Len(t, hbm, 1)
	assert.InDelta(t, -1.0, hbm[0].Score, 1e-9)
}
