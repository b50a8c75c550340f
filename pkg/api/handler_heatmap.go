package api

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/constraint-watch/chokepoint/pkg/store"
)

// heatmapCell is one layer-week bucket. Score is the net tightening share
// in [-1, 1]: positive when the week tightened, negative when it eased.
type heatmapCell struct {
	Week       time.Time `json:"week"`
	EventCount int       `json:"event_count"`
	Tightening int       `json:"tightening"`
	Easing     int       `json:"easing"`
	Score      float64   `json:"score"`
}

// heatmap serves tightening pressure by constraint layer and week.
func (s *Server) heatmap(c *gin.Context) {
	weeks := intQuery(c, "weeks", 12, 1, 52)
	since := time.Now().UTC().Add(-time.Duration(weeks) * 7 * 24 * time.Hour)

	rows, err := s.store.Events.HeatmapSince(c.Request.Context(), since)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"weeks": weeks, "heatmap": buildHeatmap(rows)})
}

func buildHeatmap(rows []store.HeatmapRow) map[string][]heatmapCell {
	heatmap := make(map[string][]heatmapCell)
	for _, row := range rows {
		heatmap[row.Layer] = append(heatmap[row.Layer], heatmapCell{
			Week:       row.Week,
			EventCount: row.EventCount,
			Tightening: row.Tightening,
			Easing:     row.Easing,
			Score:      cellScore(row),
		})
	}
	return heatmap
}

func cellScore(row store.HeatmapRow) float64 {
	if row.EventCount <= 0 {
		return 0
	}
	net := float64(row.Tightening - row.Easing)
	score := math.Min(net/math.Max(float64(row.EventCount), 1), 1.0)
	return math.Round(score*100) / 100
}
