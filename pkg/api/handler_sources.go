package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

// listSources serves the source registry ordered by tier then name.
func (s *Server) listSources(c *gin.Context) {
	filter := store.SourceFilter{
		Status:      c.Query("status"),
		FetchMethod: c.Query("fetch_method"),
		Limit:       intQuery(c, "limit", 100, 1, 500),
	}

	sources, err := s.store.Sources.List(c.Request.Context(), filter)
	if err != nil {
		s.serverError(c, err)
		return
	}
	if sources == nil {
		sources = []models.Source{}
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources, "count": len(sources)})
}

// sourceStats serves registry and pipeline counters for the dashboard.
func (s *Server) sourceStats(c *gin.Context) {
	stats, err := s.store.Sources.Stats(c.Request.Context())
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
