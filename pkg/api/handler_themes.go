package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

// listThemes serves themes by descending tightening score, optionally
// filtered by status.
func (s *Server) listThemes(c *gin.Context) {
	status := c.Query("status")
	limit := intQuery(c, "limit", 50, 1, 200)

	themes, err := s.store.Themes.List(c.Request.Context(), status, limit)
	if err != nil {
		s.serverError(c, err)
		return
	}
	if themes == nil {
		themes = []models.Theme{}
	}
	c.JSON(http.StatusOK, gin.H{"themes": themes, "count": len(themes)})
}

type themeDetail struct {
	models.Theme
	Events []store.ThemeEventRow `json:"events"`
}

// getTheme serves a single theme with its linked events and their cluster
// weights.
func (s *Server) getTheme(c *gin.Context) {
	themeID := c.Param("theme_id")

	theme, err := s.store.Themes.Get(c.Request.Context(), themeID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Theme not found"})
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}

	events, err := s.store.Events.ForTheme(c.Request.Context(), themeID)
	if err != nil {
		s.serverError(c, err)
		return
	}
	if events == nil {
		events = []store.ThemeEventRow{}
	}
	c.JSON(http.StatusOK, themeDetail{Theme: *theme, Events: events})
}
