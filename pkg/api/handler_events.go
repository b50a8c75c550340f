package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/constraint-watch/chokepoint/pkg/store"
)

// listEvents serves events newest-first with optional layer, direction,
// and event_type filters.
func (s *Server) listEvents(c *gin.Context) {
	filter := store.EventFilter{
		Layer:     c.Query("layer"),
		Direction: c.Query("direction"),
		EventType: c.Query("event_type"),
		Limit:     intQuery(c, "limit", 50, 1, 500),
		Offset:    intQuery(c, "offset", 0, 0, 1<<30),
	}

	events, err := s.store.Events.List(c.Request.Context(), filter)
	if err != nil {
		s.serverError(c, err)
		return
	}
	if events == nil {
		events = []store.EventWithSource{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}
