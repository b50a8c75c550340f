package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// intQuery reads an integer query param, falling back to def and clamping
// into [lo, hi]. Malformed values get the default rather than an error.
func intQuery(c *gin.Context, name string, def, lo, hi int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
