// Package api serves the read-only dashboard API: health, the constraint
// heatmap, event and theme listings, and source stats. It never writes;
// all mutation happens in the pipeline.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/constraint-watch/chokepoint/pkg/store"
)

// Server hosts the HTTP API.
type Server struct {
	store  *store.Store
	pool   *pgxpool.Pool
	http   *http.Server
	logger *slog.Logger
}

// NewServer builds the router and binds it to port.
func NewServer(st *store.Store, pool *pgxpool.Pool, port int) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		store:  st,
		pool:   pool,
		logger: slog.Default().With("component", "api"),
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger))

	api := router.Group("/api")
	api.GET("/health", s.health)
	api.GET("/heatmap", s.heatmap)
	api.GET("/events", s.listEvents)
	api.GET("/themes", s.listThemes)
	api.GET("/themes/:theme_id", s.getTheme)
	api.GET("/sources", s.listSources)
	api.GET("/sources/stats", s.sourceStats)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("API server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Handler exposes the router so tests can drive requests without binding a
// port.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String())
	}
}

func (s *Server) serverError(c *gin.Context, err error) {
	s.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
