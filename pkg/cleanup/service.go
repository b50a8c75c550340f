// Package cleanup enforces retention on the tables that grow without
// bound: pipeline run history, the alert ledger, and stored document
// text. Events, themes, and sources are kept forever; they are the
// product. All operations are idempotent, so overlapping runs are safe.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/constraint-watch/chokepoint/pkg/store"
)

// Config holds the retention windows and the sweep cadence.
type Config struct {
	// RunHistory is how long finished pipeline_runs rows are kept.
	RunHistory time.Duration
	// AlertHistory is how long sent alerts are kept in the ledger.
	AlertHistory time.Duration
	// ItemText is how long raw document text is kept on DONE items.
	ItemText time.Duration
	// Interval is how often the retention sweep runs.
	Interval time.Duration
}

// DefaultConfig returns the retention windows the daemon runs with.
// Alert history outlives the rest because the dedup ledger doubles as the
// record of what operators were told and when.
func DefaultConfig() Config {
	return Config{
		RunHistory:   30 * 24 * time.Hour,
		AlertHistory: 180 * 24 * time.Hour,
		ItemText:     60 * 24 * time.Hour,
		Interval:     6 * time.Hour,
	}
}

// Service runs the retention sweep on a fixed interval.
type Service struct {
	store  *store.Store
	config Config
	logger *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a retention service over st.
func NewService(st *store.Store, cfg Config) *Service {
	return &Service{
		store:  st,
		config: cfg,
		logger: slog.Default().With("component", "cleanup"),
	}
}

// Start launches the background retention loop. Calling Start on a running
// service is a no-op.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	s.logger.Info("Cleanup service started",
		"run_history", s.config.RunHistory,
		"alert_history", s.config.AlertHistory,
		"item_text", s.config.ItemText,
		"interval", s.config.Interval)
}

// Stop signals the retention loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.RunAll(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunAll(ctx)
		}
	}
}

// RunAll executes one retention sweep over all three tables.
func (s *Service) RunAll(ctx context.Context) {
	now := time.Now()
	s.pruneRuns(ctx, now)
	s.pruneAlerts(ctx, now)
	s.pruneItemText(ctx, now)
}

func (s *Service) pruneRuns(ctx context.Context, now time.Time) {
	count, err := s.store.Runs.DeleteBefore(ctx, now.Add(-s.config.RunHistory))
	if err != nil {
		s.logger.Error("Retention: pipeline run prune failed", "error", err)
		return
	}
	if count > 0 {
		s.logger.Info("Retention: deleted old pipeline runs", "count", count)
	}
}

func (s *Service) pruneAlerts(ctx context.Context, now time.Time) {
	count, err := s.store.Alerts.DeleteBefore(ctx, now.Add(-s.config.AlertHistory))
	if err != nil {
		s.logger.Error("Retention: alert prune failed", "error", err)
		return
	}
	if count > 0 {
		s.logger.Info("Retention: deleted old alerts", "count", count)
	}
}

func (s *Service) pruneItemText(ctx context.Context, now time.Time) {
	count, err := s.store.Items.PruneTextBefore(ctx, now.Add(-s.config.ItemText))
	if err != nil {
		s.logger.Error("Retention: item text prune failed", "error", err)
		return
	}
	if count > 0 {
		s.logger.Info("Retention: cleared stored text on old items", "count", count)
	}
}
