package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

const (
	// Daily digest goes out at 07:00 UTC, before US markets open.
	digestCronSpec         = "0 7 * * *"
	defaultScheduleMinutes = 60
)

// Scheduler drives periodic collection per source plus the daily digest.
// Jobs are registered once at startup; a restart picks up source changes.
type Scheduler struct {
	cron      *cron.Cron
	collector *Collector
	sources   *store.SourceStore
	digest    func(context.Context) error
	logger    *slog.Logger

	baseCtx context.Context
}

// NewScheduler creates a Scheduler. digest may be nil, which skips the
// digest job entirely. Slow sources never overlap themselves: a job still
// running when its next tick arrives skips that tick.
func NewScheduler(collector *Collector, sources *store.SourceStore, digest func(context.Context) error) *Scheduler {
	logger := slog.Default().With("component", "scheduler")
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger: logger})),
	)
	return &Scheduler{
		cron:      c,
		collector: collector,
		sources:   sources,
		digest:    digest,
		logger:    logger,
		baseCtx:   context.Background(),
	}
}

// LoadJobs registers one collection job per confirmed source at its
// schedule_minutes interval, plus the daily digest.
func (s *Scheduler) LoadJobs(ctx context.Context) error {
	sources, err := s.sources.ListConfirmed(ctx)
	if err != nil {
		return fmt.Errorf("failed to list confirmed sources: %w", err)
	}
	for _, src := range sources {
		minutes := src.ScheduleMinutes
		if minutes <= 0 {
			minutes = defaultScheduleMinutes
		}
		spec := fmt.Sprintf("@every %dm", minutes)
		if _, err := s.cron.AddFunc(spec, func() { s.runSource(src) }); err != nil {
			return fmt.Errorf("failed to schedule source %s: %w", src.SourceID, err)
		}
	}
	if s.digest != nil {
		if _, err := s.cron.AddFunc(digestCronSpec, s.runDigest); err != nil {
			return fmt.Errorf("failed to schedule daily digest: %w", err)
		}
	}
	s.logger.Info("Loaded source collection jobs", "count", len(sources))
	return nil
}

func (s *Scheduler) runSource(src models.Source) {
	if _, err := s.collector.CollectSource(s.baseCtx, src); err != nil {
		s.logger.Error("Scheduled collection failed", "source_id", src.SourceID, "error", err)
	}
}

func (s *Scheduler) runDigest() {
	if err := s.digest(s.baseCtx); err != nil {
		s.logger.Error("Daily digest failed", "error", err)
	}
}

// Start begins firing scheduled jobs; ctx bounds the work each one does.
func (s *Scheduler) Start(ctx context.Context) {
	s.baseCtx = ctx
	s.cron.Start()
}

// Stop halts scheduling and returns a context that completes once any
// in-flight jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger adapts slog for the cron runner; skip notices land at debug.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
