package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunStore records pipeline stage executions for auditing.
type RunStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRunStore creates a RunStore backed by pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{
		pool:   pool,
		logger: slog.Default().With("component", "run-store"),
	}
}

// Start records the beginning of a stage run over itemsProcessed claimed
// items and returns the run id.
func (s *RunStore) Start(ctx context.Context, stage string, itemsProcessed int) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		"INSERT INTO pipeline_runs (stage, items_processed) VALUES ($1, $2) RETURNING id",
		stage, itemsProcessed).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to start pipeline run: %w", err)
	}
	return id, nil
}

// Finish closes a stage run with its error count.
func (s *RunStore) Finish(ctx context.Context, id int64, itemsErrored int) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE pipeline_runs SET finished_at = now(), items_errored = $2 WHERE id = $1",
		id, itemsErrored)
	if err != nil {
		return fmt.Errorf("failed to finish pipeline run: %w", err)
	}
	return nil
}

// DeleteBefore removes stage runs started before cutoff and returns how
// many rows were deleted.
func (s *RunStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM pipeline_runs WHERE started_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old pipeline runs: %w", err)
	}
	return tag.RowsAffected(), nil
}
