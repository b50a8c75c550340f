package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/constraint-watch/chokepoint/pkg/models"
)

// AlertStore persists the sent-alert ledger used for deduplication and the
// daily cap.
type AlertStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAlertStore creates an AlertStore backed by pool.
func NewAlertStore(pool *pgxpool.Pool) *AlertStore {
	return &AlertStore{
		pool:   pool,
		logger: slog.Default().With("component", "alert-store"),
	}
}

// Insert records a sent alert. The dedup key keeps one alert per type,
// theme, and UTC day; duplicate keys are dropped and reported as false.
func (s *AlertStore) Insert(ctx context.Context, alertType models.AlertType, themeID *string, payload any, telegramMessageID *int, dedupKey string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO alerts (alert_type, theme_id, payload, telegram_message_id, dedup_key)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (dedup_key) DO NOTHING`,
		alertType, themeID, payload, telegramMessageID, dedupKey)
	if err != nil {
		return false, fmt.Errorf("failed to insert alert: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SentToday reports whether an alert with the given dedup key was already
// recorded.
func (s *AlertStore) SentToday(ctx context.Context, dedupKey string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		"SELECT 1 FROM alerts WHERE dedup_key = $1", dedupKey).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check dedup key: %w", err)
	}
	return true, nil
}

// CountSentSince returns the number of alerts sent at or after since.
func (s *AlertStore) CountSentSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM alerts WHERE sent_at >= $1", since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return n, nil
}

// DeleteBefore removes alerts sent before cutoff and returns how many rows
// were deleted. Dedup keys embed the send date, so dropping old rows never
// re-opens a dedup window.
func (s *AlertStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM alerts WHERE sent_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old alerts: %w", err)
	}
	return tag.RowsAffected(), nil
}
