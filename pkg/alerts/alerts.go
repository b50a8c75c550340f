// Package alerts turns themes and events into outbound alerts. Every alert
// is ledgered with a dedup key scoping it to one send per type, theme, and
// UTC day, and a daily cap bounds total volume across all types.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

const (
	// Candidate themes need this many events before they are announced.
	minCandidateEvents = 3
	// Tier-1 events younger than this can trigger an inflection alert.
	inflectionWindow = 30 * time.Minute

	briefingMinScore   = 0.70
	briefingMinSources = 3

	digestWindow      = 24 * time.Hour
	digestThemeLimit  = 5
	digestEventLimit  = 5
	digestEntityLimit = 5
)

// Sender delivers one formatted message and returns its delivery id, or nil
// when delivery is disabled or failed. telegram.Sender implements it.
type Sender interface {
	Send(text string) *int
}

// Service runs alert triage and the daily digest.
type Service struct {
	store     *store.Store
	sender    Sender
	maxPerDay int
	logger    *slog.Logger
}

// NewService creates an alert service. maxPerDay caps how many alerts may
// be sent per UTC day across all alert types.
func NewService(st *store.Store, sender Sender, maxPerDay int) *Service {
	return &Service{
		store:     st,
		sender:    sender,
		maxPerDay: maxPerDay,
		logger:    slog.Default().With("component", "alerts"),
	}
}

// dedupKey scopes an alert to its type, theme, and UTC day. Alerts without
// a theme use "none" so the key shape stays uniform.
func dedupKey(alertType models.AlertType, themeID string, now time.Time) string {
	theme := themeID
	if theme == "" {
		theme = "none"
	}
	return fmt.Sprintf("%s:%s:%s", alertType, theme, now.UTC().Format("2006-01-02"))
}

func (s *Service) sentToday(ctx context.Context, alertType models.AlertType, themeID string, now time.Time) (bool, error) {
	return s.store.Alerts.SentToday(ctx, dedupKey(alertType, themeID, now))
}

func (s *Service) capReached(ctx context.Context, now time.Time) (bool, error) {
	dayStart := now.UTC().Truncate(24 * time.Hour)
	n, err := s.store.Alerts.CountSentSince(ctx, dayStart)
	if err != nil {
		return false, err
	}
	return n >= s.maxPerDay, nil
}

func (s *Service) record(ctx context.Context, alertType models.AlertType, themeID string, payload any, messageID *int, now time.Time) error {
	var themePtr *string
	if themeID != "" {
		themePtr = &themeID
	}
	_, err := s.store.Alerts.Insert(ctx, alertType, themePtr, payload, messageID, dedupKey(alertType, themeID, now))
	return err
}
