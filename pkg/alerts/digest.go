package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

var themeStatusIcons = map[models.ThemeStatus]string{
	models.ThemeStatusCandidate: "🟡",
	models.ThemeStatusActive:    "🟠",
	models.ThemeStatusMature:    "🔵",
}

// SendDailyDigest assembles the last 24 hours of activity into one message,
// delivers it, and ledgers it under the day's dedup key.
func (s *Service) SendDailyDigest(ctx context.Context) error {
	now := time.Now().UTC()
	since := now.Add(-digestWindow)

	counts, err := s.store.Events.CountsSince(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to count digest events: %w", err)
	}
	itemCount, err := s.store.Items.CountFetchedSince(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to count digest items: %w", err)
	}
	themes, err := s.store.Themes.TopForDigest(ctx, digestThemeLimit)
	if err != nil {
		return fmt.Errorf("failed to load digest themes: %w", err)
	}
	topEvents, err := s.store.Events.TopTighteningSince(ctx, since, digestEventLimit)
	if err != nil {
		return fmt.Errorf("failed to load digest events: %w", err)
	}
	newEntities, err := s.store.Entities.NewSince(ctx, since, digestEntityLimit)
	if err != nil {
		return fmt.Errorf("failed to load digest entities: %w", err)
	}

	messageID := s.sender.Send(formatDigest(now, itemCount, counts, themes, topEvents, newEntities))

	date := now.Format("2006-01-02")
	payload := map[string]any{"date": date, "event_count": counts.Total}
	if err := s.record(ctx, models.AlertDailyDigest, "", payload, messageID, now); err != nil {
		return fmt.Errorf("failed to record digest: %w", err)
	}

	s.logger.Info("Daily digest sent", "date", date)
	return nil
}

// formatDigest renders the digest body. Sections with no rows are omitted;
// a day with neither themes nor key events gets the quiet-day line instead.
func formatDigest(now time.Time, itemCount int, counts store.EventCounts, themes []store.DigestThemeRow, events []store.DigestEventRow, entities []store.NewEntityRow) string {
	lines := []string{
		fmt.Sprintf("📊 <b>AI Constraints Radar — Daily Digest (%s)</b>", now.Format("2006-01-02")),
		"",
		fmt.Sprintf("<b>Pipeline:</b> %d articles → %d events (%d tightening, %d easing)",
			itemCount, counts.Total, counts.Tightening, counts.Easing),
		"",
	}

	if len(themes) > 0 {
		lines = append(lines, "<b>Top themes:</b>")
		for _, t := range themes {
			icon, ok := themeStatusIcons[t.Status]
			if !ok {
				icon = "⚪"
			}
			lines = append(lines, fmt.Sprintf("  %s %s — score %.2f (%d↑ %d↓)",
				icon, t.Name, t.TighteningScore, t.TighteningCount, t.EasingCount))
		}
		lines = append(lines, "")
	}

	if len(events) > 0 {
		lines = append(lines, "<b>Key events:</b>")
		for _, ev := range events {
			objStr := string(ev.Layer)
			if names := objectNames(ev.Objects); len(names) > 0 {
				if len(names) > 2 {
					names = names[:2]
				}
				objStr = strings.Join(names, ", ")
			}
			lines = append(lines, fmt.Sprintf("  • [%s] %s — %s (T%d)",
				ev.EventType, objStr, ev.SourceName, ev.Tier))
		}
		lines = append(lines, "")
	}

	if len(entities) > 0 {
		lines = append(lines, "<b>New entities discovered:</b>")
		for _, ent := range entities {
			layerStr := "?"
			if len(ent.Layers) > 0 {
				layers := ent.Layers
				if len(layers) > 2 {
					layers = layers[:2]
				}
				layerStr = strings.Join(layers, ", ")
			}
			lines = append(lines, fmt.Sprintf("  • %s (%s) in %s", ent.CanonicalName, ent.Type, layerStr))
		}
	}

	if len(themes) == 0 && len(events) == 0 {
		lines = append(lines, "<i>No significant activity in the last 24 hours.</i>")
	}

	return strings.Join(lines, "\n")
}

func objectNames(objects []models.ObjectRef) []string {
	names := make([]string, 0, len(objects))
	for _, obj := range objects {
		names = append(names, obj.Name)
	}
	return names
}
