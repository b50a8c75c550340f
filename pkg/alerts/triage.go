package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
	"github.com/constraint-watch/chokepoint/pkg/telegram"
)

// inflectionEventTypes are the event types sharp enough to interrupt with.
var inflectionEventTypes = []string{
	string(models.EventAllocation),
	string(models.EventLeadTimeExtended),
	string(models.EventDisruption),
	string(models.EventPolicyRestriction),
}

// inflectionPayload is the ledgered snapshot for an INFLECTION alert: the
// theme fields at top level plus the event that triggered it.
type inflectionPayload struct {
	store.TriageTheme
	TriggerEvent store.InflectionEvent `json:"trigger_event"`
}

// TriageNewCandidates announces CANDIDATE themes that accumulated enough
// events, strongest first. Returns how many alerts were sent.
func (s *Service) TriageNewCandidates(ctx context.Context) (int, error) {
	themes, err := s.store.Themes.CandidatesForAlerting(ctx, minCandidateEvents)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, theme := range themes {
		now := time.Now()
		already, err := s.sentToday(ctx, models.AlertNewCandidate, theme.ThemeID, now)
		if err != nil {
			return sent, err
		}
		if already {
			continue
		}
		capped, err := s.capReached(ctx, now)
		if err != nil {
			return sent, err
		}
		if capped {
			break
		}

		messageID := s.sender.Send(telegram.FormatNewCandidate(theme))
		if err := s.record(ctx, models.AlertNewCandidate, theme.ThemeID, theme, messageID, now); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// TriageInflections alerts on fresh tier-1 tightening events of the sharp
// types, attributed to the strongest theme each event belongs to.
func (s *Service) TriageInflections(ctx context.Context) (int, error) {
	events, err := s.store.Events.RecentInflections(ctx, inflectionWindow, inflectionEventTypes)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, event := range events {
		theme, err := s.store.Themes.TopThemeForEvent(ctx, event.ID)
		if err != nil {
			return sent, err
		}
		if theme == nil {
			continue
		}

		now := time.Now()
		already, err := s.sentToday(ctx, models.AlertInflection, theme.ThemeID, now)
		if err != nil {
			return sent, err
		}
		if already {
			continue
		}
		capped, err := s.capReached(ctx, now)
		if err != nil {
			return sent, err
		}
		if capped {
			break
		}

		messageID := s.sender.Send(telegram.FormatInflection(*theme, event))
		payload := inflectionPayload{TriageTheme: *theme, TriggerEvent: event}
		if err := s.record(ctx, models.AlertInflection, theme.ThemeID, payload, messageID, now); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// TriageBriefings sends the full briefing for ACTIVE and MATURE themes that
// crossed the actionability bar. A briefing requires a thesis that names
// invalidation triggers and a relief timeline; themes without one wait.
func (s *Service) TriageBriefings(ctx context.Context) (int, error) {
	themes, err := s.store.Themes.ActionableThemes(ctx, briefingMinScore, briefingMinSources)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, theme := range themes {
		thesis := theme.Thesis
		if thesis == nil || len(thesis.InvalidationTriggers) == 0 ||
			thesis.ReliefTimeline == nil || *thesis.ReliefTimeline == "" {
			continue
		}

		now := time.Now()
		already, err := s.sentToday(ctx, models.AlertActionableBriefing, theme.ThemeID, now)
		if err != nil {
			return sent, err
		}
		if already {
			continue
		}
		capped, err := s.capReached(ctx, now)
		if err != nil {
			return sent, err
		}
		if capped {
			break
		}

		messageID := s.sender.Send(telegram.FormatActionableBriefing(theme))
		if err := s.record(ctx, models.AlertActionableBriefing, theme.ThemeID, theme, messageID, now); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// RunTriage runs all three alert checks in order.
func (s *Service) RunTriage(ctx context.Context) error {
	candidates, err := s.TriageNewCandidates(ctx)
	if err != nil {
		return fmt.Errorf("failed to triage new candidates: %w", err)
	}
	inflections, err := s.TriageInflections(ctx)
	if err != nil {
		return fmt.Errorf("failed to triage inflections: %w", err)
	}
	briefings, err := s.TriageBriefings(ctx)
	if err != nil {
		return fmt.Errorf("failed to triage briefings: %w", err)
	}

	if total := candidates + inflections + briefings; total > 0 {
		s.logger.Info("Alert triage complete",
			"new_candidate", candidates,
			"inflection", inflections,
			"briefing", briefings)
	}
	return nil
}
