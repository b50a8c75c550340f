package telegram

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

// briefingRings fixes the beneficiary ring order in briefing messages.
var briefingRings = []string{"ringA", "ringB", "ringC"}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// FormatNewCandidate renders the NEW_CANDIDATE alert body.
func FormatNewCandidate(theme store.TriageTheme) string {
	thesis := theme.Thesis

	oneLiner := theme.Name
	if thesis != nil && thesis.OneLiner != "" {
		oneLiner = thesis.OneLiner
	}

	lines := []string{
		fmt.Sprintf("🟡 <b>New constraint candidate: %s</b>", theme.Name),
		"",
		fmt.Sprintf("<b>What:</b> %s", oneLiner),
		fmt.Sprintf("<b>Layer:</b> %s | <b>Score:</b> %.2f", theme.ConstraintLayer, theme.TighteningScore),
		fmt.Sprintf("<b>Events:</b> %d (%d tightening)", theme.EventCount, theme.TighteningCount),
	}

	if thesis != nil {
		winners := make([]string, 0, 5)
		winners = append(winners, firstN(thesis.WhoBenefits["ringA"], 3)...)
		winners = append(winners, firstN(thesis.WhoBenefits["ringB"], 2)...)
		if len(winners) > 0 {
			lines = append(lines, fmt.Sprintf("<b>Potential winners:</b> %s", strings.Join(winners, ", ")))
		}
		if len(thesis.InvalidationTriggers) > 0 {
			lines = append(lines, fmt.Sprintf("<b>Disconfirm:</b> %s", thesis.InvalidationTriggers[0]))
		}
	}

	return strings.Join(lines, "\n")
}

// FormatInflection renders the INFLECTION alert body for a trigger event
// attributed to its highest-scoring theme.
func FormatInflection(theme store.TriageTheme, event store.InflectionEvent) string {
	lines := []string{
		fmt.Sprintf("🟥 <b>INFLECTION: %s</b>", theme.Name),
		"",
		fmt.Sprintf("<b>Change:</b> %s — %s", event.EventType, event.Direction),
	}
	lines = append(lines, magnitudeLines(event.Magnitude)...)

	if thesis := theme.Thesis; thesis != nil {
		if thesis.ReliefTimeline != nil && *thesis.ReliefTimeline != "" {
			lines = append(lines, fmt.Sprintf("<b>Relief timeline:</b> %s", *thesis.ReliefTimeline))
		}
		if len(thesis.LeadingIndicators) > 0 {
			lines = append(lines, fmt.Sprintf("<b>Next indicator:</b> %s", thesis.LeadingIndicators[0]))
		}
	}

	return strings.Join(lines, "\n")
}

// magnitudeLines renders each populated magnitude field as its own row, in
// the order the extractor emits the fields.
func magnitudeLines(m models.Magnitude) []string {
	var lines []string
	if m.LeadTimeWeeks != nil {
		if rangeJSON, err := json.Marshal(m.LeadTimeWeeks); err == nil {
			lines = append(lines, fmt.Sprintf("<b>lead_time_weeks:</b> %s", rangeJSON))
		}
	}
	if m.PriceChangePct != nil {
		lines = append(lines, fmt.Sprintf("<b>price_change_pct:</b> %v", *m.PriceChangePct))
	}
	if m.CapexUSD != nil {
		lines = append(lines, fmt.Sprintf("<b>capex_usd:</b> %d", *m.CapexUSD))
	}
	if m.CapacityDelta != nil {
		lines = append(lines, fmt.Sprintf("<b>capacity_delta:</b> %s", *m.CapacityDelta))
	}
	if m.Notes != nil {
		lines = append(lines, fmt.Sprintf("<b>notes:</b> %s", *m.Notes))
	}
	return lines
}

// FormatActionableBriefing renders the ACTIONABLE_BRIEFING alert body.
func FormatActionableBriefing(theme store.TriageTheme) string {
	thesis := theme.Thesis

	oneLiner := "?"
	if thesis != nil && thesis.OneLiner != "" {
		oneLiner = thesis.OneLiner
	}

	lines := []string{
		fmt.Sprintf("🟢 <b>Briefing: %s crossed threshold</b>", theme.Name),
		"",
		fmt.Sprintf("<b>Thesis:</b> %s", oneLiner),
		fmt.Sprintf("<b>Score:</b> %.2f | <b>Events:</b> %d", theme.TighteningScore, theme.EventCount),
		"",
	}
	if thesis == nil {
		return strings.Join(lines, "\n")
	}

	if len(thesis.WhyNow) > 0 {
		lines = append(lines, "<b>Why now:</b>")
		for _, bullet := range firstN(thesis.WhyNow, 3) {
			lines = append(lines, "  • "+bullet)
		}
	}

	for _, ring := range briefingRings {
		entities := thesis.WhoBenefits[ring]
		if len(entities) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("<b>%s:</b> %s", ring, strings.Join(firstN(entities, 5), ", ")))
	}

	if len(thesis.InvalidationTriggers) > 0 {
		lines = append(lines, "", "<b>Invalidation triggers:</b>")
		for _, trigger := range firstN(thesis.InvalidationTriggers, 3) {
			lines = append(lines, "  • "+trigger)
		}
	}

	if len(thesis.LeadingIndicators) > 0 {
		lines = append(lines, "", "<b>Watch next:</b>")
		for _, indicator := range firstN(thesis.LeadingIndicators, 3) {
			lines = append(lines, "  • "+indicator)
		}
	}

	return strings.Join(lines, "\n")
}
