package themes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/constraint-watch/chokepoint/pkg/llm"
	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

// Evidence lines beyond this are left out of the thesis prompt.
const maxThesisEvents = 15

const thesisSystemPrompt = `You are an AI supply chain constraint analyst. Generate a structured thesis for a bottleneck theme based on the evidence events provided.

Your thesis must answer:
1. What is scarce and why it matters NOW
2. The causal mechanism (demand driver -> constraint -> impact)
3. Who benefits (Ring A = pure plays, Ring B = adjacent winners, Ring C = expression vehicles)
4. Who suffers
5. What leading indicators to watch
6. What would invalidate this thesis
7. Expected relief timeline

Return JSON matching this exact schema:
{
  "one_liner": "Single sentence thesis",
  "why_now": ["bullet 1", "bullet 2"],
  "mechanism": ["causal chain step 1", "step 2"],
  "who_benefits": {"ringA": ["entity1"], "ringB": ["entity2"], "ringC": ["ETF1"]},
  "who_suffers": ["entity or class"],
  "leading_indicators": ["indicator 1", "indicator 2"],
  "invalidation_triggers": ["trigger 1", "trigger 2"],
  "relief_timeline": "e.g. 2027-H2 when new capacity comes online"
}

Be specific. Use entity names. Reference concrete numbers from the evidence.`

// ThesisWriter generates the living thesis for ACTIVE and MATURE themes.
type ThesisWriter struct {
	client *llm.Client
	logger *slog.Logger
}

// NewThesisWriter creates a ThesisWriter.
func NewThesisWriter(client *llm.Client) *ThesisWriter {
	return &ThesisWriter{
		client: client,
		logger: slog.Default().With("component", "thesis-writer"),
	}
}

// evidenceLine renders one event as a compact prompt line.
func evidenceLine(ev store.ClusterEvent) string {
	parts := []string{
		fmt.Sprintf("- [%s]", ev.EventType),
		fmt.Sprintf("layer=%s", ev.Layer),
		fmt.Sprintf("dir=%s", ev.Direction),
	}

	var objNames []string
	for _, obj := range ev.Objects {
		objNames = append(objNames, obj.Name)
	}
	if len(objNames) > 0 {
		parts = append(parts, "objects="+strings.Join(objNames, ", "))
	}

	var entityIDs []string
	for _, ref := range ev.Entities {
		entityIDs = append(entityIDs, ref.EntityID)
	}
	if len(entityIDs) > 0 {
		parts = append(parts, "entities="+strings.Join(entityIDs, ", "))
	}

	m := ev.Magnitude
	if m.LeadTimeWeeks != nil {
		if rangeJSON, err := json.Marshal(m.LeadTimeWeeks); err == nil {
			parts = append(parts, "lead_time_weeks="+string(rangeJSON))
		}
	}
	if m.PriceChangePct != nil {
		parts = append(parts, fmt.Sprintf("price_change_pct=%v", *m.PriceChangePct))
	}
	if m.CapexUSD != nil {
		parts = append(parts, fmt.Sprintf("capex_usd=%d", *m.CapexUSD))
	}
	if m.CapacityDelta != nil {
		parts = append(parts, "capacity_delta="+*m.CapacityDelta)
	}
	if m.Notes != nil {
		parts = append(parts, "notes="+*m.Notes)
	}

	return strings.Join(parts, " | ")
}

// Generate produces a thesis from a theme's evidence events, or nil when
// the model cannot. Failures are logged, never fatal: a theme without a
// thesis is still a theme.
func (w *ThesisWriter) Generate(ctx context.Context, themeID string, events []store.ClusterEvent) *models.ThemeThesis {
	if len(events) == 0 {
		return nil
	}

	capped := events
	if len(capped) > maxThesisEvents {
		capped = capped[:maxThesisEvents]
	}
	lines := make([]string, 0, len(capped))
	for _, ev := range capped {
		lines = append(lines, evidenceLine(ev))
	}

	tightening, easing := 0, 0
	for _, ev := range events {
		switch ev.Direction {
		case models.DirectionTightening:
			tightening++
		case models.DirectionEasing:
			easing++
		}
	}

	prompt := fmt.Sprintf(`Theme: %s
Layer: %s
Event count: %d
Tightening events: %d
Easing events: %d

Evidence events:
%s

Generate a structured thesis for this bottleneck theme.`,
		themeID, events[0].Layer, len(events), tightening, easing, strings.Join(lines, "\n"))

	raw, err := w.client.Complete(ctx, llm.Request{
		System:   thesisSystemPrompt,
		Prompt:   prompt,
		JSONMode: true,
	})
	if err != nil {
		w.logger.Error("Thesis generation failed", "theme_id", themeID, "error", err)
		return nil
	}

	var thesis models.ThemeThesis
	if err := json.Unmarshal([]byte(raw), &thesis); err != nil {
		w.logger.Warn("Invalid JSON from thesis writer", "theme_id", themeID)
		return nil
	}
	return &thesis
}
