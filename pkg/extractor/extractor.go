// Package extractor turns article text into structured constraint events
// through a JSON-mode LLM call, validates the reply against the event
// schema, and persists what survives.
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/constraint-watch/chokepoint/pkg/llm"
	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

const (
	// Items whose usable text trims below this length are not worth a
	// model call.
	minTextChars = 50
	// Prompt cost cap. Longer articles are truncated, not rejected.
	maxTextRunes = 12000
)

const systemPrompt = `You are an AI supply chain constraint analyst. Your job is to extract structured constraint events from articles about semiconductor, datacenter, and AI infrastructure supply chains.

For each article, extract 0 or more ConstraintEvent objects. Only extract events that describe REAL supply chain constraints — shortages, allocation, lead time changes, capacity expansions, disruptions, yield issues, price changes, or policy restrictions.

DO NOT extract:
- Generic product launch news without supply chain impact
- Opinion pieces without concrete facts
- Hype narratives not anchored in measurable constraints

Each event must have:
- event_type: one of LEAD_TIME_EXTENDED, ALLOCATION, PRICE_INCREASE, CAPEX_ANNOUNCED, CAPACITY_ONLINE, QUALIFICATION_DELAY, YIELD_ISSUE, DISRUPTION, POLICY_RESTRICTION
- constraint_layer: one of COMPUTE_SILICON, MEMORY, ADV_PACKAGING, SUBSTRATES_FILMS, PCB_MATERIALS, INTERCONNECT_NETWORKING, POWER_DELIVERY_EQUIP, THERMAL_COOLING, DATACENTER_BUILD_PERMIT, FUEL_ONSITE_POWER
- direction: TIGHTENING, EASING, or MIXED
- entities: list of {entity_id, role} where entity_id is like "E:company:tsmc" and role is SUPPLIER/BUYER/DEMAND_DRIVER/OEM/REGULATOR/LOCATION
  IMPORTANT: Include companies that are KNOWN key suppliers even if not named in the article. Use this reference:
    Glass fiber / glass cloth / T-glass / low-CTE glass → Nittobo (E:company:nittobo), Nitto Boseki
    ABF substrate film → Ajinomoto (E:company:ajinomoto), Ajinomoto Fine-Techno
    IC package substrates → Ibiden (E:company:ibiden), Shinko Electric (E:company:shinko)
    Advanced packaging / CoWoS → TSMC (E:company:tsmc), Amkor (E:company:amkor)
    HBM → SK Hynix (E:company:skhynix), Samsung (E:company:samsung_semi), Micron (E:company:micron)
    SiC substrates → Wolfspeed, ON Semi, STMicro, Rohm
    EUV lithography → ASML (E:company:asml)
    Wafer fab equipment → Applied Materials, Lam Research, Tokyo Electron
    GPU / AI accelerators → NVIDIA (E:company:nvidia), AMD (E:company:amd)
    Power transformers → Siemens Energy (E:company:siemens_energy), GE Vernova (E:company:ge_vernova), Hitachi Energy
    Datacenter cooling → Vertiv, Schneider Electric
- objects: list of {type, name, aliases} where type is PRODUCT/COMPONENT/MATERIAL/PROCESS_TECH
- magnitude: concrete numbers when available (lead_time_weeks with from/to, price_change_pct, capex_usd, capacity_delta)
- timing: happened_at (YYYY-MM-DD), reported_at, expected_relief_window
- tags: relevant keywords
- confidence: 0.0-1.0

Pull NUMBERS whenever present. Separate happened_at vs reported_at. Classify direction carefully.

If the article has NO relevant constraint events, return {"events": [], "skipped": true, "skip_reason": "reason"}.

Return valid JSON matching this schema:
{
  "events": [ConstraintEvent, ...],
  "skipped": false,
  "skip_reason": null
}`

// SourceMeta is the source context included in the extraction prompt and
// stamped into each event's evidence.
type SourceMeta struct {
	SourceID string
	Name     string
	URL      string
	Tier     int
	Language string
}

// Extractor runs LLM extraction over items leaving the LINKED stage.
type Extractor struct {
	client *llm.Client
	items  *store.ItemStore
	events *store.EventStore
	logger *slog.Logger
}

// New creates an Extractor.
func New(client *llm.Client, items *store.ItemStore, events *store.EventStore) *Extractor {
	return &Extractor{
		client: client,
		items:  items,
		events: events,
		logger: slog.Default().With("component", "extractor"),
	}
}

// llmPayload is the envelope the model is asked to return. Events stay raw
// so one malformed event cannot sink its siblings.
type llmPayload struct {
	Events     []json.RawMessage `json:"events"`
	Skipped    bool              `json:"skipped"`
	SkipReason *string           `json:"skip_reason"`
}

// Extract runs one model call over the item's text and returns the parsed,
// validated events. Model and transport failures never escape as errors;
// they fold into a skipped result so the item can still finish the
// pipeline.
func (e *Extractor) Extract(ctx context.Context, itemID uuid.UUID, text string, src SourceMeta) models.ExtractionResult {
	if len([]rune(strings.TrimSpace(text))) < minTextChars {
		return models.ExtractionResult{Skipped: true, SkipReason: "text_too_short"}
	}

	truncated := text
	if runes := []rune(text); len(runes) > maxTextRunes {
		truncated = string(runes[:maxTextRunes])
	}

	userPrompt := fmt.Sprintf(
		"Source: %s (tier %d, %s)\nURL: %s\n\nArticle text:\n%s\n\nExtract constraint events as JSON.",
		src.Name, src.Tier, src.Language, src.URL, truncated)

	raw, err := e.client.Complete(ctx, llm.Request{
		System:   systemPrompt,
		Prompt:   userPrompt,
		JSONMode: true,
	})
	if err != nil {
		e.logger.Error("LLM extraction failed", "item_id", itemID, "error", err)
		return models.ExtractionResult{Skipped: true, SkipReason: fmt.Sprintf("llm_error: %v", err)}
	}

	var payload llmPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		e.logger.Warn("Invalid JSON from LLM", "item_id", itemID)
		return models.ExtractionResult{Skipped: true, SkipReason: "invalid_json"}
	}

	if payload.Skipped {
		reason := "llm_skipped"
		if payload.SkipReason != nil && *payload.SkipReason != "" {
			reason = *payload.SkipReason
		}
		return models.ExtractionResult{Skipped: true, SkipReason: reason}
	}

	var result models.ExtractionResult
	for _, rawEvent := range payload.Events {
		var event models.ConstraintEvent
		if err := json.Unmarshal(rawEvent, &event); err != nil {
			e.logger.Debug("Skipping invalid event", "item_id", itemID, "error", err)
			continue
		}
		if err := event.Validate(); err != nil {
			e.logger.Debug("Skipping invalid event", "item_id", itemID, "error", err)
			continue
		}

		// Provenance is computed here, never trusted from the model;
		// only the quoted snippets are kept from its reply.
		var snippets []string
		if event.Evidence != nil {
			snippets = event.Evidence.Snippets
		}
		event.Evidence = &models.Evidence{
			SourceID:   src.SourceID,
			SourceURL:  src.URL,
			SourceTier: src.Tier,
			Language:   src.Language,
			Confidence: event.Confidence,
			Snippets:   snippets,
		}
		result.Events = append(result.Events, event)
	}
	return result
}

// ExtractAndStore runs the full extract stage for one item: load it with
// its source, extract, persist events, and mark the item DONE. Returns the
// number of events stored. Database failures are returned so the stage
// worker can park the item in ERROR.
func (e *Extractor) ExtractAndStore(ctx context.Context, itemID uuid.UUID) (int, error) {
	item, err := e.items.GetWithSource(ctx, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	src := SourceMeta{
		SourceID: item.SourceID,
		Name:     item.SourceName,
		Tier:     item.SourceTier,
		Language: item.SourceLanguage,
	}
	if item.SourceURL != nil {
		src.URL = *item.SourceURL
	}

	result := e.Extract(ctx, item.ID, item.Text(), src)
	if result.Skipped || len(result.Events) == 0 {
		if err := e.items.SetStatus(ctx, itemID, models.PipelineStatusDone); err != nil {
			return 0, err
		}
		return 0, nil
	}

	count := 0
	for _, event := range result.Events {
		if _, err := e.events.Insert(ctx, itemID, event); err != nil {
			return count, err
		}
		count++
	}
	if err := e.items.SetStatus(ctx, itemID, models.PipelineStatusDone); err != nil {
		return count, err
	}
	return count, nil
}
