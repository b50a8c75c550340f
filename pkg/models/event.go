package models

import "time"

// EntityRef ties an extracted event to a catalog entity with the role the
// entity plays in that event.
type EntityRef struct {
	EntityID string     `json:"entity_id"`
	Role     EntityRole `json:"role"`
}

// ObjectRef names a concrete thing the event is about (a product, material,
// process node) independent of the entity catalog.
type ObjectRef struct {
	Type    string   `json:"type"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

// LeadTimeRange is a lead-time interval in weeks.
type LeadTimeRange struct {
	From *float64 `json:"from,omitempty"`
	To   *float64 `json:"to,omitempty"`
}

// Magnitude quantifies an event. All fields are optional; extraction fills
// whatever the text supports.
type Magnitude struct {
	LeadTimeWeeks  *LeadTimeRange `json:"lead_time_weeks,omitempty"`
	PriceChangePct *float64       `json:"price_change_pct,omitempty"`
	CapexUSD       *int64         `json:"capex_usd,omitempty"`
	CapacityDelta  *string        `json:"capacity_delta,omitempty"`
	Notes          *string        `json:"notes,omitempty"`
}

// Timing carries the event's own chronology as free-form date strings; the
// extractor is not trusted to emit parseable timestamps.
type Timing struct {
	HappenedAt           *string `json:"happened_at,omitempty"`
	ReportedAt           *string `json:"reported_at,omitempty"`
	ExpectedReliefWindow *string `json:"expected_relief_window,omitempty"`
}

// Evidence records provenance for an event. It is computed from the source
// item's metadata, never taken from model output.
type Evidence struct {
	SourceID   string   `json:"source_id"`
	SourceURL  string   `json:"source_url"`
	SourceTier int      `json:"source_tier"`
	Language   string   `json:"language"`
	Confidence float64  `json:"confidence"`
	Snippets   []string `json:"snippets,omitempty"`
}

// ConstraintEvent is a single extracted supply chain signal. This is both
// the LLM output schema and the shape persisted into the events table.
type ConstraintEvent struct {
	EventType       EventType        `json:"event_type"`
	ConstraintLayer ConstraintLayer  `json:"constraint_layer"`
	SecondaryLayer  *ConstraintLayer `json:"secondary_layer,omitempty"`
	Direction       Direction        `json:"direction"`
	Entities        []EntityRef      `json:"entities"`
	Objects         []ObjectRef      `json:"objects"`
	Magnitude       Magnitude        `json:"magnitude"`
	Timing          Timing           `json:"timing"`
	Evidence        *Evidence        `json:"evidence,omitempty"`
	Tags            []string         `json:"tags,omitempty"`
	Confidence      float64          `json:"confidence"`
}

// FieldError identifies the first schema violation found in an extraction.
type FieldError struct {
	Field string
	Value string
}

func (e *FieldError) Error() string {
	return "invalid " + e.Field + ": " + e.Value
}

// Validate reports whether the event's closed-domain fields are all legal.
// Events failing validation are dropped, never persisted.
func (e *ConstraintEvent) Validate() error {
	if !e.EventType.IsValid() {
		return &FieldError{Field: "event_type", Value: string(e.EventType)}
	}
	if !e.ConstraintLayer.IsValid() {
		return &FieldError{Field: "constraint_layer", Value: string(e.ConstraintLayer)}
	}
	if e.SecondaryLayer != nil && !e.SecondaryLayer.IsValid() {
		return &FieldError{Field: "secondary_layer", Value: string(*e.SecondaryLayer)}
	}
	if !e.Direction.IsValid() {
		return &FieldError{Field: "direction", Value: string(e.Direction)}
	}
	for _, ref := range e.Entities {
		if !ref.Role.IsValid() {
			return &FieldError{Field: "entities.role", Value: string(ref.Role)}
		}
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return &FieldError{Field: "confidence", Value: "out of [0,1]"}
	}
	return nil
}

// ExtractionResult is what the extractor returns for a single item.
type ExtractionResult struct {
	Events     []ConstraintEvent `json:"events"`
	Skipped    bool              `json:"skipped"`
	SkipReason string            `json:"skip_reason,omitempty"`
}

// StoredEvent is an events table row: a validated ConstraintEvent plus its
// row identity and provenance.
type StoredEvent struct {
	ID              int64            `json:"id"`
	ItemID          string           `json:"item_id"`
	EventType       EventType        `json:"event_type"`
	ConstraintLayer ConstraintLayer  `json:"constraint_layer"`
	SecondaryLayer  *ConstraintLayer `json:"secondary_layer,omitempty"`
	Direction       Direction        `json:"direction"`
	Entities        []EntityRef      `json:"entities"`
	Objects         []ObjectRef      `json:"objects"`
	Magnitude       Magnitude        `json:"magnitude"`
	Timing          Timing           `json:"timing"`
	Evidence        *Evidence        `json:"evidence,omitempty"`
	Tags            []string         `json:"tags,omitempty"`
	Confidence      float64          `json:"confidence"`
	CreatedAt       time.Time        `json:"created_at"`
}
