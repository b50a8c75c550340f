package models

import (
	"time"

	"github.com/google/uuid"
)

// Entity is a catalog row: a company, material, facility or other named
// thing the linker can recognize in item text. Aliases map language codes
// to alias lists; the index flattens them.
type Entity struct {
	EntityID           string              `json:"entity_id"`
	CanonicalName      string              `json:"canonical_name"`
	Type               EntityType          `json:"type"`
	Aliases            map[string][]string `json:"aliases"`
	Tickers            []string            `json:"tickers,omitempty"`
	Roles              []string            `json:"roles,omitempty"`
	Layers             []string            `json:"layers,omitempty"`
	Ring               *string             `json:"ring,omitempty"`
	Geo                *string             `json:"geo,omitempty"`
	Status             EntityStatus        `json:"status"`
	MentionCount       int                 `json:"mention_count"`
	Notes              *string             `json:"notes,omitempty"`
	DiscoveredFromItem *uuid.UUID          `json:"discovered_from_item,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// EntityMention records one occurrence of an entity in an item's text.
// Mentions are additive and never deleted.
type EntityMention struct {
	ID             int64     `json:"id"`
	EntityID       string    `json:"entity_id"`
	ItemID         uuid.UUID `json:"item_id"`
	ContextSnippet string    `json:"context_snippet"`
	LayerHint      *string   `json:"layer_hint,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// AliasMatch is a single linker hit in an item's text.
type AliasMatch struct {
	EntityID       string `json:"entity_id"`
	ContextSnippet string `json:"context_snippet"`
}
