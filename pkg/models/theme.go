package models

import "time"

// ThemeThesis is the structured investment narrative generated for ACTIVE
// and MATURE themes. Ring keys in WhoBenefits are "ringA", "ringB", "ringC".
type ThemeThesis struct {
	OneLiner             string              `json:"one_liner"`
	WhyNow               []string            `json:"why_now"`
	Mechanism            []string            `json:"mechanism"`
	WhoBenefits          map[string][]string `json:"who_benefits"`
	WhoSuffers           []string            `json:"who_suffers"`
	LeadingIndicators    []string            `json:"leading_indicators"`
	InvalidationTriggers []string            `json:"invalidation_triggers"`
	ReliefTimeline       *string             `json:"relief_timeline,omitempty"`
}

// Theme is a persistent cluster of related events with a living score and
// lifecycle status.
type Theme struct {
	ThemeID         string       `json:"theme_id"`
	Name            string       `json:"name"`
	ConstraintLayer string       `json:"constraint_layer"`
	Status          ThemeStatus  `json:"status"`
	TighteningScore float64      `json:"tightening_score"`
	VelocityScore   float64      `json:"velocity_score"`
	BreadthScore    float64      `json:"breadth_score"`
	QualityScore    float64      `json:"quality_score"`
	AllocationScore float64      `json:"allocation_score"`
	NoveltyScore    float64      `json:"novelty_score"`
	EventCount      int          `json:"event_count"`
	TighteningCount int          `json:"tightening_count"`
	EasingCount     int          `json:"easing_count"`
	UniqueEntities  int          `json:"unique_entities"`
	UniqueSources   int          `json:"unique_sources"`
	Thesis          *ThemeThesis `json:"thesis,omitempty"`
	FirstSeenAt     time.Time    `json:"first_seen_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// ThemeScore bundles the five scorer components with their composite.
type ThemeScore struct {
	Velocity   float64 `json:"velocity"`
	Breadth    float64 `json:"breadth"`
	Quality    float64 `json:"quality"`
	Allocation float64 `json:"allocation"`
	Novelty    float64 `json:"novelty"`
	Composite  float64 `json:"composite"`
}
