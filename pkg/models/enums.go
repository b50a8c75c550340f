// Package models defines the domain types shared across the pipeline:
// enumerated string domains, LLM extraction payloads, and database rows.
package models

import "strings"

// PipelineStatus tracks an item's progress through the processing stages.
// COLLECTED → NORMALIZED → LINKED → EXTRACTED → DONE is the only forward
// path; SKIPPED and ERROR are terminal.
type PipelineStatus string

const (
	PipelineStatusCollected  PipelineStatus = "COLLECTED"
	PipelineStatusNormalized PipelineStatus = "NORMALIZED"
	PipelineStatusLinked     PipelineStatus = "LINKED"
	PipelineStatusExtracted  PipelineStatus = "EXTRACTED"
	PipelineStatusDone       PipelineStatus = "DONE"
	PipelineStatusSkipped    PipelineStatus = "SKIPPED"
	PipelineStatusError      PipelineStatus = "ERROR"
)

// IsValid checks if the pipeline status is a known value.
func (s PipelineStatus) IsValid() bool {
	switch s {
	case PipelineStatusCollected,
		PipelineStatusNormalized,
		PipelineStatusLinked,
		PipelineStatusExtracted,
		PipelineStatusDone,
		PipelineStatusSkipped,
		PipelineStatusError:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further stage transitions are allowed.
func (s PipelineStatus) IsTerminal() bool {
	return s == PipelineStatusDone || s == PipelineStatusSkipped || s == PipelineStatusError
}

// stageOrder positions the forward-only stages; terminal states are absent.
var stageOrder = map[PipelineStatus]int{
	PipelineStatusCollected:  0,
	PipelineStatusNormalized: 1,
	PipelineStatusLinked:     2,
	PipelineStatusExtracted:  3,
	PipelineStatusDone:       4,
}

// CanAdvanceTo reports whether moving from s to next is a legal transition.
// Any non-terminal stage may move to ERROR or SKIPPED; otherwise only the
// immediate successor is allowed.
func (s PipelineStatus) CanAdvanceTo(next PipelineStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == PipelineStatusError || next == PipelineStatusSkipped {
		return true
	}
	from, ok := stageOrder[s]
	if !ok {
		return false
	}
	to, ok := stageOrder[next]
	if !ok {
		return false
	}
	return to == from+1
}

// ConstraintLayer is one of ten fixed segments of the AI hardware supply
// chain an event can be attributed to.
type ConstraintLayer string

const (
	LayerComputeSilicon         ConstraintLayer = "COMPUTE_SILICON"
	LayerMemory                 ConstraintLayer = "MEMORY"
	LayerAdvPackaging           ConstraintLayer = "ADV_PACKAGING"
	LayerSubstratesFilms        ConstraintLayer = "SUBSTRATES_FILMS"
	LayerPCBMaterials           ConstraintLayer = "PCB_MATERIALS"
	LayerInterconnectNetworking ConstraintLayer = "INTERCONNECT_NETWORKING"
	LayerPowerDeliveryEquip     ConstraintLayer = "POWER_DELIVERY_EQUIP"
	LayerThermalCooling         ConstraintLayer = "THERMAL_COOLING"
	LayerDatacenterBuildPermit  ConstraintLayer = "DATACENTER_BUILD_PERMIT"
	LayerFuelOnsitePower        ConstraintLayer = "FUEL_ONSITE_POWER"
)

// ConstraintLayers lists every valid layer, in display order.
var ConstraintLayers = []ConstraintLayer{
	LayerComputeSilicon,
	LayerMemory,
	LayerAdvPackaging,
	LayerSubstratesFilms,
	LayerPCBMaterials,
	LayerInterconnectNetworking,
	LayerPowerDeliveryEquip,
	LayerThermalCooling,
	LayerDatacenterBuildPermit,
	LayerFuelOnsitePower,
}

// IsValid checks if the constraint layer is a known value.
func (l ConstraintLayer) IsValid() bool {
	for _, known := range ConstraintLayers {
		if l == known {
			return true
		}
	}
	return false
}

// EventType classifies the kind of supply chain constraint change.
type EventType string

const (
	EventLeadTimeExtended   EventType = "LEAD_TIME_EXTENDED"
	EventAllocation         EventType = "ALLOCATION"
	EventPriceIncrease      EventType = "PRICE_INCREASE"
	EventCapexAnnounced     EventType = "CAPEX_ANNOUNCED"
	EventCapacityOnline     EventType = "CAPACITY_ONLINE"
	EventQualificationDelay EventType = "QUALIFICATION_DELAY"
	EventYieldIssue         EventType = "YIELD_ISSUE"
	EventDisruption         EventType = "DISRUPTION"
	EventPolicyRestriction  EventType = "POLICY_RESTRICTION"
)

// IsValid checks if the event type is a known value.
func (t EventType) IsValid() bool {
	switch t {
	case EventLeadTimeExtended,
		EventAllocation,
		EventPriceIncrease,
		EventCapexAnnounced,
		EventCapacityOnline,
		EventQualificationDelay,
		EventYieldIssue,
		EventDisruption,
		EventPolicyRestriction:
		return true
	default:
		return false
	}
}

// Direction is the qualitative valence of a constraint change.
type Direction string

const (
	DirectionTightening Direction = "TIGHTENING"
	DirectionEasing     Direction = "EASING"
	DirectionMixed      Direction = "MIXED"
)

// IsValid checks if the direction is a known value.
func (d Direction) IsValid() bool {
	return d == DirectionTightening || d == DirectionEasing || d == DirectionMixed
}

// EntityRole describes how an entity participates in an event.
type EntityRole string

const (
	RoleSupplier     EntityRole = "SUPPLIER"
	RoleBuyer        EntityRole = "BUYER"
	RoleDemandDriver EntityRole = "DEMAND_DRIVER"
	RoleOEM          EntityRole = "OEM"
	RoleRegulator    EntityRole = "REGULATOR"
	RoleLocation     EntityRole = "LOCATION"
)

// IsValid checks if the entity role is a known value.
func (r EntityRole) IsValid() bool {
	switch r {
	case RoleSupplier, RoleBuyer, RoleDemandDriver, RoleOEM, RoleRegulator, RoleLocation:
		return true
	default:
		return false
	}
}

// EntityType classifies catalog entities.
type EntityType string

const (
	EntityTypeCompany       EntityType = "COMPANY"
	EntityTypeFacility      EntityType = "FACILITY"
	EntityTypeProduct       EntityType = "PRODUCT"
	EntityTypeComponent     EntityType = "COMPONENT"
	EntityTypeMaterial      EntityType = "MATERIAL"
	EntityTypeProcessTech   EntityType = "PROCESS_TECH"
	EntityTypeBuyerClass    EntityType = "BUYER_CLASS"
	EntityTypeGeo           EntityType = "GEO"
	EntityTypePolicyProgram EntityType = "POLICY_PROGRAM"
	EntityTypeIndex         EntityType = "INDEX"
)

// IsValid checks if the entity type is a known value.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypeCompany,
		EntityTypeFacility,
		EntityTypeProduct,
		EntityTypeComponent,
		EntityTypeMaterial,
		EntityTypeProcessTech,
		EntityTypeBuyerClass,
		EntityTypeGeo,
		EntityTypePolicyProgram,
		EntityTypeIndex:
		return true
	default:
		return false
	}
}

// Normalize upcases the type and maps unrecognized values to COMPANY.
// Extraction output is free-form enough that the fallback keeps discovery
// total.
func (t EntityType) Normalize() EntityType {
	upper := EntityType(strings.ToUpper(string(t)))
	if upper.IsValid() {
		return upper
	}
	return EntityTypeCompany
}

// EntityStatus is the catalog promotion state of an entity.
// Trajectory is a prefix of DISCOVERED → PROVISIONAL → CONFIRMED.
type EntityStatus string

const (
	EntityStatusDiscovered  EntityStatus = "DISCOVERED"
	EntityStatusProvisional EntityStatus = "PROVISIONAL"
	EntityStatusConfirmed   EntityStatus = "CONFIRMED"
)

// IsValid checks if the entity status is a known value.
func (s EntityStatus) IsValid() bool {
	return s == EntityStatusDiscovered || s == EntityStatusProvisional || s == EntityStatusConfirmed
}

// ThemeStatus is the lifecycle state of a theme. Transitions are forward
// only along CANDIDATE → ACTIVE → MATURE → FADING.
type ThemeStatus string

const (
	ThemeStatusCandidate ThemeStatus = "CANDIDATE"
	ThemeStatusActive    ThemeStatus = "ACTIVE"
	ThemeStatusMature    ThemeStatus = "MATURE"
	ThemeStatusFading    ThemeStatus = "FADING"
)

// IsValid checks if the theme status is a known value.
func (s ThemeStatus) IsValid() bool {
	switch s {
	case ThemeStatusCandidate, ThemeStatusActive, ThemeStatusMature, ThemeStatusFading:
		return true
	default:
		return false
	}
}

// SourceStatus is the editorial state of a source. Only CONFIRMED sources
// are scheduled for collection.
type SourceStatus string

const (
	SourceStatusDiscovered  SourceStatus = "DISCOVERED"
	SourceStatusProvisional SourceStatus = "PROVISIONAL"
	SourceStatusConfirmed   SourceStatus = "CONFIRMED"
	SourceStatusDisabled    SourceStatus = "DISABLED"
)

// IsValid checks if the source status is a known value.
func (s SourceStatus) IsValid() bool {
	switch s {
	case SourceStatusDiscovered, SourceStatusProvisional, SourceStatusConfirmed, SourceStatusDisabled:
		return true
	default:
		return false
	}
}

// FetchMethod selects the collection strategy for a source.
type FetchMethod string

const (
	FetchMethodFeed      FetchMethod = "feed"
	FetchMethodHTML      FetchMethod = "html"
	FetchMethodHeadless  FetchMethod = "headless"
	FetchMethodPDF       FetchMethod = "pdf"
	FetchMethodWebSearch FetchMethod = "web_search"
)

// IsValid checks if the fetch method is a known value.
func (m FetchMethod) IsValid() bool {
	switch m {
	case FetchMethodFeed, FetchMethodHTML, FetchMethodHeadless, FetchMethodPDF, FetchMethodWebSearch:
		return true
	default:
		return false
	}
}

// AlertType classifies triage alerts and the daily digest ledger entry.
type AlertType string

const (
	AlertNewCandidate       AlertType = "NEW_CANDIDATE"
	AlertInflection         AlertType = "INFLECTION"
	AlertActionableBriefing AlertType = "ACTIONABLE_BRIEFING"
	AlertDailyDigest        AlertType = "DAILY_DIGEST"
)

// IsValid checks if the alert type is a known value.
func (t AlertType) IsValid() bool {
	switch t {
	case AlertNewCandidate, AlertInflection, AlertActionableBriefing, AlertDailyDigest:
		return true
	default:
		return false
	}
}
