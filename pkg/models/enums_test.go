package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from PipelineStatus
		to   PipelineStatus
		want bool
	}{
		{"collected to normalized", PipelineStatusCollected, PipelineStatusNormalized, true},
		{"normalized to linked", PipelineStatusNormalized, PipelineStatusLinked, true},
		{"linked to extracted", PipelineStatusLinked, PipelineStatusExtracted, true},
		{"extracted to done", PipelineStatusExtracted, PipelineStatusDone, true},
		{"collected skips to linked", PipelineStatusCollected, PipelineStatusLinked, false},
		{"no backward move", PipelineStatusLinked, PipelineStatusNormalized, false},
		{"any stage to error", PipelineStatusNormalized, PipelineStatusError, true},
		{"any stage to skipped", PipelineStatusCollected, PipelineStatusSkipped, true},
		{"done is terminal", PipelineStatusDone, PipelineStatusError, false},
		{"error is terminal", PipelineStatusError, PipelineStatusCollected, false},
		{"skipped is terminal", PipelineStatusSkipped, PipelineStatusDone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanAdvanceTo(tt.to))
		})
	}
}

func TestPipelineStatusIsValid(t *testing.T) {
	for _, s := range []PipelineStatus{
		PipelineStatusCollected, PipelineStatusNormalized, PipelineStatusLinked,
		PipelineStatusExtracted, PipelineStatusDone, PipelineStatusSkipped, PipelineStatusError,
	} {
		assert.True(t, s.IsValid(), "expected %s to be valid", s)
	}
	assert.False(t, PipelineStatus("PENDING").IsValid())
	assert.False(t, PipelineStatus("").IsValid())
}

func TestConstraintLayerIsValid(t *testing.T) {
	assert.Len(t, ConstraintLayers, 10)
	for _, l := range ConstraintLayers {
		assert.True(t, l.IsValid(), "expected %s to be valid", l)
	}
	assert.False(t, ConstraintLayer("LOGISTICS").IsValid())
}

func TestEntityTypeNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   EntityType
		want EntityType
	}{
		{"known type passes through", EntityTypeMaterial, EntityTypeMaterial},
		{"unknown type falls back to company", EntityType("STARTUP"), EntityTypeCompany},
		{"empty falls back to company", EntityType(""), EntityTypeCompany},
		{"geo passes through", EntityTypeGeo, EntityTypeGeo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestTierWeight(t *testing.T) {
	assert.Equal(t, 1.0, TierWeight(1))
	assert.Equal(t, 0.6, TierWeight(2))
	assert.Equal(t, 0.3, TierWeight(3))
	assert.Equal(t, 0.3, TierWeight(0))
	assert.Equal(t, 0.3, TierWeight(7))
}

func TestConstraintEventValidate(t *testing.T) {
	valid := func() ConstraintEvent {
		return ConstraintEvent{
			EventType:       EventAllocation,
			ConstraintLayer: LayerAdvPackaging,
			Direction:       DirectionTightening,
			Entities:        []EntityRef{{EntityID: "E:company:tsmc", Role: RoleSupplier}},
			Confidence:      0.8,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*ConstraintEvent)
		wantErr string
	}{
		{"valid event", func(e *ConstraintEvent) {}, ""},
		{"bad event type", func(e *ConstraintEvent) { e.EventType = "SHORTAGE" }, "event_type"},
		{"bad layer", func(e *ConstraintEvent) { e.ConstraintLayer = "SHIPPING" }, "constraint_layer"},
		{"bad secondary layer", func(e *ConstraintEvent) {
			bad := ConstraintLayer("OTHER")
			e.SecondaryLayer = &bad
		}, "secondary_layer"},
		{"bad direction", func(e *ConstraintEvent) { e.Direction = "UP" }, "direction"},
		{"bad role", func(e *ConstraintEvent) { e.Entities[0].Role = "SPONSOR" }, "entities.role"},
		{"confidence above one", func(e *ConstraintEvent) { e.Confidence = 1.5 }, "confidence"},
		{"confidence negative", func(e *ConstraintEvent) { e.Confidence = -0.1 }, "confidence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := valid()
			tt.mutate(&ev)
			err := ev.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestItemText(t *testing.T) {
	en := "translated text"
	empty := ""

	item := Item{RawText: "原文テキスト"}
	assert.Equal(t, "原文テキスト", item.Text())

	item.TextEN = &empty
	assert.Equal(t, "原文テキスト", item.Text())

	item.TextEN = &en
	assert.Equal(t, "translated text", item.Text())
}
