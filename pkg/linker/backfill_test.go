package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEntityID(t *testing.T) {
	tests := []struct {
		name     string
		eid      string
		wantName string
		wantType string
	}{
		{name: "full id", eid: "E:company:sk_hynix", wantName: "Sk Hynix", wantType: "company"},
		{name: "material id", eid: "E:material:abf_substrate", wantName: "Abf Substrate", wantType: "material"},
		{name: "bare slug", eid: "tsmc", wantName: "Tsmc", wantType: "company"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, entityType := parseEntityID(tt.eid)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantType, entityType)
		})
	}
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Advanced Packaging", titleCase("advanced packaging"))
	assert.Equal(t, "Hbm", titleCase("HBM"))
	assert.Equal(t, "", titleCase(""))
}
