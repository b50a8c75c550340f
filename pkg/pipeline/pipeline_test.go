package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/constraint-watch/chokepoint/pkg/models"
)

func TestShortTitle(t *testing.T) {
	assert.Equal(t, "untitled", shortTitle(""))
	assert.Equal(t, "HBM supply update", shortTitle("HBM supply update"))

	long := strings.Repeat("供給", 40)
	got := shortTitle(long)
	assert.Equal(t, 60, len([]rune(got)), "truncation must count runes, not bytes")
}

func TestEntityNames(t *testing.T) {
	matches := []models.AliasMatch{
		{EntityID: "company:tsmc"},
		{EntityID: "material:abf_substrate"},
		{EntityID: "no_colon_id"},
	}
	assert.Equal(t, []string{"tsmc", "abf_substrate", "no_colon_id"}, entityNames(matches, 5))
	assert.Equal(t, []string{"tsmc"}, entityNames(matches, 1))
	assert.Empty(t, entityNames(nil, 5))
}
