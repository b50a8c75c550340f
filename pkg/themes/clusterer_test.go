package themes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

func clusterIDs(events []store.ClusterEvent) []int64 {
	ids := make([]int64, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	return ids
}

func TestClusterEvents(t *testing.T) {
	events := []store.ClusterEvent{
		{ID: 1, Layer: models.LayerAdvPackaging, Objects: []models.ObjectRef{{Name: "CoWoS"}}},
		{ID: 2, Layer: models.LayerAdvPackaging, Objects: []models.ObjectRef{{Name: " cowos "}}},
		{ID: 3, Layer: models.LayerAdvPackaging, Objects: []models.ObjectRef{{Name: "CoWoS"}, {Name: "ABF film"}}},
		{ID: 4, Layer: models.LayerMemory},
		{ID: 5, Layer: models.LayerMemory},
		{ID: 6, Layer: models.LayerMemory, Objects: []models.ObjectRef{{Name: "HBM3E"}}},
		{ID: 7, Layer: models.LayerComputeSilicon, Objects: []models.ObjectRef{{Name: "N2"}}},
		{ID: 8, Layer: models.LayerAdvPackaging, Objects: []models.ObjectRef{{Name: "CoWoS"}, {Name: "COWOS"}}},
	}

	clusters := clusterEvents(events)

	require.Len(t, clusters, 2)
	assert.Equal(t, []int64{1, 2, 3, 8}, clusterIDs(clusters["ADV_PACKAGING:cowos"]))
	assert.Equal(t, []int64{4, 5}, clusterIDs(clusters["MEMORY:_general"]))

	// Singleton clusters never survive.
	assert.NotContains(t, clusters, "ADV_PACKAGING:abf film")
	assert.NotContains(t, clusters, "MEMORY:hbm3e")
	assert.NotContains(t, clusters, "COMPUTE_SILICON:n2")
}

func TestClusterEventsEmpty(t *testing.T) {
	assert.Empty(t, clusterEvents(nil))
}

func TestThemeID(t *testing.T) {
	assert.Equal(t, "T:ai_constraints:adv_packaging_cowos", ThemeID("ADV_PACKAGING:cowos"))
	assert.Equal(t, "T:ai_constraints:memory_general", ThemeID("MEMORY:_general"))

	long := "ADV_PACKAGING:" + strings.Repeat("x", 80)
	assert.Len(t, ThemeID(long), len(themeNamespace)+60)
}

func TestThemeName(t *testing.T) {
	assert.Equal(t, "Adv Packaging: Cowos", ThemeName("ADV_PACKAGING:cowos"))
	assert.Equal(t, "Memory:  General", ThemeName("MEMORY:_general"))
	assert.Equal(t, "Memory: Hbm3E Supply", ThemeName("MEMORY:hbm3e supply"))
}
