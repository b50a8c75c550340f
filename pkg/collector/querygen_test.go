package collector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constraint-watch/chokepoint/pkg/config"
)

// cursorFileName mirrors the base name config.QueryCursorPath uses under the
// data directory.
const cursorFileName = "query_cursors.json"

func testTaxonomy() *config.TaxonomyConfig {
	return &config.TaxonomyConfig{
		Queries: map[string][]string{
			"en": {"CoWoS capacity allocation", "HBM supply shortage"},
			"ja": {"CoWoS 供給不足"},
		},
		SourceLanguageMap: map[string][]string{
			"websearch_advanced_packaging": {"en", "ja"},
			"websearch_no_queries":         {"ko"},
		},
	}
}

func cursorPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), cursorFileName)
}

func TestQueryGeneratorRotation(t *testing.T) {
	g := NewQueryGenerator(testTaxonomy(), cursorPath(t))

	assert.Equal(t, 3, g.QueryCount("websearch_advanced_packaging"))
	assert.Equal(t, 0, g.QueryCount("websearch_no_queries"),
		"languages with no queries contribute nothing")
	assert.Equal(t, 0, g.QueryCount("unknown_source"))

	first := g.GetNextQueries("websearch_advanced_packaging", 2)
	assert.Equal(t, []string{"CoWoS capacity allocation", "HBM supply shortage"}, first)

	second := g.GetNextQueries("websearch_advanced_packaging", 2)
	assert.Equal(t, []string{"CoWoS 供給不足", "CoWoS capacity allocation"}, second,
		"rotation should wrap around")

	assert.Nil(t, g.GetNextQueries("unknown_source", 2))
	assert.Nil(t, g.GetNextQueries("websearch_advanced_packaging", 0))
}

func TestQueryGeneratorCapsAtListLength(t *testing.T) {
	g := NewQueryGenerator(testTaxonomy(), cursorPath(t))

	got := g.GetNextQueries("websearch_advanced_packaging", 10)
	assert.Len(t, got, 3, "never return more than the taxonomy holds")
	assert.ElementsMatch(t, []string{
		"CoWoS capacity allocation", "HBM supply shortage", "CoWoS 供給不足",
	}, got)
}

func TestQueryGeneratorPersistsCursors(t *testing.T) {
	path := cursorPath(t)

	g := NewQueryGenerator(testTaxonomy(), path)
	g.GetNextQueries("websearch_advanced_packaging", 2)
	g.GetNextQueries("websearch_advanced_packaging", 2)

	reloaded := NewQueryGenerator(testTaxonomy(), path)
	got := reloaded.GetNextQueries("websearch_advanced_packaging", 2)
	assert.Equal(t, []string{"HBM supply shortage", "CoWoS 供給不足"}, got,
		"rotation should resume from the persisted cursor")
}

func TestQueryGeneratorToleratesCorruptCursorFile(t *testing.T) {
	path := cursorPath(t)
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	g := NewQueryGenerator(testTaxonomy(), path)
	got := g.GetNextQueries("websearch_advanced_packaging", 1)
	assert.Equal(t, []string{"CoWoS capacity allocation"}, got,
		"corrupt cursors start the rotation fresh")
}

func TestQueryGeneratorCreatesCursorDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "nested", cursorFileName)

	g := NewQueryGenerator(testTaxonomy(), path)
	g.GetNextQueries("websearch_advanced_packaging", 1)

	_, err := os.Stat(path)
	assert.NoError(t, err, "saving cursors should create the data dir")
}

func TestSampleQueries(t *testing.T) {
	short := []string{"a", "b"}
	assert.Equal(t, short, sampleQueries(short, 3), "short lists pass through untouched")

	long := []string{"a", "b", "c", "d", "e"}
	got := sampleQueries(long, 3)
	assert.Len(t, got, 3)
	assert.Subset(t, long, got)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, long, "sampling must not reorder the input")

	unique := make(map[string]bool)
	for _, q := range got {
		unique[q] = true
	}
	assert.Len(t, unique, 3, "sampling is without replacement")
}
