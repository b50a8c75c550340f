package collector

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/constraint-watch/chokepoint/pkg/config"
)

// QueryGenerator rotates through the taxonomy's search queries per source,
// persisting cursors so rotation resumes where it stopped across restarts.
// Sources with explicit search_queries never reach it.
type QueryGenerator struct {
	mu         sync.Mutex
	bySource   map[string][]string
	cursors    map[string]int
	cursorPath string
	logger     *slog.Logger
}

// NewQueryGenerator builds the per-source rotation from an already-loaded
// taxonomy and restores any cursors persisted at cursorPath.
func NewQueryGenerator(taxonomy *config.TaxonomyConfig, cursorPath string) *QueryGenerator {
	g := &QueryGenerator{
		bySource:   make(map[string][]string),
		cursors:    make(map[string]int),
		cursorPath: cursorPath,
		logger:     slog.Default().With("component", "querygen"),
	}

	total := 0
	for sourceID := range taxonomy.SourceLanguageMap {
		combined := taxonomy.QueriesForSource(sourceID)
		if len(combined) == 0 {
			continue
		}
		g.bySource[sourceID] = combined
		total += len(combined)
	}
	g.loadCursors()
	g.logger.Info("Query generator loaded", "sources", len(g.bySource), "queries", total)
	return g
}

func (g *QueryGenerator) loadCursors() {
	data, err := os.ReadFile(g.cursorPath)
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, &g.cursors); err != nil {
		g.logger.Warn("Could not parse query cursor file, starting fresh", "path", g.cursorPath, "error", err)
		g.cursors = make(map[string]int)
	}
}

func (g *QueryGenerator) saveCursors() {
	data, err := json.MarshalIndent(g.cursors, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(g.cursorPath), 0o755); err != nil {
		g.logger.Warn("Could not create data dir for query cursors", "error", err)
		return
	}
	if err := os.WriteFile(g.cursorPath, data, 0o644); err != nil {
		g.logger.Warn("Could not persist query cursors", "error", err)
	}
}

// GetNextQueries returns up to n distinct queries for sourceID, advancing
// the rotation cursor and persisting it. Unknown sources get nil.
func (g *QueryGenerator) GetNextQueries(sourceID string, n int) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	queries := g.bySource[sourceID]
	if len(queries) == 0 || n <= 0 {
		return nil
	}
	if n > len(queries) {
		n = len(queries)
	}
	cursor := g.cursors[sourceID] % len(queries)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, queries[(cursor+i)%len(queries)])
	}
	g.cursors[sourceID] = (cursor + n) % len(queries)
	g.saveCursors()
	return out
}

// QueryCount reports how many queries the taxonomy assigns to sourceID.
func (g *QueryGenerator) QueryCount(sourceID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.bySource[sourceID])
}
