package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constraint-watch/chokepoint/pkg/linker"
	"github.com/constraint-watch/chokepoint/pkg/models"
)

// newDiscoverer builds a linker + discoverer pair over the test store with
// the alias index loaded.
func newDiscoverer(t *testing.T, env *testEnv) (*linker.Linker, *linker.Discoverer) {
	t.Helper()
	lk := linker.New(env.Store.Entities)
	require.NoError(t, lk.Load(context.Background()))
	return lk, linker.NewDiscoverer(env.Store.Entities, env.Store.Events, lk)
}

// entityState reads the catalog status and mention count for one entity.
func entityState(t *testing.T, env *testEnv, entityID string) (models.EntityStatus, int) {
	t.Helper()
	var status models.EntityStatus
	var mentions int
	err := env.DB.Pool().QueryRow(context.Background(),
		"SELECT status, mention_count FROM entities WHERE entity_id = $1", entityID).
		Scan(&status, &mentions)
	require.NoError(t, err)
	return status, mentions
}

// mention records an alias hit for the entity on a fresh item from the given
// source, the way the link stage would. Text embeds the url so content
// hashes stay distinct.
func mention(t *testing.T, env *testEnv, entityID, sourceID, url string) {
	t.Helper()
	text := "Nittobo said output is sold out, per " + url
	itemID := insertItem(t, env, sourceID, url, "Nittobo capacity note", text)
	err := env.Store.Entities.StoreMentions(context.Background(), itemID,
		[]models.AliasMatch{{EntityID: entityID, ContextSnippet: text}}, nil)
	require.NoError(t, err)
}

// Discovery starts an entity at DISCOVERED and promotion climbs it one rung
// per threshold: PROVISIONAL on mention volume and source spread, CONFIRMED
// only once a tightening event names it.
func TestPromoteClimbsCatalogLadder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedSource(t, env, "nikkei_asia_tech", 1)
	seedSource(t, env, "mti_korea", 1)
	seedSource(t, env, "trendforce", 2)
	_, disc := newDiscoverer(t, env)

	seedItem := insertItem(t, env, "nikkei_asia_tech", "https://example.com/seed", "Seed", "Glass fiber maker Nittobo expands.")
	entityID, err := disc.Discover(ctx, "Nittobo", "COMPANY", seedItem, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "E:company:nittobo", entityID)

	status, mentions := entityState(t, env, entityID)
	assert.Equal(t, models.EntityStatusDiscovered, status)
	assert.Equal(t, 1, mentions)

	// Two mentions from one source is not enough spread.
	mention(t, env, entityID, "nikkei_asia_tech", "https://example.com/a1")
	mention(t, env, entityID, "nikkei_asia_tech", "https://example.com/a2")
	n, err := disc.Promote(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// A second source tips it over: 4 mentions, 2 sources.
	mention(t, env, entityID, "mti_korea", "https://example.com/b1")
	n, err = disc.Promote(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	status, mentions = entityState(t, env, entityID)
	assert.Equal(t, models.EntityStatusProvisional, status)
	assert.Equal(t, 4, mentions)

	// Volume and spread for CONFIRMED, but no tightening event yet.
	mention(t, env, entityID, "trendforce", "https://example.com/c1")
	mention(t, env, entityID, "trendforce", "https://example.com/c2")
	n, err = disc.Promote(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	status, _ = entityState(t, env, entityID)
	assert.Equal(t, models.EntityStatusProvisional, status)

	evItem := insertItem(t, env, "nikkei_asia_tech", "https://example.com/ev", "Allocation", "Nittobo glass cloth on allocation.")
	insertEventAt(t, env, evItem,
		tighteningEvent(models.EventAllocation, models.LayerSubstratesFilms, "glass cloth", 1, entityID),
		time.Now().Add(-time.Hour))
	n, err = disc.Promote(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	status, _ = entityState(t, env, entityID)
	assert.Equal(t, models.EntityStatusConfirmed, status)
}

// Discovering a name that is already cataloged returns the existing id, and
// a fresh discovery becomes matchable by the alias index without an explicit
// reload.
func TestDiscoverReusesAndIndexesEntities(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedSource(t, env, "nikkei_asia_tech", 1)
	seedEntity(t, env, "E:company:tsmc", "TSMC", "TSMC", "Taiwan Semiconductor")
	lk, disc := newDiscoverer(t, env)

	item := insertItem(t, env, "nikkei_asia_tech", "https://example.com/d1", "Doc", "text")

	// Known name, different casing: no new row.
	id, err := disc.Discover(ctx, "tsmc", "COMPANY", item, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "E:company:tsmc", id)
	assert.Equal(t, 1, countRows(t, env, "SELECT COUNT(*) FROM entities"))

	// Unknown name: inserted with its English alias and immediately
	// matchable.
	id, err = disc.Discover(ctx, "Ibiden", "COMPANY", item, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "E:company:ibiden", id)
	matches := lk.Match("Ibiden will add substrate capacity in Ono.")
	require.Len(t, matches, 1)
	assert.Equal(t, "E:company:ibiden", matches[0].EntityID)

	// Same id again: returned as-is, still one row for it.
	again, err := disc.DiscoverWithID(ctx, "E:company:ibiden", "Ibiden Co", "COMPANY", item, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "E:company:ibiden", again)
	assert.Equal(t, 1, countRows(t, env,
		"SELECT COUNT(*) FROM entities WHERE entity_id = $1", "E:company:ibiden"))
}
