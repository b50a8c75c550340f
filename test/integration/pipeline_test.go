package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constraint-watch/chokepoint/pkg/alerts"
	"github.com/constraint-watch/chokepoint/pkg/extractor"
	"github.com/constraint-watch/chokepoint/pkg/linker"
	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/normalizer"
	"github.com/constraint-watch/chokepoint/pkg/pipeline"
	"github.com/constraint-watch/chokepoint/pkg/themes"
)

// pipelineTestWindow matches the theme clustering window so event lookups in
// assertions see everything the cycle stored.
const pipelineTestWindow = 30 * 24 * time.Hour

// newPipeline wires the production pipeline over the test store and the
// scripted LLM endpoint. The alias index is loaded from whatever entities
// the test seeded before calling this.
func newPipeline(t *testing.T, env *testEnv, mock *scriptedLLM) (*pipeline.Pipeline, *recordingSender) {
	t.Helper()
	client := mock.Client()

	lk := linker.New(env.Store.Entities)
	require.NoError(t, lk.Load(context.Background()))
	disc := linker.NewDiscoverer(env.Store.Entities, env.Store.Events, lk)

	norm := normalizer.New(client)
	extr := extractor.New(client, env.Store.Items, env.Store.Events)
	th := themes.NewService(env.Store, client)
	sender := &recordingSender{}
	al := alerts.NewService(env.Store, sender, 20)

	return pipeline.New(env.Store, norm, lk, disc, extr, th, al), sender
}

type itemState struct {
	Status     models.PipelineStatus
	Language   *string
	TextEN     *string
	Confidence *float64
	Error      *string
}

func loadItemState(t *testing.T, env *testEnv, id uuid.UUID) itemState {
	t.Helper()
	var st itemState
	err := env.DB.Pool().QueryRow(context.Background(),
		`SELECT pipeline_status, language, text_en, translation_confidence, pipeline_error
		 FROM items WHERE id = $1`, id).
		Scan(&st.Status, &st.Language, &st.TextEN, &st.Confidence, &st.Error)
	require.NoError(t, err)
	return st
}

func countRows(t *testing.T, env *testEnv, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, env.DB.Pool().QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}

// One cycle must carry a COLLECTED English item all the way to DONE:
// normalize passes it through, the linker records the mention, and the
// extraction reply lands in the events table with computed provenance.
func TestCycleCarriesItemToDone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mock := newScriptedLLM(t)

	seedSource(t, env, "nikkei_asia_tech", 1)
	seedEntity(t, env, "E:company:tsmc", "TSMC", "TSMC", "Taiwan Semiconductor")
	pipe, _ := newPipeline(t, env, mock)

	itemID := insertItem(t, env, "nikkei_asia_tech",
		"https://asia.nikkei.com/tech/cowos-allocation",
		"TSMC packaging capacity fully booked",
		"TSMC told customers its advanced packaging capacity is on allocation through 2026 as AI accelerator orders keep outrunning CoWoS expansion.")

	mock.Queue(`{
	  "events": [{
	    "event_type": "ALLOCATION",
	    "constraint_layer": "ADV_PACKAGING",
	    "direction": "TIGHTENING",
	    "entities": [{"entity_id": "E:company:tsmc", "role": "SUPPLIER"}],
	    "objects": [{"type": "PROCESS_TECH", "name": "CoWoS"}],
	    "magnitude": {"capacity_delta": "fully booked through 2026"},
	    "timing": {"reported_at": "2026-08-20"},
	    "tags": ["cowos", "allocation"],
	    "confidence": 0.85
	  }],
	  "skipped": false
	}`)

	pipe.Cycle(ctx)

	st := loadItemState(t, env, itemID)
	assert.Equal(t, models.PipelineStatusDone, st.Status)
	require.NotNil(t, st.Language)
	assert.Equal(t, "en", *st.Language)
	require.NotNil(t, st.Confidence)
	assert.Equal(t, 1.0, *st.Confidence)

	events, err := env.Store.Events.RecentForClustering(ctx, pipelineTestWindow)
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, models.EventAllocation, ev.EventType)
	assert.Equal(t, models.LayerAdvPackaging, ev.Layer)
	assert.Equal(t, models.DirectionTightening, ev.Direction)
	assert.Equal(t, "nikkei_asia_tech", ev.SourceID)
	assert.Equal(t, 0.85, ev.Confidence)
	require.Len(t, ev.Objects, 1)
	assert.Equal(t, "CoWoS", ev.Objects[0].Name)
	require.NotNil(t, ev.Evidence, "provenance is stamped in by the extractor")
	assert.Equal(t, 1, ev.Evidence.SourceTier)
	assert.Equal(t, "nikkei_asia_tech", ev.Evidence.SourceID)

	assert.Equal(t, 1, countRows(t, env,
		"SELECT COUNT(*) FROM entity_mentions WHERE entity_id = $1 AND item_id = $2",
		"E:company:tsmc", itemID))
	assert.Equal(t, 1, countRows(t, env,
		"SELECT mention_count FROM entities WHERE entity_id = $1", "E:company:tsmc"))

	// Each stage that claimed work audited a finished run.
	assert.Equal(t, 3, countRows(t, env, "SELECT COUNT(*) FROM pipeline_runs"))
	assert.Equal(t, 0, countRows(t, env,
		"SELECT COUNT(*) FROM pipeline_runs WHERE finished_at IS NULL"))

	// One extraction call; a single-event cluster is too small for a theme,
	// so no thesis request follows.
	assert.Equal(t, 1, mock.Calls())
}

// An item whose text matches no alias and whose extraction is skipped still
// finishes DONE, with no mentions and no events.
func TestCycleFinishesIrrelevantItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mock := newScriptedLLM(t)

	seedSource(t, env, "datacenterdynamics", 2)
	seedEntity(t, env, "E:company:tsmc", "TSMC", "TSMC")
	pipe, _ := newPipeline(t, env, mock)

	// XTSMCY must not match: ASCII aliases bind on word boundaries only.
	itemID := insertItem(t, env, "datacenterdynamics",
		"https://datacenterdynamics.com/news/conference-recap",
		"Industry conference recap",
		"The XTSMCY expo wrapped up this week with keynotes on software roadmaps and no supply chain news of note for the sector.")

	mock.Queue(`{"events": [], "skipped": true, "skip_reason": "no constraint content"}`)

	pipe.Cycle(ctx)

	st := loadItemState(t, env, itemID)
	assert.Equal(t, models.PipelineStatusDone, st.Status)
	assert.Equal(t, 0, countRows(t, env, "SELECT COUNT(*) FROM entity_mentions"))
	assert.Equal(t, 0, countRows(t, env, "SELECT COUNT(*) FROM events"))
	assert.Equal(t, 1, mock.Calls())
}

// Items below the extraction text floor never reach the model.
func TestCycleSkipsModelForShortText(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mock := newScriptedLLM(t)

	seedSource(t, env, "semiengineering", 2)
	pipe, _ := newPipeline(t, env, mock)

	itemID := insertItem(t, env, "semiengineering",
		"https://semiengineering.com/short", "Stub", "Too short to extract.")

	pipe.Cycle(ctx)

	st := loadItemState(t, env, itemID)
	assert.Equal(t, models.PipelineStatusDone, st.Status)
	assert.Equal(t, 0, mock.Calls())
}

// A failing LLM endpoint folds into a skipped extraction: the item finishes
// DONE instead of parking in ERROR, and nothing is stored.
func TestCycleSurvivesLLMFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mock := newScriptedLLM(t) // empty queue: endpoint answers 400

	seedSource(t, env, "trendforce_press", 2)
	pipe, _ := newPipeline(t, env, mock)

	itemID := insertItem(t, env, "trendforce_press",
		"https://trendforce.com/news/substrate-pricing",
		"Substrate pricing update",
		"ABF substrate pricing held firm this quarter while suppliers quoted longer delivery windows for large body sizes.")

	pipe.Cycle(ctx)

	st := loadItemState(t, env, itemID)
	assert.Equal(t, models.PipelineStatusDone, st.Status)
	assert.Nil(t, st.Error)
	assert.Equal(t, 0, countRows(t, env, "SELECT COUNT(*) FROM events"))
	assert.Equal(t, 1, mock.Calls(), "4xx responses must not retry")
}
