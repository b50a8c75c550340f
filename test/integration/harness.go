// Package integration exercises the radar against a real PostgreSQL: item
// dedup, the full pipeline cycle, theme clustering and promotion, and alert
// triage. The LLM endpoint is an httptest server replaying scripted replies;
// everything else is the production wiring.
package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/constraint-watch/chokepoint/pkg/canonical"
	"github.com/constraint-watch/chokepoint/pkg/config"
	"github.com/constraint-watch/chokepoint/pkg/database"
	"github.com/constraint-watch/chokepoint/pkg/llm"
	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
	"github.com/constraint-watch/chokepoint/test/util"
)

// testEnv bundles the per-test database and store layer.
type testEnv struct {
	DB    *database.Client
	Store *store.Store
}

// newTestEnv returns a store over a migrated schema private to this test.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	client := util.SetupTestDatabase(t)
	return &testEnv{
		DB:    client,
		Store: store.New(client.Pool()),
	}
}

// scriptedLLM is a chat-completions endpoint replaying queued replies in
// order. An empty queue answers 400 so the client fails fast instead of
// retrying.
type scriptedLLM struct {
	srv *httptest.Server

	mu      sync.Mutex
	replies []string
	calls   int
}

func newScriptedLLM(t *testing.T) *scriptedLLM {
	t.Helper()
	s := &scriptedLLM{}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *scriptedLLM) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls++
	if len(s.replies) == 0 {
		s.mu.Unlock()
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "no scripted reply"},
		})
		return
	}
	content := s.replies[0]
	s.replies = s.replies[1:]
	s.mu.Unlock()

	type message struct {
		Content string `json:"content"`
	}
	type choice struct {
		Message message `json:"message"`
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []choice{{Message: message{Content: content}}},
	})
}

// Queue appends one reply to be returned verbatim as message content.
func (s *scriptedLLM) Queue(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, content)
}

// Calls returns how many completions were requested so far.
func (s *scriptedLLM) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Client builds an llm.Client pointed at the scripted endpoint, with retries
// and backoff tightened so failure tests stay fast.
func (s *scriptedLLM) Client() *llm.Client {
	return llm.NewClient(&config.LLMConfig{
		BaseURL: s.srv.URL,
		Model:   "scripted",
		Defaults: &config.LLMDefaults{
			Temperature:         0.1,
			MaxTokens:           2048,
			Retries:             1,
			RetryBackoffSeconds: 0,
			TimeoutSeconds:      10,
		},
	}, "test-key", 4)
}

// recordingSender collects sent alert texts. It always reports delivery.
type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingSender) Send(text string) *int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, text)
	id := len(r.sent)
	return &id
}

func (r *recordingSender) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

// seedSource registers a CONFIRMED source. Slices stay non-nil so the NOT
// NULL array columns hold {}.
func seedSource(t *testing.T, env *testEnv, sourceID string, tier int) {
	t.Helper()
	url := "https://" + sourceID + ".example.com"
	feedURL := url + "/feed"
	_, err := env.Store.Sources.SeedSource(context.Background(), models.Source{
		SourceID:        sourceID,
		Name:            sourceID,
		URL:             &url,
		FeedURL:         &feedURL,
		FetchMethod:     models.FetchMethodFeed,
		Language:        "en",
		Tier:            tier,
		Reliability:     0.9,
		Earliness:       0.5,
		ScheduleMinutes: 360,
		Layers:          []string{},
	})
	require.NoError(t, err)
}

// seedEntity registers a CONFIRMED entity with English aliases.
func seedEntity(t *testing.T, env *testEnv, entityID, name string, aliases ...string) {
	t.Helper()
	_, err := env.Store.Entities.SeedEntity(context.Background(), models.Entity{
		EntityID:      entityID,
		CanonicalName: name,
		Type:          models.EntityTypeCompany,
		Aliases:       map[string][]string{"en": aliases},
		Tickers:       []string{},
		Roles:         []string{},
		Layers:        []string{},
	})
	require.NoError(t, err)
}

// insertItem stores a COLLECTED item directly and returns its id, bypassing
// the collector. ItemStore.Insert does not return ids, so fixtures go to SQL.
func insertItem(t *testing.T, env *testEnv, sourceID, url, title, text string) uuid.UUID {
	t.Helper()
	var contentHash *string
	if text != "" {
		h := canonical.ContentHash(text)
		contentHash = &h
	}
	var id uuid.UUID
	err := env.DB.Pool().QueryRow(context.Background(),
		`INSERT INTO items (source_id, url, url_hash, content_hash, title, raw_text, pipeline_status)
		 VALUES ($1, $2, $3, $4, $5, $6, 'COLLECTED')
		 RETURNING id`,
		sourceID, url, canonical.URLHash(url), contentHash, title, text).Scan(&id)
	require.NoError(t, err)
	return id
}

// insertEventAt stores an extracted event and backdates it so window-based
// scoring sees the intended age.
func insertEventAt(t *testing.T, env *testEnv, itemID uuid.UUID, ev models.ConstraintEvent, createdAt time.Time) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := env.Store.Events.Insert(ctx, itemID, ev)
	require.NoError(t, err)
	_, err = env.DB.Pool().Exec(ctx,
		"UPDATE events SET created_at = $2 WHERE id = $1", id, createdAt)
	require.NoError(t, err)
	return id
}

// setThemeFirstSeen backdates a theme so lifecycle age rules can fire.
func setThemeFirstSeen(t *testing.T, env *testEnv, themeID string, firstSeen time.Time) {
	t.Helper()
	_, err := env.DB.Pool().Exec(context.Background(),
		"UPDATE themes SET first_seen_at = $2 WHERE theme_id = $1", themeID, firstSeen)
	require.NoError(t, err)
}

// tighteningEvent builds a minimal valid event for cluster fixtures. The
// object name drives clustering; evidence carries the tier used by the
// quality score.
func tighteningEvent(eventType models.EventType, layer models.ConstraintLayer, object string, tier int, entityIDs ...string) models.ConstraintEvent {
	refs := make([]models.EntityRef, 0, len(entityIDs))
	for _, id := range entityIDs {
		refs = append(refs, models.EntityRef{EntityID: id, Role: models.RoleSupplier})
	}
	var objects []models.ObjectRef
	if object != "" {
		objects = []models.ObjectRef{{Type: "PROCESS_TECH", Name: object}}
	}
	return models.ConstraintEvent{
		EventType:       eventType,
		ConstraintLayer: layer,
		Direction:       models.DirectionTightening,
		Entities:        refs,
		Objects:         objects,
		Evidence: &models.Evidence{
			SourceID:   "fixture",
			SourceURL:  "https://fixture.example.com",
			SourceTier: tier,
			Language:   "en",
			Confidence: 0.9,
		},
		Tags:       []string{},
		Confidence: 0.9,
	}
}

// fullThesis returns a thesis that clears the briefing gate.
func fullThesis(oneLiner string) *models.ThemeThesis {
	relief := "2027-H1 when new capacity qualifies"
	return &models.ThemeThesis{
		OneLiner:             oneLiner,
		WhyNow:               []string{"orders exceed installed capacity"},
		Mechanism:            []string{"AI accelerator demand", "packaging allocation", "lead times extend"},
		WhoBenefits:          map[string][]string{"ringA": {"E:company:tsmc"}},
		WhoSuffers:           []string{"fabless buyers without allocation"},
		LeadingIndicators:    []string{"substrate lead times", "OSAT utilization"},
		InvalidationTriggers: []string{"capacity additions outpace demand", "AI capex cuts"},
		ReliefTimeline:       &relief,
	}
}
