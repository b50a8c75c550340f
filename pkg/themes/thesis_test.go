package themes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constraint-watch/chokepoint/pkg/config"
	"github.com/constraint-watch/chokepoint/pkg/llm"
	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

func thesisClient(t *testing.T, handler http.HandlerFunc) *llm.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := &config.LLMConfig{
		BaseURL: server.URL,
		Model:   "test-model",
		Defaults: &config.LLMDefaults{
			Temperature:         0.2,
			MaxTokens:           4096,
			Retries:             1,
			RetryBackoffSeconds: 0,
			TimeoutSeconds:      5,
		},
	}
	return llm.NewClient(cfg, "test-key", 1)
}

func userPromptOf(t *testing.T, r *http.Request) string {
	t.Helper()
	var body struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	require.Len(t, body.Messages, 2)
	return body.Messages[1].Content
}

const thesisJSON = `{
	"one_liner": "HBM3E supply is the binding constraint on accelerator shipments",
	"why_now": ["SK Hynix sold out through 2026"],
	"mechanism": ["AI demand -> HBM allocation -> GPU lead times"],
	"who_benefits": {"ringA": ["SK Hynix"], "ringB": ["Hanmi Semiconductor"], "ringC": ["SOXX"]},
	"who_suffers": ["second-tier GPU buyers"],
	"leading_indicators": ["HBM contract pricing"],
	"invalidation_triggers": ["Samsung qualification at scale"],
	"relief_timeline": "2027-H1 when M15X capacity ramps"
}`

func f64(v float64) *float64 { return &v }

func TestThesisGenerate(t *testing.T) {
	var prompt string
	client := thesisClient(t, func(w http.ResponseWriter, r *http.Request) {
		prompt = userPromptOf(t, r)
		reply, err := json.Marshal(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": thesisJSON}}},
		})
		require.NoError(t, err)
		_, _ = w.Write(reply)
	})
	writer := NewThesisWriter(client)

	events := []store.ClusterEvent{
		{
			ID: 1, EventType: models.EventAllocation, Layer: models.LayerMemory,
			Direction: models.DirectionTightening,
			Objects:   []models.ObjectRef{{Name: "HBM3E"}},
			Entities:  []models.EntityRef{{EntityID: "E:company:skhynix"}},
			Magnitude: models.Magnitude{PriceChangePct: f64(15)},
		},
		{
			ID: 2, EventType: models.EventLeadTimeExtended, Layer: models.LayerMemory,
			Direction: models.DirectionTightening,
			Magnitude: models.Magnitude{LeadTimeWeeks: &models.LeadTimeRange{From: f64(30), To: f64(50)}},
		},
	}

	thesis := writer.Generate(context.Background(), "T:ai_constraints:memory_hbm3e", events)
	require.NotNil(t, thesis)
	assert.Equal(t, "HBM3E supply is the binding constraint on accelerator shipments", thesis.OneLiner)
	assert.Equal(t, []string{"Samsung qualification at scale"}, thesis.InvalidationTriggers)
	require.NotNil(t, thesis.ReliefTimeline)
	assert.Equal(t, "2027-H1 when M15X capacity ramps", *thesis.ReliefTimeline)
	assert.Equal(t, []string{"SK Hynix"}, thesis.WhoBenefits["ringA"])

	assert.Contains(t, prompt, "Theme: T:ai_constraints:memory_hbm3e")
	assert.Contains(t, prompt, "Layer: MEMORY")
	assert.Contains(t, prompt, "Event count: 2")
	assert.Contains(t, prompt, "Tightening events: 2")
	assert.Contains(t, prompt, "Easing events: 0")
	assert.Contains(t, prompt,
		"- [ALLOCATION] | layer=MEMORY | dir=TIGHTENING | objects=HBM3E | entities=E:company:skhynix | price_change_pct=15")
	assert.Contains(t, prompt, `lead_time_weeks={"from":30,"to":50}`)
}

func TestThesisGenerateNoEvents(t *testing.T) {
	writer := NewThesisWriter(nil) // client must not be touched
	assert.Nil(t, writer.Generate(context.Background(), "T:ai_constraints:x", nil))
}

func TestThesisGenerateInvalidJSON(t *testing.T) {
	client := thesisClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"no thesis today"}}]}`))
	})
	writer := NewThesisWriter(client)

	events := []store.ClusterEvent{{ID: 1, Layer: models.LayerMemory, Direction: models.DirectionTightening}}
	assert.Nil(t, writer.Generate(context.Background(), "T:ai_constraints:x", events))
}

func TestThesisGenerateLLMFailure(t *testing.T) {
	client := thesisClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	writer := NewThesisWriter(client)

	events := []store.ClusterEvent{{ID: 1, Layer: models.LayerMemory, Direction: models.DirectionTightening}}
	assert.Nil(t, writer.Generate(context.Background(), "T:ai_constraints:x", events))
}

func TestThesisEvidenceCap(t *testing.T) {
	var prompt string
	client := thesisClient(t, func(w http.ResponseWriter, r *http.Request) {
		prompt = userPromptOf(t, r)
		reply, err := json.Marshal(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": thesisJSON}}},
		})
		require.NoError(t, err)
		_, _ = w.Write(reply)
	})
	writer := NewThesisWriter(client)

	events := make([]store.ClusterEvent, 0, 20)
	for i := 0; i < 20; i++ {
		events = append(events, store.ClusterEvent{
			ID: int64(i + 1), EventType: models.EventDisruption,
			Layer: models.LayerMemory, Direction: models.DirectionTightening,
		})
	}

	require.NotNil(t, writer.Generate(context.Background(), "T:ai_constraints:memory_general", events))
	assert.Contains(t, prompt, "Event count: 20")
	assert.Equal(t, maxThesisEvents, strings.Count(prompt, "- ["),
		fmt.Sprintf("expected %d evidence lines", maxThesisEvents))
}
