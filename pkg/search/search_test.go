package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerperSearch(t *testing.T) {
	var gotKey string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"organic":[
			{"link":"https://example.com/a","title":"A","snippet":"lead times up"},
			{"link":"https://example.com/b","title":"B","snippet":"capacity sold out"}
		]}`))
	}))
	defer server.Close()

	provider := NewSerperProvider("key-123")
	provider.endpoint = server.URL

	results, err := provider.Search(context.Background(), "CoWoS 供給不足", Config{Language: "ja"})
	require.NoError(t, err)

	assert.Equal(t, "key-123", gotKey)
	assert.Equal(t, "CoWoS 供給不足", gotBody["q"])
	assert.Equal(t, float64(20), gotBody["num"])
	assert.Equal(t, "ja", gotBody["hl"])
	assert.Equal(t, "jp", gotBody["gl"])
	assert.Equal(t, "qdr:w", gotBody["tbs"])

	require.Len(t, results, 2)
	assert.Equal(t, Result{URL: "https://example.com/a", Title: "A", Snippet: "lead times up"}, results[0])
}

func TestSerperSearchUnknownLanguage(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"organic":[]}`))
	}))
	defer server.Close()

	provider := NewSerperProvider("key")
	provider.endpoint = server.URL

	results, err := provider.Search(context.Background(), "transformer lead time", Config{Language: "fr", MaxResults: 5})
	require.NoError(t, err)

	assert.Empty(t, results)
	assert.Equal(t, "en", gotBody["hl"])
	assert.Equal(t, "us", gotBody["gl"])
	assert.Equal(t, float64(5), gotBody["num"])
}

func TestSerperSearchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	provider := NewSerperProvider("key")
	provider.endpoint = server.URL

	_, err := provider.Search(context.Background(), "q", Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestBraveSearch(t *testing.T) {
	var gotToken string
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Subscription-Token")
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"web":{"results":[
			{"url":"https://example.com/c","title":"C","description":"HBM allocation tightens"}
		]}}`))
	}))
	defer server.Close()

	provider := NewBraveProvider("brave-key")
	provider.endpoint = server.URL

	results, err := provider.Search(context.Background(), "HBM3E allocation", Config{MaxResults: 5})
	require.NoError(t, err)

	assert.Equal(t, "brave-key", gotToken)
	assert.Equal(t, "HBM3E allocation", gotQuery.Get("q"))
	assert.Equal(t, "5", gotQuery.Get("count"))
	assert.Equal(t, "pw", gotQuery.Get("freshness"))

	require.Len(t, results, 1)
	assert.Equal(t, Result{URL: "https://example.com/c", Title: "C", Snippet: "HBM allocation tightens"}, results[0])
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider("serper", "key")
	require.NoError(t, err)
	assert.Equal(t, "serper", provider.GetName())

	provider, err = NewProvider("brave", "key")
	require.NoError(t, err)
	assert.Equal(t, "brave", provider.GetName())

	_, err = NewProvider("bing", "key")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = NewProvider("serper", "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestFromKeys(t *testing.T) {
	assert.Nil(t, FromKeys("", ""))
	assert.Equal(t, "serper", FromKeys("sk", "bk").GetName())
	assert.Equal(t, "brave", FromKeys("", "bk").GetName())
}
