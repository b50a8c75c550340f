package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// langParams maps a source language to Google's hl/gl parameters.
var langParams = map[string][2]string{
	"en":    {"en", "us"},
	"ja":    {"ja", "jp"},
	"ko":    {"ko", "kr"},
	"zh":    {"zh-cn", "cn"},
	"es":    {"es", "mx"},
	"pt":    {"pt-br", "br"},
	"de":    {"de", "de"},
	"hi":    {"hi", "in"},
	"zh-tw": {"zh-tw", "tw"},
}

// SerperProvider searches Google through serper.dev. Results are restricted
// to the past week, matching the collection cadence.
type SerperProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewSerperProvider creates a Serper-backed provider.
func NewSerperProvider(apiKey string) *SerperProvider {
	return &SerperProvider{
		apiKey:   apiKey,
		endpoint: "https://google.serper.dev/search",
		client:   &http.Client{Timeout: searchTimeout},
	}
}

// GetName returns the provider's short name.
func (p *SerperProvider) GetName() string { return "serper" }

// Search runs one query and returns the organic results.
func (p *SerperProvider) Search(ctx context.Context, query string, cfg Config) ([]Result, error) {
	num := cfg.MaxResults
	if num <= 0 {
		num = defaultMaxResults
	}
	hl, gl := "en", "us"
	if params, ok := langParams[cfg.Language]; ok {
		hl, gl = params[0], params[1]
	}

	body, err := json.Marshal(map[string]any{
		"q":   query,
		"num": num,
		"hl":  hl,
		"gl":  gl,
		"tbs": "qdr:w",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("X-API-KEY", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed with status %d", resp.StatusCode)
	}

	var payload struct {
		Organic []struct {
			Link    string `json:"link"`
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	results := make([]Result, 0, len(payload.Organic))
	for _, item := range payload.Organic {
		results = append(results, Result{URL: item.Link, Title: item.Title, Snippet: item.Snippet})
	}
	return results, nil
}
