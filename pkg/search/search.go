// Package search wraps the web search APIs behind one Provider interface so
// the collector's keyword sweeps do not care which backend answers them.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	searchTimeout     = 15 * time.Second
	defaultMaxResults = 20
)

var (
	// ErrMissingAPIKey is returned when a provider is requested without a key.
	ErrMissingAPIKey = errors.New("search API key is required")
	// ErrUnknownProvider is returned for provider names the factory does not know.
	ErrUnknownProvider = errors.New("unknown search provider")
)

// Provider is one search backend.
type Provider interface {
	// Search runs one query and returns the organic results.
	Search(ctx context.Context, query string, cfg Config) ([]Result, error)
	// GetName returns the provider's short name.
	GetName() string
}

// Config tunes a single search request.
type Config struct {
	// MaxResults caps the result count; zero means the provider default.
	MaxResults int
	// Language selects localized results where the backend supports it.
	Language string
}

// Result is one organic search hit.
type Result struct {
	URL     string
	Title   string
	Snippet string
}

// NewProvider builds the provider with the given name.
func NewProvider(name, apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	switch name {
	case "serper":
		return NewSerperProvider(apiKey), nil
	case "brave":
		return NewBraveProvider(apiKey), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
}

// FromKeys returns the first configured provider, preferring Serper, or nil
// when no search API key is set. A nil provider disables keyword sweeps.
func FromKeys(serperKey, braveKey string) Provider {
	if serperKey != "" {
		return NewSerperProvider(serperKey)
	}
	if braveKey != "" {
		return NewBraveProvider(braveKey)
	}
	return nil
}
