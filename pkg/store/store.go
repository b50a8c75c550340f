// Package store implements PostgreSQL persistence for the radar's domain
// tables: sources, items, entities, events, themes, alerts, and pipeline
// runs. Each table gets a dedicated store over the shared pgx pool; Store
// bundles them so callers wire a single value.
package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("row not found")

// Store bundles the per-table stores over a single connection pool.
type Store struct {
	Items    *ItemStore
	Sources  *SourceStore
	Entities *EntityStore
	Events   *EventStore
	Themes   *ThemeStore
	Alerts   *AlertStore
	Runs     *RunStore
}

// New creates a Store with all per-table stores sharing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		Items:    NewItemStore(pool),
		Sources:  NewSourceStore(pool),
		Entities: NewEntityStore(pool),
		Events:   NewEventStore(pool),
		Themes:   NewThemeStore(pool),
		Alerts:   NewAlertStore(pool),
		Runs:     NewRunStore(pool),
	}
}
