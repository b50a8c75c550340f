// Package seed loads the curated source and entity catalogs into the
// database. Seeding is idempotent: rows that already exist are left
// untouched, so it is safe to rerun after editing the seed files.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/constraint-watch/chokepoint/pkg/config"
	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

// Seeder inserts seed catalogs through the store layer.
type Seeder struct {
	store  *store.Store
	logger *slog.Logger
}

// New creates a Seeder.
func New(st *store.Store) *Seeder {
	return &Seeder{
		store:  st,
		logger: slog.Default().With("component", "seed"),
	}
}

// Run seeds sources then entities from the YAML catalogs in configDir and
// returns how many of each were inserted.
func (s *Seeder) Run(ctx context.Context, configDir string) (sources, entities int, err error) {
	sources, err = s.SeedSources(ctx, configDir)
	if err != nil {
		return sources, 0, err
	}
	entities, err = s.SeedEntities(ctx, configDir)
	if err != nil {
		return sources, entities, err
	}
	s.logger.Info("Seeding complete", "sources", sources, "entities", entities)
	return sources, entities, nil
}

// SeedSources inserts missing rows from seed_sources.yml.
func (s *Seeder) SeedSources(ctx context.Context, configDir string) (int, error) {
	seeds, err := config.LoadSeedSources(configDir)
	if err != nil {
		return 0, fmt.Errorf("failed to load seed sources: %w", err)
	}
	count := 0
	for _, sc := range seeds {
		inserted, err := s.store.Sources.SeedSource(ctx, SourceFromSeed(sc))
		if err != nil {
			return count, err
		}
		if inserted {
			count++
		}
	}
	return count, nil
}

// SeedEntities inserts missing rows from seed_entities.yml.
func (s *Seeder) SeedEntities(ctx context.Context, configDir string) (int, error) {
	seeds, err := config.LoadSeedEntities(configDir)
	if err != nil {
		return 0, fmt.Errorf("failed to load seed entities: %w", err)
	}
	count := 0
	for _, ec := range seeds {
		inserted, err := s.store.Entities.SeedEntity(ctx, EntityFromSeed(ec))
		if err != nil {
			return count, err
		}
		if inserted {
			count++
		}
	}
	return count, nil
}

// SourceFromSeed converts a seed file entry to the source model. Layers
// stays non-nil so the array column holds {} rather than NULL.
func SourceFromSeed(sc config.SeedSource) models.Source {
	return models.Source{
		SourceID:        sc.SourceID,
		Name:            sc.Name,
		URL:             optional(sc.URL),
		FeedURL:         optional(sc.FeedURL),
		FetchMethod:     models.FetchMethod(sc.FetchMethod),
		ScrapeTarget:    optional(sc.ScrapeTarget),
		Language:        sc.Language,
		Tier:            sc.Tier,
		Reliability:     sc.Reliability,
		Earliness:       sc.Earliness,
		ScheduleMinutes: sc.ScheduleMinutes,
		Layers:          nonNil(sc.Layers),
		SearchQueries:   sc.SearchQueries,
		Status:          models.SourceStatusConfirmed,
		Notes:           optional(sc.Notes),
	}
}

// EntityFromSeed converts a seed file entry to the entity model. Aliases
// and tickers stay non-nil so the jsonb columns hold {} and [] rather than
// NULL.
func EntityFromSeed(ec config.SeedEntity) models.Entity {
	aliases := ec.Aliases
	if aliases == nil {
		aliases = make(map[string][]string)
	}
	tickers := ec.Tickers
	if tickers == nil {
		tickers = []string{}
	}
	return models.Entity{
		EntityID:      ec.EntityID,
		CanonicalName: ec.CanonicalName,
		Type:          models.EntityType(ec.Type).Normalize(),
		Aliases:       aliases,
		Tickers:       tickers,
		Roles:         nonNil(ec.Roles),
		Layers:        nonNil(ec.Layers),
		Ring:          optional(ec.Ring),
		Geo:           optional(ec.Geo),
		Status:        models.EntityStatusConfirmed,
		Notes:         optional(ec.Notes),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
