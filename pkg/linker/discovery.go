package linker

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

// Promotion thresholds: how many mentions across how many distinct sources
// an entity needs before it climbs the catalog ladder.
const (
	provisionalMinMentions = 3
	provisionalMinSources  = 2
	confirmedMinMentions   = 6
	confirmedMinSources    = 3
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns an entity name into the slug part of its id.
func Slugify(name string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(name), "_")
	slug = strings.Trim(slug, "_")
	if len(slug) > 50 {
		slug = slug[:50]
	}
	return slug
}

// EntityID builds the catalog id for a name and type. Unrecognized types
// collapse to COMPANY before forming the id.
func EntityID(name, entityType string) string {
	normalized := models.EntityType(entityType).Normalize()
	return fmt.Sprintf("E:%s:%s", strings.ToLower(string(normalized)), Slugify(name))
}

// Discoverer registers entities referenced by extracted events and promotes
// them through the catalog statuses as evidence accumulates.
type Discoverer struct {
	entities *store.EntityStore
	events   *store.EventStore
	linker   *Linker
	logger   *slog.Logger
}

// NewDiscoverer creates a Discoverer that reloads the given linker's index
// whenever the catalog changes.
func NewDiscoverer(entities *store.EntityStore, events *store.EventStore, linker *Linker) *Discoverer {
	return &Discoverer{
		entities: entities,
		events:   events,
		linker:   linker,
		logger:   slog.Default().With("component", "entity-discovery"),
	}
}

// Discover registers a DISCOVERED entity for a name seen in an extracted
// event, unless the name or its derived id already exists. Returns the
// entity id either way.
func (d *Discoverer) Discover(ctx context.Context, name, entityType string, itemID uuid.UUID, layerHint, roleHint *string) (string, error) {
	existing, found, err := d.entities.FindIDByName(ctx, name)
	if err != nil {
		return "", err
	}
	if found {
		return existing, nil
	}
	return d.DiscoverWithID(ctx, EntityID(name, entityType), name, entityType, itemID, layerHint, roleHint)
}

// DiscoverWithID is Discover with a caller-chosen entity id; backfills use
// it to preserve ids already referenced by stored events.
func (d *Discoverer) DiscoverWithID(ctx context.Context, entityID, name, entityType string, itemID uuid.UUID, layerHint, roleHint *string) (string, error) {
	normalized := models.EntityType(entityType).Normalize()

	exists, err := d.entities.Exists(ctx, entityID)
	if err != nil {
		return "", err
	}
	if exists {
		return entityID, nil
	}

	// Empty slices, not nil: the roles and layers columns are NOT NULL.
	roles, layers := []string{}, []string{}
	if roleHint != nil && *roleHint != "" {
		roles = append(roles, *roleHint)
	}
	if layerHint != nil && *layerHint != "" {
		layers = append(layers, *layerHint)
	}

	err = d.entities.InsertDiscovered(ctx, store.DiscoveredEntity{
		EntityID:           entityID,
		CanonicalName:      name,
		Type:               string(normalized),
		Aliases:            map[string][]string{"en": {name}},
		Roles:              roles,
		Layers:             layers,
		DiscoveredFromItem: itemID,
	})
	if err != nil {
		return "", err
	}
	d.logger.Info("Discovered new entity", "name", name, "type", normalized, "layer", layerHint)

	if err := d.linker.Load(ctx); err != nil {
		return "", err
	}
	return entityID, nil
}

// Promote climbs entities up the catalog ladder: DISCOVERED entities with
// enough mentions across enough sources become PROVISIONAL; PROVISIONAL
// entities additionally need an associated tightening event to become
// CONFIRMED. Returns the number of promotions applied.
func (d *Discoverer) Promote(ctx context.Context) (int, error) {
	promoted := 0

	candidates, err := d.entities.PromotionCandidates(ctx,
		models.EntityStatusDiscovered, provisionalMinMentions, provisionalMinSources)
	if err != nil {
		return 0, err
	}
	for _, c := range candidates {
		if err := d.entities.SetStatus(ctx, c.EntityID, models.EntityStatusProvisional); err != nil {
			return promoted, err
		}
		d.logger.Info("Promoted to PROVISIONAL", "entity_id", c.EntityID, "name", c.CanonicalName)
		promoted++
	}

	candidates, err = d.entities.PromotionCandidates(ctx,
		models.EntityStatusProvisional, confirmedMinMentions, confirmedMinSources)
	if err != nil {
		return promoted, err
	}
	for _, c := range candidates {
		hasTightening, err := d.events.HasTighteningForEntity(ctx, c.EntityID)
		if err != nil {
			return promoted, err
		}
		if !hasTightening {
			continue
		}
		if err := d.entities.SetStatus(ctx, c.EntityID, models.EntityStatusConfirmed); err != nil {
			return promoted, err
		}
		d.logger.Info("Promoted to CONFIRMED", "entity_id", c.EntityID, "name", c.CanonicalName)
		promoted++
	}

	if promoted > 0 {
		if err := d.linker.Load(ctx); err != nil {
			return promoted, err
		}
	}
	return promoted, nil
}
