package linker

import (
	"context"
	"strings"
)

// ReconcileEventEntities scans every stored event and registers any entity
// id the extractor emitted that never made it into the catalog. It is the
// recovery path after discovery bugs or manual event imports. Returns how
// many entities were created and how many were already present.
func (d *Discoverer) ReconcileEventEntities(ctx context.Context) (created, existing int, err error) {
	rows, err := d.events.AllEntityRefs(ctx)
	if err != nil {
		return 0, 0, err
	}

	seen := make(map[string]bool)
	for _, row := range rows {
		layer := string(row.Layer)
		for _, ref := range row.Entities {
			eid := ref.EntityID
			if eid == "" || seen[eid] {
				continue
			}
			seen[eid] = true

			name, entityType := parseEntityID(eid)

			exists, err := d.entities.Exists(ctx, eid)
			if err != nil {
				return created, existing, err
			}
			if exists {
				existing++
				continue
			}
			_, found, err := d.entities.FindIDByName(ctx, name)
			if err != nil {
				return created, existing, err
			}
			if found {
				existing++
				continue
			}

			role := string(ref.Role)
			roleHint := &role
			if role == "" {
				roleHint = nil
			}
			if _, err := d.DiscoverWithID(ctx, eid, name, entityType, row.ItemID, &layer, roleHint); err != nil {
				return created, existing, err
			}
			created++
		}
	}
	d.logger.Info("Entity reconciliation complete",
		"created", created, "existing", existing, "unique_ids", len(seen))
	return created, existing, nil
}

// parseEntityID recovers a readable name and type from ids shaped like
// "E:company:sk_hynix"; ids without a type segment default to company.
func parseEntityID(eid string) (name, entityType string) {
	parts := strings.Split(eid, ":")
	slug := parts[len(parts)-1]
	name = titleCase(strings.ReplaceAll(slug, "_", " "))
	entityType = "company"
	if len(parts) >= 2 {
		entityType = parts[1]
	}
	return name, entityType
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + strings.ToLower(string(r[1:]))
	}
	return strings.Join(words, " ")
}
