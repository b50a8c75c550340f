package themes

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/constraint-watch/chokepoint/pkg/store"
)

const (
	// Only events this recent participate in clustering.
	clusterWindow = 30 * 24 * time.Hour
	// Clusters smaller than this never become themes.
	minClusterSize = 2
	// Bucket for events that carry no object names.
	generalBucket = "_general"

	themeNamespace = "T:ai_constraints:"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(text string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(text), "_")
	slug = strings.Trim(slug, "_")
	if len(slug) > 60 {
		slug = slug[:60]
	}
	return slug
}

// titleCase uppercases the first letter of every word and lowercases the
// rest, treating any non-letter as a word break.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		switch {
		case !unicode.IsLetter(r):
			b.WriteRune(r)
			prevLetter = false
		case prevLetter:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(unicode.ToUpper(r))
			prevLetter = true
		}
	}
	return b.String()
}

// ThemeID derives the stable theme identifier for a cluster key.
func ThemeID(clusterKey string) string {
	return themeNamespace + slugify(clusterKey)
}

// splitClusterKey separates "<layer>:<object>" into its parts.
func splitClusterKey(clusterKey string) (layer, objHint string) {
	parts := strings.SplitN(clusterKey, ":", 2)
	layer = parts[0]
	objHint = "general"
	if len(parts) > 1 {
		objHint = parts[1]
	}
	return layer, objHint
}

// ThemeName renders the display name for a cluster key, e.g.
// "ADV_PACKAGING:cowos" becomes "Adv Packaging: Cowos".
func ThemeName(clusterKey string) string {
	layer, objHint := splitClusterKey(clusterKey)
	return titleCase(strings.ReplaceAll(layer+": "+objHint, "_", " "))
}

// objectNames returns the event's distinct object names, lowercased and
// trimmed, in first-appearance order.
func objectNames(ev store.ClusterEvent) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, obj := range ev.Objects {
		name := strings.TrimSpace(strings.ToLower(obj.Name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// clusterEvents groups events by constraint layer and shared object name.
// An event with N object names joins N candidate clusters; events without
// objects fall into the layer's general bucket. Clusters with fewer than
// two events are dropped.
func clusterEvents(events []store.ClusterEvent) map[string][]store.ClusterEvent {
	clusters := make(map[string][]store.ClusterEvent)
	seen := make(map[string]map[int64]struct{})

	add := func(key string, ev store.ClusterEvent) {
		ids, ok := seen[key]
		if !ok {
			ids = make(map[int64]struct{})
			seen[key] = ids
		}
		if _, dup := ids[ev.ID]; dup {
			return
		}
		ids[ev.ID] = struct{}{}
		clusters[key] = append(clusters[key], ev)
	}

	for _, ev := range events {
		names := objectNames(ev)
		if len(names) == 0 {
			add(fmt.Sprintf("%s:%s", ev.Layer, generalBucket), ev)
			continue
		}
		for _, name := range names {
			add(fmt.Sprintf("%s:%s", ev.Layer, name), ev)
		}
	}

	for key, members := range clusters {
		if len(members) < minClusterSize {
			delete(clusters, key)
		}
	}
	return clusters
}
