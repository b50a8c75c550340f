// Package linker matches known entity aliases in item text and grows the
// entity catalog from extraction output. The alias index lives in memory
// and is rebuilt from the entities table whenever the catalog changes.
package linker

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/store"
)

// snippetRunes is how much context is kept on each side of a match.
const snippetRunes = 50

type aliasEntry struct {
	alias    string
	entityID string
	runeLen  int
	// pattern is set for ASCII aliases, which match on word boundaries.
	// Non-ASCII aliases match by plain substring.
	pattern *regexp.Regexp
}

// Linker holds the alias index and finds entity mentions in text.
type Linker struct {
	entities *store.EntityStore
	logger   *slog.Logger

	mu      sync.RWMutex
	entries []aliasEntry
}

// New creates a Linker over the entity catalog. Call Load before matching.
func New(entities *store.EntityStore) *Linker {
	return &Linker{
		entities: entities,
		logger:   slog.Default().With("component", "entity-linker"),
	}
}

// Load rebuilds the alias index from the entities table.
func (l *Linker) Load(ctx context.Context) error {
	rows, err := l.entities.AliasRows(ctx)
	if err != nil {
		return fmt.Errorf("failed to load alias index: %w", err)
	}
	l.buildIndex(rows)
	l.logger.Info("Alias index loaded", "entries", l.Size())
	return nil
}

// buildIndex indexes canonical names and every alias in every language,
// lowercased. Aliases containing spaces also get a space-stripped variant so
// CJK spellings match both ways.
func (l *Linker) buildIndex(rows []store.AliasRow) {
	index := make(map[string]string)
	for _, row := range rows {
		index[strings.ToLower(row.CanonicalName)] = row.EntityID
		for _, aliases := range row.Aliases {
			for _, alias := range aliases {
				index[strings.ToLower(alias)] = row.EntityID
				stripped := strings.ReplaceAll(alias, " ", "")
				if stripped != alias {
					index[strings.ToLower(stripped)] = row.EntityID
				}
			}
		}
	}

	entries := make([]aliasEntry, 0, len(index))
	for alias, entityID := range index {
		entry := aliasEntry{
			alias:    alias,
			entityID: entityID,
			runeLen:  utf8.RuneCountInString(alias),
		}
		if isASCII(alias) {
			entry.pattern = regexp.MustCompile(`\b` + regexp.QuoteMeta(alias) + `\b`)
		}
		entries = append(entries, entry)
	}
	// Longest aliases first so specific names win over their substrings.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].runeLen != entries[j].runeLen {
			return entries[i].runeLen > entries[j].runeLen
		}
		return entries[i].alias < entries[j].alias
	})

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
}

// Size returns the number of indexed aliases.
func (l *Linker) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Match finds entity mentions in text. Each entity is reported at most once,
// with a context snippet around its first match. ASCII aliases match on word
// boundaries; non-ASCII aliases match as substrings.
func (l *Linker) Match(text string) []models.AliasMatch {
	if text == "" {
		return nil
	}

	l.mu.RLock()
	entries := l.entries
	l.mu.RUnlock()

	origRunes := []rune(text)
	lowerRunes := make([]rune, len(origRunes))
	for i, r := range origRunes {
		lowerRunes[i] = unicode.ToLower(r)
	}
	lowered := string(lowerRunes)

	var matches []models.AliasMatch
	seen := make(map[string]struct{})

	for _, entry := range entries {
		if _, ok := seen[entry.entityID]; ok {
			continue
		}
		if entry.runeLen < 2 {
			continue
		}

		var byteStart, byteEnd int
		if entry.pattern != nil {
			loc := entry.pattern.FindStringIndex(lowered)
			if loc == nil {
				continue
			}
			byteStart, byteEnd = loc[0], loc[1]
		} else {
			idx := strings.Index(lowered, entry.alias)
			if idx < 0 {
				continue
			}
			byteStart, byteEnd = idx, idx+len(entry.alias)
		}

		runeStart := utf8.RuneCountInString(lowered[:byteStart])
		runeEnd := runeStart + utf8.RuneCountInString(lowered[byteStart:byteEnd])

		snipStart := runeStart - snippetRunes
		if snipStart < 0 {
			snipStart = 0
		}
		snipEnd := runeEnd + snippetRunes
		if snipEnd > len(origRunes) {
			snipEnd = len(origRunes)
		}

		matches = append(matches, models.AliasMatch{
			EntityID:       entry.entityID,
			ContextSnippet: strings.TrimSpace(string(origRunes[snipStart:snipEnd])),
		})
		seen[entry.entityID] = struct{}{}
	}

	return matches
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
