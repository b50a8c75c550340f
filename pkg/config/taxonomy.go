package config

// TaxonomyConfig mirrors constraint_taxonomy.yml: the standing search query
// lists per language, and which languages each web-search source draws from.
type TaxonomyConfig struct {
	Queries           map[string][]string `yaml:"queries"`
	SourceLanguageMap map[string][]string `yaml:"source_language_map"`
}

// QueriesForSource flattens the per-language query lists for one source in
// the order its languages are declared. Unknown sources yield nil.
func (t *TaxonomyConfig) QueriesForSource(sourceID string) []string {
	langs, ok := t.SourceLanguageMap[sourceID]
	if !ok {
		return nil
	}
	var combined []string
	for _, lang := range langs {
		combined = append(combined, t.Queries[lang]...)
	}
	return combined
}
