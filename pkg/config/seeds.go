package config

// SeedSource is one entry of the seed_sources.yml sources list.
type SeedSource struct {
	SourceID        string   `yaml:"source_id"`
	Name            string   `yaml:"name"`
	URL             string   `yaml:"url"`
	FeedURL         string   `yaml:"feed_url"`
	FetchMethod     string   `yaml:"fetch_method"`
	ScrapeTarget    string   `yaml:"scrape_target"`
	Language        string   `yaml:"language"`
	Tier            int      `yaml:"tier"`
	Reliability     float64  `yaml:"reliability"`
	Earliness       float64  `yaml:"earliness"`
	ScheduleMinutes int      `yaml:"schedule_minutes"`
	Layers          []string `yaml:"layers"`
	SearchQueries   []string `yaml:"search_queries"`
	Notes           string   `yaml:"notes"`
}

// SeedEntity is one entry of the seed_entities.yml entities list.
type SeedEntity struct {
	EntityID      string              `yaml:"entity_id"`
	CanonicalName string              `yaml:"canonical_name"`
	Type          string              `yaml:"type"`
	Aliases       map[string][]string `yaml:"aliases"`
	Tickers       []string            `yaml:"tickers"`
	Roles         []string            `yaml:"roles"`
	Layers        []string            `yaml:"layers"`
	Ring          string              `yaml:"ring"`
	Geo           string              `yaml:"geo"`
	Notes         string              `yaml:"notes"`
}

type seedSourcesFile struct {
	Sources []SeedSource `yaml:"sources"`
}

type seedEntitiesFile struct {
	Entities []SeedEntity `yaml:"entities"`
}

// applyDefaults fills zero values the seed file is allowed to omit.
func (s *SeedSource) applyDefaults() {
	if s.Language == "" {
		s.Language = "en"
	}
	if s.Tier == 0 {
		s.Tier = 2
	}
	if s.Reliability == 0 {
		s.Reliability = 0.5
	}
	if s.Earliness == 0 {
		s.Earliness = 0.5
	}
	if s.ScheduleMinutes == 0 {
		s.ScheduleMinutes = 60
	}
}

// Validate checks a seed source for required fields and legal values.
func (s *SeedSource) Validate() error {
	if s.SourceID == "" {
		return NewValidationError("source", s.Name, "source_id", ErrMissingRequiredField)
	}
	if s.Name == "" {
		return NewValidationError("source", s.SourceID, "name", ErrMissingRequiredField)
	}
	if s.FetchMethod == "" {
		return NewValidationError("source", s.SourceID, "fetch_method", ErrMissingRequiredField)
	}
	return nil
}

// Validate checks a seed entity for required fields.
func (e *SeedEntity) Validate() error {
	if e.EntityID == "" {
		return NewValidationError("entity", e.CanonicalName, "entity_id", ErrMissingRequiredField)
	}
	if e.CanonicalName == "" {
		return NewValidationError("entity", e.EntityID, "canonical_name", ErrMissingRequiredField)
	}
	if e.Type == "" {
		return NewValidationError("entity", e.EntityID, "type", ErrMissingRequiredField)
	}
	return nil
}
