// Package config loads and validates the process configuration: environment
// settings, the LLM endpoint config, the search-query taxonomy, and the
// seed catalogs for sources and entities.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the fully resolved process configuration.
type Config struct {
	configDir string

	Env      *EnvConfig
	LLM      *LLMConfig
	Taxonomy *TaxonomyConfig
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Read environment settings
//  2. Load llm.yml and constraint_taxonomy.yml from configDir
//  3. Expand environment variables in YAML content
//  4. Apply built-in defaults
//  5. Validate everything
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	env := LoadEnv()
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("environment validation failed: %w", err)
	}

	loader := &configLoader{configDir: configDir}

	llm, err := loader.loadLLMYAML()
	if err != nil {
		return nil, NewLoadError("llm.yml", err)
	}
	if err := llm.resolveDefaults(); err != nil {
		return nil, NewLoadError("llm.yml", err)
	}
	if err := llm.Validate(); err != nil {
		return nil, fmt.Errorf("llm configuration validation failed: %w", err)
	}

	taxonomy, err := loader.loadTaxonomyYAML()
	if err != nil {
		return nil, NewLoadError("constraint_taxonomy.yml", err)
	}

	totalQueries := 0
	for _, qs := range taxonomy.Queries {
		totalQueries += len(qs)
	}
	log.Info("Configuration initialized successfully",
		"llm_model", llm.Model,
		"taxonomy_queries", totalQueries,
		"taxonomy_sources", len(taxonomy.SourceLanguageMap),
		"telegram_enabled", env.TelegramEnabled())

	return &Config{
		configDir: configDir,
		Env:       env,
		LLM:       llm,
		Taxonomy:  taxonomy,
	}, nil
}

// ConfigDir returns the directory the configuration was loaded from.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// QueryCursorPath returns the location of the persisted query-rotation
// cursor file under the data directory.
func (c *Config) QueryCursorPath() string {
	return filepath.Join(c.Env.DataDir, "query_cursors.json")
}

// LoadSeedSources reads seed_sources.yml from configDir, applying per-source
// defaults and validating each entry.
func LoadSeedSources(configDir string) ([]SeedSource, error) {
	loader := &configLoader{configDir: configDir}
	var file seedSourcesFile
	if err := loader.loadYAML("seed_sources.yml", &file); err != nil {
		return nil, NewLoadError("seed_sources.yml", err)
	}
	for i := range file.Sources {
		file.Sources[i].applyDefaults()
		if err := file.Sources[i].Validate(); err != nil {
			return nil, err
		}
	}
	return file.Sources, nil
}

// LoadSeedEntities reads seed_entities.yml from configDir, validating each
// entry.
func LoadSeedEntities(configDir string) ([]SeedEntity, error) {
	loader := &configLoader{configDir: configDir}
	var file seedEntitiesFile
	if err := loader.loadYAML("seed_entities.yml", &file); err != nil {
		return nil, NewLoadError("seed_entities.yml", err)
	}
	for i := range file.Entities {
		if err := file.Entities[i].Validate(); err != nil {
			return nil, err
		}
	}
	return file.Entities, nil
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return nil
}

func (l *configLoader) loadLLMYAML() (*LLMConfig, error) {
	var cfg LLMConfig
	if err := l.loadYAML("llm.yml", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadTaxonomyYAML tolerates a missing taxonomy file: web-search sources
// then rotate over their own seed queries only.
func (l *configLoader) loadTaxonomyYAML() (*TaxonomyConfig, error) {
	cfg := &TaxonomyConfig{
		Queries:           make(map[string][]string),
		SourceLanguageMap: make(map[string][]string),
	}
	err := l.loadYAML("constraint_taxonomy.yml", cfg)
	if errors.Is(err, ErrConfigNotFound) {
		slog.Warn("Taxonomy file not found, query rotation limited to per-source seed queries",
			"config_dir", l.configDir)
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if cfg.Queries == nil {
		cfg.Queries = make(map[string][]string)
	}
	if cfg.SourceLanguageMap == nil {
		cfg.SourceLanguageMap = make(map[string][]string)
	}
	return cfg, nil
}
