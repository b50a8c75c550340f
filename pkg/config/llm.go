package config

import (
	"fmt"

	"dario.cat/mergo"
)

// LLMConfig mirrors llm.yml: the chat-completions endpoint, the model
// identifier, and request defaults.
type LLMConfig struct {
	BaseURL  string       `yaml:"base_url"`
	Model    string       `yaml:"model"`
	Defaults *LLMDefaults `yaml:"defaults"`
}

// LLMDefaults are per-request parameters applied when the caller does not
// override them.
type LLMDefaults struct {
	Temperature         float64 `yaml:"temperature"`
	MaxTokens           int     `yaml:"max_tokens"`
	Retries             int     `yaml:"retries"`
	RetryBackoffSeconds int     `yaml:"retry_backoff_seconds"`
	TimeoutSeconds      int     `yaml:"timeout_seconds"`
}

// DefaultLLMDefaults returns the built-in request defaults.
func DefaultLLMDefaults() *LLMDefaults {
	return &LLMDefaults{
		Temperature:         0.2,
		MaxTokens:           4096,
		Retries:             3,
		RetryBackoffSeconds: 5,
		TimeoutSeconds:      60,
	}
}

// resolveDefaults merges user-provided defaults over the built-ins so that
// a partial defaults block never zeroes the rest.
func (c *LLMConfig) resolveDefaults() error {
	resolved := DefaultLLMDefaults()
	if c.Defaults != nil {
		if err := mergo.Merge(resolved, c.Defaults, mergo.WithOverride); err != nil {
			return fmt.Errorf("failed to merge llm defaults: %w", err)
		}
	}
	c.Defaults = resolved
	return nil
}

// Validate checks the LLM config for required fields and sane values.
func (c *LLMConfig) Validate() error {
	if c.BaseURL == "" {
		return NewValidationError("llm", "", "base_url", ErrMissingRequiredField)
	}
	if c.Model == "" {
		return NewValidationError("llm", "", "model", ErrMissingRequiredField)
	}
	d := c.Defaults
	if d.Temperature < 0 || d.Temperature > 2 {
		return NewValidationError("llm", "", "defaults.temperature",
			fmt.Errorf("%w: must be in [0,2], got %g", ErrInvalidValue, d.Temperature))
	}
	if d.MaxTokens < 1 {
		return NewValidationError("llm", "", "defaults.max_tokens",
			fmt.Errorf("%w: must be >= 1, got %d", ErrInvalidValue, d.MaxTokens))
	}
	if d.Retries < 1 {
		return NewValidationError("llm", "", "defaults.retries",
			fmt.Errorf("%w: must be >= 1, got %d", ErrInvalidValue, d.Retries))
	}
	if d.RetryBackoffSeconds < 0 {
		return NewValidationError("llm", "", "defaults.retry_backoff_seconds",
			fmt.Errorf("%w: must be >= 0, got %d", ErrInvalidValue, d.RetryBackoffSeconds))
	}
	if d.TimeoutSeconds < 1 {
		return NewValidationError("llm", "", "defaults.timeout_seconds",
			fmt.Errorf("%w: must be >= 1, got %d", ErrInvalidValue, d.TimeoutSeconds))
	}
	return nil
}
