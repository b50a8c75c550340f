package config

import (
	"fmt"
	"os"
	"strconv"
)

// EnvConfig holds process settings sourced from environment variables
// (typically via a .env file loaded at startup). Credentials for optional
// capabilities may be empty: the capability is then disabled, the process
// still runs.
type EnvConfig struct {
	DatabaseURL      string
	OpenRouterAPIKey string
	TelegramBotToken string
	TelegramChatID   string
	BraveAPIKey      string
	SerperAPIKey     string

	LLMConcurrency         int
	HTTPRateLimitPerDomain float64
	MaxAlertsPerDay        int

	APIPort int
	DataDir string
}

// LoadEnv reads the environment into an EnvConfig, applying defaults.
func LoadEnv() *EnvConfig {
	return &EnvConfig{
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		OpenRouterAPIKey:       os.Getenv("OPENROUTER_API_KEY"),
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:         os.Getenv("TELEGRAM_CHAT_ID"),
		BraveAPIKey:            os.Getenv("BRAVE_API_KEY"),
		SerperAPIKey:           os.Getenv("SERPER_API_KEY"),
		LLMConcurrency:         getEnvInt("LLM_CONCURRENCY", 5),
		HTTPRateLimitPerDomain: getEnvFloat("HTTP_RATE_LIMIT_PER_DOMAIN", 1.0),
		MaxAlertsPerDay:        getEnvInt("MAX_ALERTS_PER_DAY", 20),
		APIPort:                getEnvInt("API_PORT", 8000),
		DataDir:                getEnv("DATA_DIR", "data"),
	}
}

// Validate checks the env config for required settings and sane values.
func (c *EnvConfig) Validate() error {
	if c.DatabaseURL == "" {
		return NewValidationError("env", "", "DATABASE_URL", ErrMissingRequiredField)
	}
	if c.OpenRouterAPIKey == "" {
		return NewValidationError("env", "", "OPENROUTER_API_KEY", ErrMissingRequiredField)
	}
	if c.LLMConcurrency < 1 {
		return NewValidationError("env", "", "LLM_CONCURRENCY",
			fmt.Errorf("%w: must be >= 1, got %d", ErrInvalidValue, c.LLMConcurrency))
	}
	if c.HTTPRateLimitPerDomain <= 0 {
		return NewValidationError("env", "", "HTTP_RATE_LIMIT_PER_DOMAIN",
			fmt.Errorf("%w: must be > 0, got %g", ErrInvalidValue, c.HTTPRateLimitPerDomain))
	}
	if c.MaxAlertsPerDay < 0 {
		return NewValidationError("env", "", "MAX_ALERTS_PER_DAY",
			fmt.Errorf("%w: must be >= 0, got %d", ErrInvalidValue, c.MaxAlertsPerDay))
	}
	if c.APIPort < 1 || c.APIPort > 65535 {
		return NewValidationError("env", "", "API_PORT",
			fmt.Errorf("%w: must be a valid port, got %d", ErrInvalidValue, c.APIPort))
	}
	return nil
}

// TelegramEnabled reports whether both Telegram credentials are present.
func (c *EnvConfig) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
