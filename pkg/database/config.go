package database

import (
	"os"
	"strconv"
	"time"
)

// Config holds database connection pool configuration.
type Config struct {
	// DatabaseURL is a postgres:// DSN.
	DatabaseURL string

	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadConfig builds pool configuration for the given DSN, with tuning knobs
// from environment variables.
func LoadConfig(databaseURL string) Config {
	maxConns, _ := strconv.Atoi(getEnvOrDefault("DB_MAX_CONNS", "10"))
	minConns, _ := strconv.Atoi(getEnvOrDefault("DB_MIN_CONNS", "2"))

	return Config{
		DatabaseURL:     databaseURL,
		MaxConns:        int32(maxConns),
		MinConns:        int32(minConns),
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
