// Package main provides chokectl, the operations CLI for the chokepoint
// radar: seeding the source and entity catalogs, and backfills that reprocess
// items or reconcile entity records after prompt or logic changes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/constraint-watch/chokepoint/pkg/database"
	"github.com/constraint-watch/chokepoint/pkg/store"
	"github.com/constraint-watch/chokepoint/pkg/version"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:     "chokectl",
	Short:   "Operations CLI for the chokepoint radar",
	Version: version.Full(),
	Long: `chokectl runs one-shot maintenance operations against the radar database.

Examples:
  chokectl seed                                  # Load seed_sources.yml / seed_entities.yml
  chokectl backfill --target COLLECTED           # Reprocess finished items from the top
  chokectl backfill --target LINKED --source mti # Re-extract one source's items
  chokectl backfill-entities                     # Register entity ids referenced by events`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir",
		envOrDefault("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(backfillEntitiesCmd)
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// openStore loads .env, connects to the database, runs migrations, and
// returns the store. Every subcommand starts here so a schema change never
// races an operation written for the new shape.
func openStore(ctx context.Context) (*store.Store, *database.Client, error) {
	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is not set")
	}

	db, err := database.NewClient(ctx, database.LoadConfig(databaseURL))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store.New(db.Pool()), db, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
