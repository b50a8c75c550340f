// Chokepoint radar daemon: sweeps the source catalog, runs the item
// pipeline (normalize, link, extract, themes, alerts), and serves the
// read-only HTTP API.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/constraint-watch/chokepoint/pkg/alerts"
	"github.com/constraint-watch/chokepoint/pkg/api"
	"github.com/constraint-watch/chokepoint/pkg/cleanup"
	"github.com/constraint-watch/chokepoint/pkg/collector"
	"github.com/constraint-watch/chokepoint/pkg/config"
	"github.com/constraint-watch/chokepoint/pkg/database"
	"github.com/constraint-watch/chokepoint/pkg/events"
	"github.com/constraint-watch/chokepoint/pkg/extractor"
	"github.com/constraint-watch/chokepoint/pkg/linker"
	"github.com/constraint-watch/chokepoint/pkg/llm"
	"github.com/constraint-watch/chokepoint/pkg/normalizer"
	"github.com/constraint-watch/chokepoint/pkg/pipeline"
	"github.com/constraint-watch/chokepoint/pkg/search"
	"github.com/constraint-watch/chokepoint/pkg/store"
	"github.com/constraint-watch/chokepoint/pkg/telegram"
	"github.com/constraint-watch/chokepoint/pkg/themes"
	"github.com/constraint-watch/chokepoint/pkg/version"
	"github.com/joho/godotenv"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// Parse command-line flags
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	// Load .env file from config directory
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	ctx := context.Background()

	// 1. Initialize configuration
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting chokepoint radar",
		"version", version.Full(),
		"api_port", cfg.Env.APIPort,
		"config_dir", *configDir)

	// 2. Connect to the database and run migrations
	dbClient, err := database.NewClient(ctx, database.LoadConfig(cfg.Env.DatabaseURL))
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := dbClient.Migrate(ctx); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	st := store.New(dbClient.Pool())

	// 3. Load the entity alias index
	lk := linker.New(st.Entities)
	if err := lk.Load(ctx); err != nil {
		slog.Error("Failed to load entity alias index", "error", err)
		os.Exit(1)
	}

	srcCount, err := st.Sources.CountConfirmed(ctx)
	if err != nil {
		slog.Warn("Failed to count confirmed sources", "error", err)
	}
	entCount := 0
	if byStatus, statErr := st.Entities.CountByStatus(ctx); statErr != nil {
		slog.Warn("Failed to count entities", "error", statErr)
	} else {
		for _, n := range byStatus {
			entCount += n
		}
	}
	slog.Info("Database state", "confirmed_sources", srcCount, "entities", entCount)

	// 4. Wire the pipeline stages around the shared LLM client
	llmClient := llm.NewClient(cfg.LLM, cfg.Env.OpenRouterAPIKey, cfg.Env.LLMConcurrency)
	norm := normalizer.New(llmClient)
	disc := linker.NewDiscoverer(st.Entities, st.Events, lk)
	extr := extractor.New(llmClient, st.Items, st.Events)
	themeService := themes.NewService(st, llmClient)
	sender := telegram.NewSender(cfg.Env.TelegramBotToken, cfg.Env.TelegramChatID)
	alertService := alerts.NewService(st, sender, cfg.Env.MaxAlertsPerDay)

	// 5. Wire the collector; stored items are announced over NOTIFY so the
	// pipeline wakes without waiting out its poll interval
	fetcher := collector.NewFetcher(cfg.Env.HTTPRateLimitPerDomain)
	provider := search.FromKeys(cfg.Env.SerperAPIKey, cfg.Env.BraveAPIKey)
	querygen := collector.NewQueryGenerator(cfg.Taxonomy, cfg.QueryCursorPath())
	publisher := events.NewPublisher(dbClient.Pool())
	coll := collector.New(st, fetcher, provider, querygen, publisher)
	defer coll.Close()

	// 6. Initial collection sweep so the pipeline has material immediately
	newItems, err := coll.RunAllOnce(ctx)
	if err != nil {
		slog.Error("Initial collection sweep failed", "error", err)
		os.Exit(1)
	}
	totalItems, err := st.Items.CountTotal(ctx)
	if err != nil {
		slog.Warn("Failed to count items", "error", err)
	}
	slog.Info("Initial sweep done", "new_items", newItems, "total_items", totalItems)

	// 7. Start the collection scheduler (per-source jobs + daily digest)
	sched := collector.NewScheduler(coll, st.Sources, alertService.SendDailyDigest)
	if err := sched.LoadJobs(ctx); err != nil {
		slog.Error("Failed to load collection jobs", "error", err)
		os.Exit(1)
	}
	sched.Start(ctx)

	// 8. Start the pipeline loop
	pipeCtx, pipeCancel := context.WithCancel(ctx)
	defer pipeCancel()
	pipe := pipeline.New(st, norm, lk, disc, extr, themeService, alertService)
	pipeDone := make(chan struct{})
	go func() {
		pipe.Run(pipeCtx)
		close(pipeDone)
	}()

	// 8a. Forward collector announcements to the pipeline (dedicated LISTEN
	// connection outside the pool)
	listener := events.NewListener(dbClient.ConnString())
	if err := listener.Start(ctx); err != nil {
		slog.Error("Failed to start item listener", "error", err)
		os.Exit(1)
	}
	go func() {
		for range listener.Notifications() {
			pipe.Nudge()
		}
	}()

	// 8b. Start retention sweeps
	cleaner := cleanup.NewService(st, cleanup.DefaultConfig())
	cleaner.Start(ctx)

	// 9. Start the HTTP API (non-blocking)
	httpServer := api.NewServer(st, dbClient.Pool(), cfg.Env.APIPort)
	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "port", cfg.Env.APIPort)
		if err := httpServer.Start(); err != nil {
			slog.Error("API server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("Chokepoint radar started")

	// 10. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 11. Graceful drain: scheduler first, then the wake listener and
	// pipeline, then retention, then HTTP
	stopCtx := sched.Stop()
	select {
	case <-stopCtx.Done():
		slog.Info("Scheduler stopped")
	case <-time.After(30 * time.Second):
		slog.Warn("Scheduler stop timeout exceeded, abandoning running jobs")
	}

	listener.Stop(ctx)

	pipeCancel()
	select {
	case <-pipeDone:
		slog.Info("Pipeline loop stopped")
	case <-time.After(30 * time.Second):
		slog.Warn("Pipeline stop timeout exceeded")
	}

	cleaner.Stop()

	httpShutdownCtx, httpCancel := context.WithTimeout(ctx, 5*time.Second)
	defer httpCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		slog.Error("API server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
