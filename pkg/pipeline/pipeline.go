// Package pipeline drives items through the processing stages and runs the
// downstream analysis after each sweep. Every stage claims its batch by
// advancing pipeline_status upfront under SKIP LOCKED, so concurrent
// replicas never double-process an item; failures park the item in ERROR
// with a stage tag instead of returning it to the queue.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/constraint-watch/chokepoint/pkg/alerts"
	"github.com/constraint-watch/chokepoint/pkg/extractor"
	"github.com/constraint-watch/chokepoint/pkg/linker"
	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/constraint-watch/chokepoint/pkg/normalizer"
	"github.com/constraint-watch/chokepoint/pkg/store"
	"github.com/constraint-watch/chokepoint/pkg/themes"
)

const (
	// BatchSize bounds how many items one stage claims per cycle.
	BatchSize = 40
	// Interval separates pipeline sweeps.
	Interval = 15 * time.Second
)

// Pipeline owns one full processing cycle: normalize, link, extract, then
// entity promotion, theme maintenance, and alert triage.
type Pipeline struct {
	store      *store.Store
	normalizer *normalizer.Normalizer
	linker     *linker.Linker
	discoverer *linker.Discoverer
	extractor  *extractor.Extractor
	themes     *themes.Service
	alerts     *alerts.Service
	logger     *slog.Logger

	// wake holds at most one pending early-cycle request; see Nudge.
	wake chan struct{}
}

// New wires a Pipeline from its stage processors.
func New(
	st *store.Store,
	norm *normalizer.Normalizer,
	link *linker.Linker,
	disc *linker.Discoverer,
	extr *extractor.Extractor,
	th *themes.Service,
	al *alerts.Service,
) *Pipeline {
	return &Pipeline{
		store:      st,
		normalizer: norm,
		linker:     link,
		discoverer: disc,
		extractor:  extr,
		themes:     th,
		alerts:     al,
		logger:     slog.Default().With("component", "pipeline"),
		wake:       make(chan struct{}, 1),
	}
}

// Nudge requests an early cycle, typically because the collector just
// stored new items. Nudges arriving while one is already pending coalesce;
// the call never blocks.
func (p *Pipeline) Nudge() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run executes cycles every Interval until ctx is done; a Nudge cuts the
// wait short. Cycle errors are logged and absorbed; only the context stops
// the loop.
func (p *Pipeline) Run(ctx context.Context) {
	cycle := 0
	for {
		cycle++
		p.logger.Info("Pipeline cycle starting", "cycle", cycle)
		p.Cycle(ctx)
		select {
		case <-ctx.Done():
			p.logger.Info("Pipeline loop stopped")
			return
		case <-time.After(Interval):
		case <-p.wake:
			p.logger.Debug("Pipeline woken early")
		}
	}
}

// Cycle runs the three item stages once, then entity promotion, the theme
// cycle, and alert triage. Each step failing leaves the rest running.
func (p *Pipeline) Cycle(ctx context.Context) {
	n1, err := p.processCollected(ctx)
	if err != nil {
		p.logger.Error("Normalize stage failed", "error", err)
	}
	n2, err := p.processNormalized(ctx)
	if err != nil {
		p.logger.Error("Link stage failed", "error", err)
	}
	n3, err := p.processLinked(ctx)
	if err != nil {
		p.logger.Error("Extract stage failed", "error", err)
	}
	if n1+n2+n3 == 0 {
		p.logger.Info("Nothing to process, sleeping", "interval", Interval.String())
	}

	promoted, err := p.discoverer.Promote(ctx)
	if err != nil {
		p.logger.Error("Entity promotion failed", "error", err)
	} else if promoted > 0 {
		p.logger.Info("Promoted entities", "count", promoted)
	}

	if err := p.themes.RunCycle(ctx); err != nil {
		p.logger.Error("Theme cycle failed", "error", err)
	}
	if err := p.alerts.RunTriage(ctx); err != nil {
		p.logger.Error("Alert triage failed", "error", err)
	}
}

// processCollected moves COLLECTED items to NORMALIZED: detect language and
// translate to English when needed.
func (p *Pipeline) processCollected(ctx context.Context) (int, error) {
	batch, err := p.store.Items.ClaimBatch(ctx,
		models.PipelineStatusCollected, models.PipelineStatusNormalized, BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to claim collected items: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}
	p.logger.Info("Normalize stage picked up items", "count", len(batch))

	errored := p.runStage(ctx, "normalize", batch, p.normalizeOne)
	p.logger.Info("Normalize stage done", "ok", len(batch)-errored, "errors", errored)
	return len(batch), nil
}

// processNormalized moves NORMALIZED items to LINKED by matching the entity
// alias index against the English text.
func (p *Pipeline) processNormalized(ctx context.Context) (int, error) {
	batch, err := p.store.Items.ClaimBatch(ctx,
		models.PipelineStatusNormalized, models.PipelineStatusLinked, BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to claim normalized items: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}
	p.logger.Info("Link stage picked up items", "count", len(batch))

	errored := p.runStage(ctx, "link", batch, p.linkOne)
	p.logger.Info("Link stage done", "ok", len(batch)-errored, "errors", errored)
	return len(batch), nil
}

// processLinked moves LINKED items to EXTRACTED and runs LLM event
// extraction; the extractor advances each item to DONE itself.
func (p *Pipeline) processLinked(ctx context.Context) (int, error) {
	batch, err := p.store.Items.ClaimBatch(ctx,
		models.PipelineStatusLinked, models.PipelineStatusExtracted, BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to claim linked items: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}
	p.logger.Info("Extract stage picked up items", "count", len(batch))

	errored := p.runStage(ctx, "extract", batch, p.extractOne)
	p.logger.Info("Extract stage done", "ok", len(batch)-errored, "errors", errored)
	return len(batch), nil
}

// runStage records a pipeline_runs row around fanning the batch out to one
// goroutine per item, and returns how many items failed. LLM-bound work is
// already throttled by the client's concurrency limiter.
func (p *Pipeline) runStage(ctx context.Context, stage string, batch []store.ClaimedItem, fn func(context.Context, store.ClaimedItem) bool) int {
	runID, err := p.store.Runs.Start(ctx, stage, len(batch))
	if err != nil {
		p.logger.Warn("Failed to record pipeline run", "stage", stage, "error", err)
	}

	var wg sync.WaitGroup
	var errored atomic.Int64
	for _, item := range batch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !fn(ctx, item) {
				errored.Add(1)
			}
		}()
	}
	wg.Wait()

	n := int(errored.Load())
	if runID != 0 {
		if err := p.store.Runs.Finish(ctx, runID, n); err != nil {
			p.logger.Warn("Failed to finish pipeline run", "stage", stage, "run_id", runID, "error", err)
		}
	}
	return n
}

func (p *Pipeline) normalizeOne(ctx context.Context, item store.ClaimedItem) bool {
	res := p.normalizer.Normalize(ctx, item.RawText)
	if res.Language != "en" && item.RawText != "" {
		p.logger.Info("Translated item", "from", res.Language, "title", shortTitle(item.Title))
	}
	if err := p.store.Items.SetNormalized(ctx, item.ID, res.Language, res.TextEN, res.Confidence); err != nil {
		p.logger.Error("Failed to normalize item", "item_id", item.ID, "title", shortTitle(item.Title), "error", err)
		p.markError(ctx, item.ID, "normalize_error")
		return false
	}
	return true
}

func (p *Pipeline) linkOne(ctx context.Context, item store.ClaimedItem) bool {
	matches := p.linker.Match(item.Text())
	if len(matches) == 0 {
		return true
	}
	if err := p.store.Entities.StoreMentions(ctx, item.ID, matches, nil); err != nil {
		p.logger.Error("Failed to link item", "item_id", item.ID, "title", shortTitle(item.Title), "error", err)
		p.markError(ctx, item.ID, "link_error")
		return false
	}
	p.logger.Info("Linked entities",
		"count", len(matches),
		"entities", strings.Join(entityNames(matches, 5), ", "),
		"title", shortTitle(item.Title))
	return true
}

func (p *Pipeline) extractOne(ctx context.Context, item store.ClaimedItem) bool {
	count, err := p.extractor.ExtractAndStore(ctx, item.ID)
	if err != nil {
		p.logger.Error("Failed to extract events", "item_id", item.ID, "title", shortTitle(item.Title), "error", err)
		p.markError(ctx, item.ID, "extraction_error")
		return false
	}
	if count > 0 {
		p.logger.Info("Extracted events", "count", count, "title", shortTitle(item.Title))
	}
	return true
}

func (p *Pipeline) markError(ctx context.Context, id uuid.UUID, tag string) {
	if err := p.store.Items.MarkError(ctx, id, tag); err != nil {
		p.logger.Warn("Failed to mark item error", "item_id", id, "tag", tag, "error", err)
	}
}

// shortTitle keeps log lines readable for long headlines.
func shortTitle(title string) string {
	if title == "" {
		title = "untitled"
	}
	if r := []rune(title); len(r) > 60 {
		return string(r[:60])
	}
	return title
}

// entityNames renders the trailing segment of up to n entity ids, which is
// the human-readable part of ids like "company:tsmc".
func entityNames(matches []models.AliasMatch, n int) []string {
	if len(matches) < n {
		n = len(matches)
	}
	names := make([]string, 0, n)
	for _, m := range matches[:n] {
		id := m.EntityID
		if i := strings.LastIndex(id, ":"); i >= 0 {
			id = id[i+1:]
		}
		names = append(names, id)
	}
	return names
}
