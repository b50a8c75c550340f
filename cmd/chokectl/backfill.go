package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/constraint-watch/chokepoint/pkg/linker"
	"github.com/constraint-watch/chokepoint/pkg/models"
	"github.com/spf13/cobra"
)

var (
	backfillTarget string
	backfillSource string
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Reset finished items to a target status for reprocessing",
	Long: `Reset items in DONE, EXTRACTED, or ERROR back to a target pipeline status.

Run this after changing prompts or extraction logic: the pipeline loop picks
the reset items up again on its next sweep.`,
	RunE: runBackfill,
}

var backfillEntitiesCmd = &cobra.Command{
	Use:   "backfill-entities",
	Short: "Register entity ids referenced by events but missing from the catalog",
	Long: `Scan every stored event and register referenced entity ids that have no
entities row, as DISCOVERED entities with a readable name derived from the id.`,
	RunE: runBackfillEntities,
}

func init() {
	backfillCmd.Flags().StringVar(&backfillTarget, "target", string(models.PipelineStatusCollected),
		"Pipeline status to reset items to")
	backfillCmd.Flags().StringVar(&backfillSource, "source", "", "Only reset items from this source_id")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	target := models.PipelineStatus(strings.ToUpper(backfillTarget))
	if !target.IsValid() {
		return fmt.Errorf("invalid target status %q", backfillTarget)
	}

	ctx := cmd.Context()
	st, db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	count, err := st.Items.ResetForReprocessing(ctx, target, backfillSource)
	if err != nil {
		return err
	}
	cmd.Printf("Reset %d items to %s\n", count, target)
	return nil
}

func runBackfillEntities(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	lk := linker.New(st.Entities)
	if err := lk.Load(ctx); err != nil {
		return fmt.Errorf("failed to load entity alias index: %w", err)
	}

	created, existing, err := linker.NewDiscoverer(st.Entities, st.Events, lk).ReconcileEventEntities(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Done. %d new entities created, %d already existed.\n", created, existing)
	cmd.Printf("Total unique entity IDs in events: %d\n", created+existing)

	byStatus, err := st.Entities.CountByStatus(ctx)
	if err != nil {
		return err
	}
	for _, status := range slices.Sorted(maps.Keys(byStatus)) {
		cmd.Printf("  %s: %d\n", status, byStatus[status])
	}
	return nil
}
