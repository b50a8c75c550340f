package main

import (
	"github.com/constraint-watch/chokepoint/pkg/seed"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load seed_sources.yml and seed_entities.yml into the database",
	Long: `Load the seed catalogs from the configuration directory.

Existing rows are left untouched, so seeding is safe to repeat after adding
new sources or entities to the YAML files.`,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	sources, entities, err := seed.New(st).Run(ctx, configDir)
	if err != nil {
		return err
	}

	cmd.Printf("Seeded %d new sources and %d new entities\n", sources, entities)
	return nil
}
