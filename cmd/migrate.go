package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/herasat/internal/app"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	RunE:  runMigration,
	Use:   "migrate",
	Short: "bring the slot's database up to the current schema",
	Long: `Loads the configured slot (creating and seeding it when empty), applies
any pending embedded migrations and writes the result back.`,
}

func runMigration(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		if err := a.Persistence.Persist(ctx); err != nil {
			return err
		}
		stats := a.Persistence.Stats()
		fmt.Printf("schema up to date (loaded from slot: %t, snapshot bytes: %d)\n", stats.LoadedFromSlot, stats.LastBytes)
		return nil
	})
}
