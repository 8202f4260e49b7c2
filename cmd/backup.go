package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/herasat/internal/app"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	backupOut string
	restoreIn string
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write the whole database to a SQLite file",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := backupOut
		if out == "" {
			out = fmt.Sprintf("herasat-backup-%s.sqlite", time.Now().UTC().Format("20060102-150405"))
		}
		return withApp(func(ctx context.Context, a *app.App) error {
			b, err := a.Persistence.ExportToFile(ctx)
			if err != nil {
				return err
			}
			if err := afero.WriteFile(afero.NewOsFs(), out, b, 0o600); err != nil {
				return fmt.Errorf("failed to write backup: %w", err)
			}
			fmt.Printf("Backup written to %s (%d bytes)\n", out, len(b))
			return nil
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace the database with a SQLite backup file",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := afero.ReadFile(afero.NewOsFs(), restoreIn)
		if err != nil {
			return fmt.Errorf("failed to read backup: %w", err)
		}
		return withApp(func(ctx context.Context, a *app.App) error {
			if err := a.Persistence.ImportFromFile(ctx, b); err != nil {
				return err
			}
			fmt.Printf("Restored %d bytes from %s\n", len(b), restoreIn)
			return nil
		})
	},
}

func init() {
	backupCmd.Flags().StringVarP(&backupOut, "out", "o", "", "backup file to write")
	restoreCmd.Flags().StringVarP(&restoreIn, "in", "i", "", "backup file to restore")
	_ = restoreCmd.MarkFlagRequired("in")
}
