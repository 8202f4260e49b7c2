package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/herasat/internal/app"
	"github.com/frahmantamala/herasat/internal/audit"
	"github.com/spf13/cobra"
)

var auditLimit int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the newest audit entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			entries, err := a.Audit.List(ctx, auditLimit)
			if err != nil {
				return err
			}
			printAudit(entries)
			return nil
		})
	},
}

var auditEntityCmd = &cobra.Command{
	Use:   "entity [entity-type] [entity-id]",
	Short: "Show the history of one record, oldest first",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			entries, err := a.Audit.ListByEntity(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			printAudit(entries)
			return nil
		})
	},
}

func printAudit(entries []*audit.Entry) {
	for _, e := range entries {
		fmt.Printf("%d\t%s\t%s\t%s/%s\t%s\t%s\n",
			e.Seq, e.Timestamp.Format(time.RFC3339), e.Action, e.EntityType, e.EntityID, e.UserID, e.Details)
	}
}

func init() {
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 50, "number of entries to show")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditEntityCmd)
}
