package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/herasat/internal/app"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count people by type and cases by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			s, err := a.Summary(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("students:   %d\n", s.Students)
			fmt.Printf("staff:      %d\n", s.Staff)
			fmt.Printf("faculty:    %d\n", s.Faculty)
			fmt.Printf("cases:      %d\n", s.Cases)
			fmt.Printf("open cases: %d\n", s.OpenCases)
			return nil
		})
	},
}
