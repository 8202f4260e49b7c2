package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/herasat/internal/app"
	"github.com/frahmantamala/herasat/internal/user"
	"github.com/spf13/cobra"
)

var (
	newUser  user.CreateUserDTO
	newAdmin bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a user account",
	RunE: func(cmd *cobra.Command, args []string) error {
		dto := newUser
		dto.Roles = []string{user.RoleUser}
		if newAdmin {
			dto.Roles = []string{user.RoleAdmin}
		}
		return withApp(func(ctx context.Context, a *app.App) error {
			id, err := a.Users.Create(ctx, dto, "")
			if err != nil {
				return err
			}
			fmt.Printf("Created user %s (%s)\n", dto.Username, id)
			return nil
		})
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List user accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			users, err := a.Users.List(ctx)
			if err != nil {
				return err
			}
			for _, u := range users {
				fmt.Printf("%s\t%s\t%v\tmust_change_password=%t\n", u.ID, u.Username, u.Roles, u.MustChangePassword)
			}
			return nil
		})
	},
}

func init() {
	userAddCmd.Flags().StringVar(&newUser.Username, "username", "", "login name")
	userAddCmd.Flags().StringVar(&newUser.Password, "password", "", "initial password")
	userAddCmd.Flags().StringVar(&newUser.FullName, "full-name", "", "display name")
	userAddCmd.Flags().BoolVar(&newUser.MustChangePassword, "must-change-password", true, "force a password change at first login")
	userAddCmd.Flags().BoolVar(&newAdmin, "admin", false, "grant the admin role")
	_ = userAddCmd.MarkFlagRequired("username")
	_ = userAddCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
}
