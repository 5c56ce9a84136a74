package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"orgcms.dev/cms/internal/auth"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var newUser auth.NewUser

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	Long:  "Create an account. The password may be given with --password or CMS_NEW_USER_PASSWORD.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := newUser
		if in.Password == "" {
			in.Password = os.Getenv("CMS_NEW_USER_PASSWORD")
		}
		svc, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		user, err := svc.users.CreateUser(cmd.Context(), cliActor(), in)
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) role=%s status=%s\n", user.ID, user.Username, user.Role, user.Status)
		return nil
	},
}

var userSetStatusCmd = &cobra.Command{
	Use:   "set-status <user-id> <pending|approved|rejected|suspended>",
	Short: "Change an account's approval status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		user, err := svc.users.SetStatus(cmd.Context(), cliActor(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("set status: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.ID, user.Status)
		return nil
	},
}

func init() {
	f := userCreateCmd.Flags()
	f.StringVar(&newUser.Username, "username", "", "login name")
	f.StringVar(&newUser.Email, "email", "", "email address")
	f.StringVar(&newUser.Password, "password", "", "initial password")
	f.StringVar(&newUser.Role, "role", "viewer", "viewer, editor, admin or super_admin")
	f.StringVar(&newUser.Status, "status", "pending", "initial approval status")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("email")

	userCmd.AddCommand(userCreateCmd, userSetStatusCmd)
}
