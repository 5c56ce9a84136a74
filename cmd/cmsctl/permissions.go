package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"orgcms.dev/cms/pkg/access"
)

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "Inspect and reset per-user permission overrides",
}

var permissionsShowCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "List a user's override rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		user, err := svc.users.GetUser(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		rows, err := svc.perms.Fetch(cmd.Context(), user.ID)
		if err != nil {
			return fmt.Errorf("fetch permissions: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%s) role=%s status=%s\n", user.ID, user.Username, user.Role, user.Status)
		if len(rows) == 0 {
			fmt.Fprintln(out, "no overrides; role defaults apply")
			return nil
		}
		return writeOverrides(out, rows)
	},
}

var permissionsResetCmd = &cobra.Command{
	Use:   "reset <user-id>",
	Short: "Replace a user's overrides with their role defaults",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		n, err := svc.perms.ResetToRoleDefault(cmd.Context(), cliActor(), args[0])
		if err != nil {
			return fmt.Errorf("reset permissions: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reset %s: %d rows\n", args[0], n)
		return nil
	},
}

func init() {
	permissionsCmd.AddCommand(permissionsShowCmd, permissionsResetCmd)
}

func writeOverrides(w io.Writer, rows []access.Override) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTION\tSUB-SECTION\tVIEW\tCREATE\tEDIT\tDELETE\tPUBLISH")
	for _, r := range rows {
		sub := r.SubSectionKey()
		if sub == "" {
			sub = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", r.Section, sub,
			mark(r.CanView), mark(r.CanCreate), mark(r.CanEdit), mark(r.CanDelete), mark(r.CanPublish))
	}
	return tw.Flush()
}

func mark(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}
