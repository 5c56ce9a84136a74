package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"orgcms.dev/cms/pkg/access"
	"orgcms.dev/cms/pkg/client"
)

var (
	apiURL        string
	loginName     string
	loginPassword string
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Log in through the API and print the sections you can use",
	Long: "Log in through the API and print the sections you can use.\n" +
		"The table comes from the cached snapshot and is advisory: the server decides every request.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := loginPassword
		if password == "" {
			password = os.Getenv("CMS_PASSWORD")
		}
		c, err := client.New(apiURL)
		if err != nil {
			return err
		}
		session := client.NewSession(c)
		res, err := session.Login(cmd.Context(), loginName, password)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		defer session.Logout()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%s) role=%s status=%s\n", res.User.Username, res.User.ID, res.User.Role, res.User.Status)
		return writeGates(out, session)
	},
}

func init() {
	f := whoamiCmd.Flags()
	f.StringVar(&apiURL, "api", envOr("CMS_API_URL", "http://localhost:8080"), "API base URL")
	f.StringVar(&loginName, "login", "", "username or email")
	f.StringVar(&loginPassword, "password", "", "password (defaults to CMS_PASSWORD)")
	_ = whoamiCmd.MarkFlagRequired("login")
}

func writeGates(w io.Writer, s *client.Session) error {
	snap, ok := s.Snapshot()
	if !ok {
		return fmt.Errorf("no permission snapshot loaded")
	}
	source := "overrides"
	if snap.RoleBased {
		source = "role defaults"
	}
	fmt.Fprintf(w, "permissions from %s\n", source)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "SECTION\tSUB-SECTION")
	for _, a := range access.Actions {
		fmt.Fprintf(tw, "\t%s", a)
	}
	fmt.Fprintln(tw)
	for _, p := range access.CatalogPairs() {
		sub := p.SubSection
		if sub == "" {
			sub = "*"
		}
		fmt.Fprintf(tw, "%s\t%s", p.Section, sub)
		for _, a := range access.Actions {
			fmt.Fprintf(tw, "\t%s", mark(s.IsAllowed(p.Section, p.SubSection, a)))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
