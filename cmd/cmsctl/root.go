package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"orgcms.dev/cms/internal/audit"
	"orgcms.dev/cms/internal/auth"
	"orgcms.dev/cms/internal/config"
	"orgcms.dev/cms/internal/obs"
	"orgcms.dev/cms/internal/store/pg"
	"orgcms.dev/cms/pkg/access"
)

var actorID string

var rootCmd = &cobra.Command{
	Use:           "cmsctl",
	Short:         "Administer CMS users and permissions",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := config.LoadDotEnv(); err != nil {
			obs.Logger().WithError(err).Warn("error loading .env file, skipping")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&actorID, "actor", "", "user id recorded as the actor in audit entries")
	rootCmd.AddCommand(userCmd, permissionsCmd, whoamiCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cmsctl:", err)
		os.Exit(1)
	}
}

// services are the database-backed operations the admin commands need.
type services struct {
	store *pg.Store
	users *auth.UserService
	perms *auth.PermissionService
}

func (s *services) Close() error { return s.store.Close() }

func openServices(ctx context.Context) (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("missing DSN: set CMS_PG_DSN")
	}
	store, err := pg.Open(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	recorder := audit.NewRecorder(store)
	users, err := auth.NewUserService(store, nil, recorder)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	var opts []auth.PermissionOption
	if cfg.StrictAudit {
		opts = append(opts, auth.WithStrictAudit())
	}
	perms, err := auth.NewPermissionService(store, store, recorder, opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &services{store: store, users: users, perms: perms}, nil
}

// cliActor is the identity attributed to changes made from the CLI, which
// runs with direct database access.
func cliActor() access.Identity {
	return access.Identity{ID: actorID, Username: "cmsctl", Role: access.RoleSuperAdmin, Status: access.StatusApproved}
}
