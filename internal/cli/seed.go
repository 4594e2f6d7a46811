package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tingyu91/snsjf/internal/app"
	"github.com/tingyu91/snsjf/internal/db"
)

func (e *env) seedAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the configured admin user and grant it role administration",
		Long: `Create ADMIN_USERNAME with ADMIN_PASSWORD if it does not exist, then make
sure the ADMIN_ROLE_NAME role grants PERM_ROLES_ADMIN and lists the admin.
Running it again changes nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.cfg.Admin.Password == "" {
				return errors.New("ADMIN_PASSWORD is not set")
			}

			return e.withStores(cmd, func(ctx context.Context, stores app.Stores) error {
				u, err := db.EnsureAdmin(ctx, stores.Users, stores.Roles, e.cfg.Admin, e.cfg.AppName, e.cfg.RolesAdminPermission)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s ready (%s)\n", u.Username, u.ID)
				return nil
			})
		},
	}
}

func (e *env) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.cfg.StoreDriver != "postgres" {
				return fmt.Errorf("migrate needs STORE_DRIVER=postgres, got %q", e.cfg.StoreDriver)
			}

			if err := db.Migrate(cmd.Context(), e.cfg.DBURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
