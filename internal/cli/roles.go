package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tingyu91/snsjf/internal/app"
	"github.com/tingyu91/snsjf/internal/domain/role"
)

func (e *env) rolesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Manage roles and their permissions",
		Long: `Manage roles, the permissions they grant and the users they list.

Examples:
  admin roles list
  admin roles create editors --perm 2 --perm 3
  admin roles connect <role-id> 4
  admin roles add-user <role-id> <user-id>`,
	}

	cmd.AddCommand(
		e.rolesListCmd(),
		e.rolesCreateCmd(),
		e.rolesDeleteCmd(),
		e.rolePermissionCmd("connect", "Grant a permission to a role", func(ctx context.Context, s app.RoleStore, id string, perm int64) (role.Role, error) {
			return s.ConnectPermission(ctx, id, perm)
		}),
		e.rolePermissionCmd("disconnect", "Remove every grant of a permission from a role", func(ctx context.Context, s app.RoleStore, id string, perm int64) (role.Role, error) {
			return s.DisconnectPermission(ctx, id, perm)
		}),
		e.roleUserCmd("add-user", "List a user on a role", func(ctx context.Context, s app.RoleStore, roleID, userID string) (role.Role, error) {
			return s.AddUser(ctx, userID, roleID)
		}),
		e.roleUserCmd("remove-user", "Drop a user from a role", func(ctx context.Context, s app.RoleStore, roleID, userID string) (role.Role, error) {
			return s.RemoveUser(ctx, userID, roleID)
		}),
	)

	return cmd
}

func (e *env) rolesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show all roles, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withStores(cmd, func(ctx context.Context, stores app.Stores) error {
				roles, err := stores.Roles.GetAll(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), roles)
			})
		},
	}
}

func (e *env) rolesCreateCmd() *cobra.Command {
	var perms []int64

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withStores(cmd, func(ctx context.Context, stores app.Stores) error {
				r, err := stores.Roles.Create(ctx, role.CreateRoleRequest{Name: args[0], Permissions: perms})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), r)
			})
		},
	}

	cmd.Flags().Int64SliceVar(&perms, "perm", nil, "permission id to grant (repeatable)")
	return cmd
}

func (e *env) rolesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <role-id>",
		Short: "Delete a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withStores(cmd, func(ctx context.Context, stores app.Stores) error {
				r, err := stores.Roles.Delete(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted role %s (%s)\n", r.Name, r.ID)
				return nil
			})
		},
	}
}

func (e *env) rolePermissionCmd(use, short string, fn func(context.Context, app.RoleStore, string, int64) (role.Role, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <role-id> <permission-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			perm, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || perm < 0 {
				return fmt.Errorf("invalid permission id %q", args[1])
			}

			return e.withStores(cmd, func(ctx context.Context, stores app.Stores) error {
				r, err := fn(ctx, stores.Roles, args[0], perm)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), r)
			})
		},
	}
}

func (e *env) roleUserCmd(use, short string, fn func(context.Context, app.RoleStore, string, string) (role.Role, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <role-id> <user-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withStores(cmd, func(ctx context.Context, stores app.Stores) error {
				r, err := fn(ctx, stores.Roles, args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), r)
			})
		},
	}
}
