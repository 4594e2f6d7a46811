// Package cli is the operator command line: role administration, admin
// seeding and migrations against the configured store.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/tingyu91/snsjf/internal/app"
	"github.com/tingyu91/snsjf/internal/config"
)

const commandTimeout = 30 * time.Second

// Opener connects the stores a command runs against.
type Opener func(ctx context.Context, cfg config.Config) (app.Stores, error)

type env struct {
	cfg  config.Config
	open Opener
}

func NewRootCmd(cfg config.Config, open Opener) *cobra.Command {
	e := &env{cfg: cfg, open: open}

	root := &cobra.Command{
		Use:           "admin",
		Short:         "Administer users and roles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(e.rolesCmd(), e.seedAdminCmd(), e.migrateCmd())
	return root
}

// withStores opens the stores for the lifetime of one command.
func (e *env) withStores(cmd *cobra.Command, fn func(ctx context.Context, stores app.Stores) error) error {
	ctx, cancel := config.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	stores, err := e.open(ctx, e.cfg)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer stores.Close()

	return fn(ctx, stores)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
