package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/tingyu91/snsjf/internal/app"
	"github.com/tingyu91/snsjf/internal/cli"
	"github.com/tingyu91/snsjf/internal/config"
	"github.com/tingyu91/snsjf/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// the CLI never touches sessions
	cfg.Session.Driver = "memory"

	slog.SetDefault(observability.NewLogger(cfg.Env))

	if err := cli.NewRootCmd(cfg, openStores).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var openStores cli.Opener = func(ctx context.Context, cfg config.Config) (app.Stores, error) {
	return app.OpenStores(ctx, cfg, nil)
}
