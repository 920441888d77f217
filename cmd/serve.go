package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/marquee/internal/server"
)

// Serve runs the reference backend until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := int(cmd.Int("port")); port > 0 {
		cfg.Port = port
	}
	if interval := cmd.Duration("notify-interval"); interval >= 0 {
		cfg.NotifyInterval = interval
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, db, r.catalog, r.config.Catalog.Region, r.logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.writePlain("Serving on http://%s\n", cfg.Addr())
	return srv.ListenAndServe(ctx)
}
