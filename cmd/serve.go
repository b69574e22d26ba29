package main

import (
	"context"

	"github.com/desertthunder/playcache/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve exposes the sync feed over HTTP until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}

	engine, release := r.newEngine(config)
	defer release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := server.NewFeed(ctx, server.FeedOpts{
		Engine:      engine,
		ManifestURL: config.Sync.ManifestURL,
		CacheDir:    config.Sync.CacheDir,
		Interval:    config.Slideshow.Interval,
		Logger:      r.logger,
	})
	if !cmd.Bool("no-sync") {
		if err := feed.Start(); err != nil {
			return err
		}
	}

	addr := config.Server.Addr()
	if v := cmd.String("addr"); v != "" {
		addr = v
	}

	err = server.Serve(ctx, addr, server.NewRouter(feed, r.logger), r.logger)
	cancel()
	feed.Wait()
	return err
}
