// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// syncFlags override the [sync] section of the config file.
func syncFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "manifest",
			Aliases: []string{"m"},
			Usage:   "Playlist manifest URL",
		},
		&cli.StringFlag{
			Name:  "cache-dir",
			Usage: "Directory holding cached media",
		},
		&cli.StringFlag{
			Name:  "strategy",
			Usage: "Acquisition strategy (stream or poll)",
		},
	}
}

// syncCommand handles sync passes
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Synchronize the local cache with the playlist",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run one sync pass and print its progress",
				Flags: append(syncFlags(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print each state as a line of JSON",
					},
				),
				Action: r.SyncRun,
			},
			{
				Name:  "status",
				Usage: "Compare the playlist with the cache without downloading",
				Flags: append(syncFlags(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
					&cli.StringFlag{
						Name:  "match",
						Usage: "Only report items whose cache key fuzzily matches",
					},
				),
				Action: r.SyncStatus,
			},
		},
	}
}

// uiCommand returns the top-level TUI command.
func uiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "ui",
		Aliases: []string{"tui", "interactive"},
		Usage:   "Sync, then show the cached media as a slideshow",
		Flags: append(syncFlags(),
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI owns the terminal",
				Value: "./tmp/playcache-tui.log",
			},
		),
		Action: r.TUI,
	}
}

// serveCommand runs the HTTP feed.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve sync state and the slideshow over HTTP",
		Flags: append(syncFlags(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to [server] host:port)",
			},
			&cli.BoolFlag{
				Name:  "no-sync",
				Usage: "Do not start a pass at startup",
			},
		),
		Action: r.Serve,
	}
}

// historyCommand lists recorded passes.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded sync passes",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of passes to show",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only show passes with this status (running, succeeded, failed, cancelled)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (text, json, csv)",
				Value:   "text",
			},
		},
		Action: r.History,
	}
}

// setupCommand handles setup operations for database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a config file from the built-in template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Destination path (defaults to --config)",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}
