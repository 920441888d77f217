// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/marquee/internal/formatter"
	"github.com/desertthunder/marquee/internal/tasks"
)

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

func itemFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "id",
			Usage:    "TMDB id of the title",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "type",
			Aliases: []string{"t"},
			Usage:   "Media type (movie or tv)",
			Value:   "movie",
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write the example configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "Show applied and pending migrations",
				Flags:  jsonFlags(),
				Action: r.SetupStatus,
			},
		},
	}
}

// listsCommand handles the user's named collections
func listsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "lists",
		Aliases: []string{"list"},
		Usage:   "My List, Liked and Trailers Watched",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show cached collections",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "collection"},
				},
				Flags:  jsonFlags(),
				Action: r.ListsShow,
			},
			{
				Name:   "sync",
				Usage:  "Fetch every collection from the backend",
				Flags:  jsonFlags(),
				Action: r.ListsSync,
			},
			{
				Name:  "toggle",
				Usage: "Add a title to a collection, or remove it when present",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "collection"},
				},
				Flags:  itemFlags(),
				Action: r.ListsToggle,
			},
			{
				Name:  "hydrate",
				Usage: "Fill missing posters and overviews from the catalog",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "collection"},
				},
				Action: r.ListsHydrate,
			},
		},
	}
}

// browseCommand handles the landing page rows and hero
func browseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "Landing rows and featured title",
		Commands: []*cli.Command{
			{
				Name:  "rows",
				Usage: "Compose the landing rows",
				Flags: append(jsonFlags(),
					&cli.StringFlag{
						Name:  "region",
						Usage: "Region for the top 10 rows (defaults to catalog.region)",
					},
					&cli.IntFlag{
						Name:  "categories",
						Usage: "Number of custom category rows (defaults to rows.categories)",
						Value: -1,
					},
				),
				Action: r.BrowseRows,
			},
			{
				Name:  "hero",
				Usage: "Pick the featured title",
				Flags: append(jsonFlags(),
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "Media type (movie, tv or all)",
						Value:   "all",
					},
				),
				Action: r.BrowseHero,
			},
			{
				Name:  "upcoming",
				Usage: "List titles that have not been released yet",
				Flags: append(jsonFlags(),
					&cli.StringFlag{
						Name:  "region",
						Usage: "Release region (defaults to catalog.region)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of titles",
						Value: tasks.ComingSoonLimit,
					},
					&cli.IntFlag{
						Name:  "remind",
						Usage: "Set a reminder for the title at this position",
					},
				),
				Action: r.BrowseUpcoming,
			},
			{
				Name:      "person",
				Usage:     "List the titles a cast member appeared in",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     jsonFlags(),
				Action:    r.BrowsePerson,
			},
		},
	}
}

// searchCommand runs a catalog search
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search movies and TV shows",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags:  jsonFlags(),
		Action: r.Search,
	}
}

// detailCommand shows the full view of one title
func detailCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "detail",
		Aliases: []string{"info"},
		Usage:   "Show details, cast and trailer of a title",
		Flags: append(itemFlags(),
			&cli.BoolFlag{
				Name:  "preview",
				Usage: "Show the short hover preview instead",
			},
			&cli.BoolFlag{
				Name:  "cast",
				Usage: "List the cast with person ids",
			},
			&cli.IntFlag{
				Name:  "season",
				Usage: "List the episodes of this season (tv only)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		),
		Action: r.Detail,
	}
}

// playCommand opens the player
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Open a title in the player",
		Flags: append(itemFlags(),
			&cli.IntFlag{
				Name:  "season",
				Usage: "Season number (tv only)",
			},
			&cli.IntFlag{
				Name:  "episode",
				Usage: "Episode number (tv only)",
			},
			&cli.BoolFlag{
				Name:  "print",
				Usage: "Print the URL instead of opening it",
			},
		),
		Action: r.Play,
	}
}

// notificationsCommand handles the notification feed
func notificationsCommand(r *Runner) *cli.Command {
	idArg := []cli.Argument{&cli.StringArg{Name: "id"}}

	return &cli.Command{
		Name:    "notifications",
		Aliases: []string{"notes"},
		Usage:   "Notification feed",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "Show the feed",
				Flags:  jsonFlags(),
				Action: r.NotificationsList,
			},
			{
				Name:      "read",
				Usage:     "Mark a notification read",
				Arguments: idArg,
				Action:    r.NotificationsRead,
			},
			{
				Name:      "delete",
				Usage:     "Delete a notification",
				Arguments: idArg,
				Action:    r.NotificationsDelete,
			},
			{
				Name:   "read-all",
				Usage:  "Mark every notification read",
				Action: r.NotificationsReadAll,
			},
			{
				Name:   "fetch",
				Usage:  "Ask the backend to generate release notifications",
				Action: r.NotificationsFetch,
			},
		},
	}
}

// remindCommand registers a release reminder
func remindCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "remind",
		Usage:  "Get a notification when a title is released",
		Flags:  itemFlags(),
		Action: r.Remind,
	}
}

// exportCommand writes collections to disk
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export collections to files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format (json, csv, markdown, txt)",
				Value:   formatter.FormatJSON,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: marquee_export_{timestamp})",
			},
			&cli.StringSliceFlag{
				Name:  "only",
				Usage: "Collections to export (my-list, likes, trailers-watched)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent collection writers",
				Value: 3,
			},
			&cli.BoolFlag{
				Name:  "hydrate",
				Usage: "Fill thin records from the catalog before writing",
			},
			&cli.BoolFlag{
				Name:  "sync",
				Usage: "Fetch collections from the backend first",
			},
		},
		Action: r.Export,
	}
}

// cacheCommand inspects the durable session cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and clear the local session cache",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show cached entries for the current user",
				Flags:  jsonFlags(),
				Action: r.CacheStatus,
			},
			{
				Name:   "clear",
				Usage:  "Remove every cached entry for the current user",
				Action: r.CacheClear,
			},
		},
	}
}

// serveCommand runs the reference backend
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the reference list and notification backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (defaults to server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (defaults to server.port)",
			},
			&cli.DurationFlag{
				Name:  "notify-interval",
				Usage: "Release notification job interval, 0 to disable (defaults to server.notify_interval)",
				Value: -1,
			},
		},
		Action: r.Serve,
	}
}

// apiCommand handles direct backend API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the backend API",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
			{
				Name:  "delete",
				Usage: "Direct DELETE with optional JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "JSON body to send",
					},
				},
				Action: r.APIDelete,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive browsing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive browser",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the browser runs",
				Value: "./tmp/marquee-tui.log",
			},
		},
		Action: r.TUI,
	}
}
