// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// downloadCommand downloads a track, album or playlist into the library
func downloadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "download",
		Aliases:   []string{"dl"},
		Usage:     "Download a Spotify track, album or playlist into the library",
		ArgsUsage: "<url|uri|metadata file>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "target"},
		},
		Action: r.Download,
	}
}

// syncCommand downloads a target and records it in a metadata file
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Download a target and remember it in a .spoti metadata file",
		ArgsUsage: "<url|uri|metadata file> [file]",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "target"},
			&cli.StringArg{Name: "file"},
		},
		Action: r.Sync,
	}
}

// libraryCommand lists the files in the library
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "library",
		Aliases:   []string{"ls"},
		Usage:     "List library files, optionally exporting the listing",
		ArgsUsage: "[output file]",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "file"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "more",
				Aliases: []string{"m"},
				Usage:   "Include identity, duration and tags (reads every file)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Report format: csv, markdown or txt",
			},
		},
		Action: r.Library,
	}
}

// infoCommand shows or refreshes the tags of library files
func infoCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Show embedded tags of library files",
		ArgsUsage: "[file]",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "file"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "update",
				Usage: "Rewrite tags from the Spotify catalog",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Info,
	}
}

// sanitizeCommand renames library files to safe names
func sanitizeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "sanitize",
		Usage:     "Rename library files to their sanitized names",
		ArgsUsage: "[file]",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "file"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Only print what would be renamed",
			},
		},
		Action: r.Sanitize,
	}
}

// metaCommand prints catalog metadata
func metaCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "meta",
		Usage:     "Print catalog metadata for a target as JSON",
		ArgsUsage: "<url|uri|metadata file>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "target"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Meta,
	}
}

// setupCommand creates the config file and library directories
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create a config file and the library and cache directories",
		Action: r.Setup,
	}
}
