package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/spoti/internal/shared"
	"github.com/urfave/cli/v3"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{})

	if err := runner.app().Run(ctx, os.Args); err != nil {
		if errors.Is(err, context.Canceled) {
			runner.logger.Warn("interrupted")
			os.Exit(130)
		}
		if errors.Is(err, shared.ErrNotImplemented) {
			runner.logger.Warn("not implemented")
			os.Exit(0)
		}
		runner.logger.Fatalf("application error: %v", err)
	}
}

// app builds the root command with the global flags shared by every subcommand.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "spoti",
		Usage:   "Download Spotify tracks, albums and playlists into a local audio library",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Library directory (overrides library.dir)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging and print failure details",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Ignore and do not update the search cache",
			},
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "Print progress as plain lines instead of the interactive view",
			},
			&cli.StringFlag{
				Name:  "metrics-file",
				Usage: "Write Prometheus metrics to this file after a run",
			},
		},
		Before:   r.before,
		Commands: r.register(),
	}
}
