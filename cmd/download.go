package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/desertthunder/spoti/internal/library"
	"github.com/desertthunder/spoti/internal/metrics"
	"github.com/desertthunder/spoti/internal/models"
	"github.com/desertthunder/spoti/internal/services"
	"github.com/desertthunder/spoti/internal/shared"
	"github.com/desertthunder/spoti/internal/tasks"
	"github.com/desertthunder/spoti/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// Download fetches a target from the catalog and runs it through the pipeline.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	return r.run(ctx, cmd.StringArg("target"), false, "")
}

// Sync is Download plus a metadata file, so the target can later be re-synced by name.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	return r.run(ctx, cmd.StringArg("target"), true, cmd.StringArg("file"))
}

// Meta prints the resolved catalog source as JSON.
func (r *Runner) Meta(ctx context.Context, cmd *cli.Command) error {
	arg := cmd.StringArg("target")
	if arg == "" {
		return fmt.Errorf("%w: a Spotify URL, URI or metadata file is required", shared.ErrMissingArgument)
	}
	target, _, err := tasks.ResolveTarget(arg, r.config.LibraryDir())
	if err != nil {
		return err
	}
	catalog, err := r.spotify(ctx)
	if err != nil {
		return err
	}
	src, err := tasks.Fetch(ctx, catalog, target, nil, r.logger)
	if err != nil {
		return err
	}
	return r.writeJSON(src, cmd.Bool("pretty"))
}

// pipelineOpts maps the configuration onto [tasks.PipelineOpts]. Services are filled in by the caller.
func (r *Runner) pipelineOpts() (tasks.PipelineOpts, error) {
	cfg := r.config
	opts := tasks.DefaultPipelineOpts()

	format, ok := models.ParseAudioFormat(cfg.Library.Format)
	if !ok || format.Working() {
		return opts, fmt.Errorf("%w: unsupported output format %q", shared.ErrInvalidConfig, cfg.Library.Format)
	}
	opts.Format = format
	if !r.tags.Writable(library.FileName("track", format)) {
		r.logger.Warn("output format cannot carry identity tags; existing files are matched by name and duration only", "format", format)
	}
	opts.Template = cfg.Library.Template
	opts.Concurrency = cfg.Pipeline.Concurrency
	opts.SearchAttempts = cfg.Pipeline.SearchAttempts
	opts.SearchDelay = cfg.Pipeline.SearchDelay.Duration
	opts.DownloadAttempts = cfg.Pipeline.DownloadAttempts
	opts.DownloadDelay = cfg.Pipeline.DownloadDelay.Duration
	opts.ConvertAttempts = cfg.Pipeline.ConvertAttempts
	opts.ConvertDelay = cfg.Pipeline.ConvertDelay.Duration
	if rps := cfg.Pipeline.RequestsPerSecond; rps > 0 {
		opts.Throttle = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return opts, nil
}

func (r *Runner) run(ctx context.Context, arg string, sync bool, file string) error {
	if arg == "" {
		return fmt.Errorf("%w: a Spotify URL, URI or metadata file is required", shared.ErrMissingArgument)
	}

	dir := r.config.LibraryDir()
	target, metaPath, err := tasks.ResolveTarget(arg, dir)
	if err != nil {
		return err
	}

	opts, err := r.pipelineOpts()
	if err != nil {
		return err
	}
	catalog, err := r.spotify(ctx)
	if err != nil {
		return err
	}
	transcoder, err := r.ffmpeg()
	if err != nil {
		return err
	}
	index, err := r.mount()
	if err != nil {
		return err
	}

	collector := metrics.New()
	opts.Provider = r.youtube()
	opts.Index = index
	opts.Transcoder = transcoder
	opts.Prober = r.prober
	opts.Cache = r.store()
	opts.Artwork = r.covers()
	opts.Metrics = collector
	opts.Inflight = r.inflight
	opts.Logger = shared.WithLogger(r.logger, "run", shared.GenerateID()[:8])

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	// Interrupting the run removes partial files right away.
	stop := context.AfterFunc(ctx, r.cleanup)
	defer stop()

	updates := make(chan tasks.ProgressUpdate, 64)
	shown := make(chan error, 1)
	go func() {
		shown <- r.display(fmt.Sprintf("spoti %s %s", target.Type, target.ID), updates, cancel)
	}()

	result, err := r.execute(ctx, catalog, target, opts, updates, sync, metaPath, file)
	close(updates)
	if uiErr := <-shown; uiErr != nil {
		r.logger.Warn("progress view failed", "err", uiErr)
	}

	stop()
	r.cleanup()
	if r.metricsFile != "" {
		if werr := collector.WriteTextfile(r.metricsFile); werr != nil {
			r.logger.Warn("failed to write metrics", "path", r.metricsFile, "err", werr)
		}
	}

	if err != nil {
		return err
	}
	r.report(result)
	return ctx.Err()
}

// execute fetches the tracks, records the metadata file when syncing, and runs the pipeline.
func (r *Runner) execute(ctx context.Context, catalog services.Catalog, target models.Target, opts tasks.PipelineOpts,
	updates chan<- tasks.ProgressUpdate, sync bool, metaPath, file string) (*tasks.Result, error) {
	src, err := tasks.Fetch(ctx, catalog, target, updates, r.logger)
	if err != nil {
		return nil, err
	}

	if sync {
		path := metaPath
		if file != "" || path == "" {
			name := file
			if name == "" {
				name = src.Name
			}
			path = filepath.Join(opts.Index.Dir(), tasks.MetadataFile(name))
		}
		if err := tasks.WriteTarget(path, target); err != nil {
			return nil, err
		}
		r.logger.Info("recorded sync target", "path", path)
	}

	return tasks.NewPipeline(opts).Run(ctx, src.Tracks, updates)
}

// display renders updates until the channel is closed.
func (r *Runner) display(title string, updates <-chan tasks.ProgressUpdate, cancel context.CancelFunc) error {
	if r.plain {
		ui.Print(r.output, updates)
		return nil
	}
	return ui.Run(ui.NewProgressModel(title, updates, cancel))
}

// cleanup removes partial working files left by an interrupted run.
func (r *Runner) cleanup() {
	removed, err := r.inflight.Cleanup()
	for _, p := range removed {
		r.logger.Info("removed partial download", "file", library.Clean(p))
	}
	if err != nil {
		r.logger.Warn("failed to remove partial downloads", "err", err)
	}
}

func (r *Runner) report(result *tasks.Result) {
	r.writePlainln("%d passed, %d failed", len(result.Passed), len(result.Failed))
	if !r.verbose {
		return
	}
	for _, f := range result.Failed {
		r.writePlain("  ✗ %s\n", f.Error())
	}
}
