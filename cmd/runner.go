package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spoti/internal/artwork"
	"github.com/desertthunder/spoti/internal/cache"
	"github.com/desertthunder/spoti/internal/library"
	"github.com/desertthunder/spoti/internal/media"
	"github.com/desertthunder/spoti/internal/services"
	"github.com/desertthunder/spoti/internal/shared"
	"github.com/desertthunder/spoti/internal/tags"
	"github.com/desertthunder/spoti/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services are created on first use so commands that only touch the library never need credentials.
type Runner struct {
	configPath string
	config     *shared.Config
	catalog    services.Catalog
	provider   services.Provider
	transcoder media.Transcoder
	prober     media.Prober
	artwork    tasks.ArtworkFetcher
	cache      cache.Store
	tags       *tags.Registry
	inflight   *tasks.Inflight
	logger     *log.Logger
	output     io.Writer

	plain       bool
	verbose     bool
	metricsFile string
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	ConfigPath string
	Config     *shared.Config
	Catalog    services.Catalog
	Provider   services.Provider
	Transcoder media.Transcoder
	Prober     media.Prober
	Artwork    tasks.ArtworkFetcher
	Cache      cache.Store
	Logger     *log.Logger
	Output     io.Writer
	Plain      bool
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		configPath: opts.ConfigPath,
		config:     opts.Config,
		catalog:    opts.Catalog,
		provider:   opts.Provider,
		transcoder: opts.Transcoder,
		prober:     opts.Prober,
		artwork:    opts.Artwork,
		cache:      opts.Cache,
		tags:       tags.NewRegistry(),
		inflight:   &tasks.Inflight{},
		logger:     opts.Logger,
		output:     opts.Output,
		plain:      opts.Plain,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		downloadCommand, syncCommand, libraryCommand, infoCommand, sanitizeCommand, metaCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before applies the global flags: config file, library directory, verbosity, cache and output mode.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	// setup creates the file, so it may not exist yet
	required := cmd.IsSet("config") && cmd.Args().First() != "setup"
	if err := r.loadConfig(required); err != nil {
		return ctx, err
	}

	if dir := cmd.String("dir"); dir != "" {
		r.config.Library.Dir = dir
	}
	if cmd.Bool("no-cache") {
		r.cache = cache.Nop{}
	}
	if cmd.Bool("plain") {
		r.plain = true
	}
	r.metricsFile = r.config.Metrics.Textfile
	if path := cmd.String("metrics-file"); path != "" {
		r.metricsFile = path
	}

	r.verbose = cmd.Bool("verbose")
	if r.verbose {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	} else {
		shared.SetLogLevel(r.logger, shared.ParseLogLevel(r.config.Log.Level))
	}
	return ctx, nil
}

// loadConfig reads r.configPath. A missing file keeps the current config unless the path was given explicitly.
func (r *Runner) loadConfig(required bool) error {
	if r.configPath == "" {
		return nil
	}
	config, err := shared.LoadConfig(r.configPath)
	switch {
	case err == nil:
		r.config = config
		r.logger.Debug("loaded config", "path", r.configPath)
		return nil
	case errors.Is(err, fs.ErrNotExist) && !required:
		return nil
	default:
		return err
	}
}

func (r *Runner) spotify(ctx context.Context) (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}
	creds := r.config.Credentials.Spotify
	svc, err := services.NewSpotifyService(ctx, services.SpotifyOptions{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Logger:       shared.WithLogger(r.logger, "service", "spotify"),
	})
	if err != nil {
		return nil, err
	}
	r.catalog = svc
	return svc, nil
}

func (r *Runner) youtube() services.Provider {
	if r.provider == nil {
		api := services.NewAPIService(r.config.Credentials.YouTube.ProxyURL, nil)
		r.provider = services.NewYouTubeService(api, shared.WithLogger(r.logger, "service", "youtube"))
	}
	return r.provider
}

// ffmpeg returns the transcoder, failing when ffmpeg is not installed.
func (r *Runner) ffmpeg() (media.Transcoder, error) {
	if r.transcoder != nil {
		return r.transcoder, nil
	}
	f := media.NewFFmpeg(shared.WithLogger(r.logger, "component", "ffmpeg"))
	if !f.Available() {
		return nil, fmt.Errorf("%w: ffmpeg was not found on PATH", shared.ErrServiceUnavailable)
	}
	r.transcoder = f
	if r.prober == nil {
		r.prober = f
	}
	return f, nil
}

// probe returns a duration prober when one is available, or nil.
func (r *Runner) probe() media.Prober {
	if r.prober == nil {
		if f := media.NewFFmpeg(r.logger); f.Available() {
			r.prober = f
		}
	}
	return r.prober
}

func (r *Runner) store() cache.Store {
	if r.cache != nil {
		return r.cache
	}
	store, err := cache.NewFileStore(r.config.CacheDir())
	if err != nil {
		r.logger.Warn("search cache disabled", "dir", r.config.CacheDir(), "err", err)
		r.cache = cache.Nop{}
		return r.cache
	}
	r.cache = store
	return store
}

func (r *Runner) covers() tasks.ArtworkFetcher {
	if r.artwork == nil {
		r.artwork = artwork.NewFetcher(services.NewAPIService("", nil), r.config.Artwork.Size, shared.WithLogger(r.logger, "component", "artwork"))
	}
	return r.artwork
}

// mount indexes the configured library directory.
func (r *Runner) mount() (*library.Index, error) {
	index := library.New(r.tags, r.probe(), shared.WithLogger(r.logger, "component", "library"))
	if err := index.Mount(r.config.LibraryDir()); err != nil {
		return nil, err
	}
	return index, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
