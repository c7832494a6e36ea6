package tasks

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spoti/internal/cache"
	"github.com/desertthunder/spoti/internal/dispatch"
	"github.com/desertthunder/spoti/internal/library"
	"github.com/desertthunder/spoti/internal/media"
	"github.com/desertthunder/spoti/internal/metrics"
	"github.com/desertthunder/spoti/internal/models"
	"github.com/desertthunder/spoti/internal/services"
	"github.com/desertthunder/spoti/internal/shared"
	"github.com/desertthunder/spoti/internal/tags"
	"golang.org/x/sync/singleflight"
)

// Throttle paces outbound search requests. [*rate.Limiter] implements it.
type Throttle interface {
	Wait(ctx context.Context) error
}

// ArtworkFetcher downloads cover art. [*artwork.Fetcher] implements it.
type ArtworkFetcher interface {
	Fetch(ctx context.Context, url, description string) (*tags.Picture, error)
}

// PipelineOpts wires a [Pipeline]. Provider, Index and Transcoder are required; everything else is optional.
type PipelineOpts struct {
	Provider   services.Provider
	Index      *library.Index
	Transcoder media.Transcoder
	Prober     media.Prober
	Cache      cache.Store
	Artwork    ArtworkFetcher
	Throttle   Throttle
	Metrics    *metrics.Collector
	Inflight   *Inflight
	Logger     *log.Logger

	Format             models.AudioFormat
	Template           string
	Concurrency        int
	ConvertConcurrency int

	SearchAttempts   int
	SearchDelay      time.Duration
	DownloadAttempts int
	DownloadDelay    time.Duration
	ConvertAttempts  int
	ConvertDelay     time.Duration
}

// DefaultPipelineOpts returns the retry and concurrency settings used by the CLI.
func DefaultPipelineOpts() PipelineOpts {
	return PipelineOpts{
		Format:             models.MP3,
		Template:           library.DefaultTemplate,
		Concurrency:        dispatch.DefaultLimit,
		ConvertConcurrency: runtime.NumCPU(),
		SearchAttempts:     5,
		SearchDelay:        5 * time.Second,
		DownloadAttempts:   5,
		DownloadDelay:      5 * time.Second,
		ConvertAttempts:    3,
		ConvertDelay:       time.Second,
	}
}

// Failure records why one track did not make it into the library.
type Failure struct {
	Stage Phase
	Err   error
	Item  models.Download
	Track models.Track
	index int
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s (%s): %v", f.Item.Title, f.Stage, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Result partitions every input track into passed downloads and failures, each in input order.
// A passed download always carries its Result.
type Result struct {
	Passed []models.Download
	Failed []Failure
}

// Pipeline turns catalog tracks into tagged files in a library.
type Pipeline struct {
	opts     PipelineOpts
	provider services.Provider
	index    *library.Index
	cache    cache.Store
	throttle Throttle
	metrics  *metrics.Collector
	inflight *Inflight
	logger   *log.Logger

	covers     singleflight.Group
	coverCache sync.Map
}

func NewPipeline(opts PipelineOpts) *Pipeline {
	if opts.Format == "" {
		opts.Format = models.MP3
	}
	if opts.Template == "" {
		opts.Template = library.DefaultTemplate
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = dispatch.DefaultLimit
	}
	if opts.ConvertConcurrency < 1 {
		opts.ConvertConcurrency = runtime.NumCPU()
	}
	if opts.Cache == nil {
		opts.Cache = cache.Nop{}
	}
	if opts.Inflight == nil {
		opts.Inflight = &Inflight{}
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	return &Pipeline{
		opts:     opts,
		provider: opts.Provider,
		index:    opts.Index,
		cache:    opts.Cache,
		throttle: opts.Throttle,
		metrics:  opts.Metrics,
		inflight: opts.Inflight,
		logger:   opts.Logger,
	}
}

// job carries one track through the stages. dups are later tracks with the same destination file;
// they share the job's outcome.
type job struct {
	index     int
	track     models.Track
	download  models.Download
	candidate *models.Candidate
	dups      []*job
}

// fanOut returns jobs followed by their duplicates, each duplicate taking its primary's result.
func fanOut(jobs []*job) []*job {
	out := make([]*job, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j)
		for _, d := range j.dups {
			d.download.Result = j.download.Result
			out = append(out, d)
		}
	}
	return out
}

type stageFunc func(ctx context.Context, j *job) (skipped bool, err error)

// Run moves tracks through prepare, search, download, convert and tag. Each stage runs over the whole batch
// before the next starts. Per-track failures are collected in the result; only missing dependencies return an error.
func (p *Pipeline) Run(ctx context.Context, tracks []models.Track, progress chan<- ProgressUpdate) (*Result, error) {
	switch {
	case p.provider == nil:
		return nil, fmt.Errorf("%w: provider not initialized", shared.ErrServiceUnavailable)
	case p.index == nil:
		return nil, fmt.Errorf("%w: library not mounted", shared.ErrServiceUnavailable)
	case p.opts.Transcoder == nil:
		return nil, fmt.Errorf("%w: transcoder not initialized", shared.ErrServiceUnavailable)
	}

	p.metrics.SetTracks(len(tracks))
	result := &Result{}
	var passed []*job

	existing, missing := p.prepare(ctx, tracks, progress)
	passed = append(passed, existing...)

	searched := p.stage(ctx, Search, p.opts.Concurrency, missing, progress, result, p.search)
	downloaded := p.stage(ctx, Download, p.opts.Concurrency, searched, progress, result,
		func(ctx context.Context, j *job) (bool, error) { return p.fetch(ctx, j, progress) })
	converted := p.stage(ctx, Convert, p.opts.ConvertConcurrency, downloaded, progress, result, p.convert)
	tagged := p.stage(ctx, Tag, p.opts.Concurrency, converted, progress, result, p.tag)
	passed = append(passed, tagged...)

	passed = fanOut(passed)
	slices.SortFunc(passed, func(a, b *job) int { return a.index - b.index })
	slices.SortStableFunc(result.Failed, func(a, b Failure) int { return a.index - b.index })
	for _, j := range passed {
		result.Passed = append(result.Passed, j.download)
	}

	p.logger.Info("pipeline finished", "passed", len(result.Passed), "failed", len(result.Failed))
	sendProgress(progress, completeUpdate(result))
	return result, nil
}

// stage runs fn over jobs and returns the ones that did not fail, in input order.
func (p *Pipeline) stage(ctx context.Context, phase Phase, limit int, jobs []*job, progress chan<- ProgressUpdate, result *Result, fn stageFunc) []*job {
	if len(jobs) == 0 {
		return nil
	}

	var done atomic.Int32
	tasks := make([]dispatch.Task[bool], len(jobs))
	for i, j := range jobs {
		tasks[i] = func(ctx context.Context) (bool, error) {
			start := time.Now()
			skipped, err := fn(ctx, j)

			outcome := metrics.Passed
			switch {
			case err != nil:
				outcome = metrics.Failed
			case skipped:
				outcome = metrics.Skipped
			}
			p.metrics.Observe(phase.String(), outcome, time.Since(start))
			sendProgress(progress, stageUpdate(phase, int(done.Add(1)), len(jobs), j.track))
			return skipped, err
		}
	}

	out := make([]*job, 0, len(jobs))
	for i, o := range dispatch.Run(ctx, limit, tasks) {
		j := jobs[i]
		if o.Err != nil {
			p.logger.Debug("stage failed", "stage", phase, "file", j.download.File, "err", o.Err)
			for _, f := range fanOut([]*job{j}) {
				result.Failed = append(result.Failed, Failure{
					Stage: phase,
					Err:   o.Err,
					Item:  f.download,
					Track: f.track,
					index: f.index,
				})
			}
			continue
		}
		out = append(out, j)
	}
	return out
}

func criteria(t models.Track) library.ReadinessCriteria {
	return library.ReadinessCriteria{Duration: t.Duration()}
}

// prepare builds the download descriptor of every track and splits off the ones already in the library.
// Tracks rendering to a file an earlier track already claimed ride along with that track instead of
// running the stages a second time against the same working file.
func (p *Pipeline) prepare(ctx context.Context, tracks []models.Track, progress chan<- ProgressUpdate) (existing, missing []*job) {
	var jobs []*job
	claimed := make(map[string]*job, len(tracks))
	for i, t := range tracks {
		file := library.Render(p.opts.Template, t, p.opts.Format)
		j := &job{
			index: i,
			track: t,
			download: models.Download{
				Title:  library.Title(file),
				File:   file,
				Path:   p.index.Path(file),
				Format: p.opts.Format,
			},
		}
		key := strings.ToLower(file)
		if first, ok := claimed[key]; ok {
			p.logger.Debug("duplicate track", "file", file, "id", t.ID, "first", first.track.ID)
			first.dups = append(first.dups, j)
			continue
		}
		claimed[key] = j
		jobs = append(jobs, j)
	}

	tasks := make([]dispatch.Task[*library.Item], len(jobs))
	for i, j := range jobs {
		tasks[i] = func(ctx context.Context) (*library.Item, error) {
			return p.index.Lookup(ctx, j.download.File, j.track.ID, criteria(j.track)), nil
		}
	}

	skipped := 0
	for i, o := range dispatch.Run(ctx, p.opts.Concurrency, tasks) {
		j := jobs[i]
		if it := o.Value; it != nil {
			j.download.Result = &models.DownloadResult{File: it.Raw.File, Path: it.Path, Format: it.Format}
			existing = append(existing, j)
			skipped += 1 + len(j.dups)
			p.metrics.Observe(Prepare.String(), metrics.Skipped, 0)
			continue
		}
		missing = append(missing, j)
	}

	sendProgress(progress, prepareUpdate(len(tracks), len(tracks), skipped))
	p.logger.Debug("prepared tracks", "existing", len(existing), "missing", len(missing), "duplicates", len(tracks)-len(jobs))
	return existing, missing
}
