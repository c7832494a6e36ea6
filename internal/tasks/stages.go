package tasks

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/desertthunder/spoti/internal/dispatch"
	"github.com/desertthunder/spoti/internal/library"
	"github.com/desertthunder/spoti/internal/models"
	"github.com/desertthunder/spoti/internal/scorer"
	"github.com/desertthunder/spoti/internal/shared"
	"github.com/desertthunder/spoti/internal/tags"
)

// CacheKey is the search cache key of a track: its catalog URI.
func CacheKey(t models.Track) string {
	if t.URI != "" {
		return t.URI
	}
	return "spotify:track:" + t.ID
}

// Query is the provider search query for a track.
func Query(t models.Track) string {
	return strings.TrimSpace(t.PrimaryArtist() + " " + t.Name)
}

func (p *Pipeline) search(ctx context.Context, j *job) (bool, error) {
	key := CacheKey(j.track)

	var cached models.SearchResult
	hit, err := p.cache.Get(key, &cached)
	if err != nil {
		p.logger.Warn("ignoring unreadable cache entry", "key", key, "err", err)
	}
	if hit {
		j.candidate = cached.Candidate
		return true, nil
	}

	query := Query(j.track)
	candidates, err := dispatch.Retry(ctx, p.opts.SearchAttempts, p.opts.SearchDelay,
		func(ctx context.Context) ([]models.Candidate, error) {
			if p.throttle != nil {
				if err := p.throttle.Wait(ctx); err != nil {
					return nil, err
				}
			}
			return p.provider.Search(ctx, query)
		})
	if err != nil {
		return false, fmt.Errorf("search %q: %w", query, err)
	}

	res := models.SearchResult{Query: query}
	if best, ok := scorer.Best(j.track, candidates); ok {
		res.Candidate = &best
	}
	j.candidate = res.Candidate

	if err := p.cache.Set(key, res); err != nil {
		p.logger.Warn("failed to cache search result", "key", key, "err", err)
	}
	return false, nil
}

// fetch downloads the chosen candidate into a hidden working file next to the final one.
func (p *Pipeline) fetch(ctx context.Context, j *job, progress chan<- ProgressUpdate) (bool, error) {
	if j.candidate == nil {
		return false, shared.ErrNoCandidate
	}
	if p.index.Ready(ctx, j.download.File, j.track.ID, criteria(j.track)) {
		return true, nil
	}

	return dispatch.Retry(ctx, p.opts.DownloadAttempts, p.opts.DownloadDelay,
		func(ctx context.Context) (bool, error) { return p.transfer(ctx, j, progress) })
}

func (p *Pipeline) transfer(ctx context.Context, j *job, progress chan<- ProgressUpdate) (bool, error) {
	stream, err := p.provider.Download(ctx, *j.candidate)
	if err != nil {
		return false, err
	}
	defer stream.Body.Close()

	j.download.Bitrate = stream.Bitrate
	format := stream.Format
	if !format.Working() {
		format = models.WorkingFormats[0]
	}
	name := library.FileName(j.download.Title, format)

	if p.index.Ready(ctx, name, "", library.ReadinessCriteria{Size: stream.Size}) {
		p.logger.Debug("working file already complete", "file", name)
		return true, nil
	}

	f, err := p.index.Create(name)
	if err != nil {
		return false, fmt.Errorf("failed to create %s: %w", name, err)
	}
	path := p.index.Path(name)
	p.inflight.Add(path)
	defer p.inflight.Done(path)

	w := &progressWriter{
		progress: progress,
		state:    ByteProgress{File: name, Total: stream.Size},
	}
	n, err := io.Copy(io.MultiWriter(f, w), stream.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && stream.Size > 0 && n < stream.Size {
		err = fmt.Errorf("%w: %d of %d bytes", shared.ErrShortDownload, n, stream.Size)
	}
	p.metrics.AddBytes(n)

	if err != nil {
		if rerr := p.index.Remove(name); rerr != nil {
			p.logger.Warn("failed to remove partial download", "file", name, "err", rerr)
		}
		return false, err
	}

	if _, err := p.index.Refresh(name); err != nil {
		return false, err
	}
	p.logger.Debug("downloaded", "file", name, "bytes", n)
	return false, nil
}

// convert transcodes the working file into the final format and removes it.
// A failed transcode leaves the working file for the next run.
func (p *Pipeline) convert(ctx context.Context, j *job) (bool, error) {
	file := j.download.File
	source := p.index.Source(file)

	if p.index.Ready(ctx, file, j.track.ID, criteria(j.track)) {
		if p.index.Exists(source) {
			if err := p.index.Remove(source); err != nil {
				p.logger.Warn("failed to remove leftover working file", "file", source, "err", err)
			}
		}
		return true, nil
	}
	if !p.index.Exists(source) {
		return false, fmt.Errorf("%w: %s", shared.ErrMissingSource, source)
	}

	src := p.index.Path(source)
	p.inflight.Add(j.download.Path)
	defer p.inflight.Done(j.download.Path)

	_, err := dispatch.Retry(ctx, p.opts.ConvertAttempts, p.opts.ConvertDelay,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, p.opts.Transcoder.Convert(ctx, src, j.download.Path, j.download.Bitrate)
		})
	if err != nil {
		return false, err
	}

	it, err := p.index.Refresh(file)
	if err != nil {
		return false, err
	}
	if !(library.ReadinessCriteria{}).Satisfied(it.Size, 0) {
		_ = p.index.Remove(file)
		return false, fmt.Errorf("%w: %s is empty", shared.ErrNotReady, file)
	}

	if err := p.index.Remove(source); err != nil {
		p.logger.Warn("failed to remove working file", "file", source, "err", err)
	}
	return false, nil
}

// tag writes descriptive tags plus the identity and duration markers. Failures here are logged and never fail the item.
func (p *Pipeline) tag(ctx context.Context, j *job) (bool, error) {
	it := p.index.Resolve(ctx, j.download.File, j.track.ID)
	if it == nil {
		return false, fmt.Errorf("%w: %s is missing", shared.ErrNotReady, j.download.File)
	}

	t := tags.FromTrack(j.track)
	t.Picture = p.cover(ctx, j.track)

	if err := p.index.Tag(it.Raw.File, t, j.track.ID, p.measure(ctx, it.Path, j.track)); err != nil {
		p.logger.Warn("failed to tag", "file", it.Raw.File, "err", err)
	}

	j.download.Result = &models.DownloadResult{
		File:    it.Raw.File,
		Path:    it.Path,
		Format:  it.Format,
		Bitrate: j.download.Bitrate,
	}
	return false, nil
}

// measure prefers the duration of the file on disk and falls back to the catalog duration.
func (p *Pipeline) measure(ctx context.Context, path string, t models.Track) time.Duration {
	if p.opts.Prober != nil {
		d, err := p.opts.Prober.Duration(ctx, path)
		if err == nil && d > 0 {
			return d
		}
		p.logger.Debug("using catalog duration", "path", path, "err", err)
	}
	return t.Duration()
}

// cover fetches album art once per URL per run.
func (p *Pipeline) cover(ctx context.Context, t models.Track) *tags.Picture {
	url := t.ArtURL()
	if url == "" || p.opts.Artwork == nil {
		return nil
	}
	if pic, ok := p.coverCache.Load(url); ok {
		return pic.(*tags.Picture)
	}

	v, err, _ := p.covers.Do(url, func() (any, error) {
		if pic, ok := p.coverCache.Load(url); ok {
			return pic, nil
		}
		pic, err := p.opts.Artwork.Fetch(ctx, url, "Front cover")
		if err != nil {
			return nil, err
		}
		p.coverCache.Store(url, pic)
		return pic, nil
	})
	if err != nil {
		p.logger.Debug("skipping artwork", "url", url, "err", err)
		return nil
	}
	return v.(*tags.Picture)
}

// progressWriter publishes a byte progress update per chunk written.
type progressWriter struct {
	progress chan<- ProgressUpdate
	state    ByteProgress
}

func (w *progressWriter) Write(b []byte) (int, error) {
	w.state.Written += int64(len(b))
	sendProgress(w.progress, bytesUpdate(w.state))
	return len(b), nil
}
