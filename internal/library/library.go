// Package library indexes a flat directory of audio files and answers whether a track is already satisfied.
//
// An [Index] is built once per run with [Index.Mount] and then updated in place as files are downloaded,
// converted, tagged and removed. Lookups go by exact file name, then by the canonical (undecorated) name,
// then by fuzzy containment of the title, and finally by the embedded identity tag. An identity tag that
// disagrees with the requested track vetoes any name-based match.
package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spoti/internal/dispatch"
	"github.com/desertthunder/spoti/internal/media"
	"github.com/desertthunder/spoti/internal/models"
	"github.com/desertthunder/spoti/internal/shared"
	"github.com/desertthunder/spoti/internal/tags"
)

// TagStore reads and writes embedded tags. [*tags.Registry] implements it.
type TagStore interface {
	Read(path string) (*tags.Tags, error)
	Write(path string, t *tags.Tags) error
}

// Index is the in-memory view of a library directory. It is safe for concurrent use.
type Index struct {
	dir    string
	store  TagStore
	prober media.Prober
	logger *log.Logger

	mu    sync.RWMutex
	items map[string]*Item // keyed by on-disk file name
}

// New returns an empty index. prober may be nil, in which case durations come from tags only.
func New(store TagStore, prober media.Prober, logger *log.Logger) *Index {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Index{
		store:  store,
		prober: prober,
		logger: logger,
		items:  make(map[string]*Item),
	}
}

// Mount scans dir (creating it if needed) and replaces the index with its audio files.
func (x *Index) Mount(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return fmt.Errorf("failed to create library directory: %w", err)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return fmt.Errorf("failed to scan library: %w", err)
	}

	items := make(map[string]*Item, len(entries))
	x.mu.Lock()
	x.dir = abs
	x.mu.Unlock()

	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if _, ok := models.ParseAudioFormat(e.Name()); !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items[e.Name()] = x.newItem(e.Name(), info.Size())
	}

	x.mu.Lock()
	x.items = items
	x.mu.Unlock()

	x.logger.Debug("mounted library", "dir", abs, "items", len(items))
	return nil
}

// Dir returns the mounted directory.
func (x *Index) Dir() string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dir
}

// Path returns the absolute path of file inside the library. Absolute paths are returned unchanged.
func (x *Index) Path(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(x.Dir(), file)
}

// Exists reports whether file is present on disk.
func (x *Index) Exists(file string) bool {
	_, err := os.Stat(x.Path(file))
	return err == nil
}

// Len returns the number of indexed files.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.items)
}

// Items returns every item sorted by on-disk name.
func (x *Index) Items() []*Item {
	x.mu.RLock()
	out := make([]*Item, 0, len(x.items))
	for _, it := range x.items {
		out = append(out, it)
	}
	x.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Item) int { return strings.Compare(a.Raw.File, b.Raw.File) })
	return out
}

// Hydrate loads metadata for every item with bounded concurrency.
func (x *Index) Hydrate(ctx context.Context, limit int) {
	items := x.Items()
	tasks := make([]dispatch.Task[Metadata], len(items))
	for i, it := range items {
		tasks[i] = func(ctx context.Context) (Metadata, error) {
			return it.Metadata(ctx), nil
		}
	}
	dispatch.Run(ctx, limit, tasks)
}

func (x *Index) newItem(file string, size int64) *Item {
	format, _ := models.ParseAudioFormat(file)
	raw := Title(file)
	title := Canonical(raw)
	path := x.Path(file)

	return &Item{
		Title:  title,
		File:   FileName(title, format),
		Path:   path,
		Format: format,
		Size:   size,
		Raw:    Raw{Title: raw, File: file},
		load: func(ctx context.Context) Metadata {
			return x.readMetadata(ctx, path)
		},
	}
}

// readMetadata never fails: unreadable tags are treated as absent, and an unknown duration is 0.
func (x *Index) readMetadata(ctx context.Context, path string) Metadata {
	t, err := x.store.Read(path)
	if err != nil {
		x.logger.Debug("ignoring unreadable tags", "path", path, "err", err)
		t = &tags.Tags{}
	}

	m := Metadata{Tags: t, ID: t.ID()}
	if d, ok := t.Duration(); ok {
		m.Duration = d
	} else if x.prober != nil {
		if d, err := x.prober.Duration(ctx, path); err == nil {
			m.Duration = d
		} else {
			x.logger.Debug("could not measure duration", "path", path, "err", err)
		}
	}
	return m
}

// Find looks up target (a file name or path) by exact name, an item's canonical name, then title containment.
// Only items of the target's format are considered for the fuzzy steps. It returns nil when nothing matches.
func (x *Index) Find(target string) *Item {
	name := filepath.Base(target)

	x.mu.RLock()
	it, ok := x.items[name]
	x.mu.RUnlock()
	if ok {
		return it
	}

	format, ok := models.ParseAudioFormat(name)
	if !ok {
		return nil
	}
	// decoration is only stripped from names on disk; a target like "311 - Amber" is taken as is
	title := Title(name)
	canonical := FileName(title, format)
	folded := fold(title)
	if folded == "" {
		return nil
	}

	var best *Item
	for _, it := range x.Items() {
		if it.Format != format {
			continue
		}
		if it.File == canonical {
			return it
		}
		if strings.Contains(fold(it.Raw.Title), folded) {
			if best == nil || len(it.Raw.Title) < len(best.Raw.Title) {
				best = it
			}
		}
	}
	return best
}

// FindID returns the first item of format whose identity tag equals id.
func (x *Index) FindID(ctx context.Context, id string, format models.AudioFormat) *Item {
	if id == "" {
		return nil
	}
	for _, it := range x.Items() {
		if it.Format != format {
			continue
		}
		if it.Metadata(ctx).ID == id {
			return it
		}
	}
	return nil
}

// Resolve finds the file satisfying target for the track id. A name match whose embedded identity belongs
// to a different track is discarded, and the identity tag is searched instead.
func (x *Index) Resolve(ctx context.Context, target, id string) *Item {
	it := x.Find(target)
	if it != nil && id != "" {
		if embedded := it.Metadata(ctx).ID; embedded != "" && embedded != id {
			x.logger.Debug("identity mismatch", "file", it.Raw.File, "want", id, "got", embedded)
			it = nil
		}
	}
	if it == nil && id != "" {
		if format, ok := models.ParseAudioFormat(target); ok {
			it = x.FindID(ctx, id, format)
		}
	}
	return it
}

// Ready reports whether target (or the file holding id) exists and meets c.
func (x *Index) Ready(ctx context.Context, target, id string, c ReadinessCriteria) bool {
	return x.Lookup(ctx, target, id, c) != nil
}

// Lookup is [Index.Ready] returning the satisfying item, or nil.
func (x *Index) Lookup(ctx context.Context, target, id string, c ReadinessCriteria) *Item {
	it := x.Resolve(ctx, target, id)
	if it == nil {
		return nil
	}
	var duration time.Duration
	if c.NeedsDuration() {
		duration = it.Metadata(ctx).Duration
	}
	if !c.Satisfied(it.Size, duration) {
		return nil
	}
	return it
}

// Source returns the working file name for target, preferring a format that exists on disk.
// When none exists the first working format's name is returned.
func (x *Index) Source(target string) string {
	title := Title(target)
	for _, f := range models.WorkingFormats {
		if name := FileName(title, f); x.Exists(name) {
			return name
		}
	}
	return FileName(title, models.WorkingFormats[0])
}

// Refresh re-reads file from disk, replacing its entry and discarding memoized metadata.
func (x *Index) Refresh(file string) (*Item, error) {
	name := filepath.Base(file)
	info, err := os.Stat(x.Path(name))
	if err != nil {
		x.mu.Lock()
		delete(x.items, name)
		x.mu.Unlock()
		return nil, err
	}

	it := x.newItem(name, info.Size())
	x.mu.Lock()
	x.items[name] = it
	x.mu.Unlock()
	return it, nil
}

// Create opens file for writing, truncating any previous content.
func (x *Index) Create(file string) (*os.File, error) {
	return os.OpenFile(x.Path(file), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
}

// Remove deletes file from disk and from the index.
func (x *Index) Remove(file string) error {
	name := filepath.Base(file)
	if err := os.Remove(x.Path(name)); err != nil {
		return err
	}
	x.mu.Lock()
	delete(x.items, name)
	x.mu.Unlock()
	return nil
}

// Rename moves a library file and re-indexes it under its new name.
func (x *Index) Rename(from, to string) error {
	from, to = filepath.Base(from), filepath.Base(to)
	if from == to {
		return nil
	}
	if x.Exists(to) {
		return fmt.Errorf("%w: %s already exists", os.ErrExist, to)
	}
	if err := os.Rename(x.Path(from), x.Path(to)); err != nil {
		return err
	}

	x.mu.Lock()
	delete(x.items, from)
	x.mu.Unlock()
	_, err := x.Refresh(to)
	return err
}

// Tag merges t into the tags already on file, stamps the identity and duration markers when given,
// writes the result and refreshes the entry. Existing tags that cannot be read are replaced.
func (x *Index) Tag(file string, t *tags.Tags, id string, duration time.Duration) error {
	path := x.Path(file)
	if _, err := os.Stat(path); err != nil {
		return err
	}

	existing, err := x.store.Read(path)
	if err != nil {
		existing = &tags.Tags{}
	}
	merged := existing.Merge(t)
	if id != "" {
		merged.Set(tags.IdentityKey, id)
	}
	if duration > 0 {
		merged.SetDuration(duration)
	}

	if err := x.store.Write(path, merged); err != nil {
		return err
	}

	_, err = x.Refresh(file)
	return err
}
