package library

import (
	"context"
	"sync"
	"time"

	"github.com/desertthunder/spoti/internal/models"
	"github.com/desertthunder/spoti/internal/tags"
)

// Tolerance is how far a measured duration may drift from the expected one and still be ready.
const Tolerance = 2 * time.Second

// ReadinessCriteria describes what an existing file must satisfy to count as done.
// A zero Size accepts any non-empty file; a zero Duration skips the duration check.
type ReadinessCriteria struct {
	Size     int64
	Duration time.Duration
}

// NeedsDuration reports whether evaluating c requires loading file metadata.
func (c ReadinessCriteria) NeedsDuration() bool {
	return c.Duration > 0
}

// Satisfied reports whether a file of the given size and measured duration meets c.
// An unknown (zero) duration never satisfies a duration constraint.
func (c ReadinessCriteria) Satisfied(size int64, duration time.Duration) bool {
	if size <= 0 || size < c.Size {
		return false
	}
	if !c.NeedsDuration() {
		return true
	}
	if duration <= 0 {
		return false
	}
	diff := duration - c.Duration
	if diff < 0 {
		diff = -diff
	}
	return diff <= Tolerance
}

// Metadata is the lazily read tag data of an [Item]. Duration is 0 when it could not be determined.
type Metadata struct {
	Tags     *tags.Tags
	Duration time.Duration
	ID       string
}

// Raw is the name of an item as found on disk, before decoration was stripped.
type Raw struct {
	Title string
	File  string
}

// Item is one audio file in the library.
type Item struct {
	// Title is the canonical logical title.
	Title string
	// File is the canonical file name; it differs from Raw.File when the name on disk is decorated.
	File   string
	Path   string
	Format models.AudioFormat
	Size   int64
	Raw    Raw

	load   func(ctx context.Context) Metadata
	mu     sync.Mutex
	loaded bool
	meta   Metadata
}

// Metadata reads the item's tags and duration on first use and returns the cached value afterwards.
// A read made under a cancelled ctx is returned but not kept, so a later caller reads again.
func (i *Item) Metadata(ctx context.Context) Metadata {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.loaded {
		return i.meta
	}

	var m Metadata
	if i.load != nil {
		m = i.load(ctx)
	}
	if m.Tags == nil {
		m.Tags = &tags.Tags{}
	}
	if ctx.Err() == nil {
		i.meta, i.loaded = m, true
	}
	return m
}
