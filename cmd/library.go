package main

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/desertthunder/spoti/internal/dispatch"
	"github.com/desertthunder/spoti/internal/formatter"
	"github.com/desertthunder/spoti/internal/library"
	"github.com/desertthunder/spoti/internal/shared"
	"github.com/desertthunder/spoti/internal/tags"
	"github.com/urfave/cli/v3"
)

// Library lists the library, printing the report or writing it to the given file.
func (r *Runner) Library(ctx context.Context, cmd *cli.Command) error {
	index, err := r.mount()
	if err != nil {
		return err
	}

	more := cmd.Bool("more")
	if more {
		index.Hydrate(ctx, dispatch.DefaultLimit)
	}
	report := formatter.NewReport(ctx, index.Dir(), index.Items(), more)

	format := cmd.String("format")
	file := cmd.StringArg("file")
	if file == "" {
		data, err := formatter.Export(report, format)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	}

	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(file), ".")
	}
	path, err := formatter.WriteExport(report, format, file)
	if err != nil {
		return err
	}
	r.logger.Info("library report written", "path", path, "items", len(report.Rows))
	return nil
}

// selectItems returns the item matching file, or every item when file is empty.
func (r *Runner) selectItems(index *library.Index, file string) ([]*library.Item, error) {
	if file == "" {
		return index.Items(), nil
	}
	it := index.Find(file)
	if it == nil {
		return nil, fmt.Errorf("%w: %s is not in %s", shared.ErrInvalidInput, file, index.Dir())
	}
	return []*library.Item{it}, nil
}

// tagInfo is the printable form of a file's tags.
type tagInfo struct {
	File     string            `json:"file"`
	Format   string            `json:"format"`
	Size     int64             `json:"size"`
	ID       string            `json:"id,omitempty"`
	Duration string            `json:"duration,omitempty"`
	Tags     map[string]string `json:"tags"`
	Cover    string            `json:"cover,omitempty"`
}

func describe(ctx context.Context, it *library.Item) tagInfo {
	meta := it.Metadata(ctx)
	info := tagInfo{
		File:   it.Raw.File,
		Format: it.Format.String(),
		Size:   it.Size,
		ID:     meta.ID,
		Tags:   map[string]string{},
	}
	if meta.Duration > 0 {
		info.Duration = shared.FormatDuration(meta.Duration)
	}

	t := meta.Tags
	if t == nil {
		return info
	}
	for k, v := range map[string]string{
		"title":        t.Title,
		"artist":       t.Artist,
		"album":        t.Album,
		"album_artist": t.AlbumArtist,
		"genre":        t.Genre,
		"year":         t.Year,
		"track":        t.TrackNumber,
		"bpm":          t.BPM,
		"key":          t.Key,
		"isrc":         t.ISRC,
	} {
		if v != "" {
			info.Tags[k] = v
		}
	}
	for _, ut := range t.UserText {
		info.Tags[ut.Description] = ut.Value
	}
	if t.Picture != nil {
		info.Cover = fmt.Sprintf("%s, %s", t.Picture.MIME, shared.FormatSize(int64(len(t.Picture.Data))))
	}
	return info
}

func (r *Runner) printInfo(info tagInfo) {
	r.writePlainHeader(info.File)
	r.writePlain("%-14s %s (%s)\n", "format", info.Format, shared.FormatSize(info.Size))
	if info.ID != "" {
		r.writePlain("%-14s %s\n", "id", info.ID)
	}
	if info.Duration != "" {
		r.writePlain("%-14s %s\n", "duration", info.Duration)
	}
	for _, k := range slices.Sorted(maps.Keys(info.Tags)) {
		r.writePlain("%-14s %s\n", k, info.Tags[k])
	}
	if info.Cover != "" {
		r.writePlain("%-14s %s\n", "cover", info.Cover)
	}
	r.writePlain("\n")
}

// Info prints the tags of one file or the whole library. With --update tags are first rewritten from the catalog.
func (r *Runner) Info(ctx context.Context, cmd *cli.Command) error {
	index, err := r.mount()
	if err != nil {
		return err
	}
	items, err := r.selectItems(index, cmd.StringArg("file"))
	if err != nil {
		return err
	}

	if cmd.Bool("update") {
		if items, err = r.retag(ctx, index, items); err != nil {
			return err
		}
	}

	infos := make([]tagInfo, 0, len(items))
	for _, it := range items {
		infos = append(infos, describe(ctx, it))
	}
	if cmd.Bool("json") {
		return r.writeJSON(infos, true)
	}
	for _, info := range infos {
		r.printInfo(info)
	}
	return nil
}

// retag rewrites descriptive tags of items that carry an identity. Identity and duration markers are kept.
func (r *Runner) retag(ctx context.Context, index *library.Index, items []*library.Item) ([]*library.Item, error) {
	catalog, err := r.spotify(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*library.Item, 0, len(items))
	for _, it := range items {
		id := it.Metadata(ctx).ID
		if id == "" {
			r.logger.Warn("skipping file without identity", "file", it.Raw.File)
			out = append(out, it)
			continue
		}

		track, err := catalog.Track(ctx, id)
		if err != nil {
			r.logger.Warn("catalog lookup failed", "file", it.Raw.File, "id", id, "err", err)
			out = append(out, it)
			continue
		}
		if features, err := catalog.AudioFeatures(ctx, []string{id}); err == nil {
			if f, ok := features[id]; ok {
				track.Features = &f
			}
		}

		t := tags.FromTrack(*track)
		if url := track.ArtURL(); url != "" {
			if pic, err := r.covers().Fetch(ctx, url, "Front cover"); err == nil {
				t.Picture = pic
			} else {
				r.logger.Debug("artwork unavailable", "url", url, "err", err)
			}
		}

		if err := index.Tag(it.Raw.File, t, id, 0); err != nil {
			r.logger.Warn("failed to update tags", "file", it.Raw.File, "err", err)
			out = append(out, it)
			continue
		}
		r.logger.Info("updated tags", "file", it.Raw.File)
		out = append(out, index.Find(it.Raw.File))
	}
	return out, nil
}

// Sanitize renames files whose names contain characters that are unsafe on common filesystems.
func (r *Runner) Sanitize(ctx context.Context, cmd *cli.Command) error {
	index, err := r.mount()
	if err != nil {
		return err
	}
	items, err := r.selectItems(index, cmd.StringArg("file"))
	if err != nil {
		return err
	}

	dryRun := cmd.Bool("dry-run")
	renamed := 0
	for _, it := range items {
		from := it.Raw.File
		to := library.SanitizedName(from)
		if to == from {
			continue
		}
		if !dryRun {
			if err := index.Rename(from, to); err != nil {
				r.logger.Warn("failed to rename", "file", from, "err", err)
				continue
			}
		}
		r.writePlain("%s → %s\n", from, to)
		renamed++
	}

	verb := "renamed"
	if dryRun {
		verb = "to rename"
	}
	return r.writePlainln("%d of %d files %s", renamed, len(items), verb)
}
