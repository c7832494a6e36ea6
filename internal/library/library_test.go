package library

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/spoti/internal/media"
	"github.com/desertthunder/spoti/internal/models"
	"github.com/desertthunder/spoti/internal/tags"
)

type fakeProber struct {
	duration time.Duration
	err      error
	calls    atomic.Int32
}

func (f *fakeProber) Duration(ctx context.Context, _ string) (time.Duration, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return f.duration, f.err
}

var mp3Frame = append([]byte{0xFF, 0xFB, 0x90, 0x00}, make([]byte, 413)...)

func touch(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// mp3 writes a tiny mp3 with optional identity and duration markers.
func mp3(t *testing.T, dir, name, id string, duration time.Duration) string {
	t.Helper()
	path := touch(t, dir, name, bytes.Repeat(mp3Frame, 3))
	if id == "" && duration == 0 {
		return path
	}
	tg := &tags.Tags{Title: Clean(name)}
	if id != "" {
		tg.Set(tags.IdentityKey, id)
	}
	if duration > 0 {
		tg.SetDuration(duration)
	}
	if err := (tags.ID3Codec{}).Write(path, tg); err != nil {
		t.Fatalf("failed to tag %s: %v", name, err)
	}
	return path
}

func mounted(t *testing.T, dir string, prober *fakeProber) *Index {
	t.Helper()
	var p media.Prober
	if prober != nil {
		p = prober
	}
	x := New(tags.NewRegistry(), p, nil)
	if err := x.Mount(dir); err != nil {
		t.Fatalf("failed to mount: %v", err)
	}
	return x
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Katy Perry - Dark Horse", "Katy Perry - Dark Horse"},
		{"AC/DC - T.N.T.", "ACDC - TNT"},
		{"Earth, Wind & Fire / Friends", "Earth, Wind & Fire Friends"},
		{"Ke$ha - Tik Tok", "KeSha - Tik Tok"},
		{"Don’t Stop: Live", "Don't Stop Live"},
		{"what?  *really*  ", "what really"},
		{`back\slash \ spaced`, "backslash spaced"},
		{"Cost €5", "Cost E5"},
		{"Beyoncé", "Beyoncé"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNames(t *testing.T) {
	t.Run("FileName hides working formats", func(t *testing.T) {
		if got := FileName("Song", models.M4A); got != ".Song.spoti.m4a" {
			t.Errorf("unexpected working name %q", got)
		}
		if got := FileName("Song", models.MP3); got != "Song.mp3" {
			t.Errorf("unexpected output name %q", got)
		}
	})

	t.Run("Title strips markers", func(t *testing.T) {
		for _, in := range []string{"Song.mp3", ".Song.spoti.m4a", "/music/Song.flac"} {
			if got := Title(in); got != "Song" {
				t.Errorf("Title(%q) = %q", in, got)
			}
		}
	})

	t.Run("SanitizedName keeps hidden prefix", func(t *testing.T) {
		tests := map[string]string{
			"Ke$ha: Tik Tok.mp3":         "KeSha Tik Tok.mp3",
			".Ke$ha - Tik.Tok.spoti.m4a": ".KeSha - TikTok.spoti.m4a",
			".hidden: one.mp3":           ".hidden one.mp3",
			"Song.MP3":                   "Song.mp3",
			"Already Clean.flac":         "Already Clean.flac",
		}
		for in, want := range tests {
			if got := SanitizedName(in); got != want {
				t.Errorf("SanitizedName(%q) = %q, want %q", in, got, want)
			}
		}
	})

	t.Run("Canonical strips decoration", func(t *testing.T) {
		tests := map[string]string{
			"01 - Katy Perry - Dark Horse":      "Katy Perry - Dark Horse",
			"7 Katy Perry - Dark Horse":         "Katy Perry - Dark Horse",
			"Katy Perry - Dark Horse (1)":       "Katy Perry - Dark Horse",
			"Katy Perry - Dark Horse copy":      "Katy Perry - Dark Horse",
			"Katy Perry - Dark Horse (Remix)":   "Katy Perry - Dark Horse (Remix)",
			"1999 Prince - Little Red Corvette": "1999 Prince - Little Red Corvette",
		}
		for in, want := range tests {
			if got := Canonical(in); got != want {
				t.Errorf("Canonical(%q) = %q, want %q", in, got, want)
			}
		}
	})
}

func TestRender(t *testing.T) {
	track := models.Track{
		ID:          "4jbmgIyjGoXjY01XxatOx6",
		Name:        "Dark Horse",
		Artists:     []models.Artist{{Name: "Katy Perry", Genres: []string{"dance pop", "pop"}}, {Name: "Juicy J"}},
		Album:       models.Album{Name: "PRISM", ReleaseDate: "2013-10-18", Artists: []models.Artist{{Name: "Katy Perry"}}},
		DurationMS:  215672,
		TrackNumber: 6,
		ISRC:        "USUM71311296",
	}

	tests := []struct {
		template string
		format   models.AudioFormat
		want     string
	}{
		{"", models.MP3, "Katy Perry, Juicy J - Dark Horse.mp3"},
		{DefaultTemplate, models.FLAC, "Katy Perry, Juicy J - Dark Horse.flac"},
		{"{track-number} {artist} - {song}.{ext}", models.MP3, "06 Katy Perry - Dark Horse.mp3"},
		{"{album-artist} - {album} ({year}) - {song}.{ext}", models.MP3, "Katy Perry - PRISM (2013) - Dark Horse.mp3"},
		{"{song} [{genre}] {duration}.{ext}", models.MP3, "Dark Horse [dance pop] 3m35s.mp3"},
		{"{id} {isrc}.{ext}", models.WAV, "4jbmgIyjGoXjY01XxatOx6 USUM71311296.wav"},
		{"{song} {unknown}", models.MP3, "Dark Horse {unknown}.mp3"},
		{"{song} - {genres}.{ext}", models.AAC, "Dark Horse - dance pop, pop.aac"},
		{"{track-number}. {song}.{ext}", models.MP3, "06 Dark Horse.mp3"},
	}
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			if got := Render(tt.template, track, tt.format); got != tt.want {
				t.Errorf("Render(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}

	t.Run("empty placeholders leave no dangling separator", func(t *testing.T) {
		got := Render("{song} - {genre}.{ext}", models.Track{Name: "Roar"}, models.MP3)
		if got != "Roar.mp3" {
			t.Errorf("unexpected name %q", got)
		}
	})
}

func TestReadinessCriteria(t *testing.T) {
	tests := []struct {
		name     string
		criteria ReadinessCriteria
		size     int64
		duration time.Duration
		want     bool
	}{
		{"any non-empty file", ReadinessCriteria{}, 1, 0, true},
		{"empty file", ReadinessCriteria{}, 0, 0, false},
		{"below minimum size", ReadinessCriteria{Size: 100}, 99, 0, false},
		{"at minimum size", ReadinessCriteria{Size: 100}, 100, 0, true},
		{"within tolerance above", ReadinessCriteria{Duration: 180 * time.Second}, 10, 181500 * time.Millisecond, true},
		{"within tolerance below", ReadinessCriteria{Duration: 180 * time.Second}, 10, 178 * time.Second, true},
		{"outside tolerance", ReadinessCriteria{Duration: 180 * time.Second}, 10, 183 * time.Second, false},
		{"unknown duration", ReadinessCriteria{Duration: 180 * time.Second}, 10, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.criteria.Satisfied(tt.size, tt.duration); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("Mount", func(t *testing.T) {
		dir := t.TempDir()
		mp3(t, dir, "A - One.mp3", "", 0)
		touch(t, dir, ".A - Two.spoti.m4a", []byte("m4a"))
		touch(t, dir, "notes.txt", []byte("ignored"))
		touch(t, dir, "A - One.spoti", []byte(`{"type":"playlist"}`))
		if err := os.Mkdir(filepath.Join(dir, "sub.mp3"), 0755); err != nil {
			t.Fatal(err)
		}

		x := mounted(t, dir, nil)
		if x.Len() != 2 {
			t.Fatalf("expected 2 items, got %d", x.Len())
		}
		items := x.Items()
		if items[0].Raw.File != ".A - Two.spoti.m4a" || items[0].Title != "A - Two" || items[0].Format != models.M4A {
			t.Errorf("unexpected working item %+v", items[0])
		}
		if items[1].Size == 0 || items[1].Path != filepath.Join(dir, "A - One.mp3") {
			t.Errorf("unexpected item %+v", items[1])
		}
	})

	t.Run("Mount creates missing directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "new")
		x := mounted(t, dir, nil)
		if x.Len() != 0 || x.Dir() != dir {
			t.Errorf("unexpected index state: %d items in %s", x.Len(), x.Dir())
		}
	})

	t.Run("Find", func(t *testing.T) {
		dir := t.TempDir()
		mp3(t, dir, "Katy Perry - Dark Horse.mp3", "", 0)
		mp3(t, dir, "03 - Katy Perry - Roar.mp3", "", 0)
		mp3(t, dir, "[HQ] Lorde - Royals (Official Audio).mp3", "", 0)
		mp3(t, dir, "Someone - Amber Waves.mp3", "", 0)
		touch(t, dir, ".Katy Perry - Firework.spoti.m4a", []byte("m4a"))
		x := mounted(t, dir, nil)

		tests := []struct {
			target string
			want   string
		}{
			{"Katy Perry - Dark Horse.mp3", "Katy Perry - Dark Horse.mp3"},
			{filepath.Join(dir, "Katy Perry - Dark Horse.mp3"), "Katy Perry - Dark Horse.mp3"},
			{"Katy Perry - Roar.mp3", "03 - Katy Perry - Roar.mp3"},
			{"Lorde - Royals.mp3", "[HQ] Lorde - Royals (Official Audio).mp3"},
			{"katy perry - dark horse.mp3", "Katy Perry - Dark Horse.mp3"},
			{"Katy Perry - Firework.mp3", ""},
			{"Katy Perry - Firework.m4a", ".Katy Perry - Firework.spoti.m4a"},
			{"Someone Else - Song.mp3", ""},
			{"311 - Amber.mp3", ""},
			{"3 Doors Down - Amber Waves.mp3", ""},
			{"Someone - Amber Waves.mp3", "Someone - Amber Waves.mp3"},
			{"README", ""},
		}
		for _, tt := range tests {
			t.Run(tt.target, func(t *testing.T) {
				got := x.Find(tt.target)
				switch {
				case tt.want == "" && got != nil:
					t.Errorf("expected no match, got %s", got.Raw.File)
				case tt.want != "" && got == nil:
					t.Errorf("expected %s, got no match", tt.want)
				case got != nil && got.Raw.File != tt.want:
					t.Errorf("expected %s, got %s", tt.want, got.Raw.File)
				}
			})
		}
	})

	t.Run("Resolve", func(t *testing.T) {
		dir := t.TempDir()
		mp3(t, dir, "Artist - Song.mp3", "other-track", 0)
		mp3(t, dir, "Artist - Song (Live).mp3", "track-1", 0)
		mp3(t, dir, "Renamed By Hand.mp3", "track-2", 0)
		mp3(t, dir, "Untagged - Song.mp3", "", 0)
		x := mounted(t, dir, nil)

		t.Run("identity vetoes a name match", func(t *testing.T) {
			got := x.Resolve(ctx, "Artist - Song.mp3", "track-1")
			if got == nil || got.Raw.File != "Artist - Song (Live).mp3" {
				t.Errorf("expected identity match, got %+v", got)
			}
		})

		t.Run("identity finds renamed files", func(t *testing.T) {
			got := x.Resolve(ctx, "Artist - Another.mp3", "track-2")
			if got == nil || got.Raw.File != "Renamed By Hand.mp3" {
				t.Errorf("expected renamed file, got %+v", got)
			}
		})

		t.Run("untagged name match stands", func(t *testing.T) {
			got := x.Resolve(ctx, "Untagged - Song.mp3", "track-3")
			if got == nil || got.Raw.File != "Untagged - Song.mp3" {
				t.Errorf("expected untagged file, got %+v", got)
			}
		})

		t.Run("no id means names only", func(t *testing.T) {
			got := x.Resolve(ctx, "Artist - Song.mp3", "")
			if got == nil || got.Raw.File != "Artist - Song.mp3" {
				t.Errorf("expected name match, got %+v", got)
			}
		})
	})

	t.Run("Ready", func(t *testing.T) {
		dir := t.TempDir()
		mp3(t, dir, "Close.mp3", "a", 181500*time.Millisecond)
		mp3(t, dir, "Far.mp3", "b", 183000*time.Millisecond)
		touch(t, dir, "Empty.mp3", nil)
		x := mounted(t, dir, nil)
		want := ReadinessCriteria{Duration: 180 * time.Second}

		if !x.Ready(ctx, "Close.mp3", "a", want) {
			t.Error("expected 181.5s to be within tolerance of 180s")
		}
		if x.Ready(ctx, "Far.mp3", "b", want) {
			t.Error("expected 183s to be outside tolerance of 180s")
		}
		if x.Ready(ctx, "Empty.mp3", "", ReadinessCriteria{}) {
			t.Error("expected empty file not to be ready")
		}
		if x.Ready(ctx, "Missing.mp3", "", ReadinessCriteria{}) {
			t.Error("expected missing file not to be ready")
		}
		if !x.Ready(ctx, "Far.mp3", "b", ReadinessCriteria{}) {
			t.Error("expected existence alone to be ready")
		}
	})

	t.Run("Ready falls back to prober once", func(t *testing.T) {
		dir := t.TempDir()
		mp3(t, dir, "Probed.mp3", "", 0)
		prober := &fakeProber{duration: 179 * time.Second}
		x := mounted(t, dir, prober)
		want := ReadinessCriteria{Duration: 180 * time.Second}

		for range 3 {
			if !x.Ready(ctx, "Probed.mp3", "", want) {
				t.Fatal("expected probed duration to be ready")
			}
		}
		if got := prober.calls.Load(); got != 1 {
			t.Errorf("expected metadata to be memoized, prober called %d times", got)
		}
	})

	t.Run("metadata read under a cancelled context is not kept", func(t *testing.T) {
		dir := t.TempDir()
		mp3(t, dir, "Probed.mp3", "", 0)
		prober := &fakeProber{duration: 179 * time.Second}
		x := mounted(t, dir, prober)
		it := x.Find("Probed.mp3")

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		if m := it.Metadata(cancelled); m.Duration != 0 {
			t.Errorf("expected no duration under a cancelled context, got %v", m.Duration)
		}
		if m := it.Metadata(ctx); m.Duration != 179*time.Second {
			t.Errorf("expected duration on the next read, got %v", m.Duration)
		}
		_ = it.Metadata(ctx)
		if got := prober.calls.Load(); got != 2 {
			t.Errorf("expected 2 probes, got %d", got)
		}
	})

	t.Run("malformed tags are absent", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "Broken.flac", []byte("not a flac file"))
		x := mounted(t, dir, &fakeProber{err: errors.New("no ffprobe")})

		m := x.Find("Broken.flac").Metadata(ctx)
		if m.Tags == nil || m.ID != "" || m.Duration != 0 {
			t.Errorf("expected empty metadata, got %+v", m)
		}
	})

	t.Run("Source", func(t *testing.T) {
		dir := t.TempDir()
		x := mounted(t, dir, nil)

		if got := x.Source("Song.mp3"); got != ".Song.spoti.m4a" {
			t.Errorf("expected default working name, got %q", got)
		}
		touch(t, dir, ".Song.spoti.mp4", []byte("mp4"))
		if got := x.Source("Song.mp3"); got != ".Song.spoti.mp4" {
			t.Errorf("expected existing mp4 source, got %q", got)
		}
		touch(t, dir, ".Song.spoti.m4a", []byte("m4a"))
		if got := x.Source("Song.mp3"); got != ".Song.spoti.m4a" {
			t.Errorf("expected m4a to be preferred, got %q", got)
		}
	})

	t.Run("Tag", func(t *testing.T) {
		dir := t.TempDir()
		mp3(t, dir, "Song.mp3", "", 0)
		x := mounted(t, dir, nil)
		before := x.Find("Song.mp3")
		_ = before.Metadata(ctx)

		err := x.Tag("Song.mp3", &tags.Tags{Title: "Song", Artist: "Artist"}, "track-1", 200*time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		after := x.Find("Song.mp3")
		if after == before {
			t.Error("expected entry to be refreshed")
		}
		m := after.Metadata(ctx)
		if m.ID != "track-1" || m.Duration != 200*time.Second || m.Tags.Artist != "Artist" {
			t.Errorf("unexpected metadata after tag %+v", m)
		}

		if err := x.Tag("Song.mp3", &tags.Tags{Genre: "pop"}, "track-2", 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		m = x.Find("Song.mp3").Metadata(ctx)
		if m.ID != "track-2" || m.Duration != 200*time.Second || m.Tags.Title != "Song" {
			t.Errorf("expected identity replaced and other fields kept, got %+v", m)
		}
	})

	t.Run("Tag missing file", func(t *testing.T) {
		x := mounted(t, t.TempDir(), nil)
		if err := x.Tag("Missing.mp3", &tags.Tags{}, "id", 0); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected not-exist error, got %v", err)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, ".Song.spoti.m4a", []byte("m4a"))
		x := mounted(t, dir, nil)

		if err := x.Remove(".Song.spoti.m4a"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if x.Len() != 0 || x.Exists(".Song.spoti.m4a") {
			t.Error("expected file and entry to be gone")
		}
		if err := x.Remove(".Song.spoti.m4a"); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected not-exist error, got %v", err)
		}
	})

	t.Run("Rename", func(t *testing.T) {
		dir := t.TempDir()
		mp3(t, dir, "Old Name.mp3", "", 0)
		mp3(t, dir, "Taken.mp3", "", 0)
		x := mounted(t, dir, nil)

		if err := x.Rename("Old Name.mp3", "New Name.mp3"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if x.Find("New Name.mp3") == nil || x.Exists("Old Name.mp3") {
			t.Error("expected file to move")
		}
		if err := x.Rename("New Name.mp3", "Taken.mp3"); !errors.Is(err, os.ErrExist) {
			t.Errorf("expected exist error, got %v", err)
		}
	})

	t.Run("Create and Refresh", func(t *testing.T) {
		dir := t.TempDir()
		x := mounted(t, dir, nil)

		f, err := x.Create(".New.spoti.m4a")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		f.Write([]byte("data"))
		f.Close()

		it, err := x.Refresh(".New.spoti.m4a")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if it.Size != 4 || x.Find("New.m4a") != it {
			t.Errorf("unexpected refreshed item %+v", it)
		}
	})

	t.Run("Hydrate", func(t *testing.T) {
		dir := t.TempDir()
		mp3(t, dir, "One.mp3", "", 0)
		mp3(t, dir, "Two.mp3", "", 0)
		prober := &fakeProber{duration: time.Minute}
		x := mounted(t, dir, prober)

		x.Hydrate(ctx, 2)
		x.Hydrate(ctx, 2)
		if got := prober.calls.Load(); got != 2 {
			t.Errorf("expected one probe per item, got %d", got)
		}
	})
}
