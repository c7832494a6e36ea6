package models

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/spoti/internal/shared"
)

func TestParseTarget(t *testing.T) {
	tc := []struct {
		name     string
		in       string
		wantType TargetType
		wantID   string
	}{
		{"playlist url", "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc", TargetPlaylist, "37i9dQZF1DXcBWIGoYBM5M"},
		{"track url with locale", "https://open.spotify.com/intl-de/track/4jbmgIyjGoXjY01XxatOx6", TargetTrack, "4jbmgIyjGoXjY01XxatOx6"},
		{"album uri", "spotify:album:1DFixLWuPkv3KT3TnV35m3", TargetAlbum, "1DFixLWuPkv3KT3TnV35m3"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTarget(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Type != tt.wantType {
				t.Errorf("expected type %s, got %s", tt.wantType, got.Type)
			}
			if got.ID != tt.wantID {
				t.Errorf("expected id %s, got %s", tt.wantID, got.ID)
			}
		})
	}

	t.Run("rejects foreign hosts", func(t *testing.T) {
		_, err := ParseTarget("https://example.com/playlist/abc")
		if !errors.Is(err, shared.ErrInvalidURL) {
			t.Errorf("expected ErrInvalidURL, got %v", err)
		}
	})

	t.Run("rejects unsupported types", func(t *testing.T) {
		_, err := ParseTarget("spotify:artist:abc")
		if !errors.Is(err, shared.ErrUnsupportedType) {
			t.Errorf("expected ErrUnsupportedType, got %v", err)
		}
	})
}

func TestTrack(t *testing.T) {
	track := Track{
		Name:       "Dark Horse",
		Artists:    []Artist{{Name: "Katy Perry", Genres: []string{"dance pop", "pop"}}, {Name: "Juicy J"}},
		DurationMS: 215_672,
		Album: Album{
			Name:        "PRISM",
			ReleaseDate: "2013-10-18",
			Images: []Image{
				{URL: "small", Width: 64, Height: 64},
				{URL: "large", Width: 640, Height: 640},
			},
		},
	}

	if got := track.JoinedArtists(); got != "Katy Perry, Juicy J" {
		t.Errorf("expected joined artists, got %q", got)
	}
	if got := track.Year(); got != "2013" {
		t.Errorf("expected year 2013, got %q", got)
	}
	if got := track.ArtURL(); got != "large" {
		t.Errorf("expected largest image, got %q", got)
	}
	if got := track.Duration(); got != 215672*time.Millisecond {
		t.Errorf("unexpected duration %v", got)
	}
	if got := track.Genres(); len(got) != 2 {
		t.Errorf("expected primary artist genres, got %v", got)
	}
}

func TestFeaturesInitialKey(t *testing.T) {
	tc := []struct {
		f    *Features
		want string
	}{
		{nil, ""},
		{&Features{Key: -1}, ""},
		{&Features{Key: 9, Mode: 0}, "Am"},
		{&Features{Key: 6, Mode: 1}, "F#"},
	}
	for _, tt := range tc {
		if got := tt.f.InitialKey(); got != tt.want {
			t.Errorf("InitialKey() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseAudioFormat(t *testing.T) {
	tc := []struct {
		in     string
		want   AudioFormat
		wantOK bool
	}{
		{"song.mp3", MP3, true},
		{".Song.spoti.m4a", M4A, true},
		{"FLAC", FLAC, true},
		{"notes.txt", "", false},
	}
	for _, tt := range tc {
		got, ok := ParseAudioFormat(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseAudioFormat(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
	if !M4A.Working() || MP3.Working() {
		t.Error("expected only m4a/mp4 to be working formats")
	}
}
