package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/spoti/internal/shared"
)

// script writes an executable shell script and returns its path.
func script(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "bin")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func TestArgs(t *testing.T) {
	tests := []struct {
		name    string
		dst     string
		bitrate int
		want    []string
	}{
		{"mp3 without bitrate", "out.mp3", 0, []string{"-c:a", "libmp3lame", "-q:a", "2", "out.mp3"}},
		{"mp3 with bitrate", "out.mp3", 128000, []string{"-c:a", "libmp3lame", "-q:a", "2", "-b:a", "128k", "out.mp3"}},
		{"flac", "out.flac", 160000, []string{"-c:a", "flac", "out.flac"}},
		{"wav", "out.wav", 0, []string{"-c:a", "pcm_s16le", "out.wav"}},
		{"aac", "out.aac", 0, []string{"-c:a", "aac", "out.aac"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := Args("in.m4a", tt.dst, tt.bitrate)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			prefix := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", "in.m4a", "-vn"}
			if !slices.Equal(args[:len(prefix)], prefix) {
				t.Errorf("unexpected prefix %v", args[:len(prefix)])
			}
			if got := args[len(prefix):]; !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	t.Run("working format is rejected", func(t *testing.T) {
		if _, err := Args("in.webm", "out.m4a", 0); !errors.Is(err, shared.ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
	})
}

func TestFFmpegConvert(t *testing.T) {
	t.Run("success leaves output", func(t *testing.T) {
		f := NewFFmpeg(nil)
		f.Bin = script(t, `for last; do :; done; printf audio > "$last"`)

		dst := filepath.Join(t.TempDir(), "out.mp3")
		if err := f.Convert(context.Background(), "in.m4a", dst, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if data, _ := os.ReadFile(dst); string(data) != "audio" {
			t.Errorf("expected output to be written, got %q", data)
		}
	})

	t.Run("failure removes partial output", func(t *testing.T) {
		f := NewFFmpeg(nil)
		f.Bin = script(t, `for last; do :; done; printf partial > "$last"; echo "boom" >&2; exit 1`)

		dst := filepath.Join(t.TempDir(), "out.mp3")
		err := f.Convert(context.Background(), "in.m4a", dst, 0)
		if !errors.Is(err, shared.ErrTranscodeFailed) {
			t.Fatalf("expected ErrTranscodeFailed, got %v", err)
		}
		if _, err := os.Stat(dst); !os.IsNotExist(err) {
			t.Error("expected partial output to be removed")
		}
	})

	t.Run("missing output is a failure", func(t *testing.T) {
		f := NewFFmpeg(nil)
		f.Bin = script(t, `exit 0`)
		err := f.Convert(context.Background(), "in.m4a", filepath.Join(t.TempDir(), "out.mp3"), 0)
		if !errors.Is(err, shared.ErrTranscodeFailed) {
			t.Errorf("expected ErrTranscodeFailed, got %v", err)
		}
	})
}

func TestFFmpegDuration(t *testing.T) {
	t.Run("parses ffprobe output", func(t *testing.T) {
		f := NewFFmpeg(nil)
		f.Probe = script(t, `echo 181.500000`)
		d, err := f.Duration(context.Background(), "song.mp3")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d != 181500*time.Millisecond {
			t.Errorf("expected 181.5s, got %v", d)
		}
	})

	t.Run("probe failure", func(t *testing.T) {
		f := NewFFmpeg(nil)
		f.Probe = script(t, `echo "no such file" >&2; exit 1`)
		if _, err := f.Duration(context.Background(), "song.mp3"); err == nil {
			t.Error("expected error")
		}
	})
}

func TestParseSeconds(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"183.0\n", 183 * time.Second, false},
		{"0.0015", 2 * time.Millisecond, false},
		{"N/A", 0, true},
		{"", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSeconds(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
