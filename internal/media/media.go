// Package media shells out to ffmpeg and ffprobe.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spoti/internal/models"
	"github.com/desertthunder/spoti/internal/shared"
)

// Transcoder converts a working file into an output format. bitrate is in bits per second; 0 means unknown.
type Transcoder interface {
	Convert(ctx context.Context, src, dst string, bitrate int) error
}

// Prober measures the playback duration of a file.
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// FFmpeg implements [Transcoder] and [Prober] with the ffmpeg suite.
type FFmpeg struct {
	Bin    string
	Probe  string
	logger *log.Logger
}

func NewFFmpeg(logger *log.Logger) *FFmpeg {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &FFmpeg{Bin: "ffmpeg", Probe: "ffprobe", logger: logger}
}

// Available reports whether the ffmpeg binary is on PATH.
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.Bin)
	return err == nil
}

// Args builds the ffmpeg argument list for converting src into dst. The codec is picked from dst's extension.
func Args(src, dst string, bitrate int) ([]string, error) {
	format, ok := models.ParseAudioFormat(dst)
	if !ok || format.Working() {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnsupportedFormat, dst)
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", src, "-vn"}
	switch format {
	case models.MP3:
		args = append(args, "-c:a", "libmp3lame", "-q:a", "2")
		if bitrate > 0 {
			args = append(args, "-b:a", fmt.Sprintf("%dk", bitrate/1000))
		}
	case models.FLAC:
		args = append(args, "-c:a", "flac")
	case models.WAV:
		args = append(args, "-c:a", "pcm_s16le")
	case models.AAC:
		args = append(args, "-c:a", "aac")
		if bitrate > 0 {
			args = append(args, "-b:a", fmt.Sprintf("%dk", bitrate/1000))
		}
	}
	return append(args, dst), nil
}

// Convert runs ffmpeg. A failed run removes whatever partial output it left behind; src is never touched.
func (f *FFmpeg) Convert(ctx context.Context, src, dst string, bitrate int) error {
	args, err := Args(src, dst, bitrate)
	if err != nil {
		return err
	}

	f.logger.Debug("transcoding", "src", src, "dst", dst, "bitrate", bitrate)

	cmd := exec.CommandContext(ctx, f.Bin, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(dst)
		if trimmed := strings.TrimSpace(string(output)); trimmed != "" {
			return fmt.Errorf("%w: %v: %s", shared.ErrTranscodeFailed, err, trimmed)
		}
		return fmt.Errorf("%w: %v", shared.ErrTranscodeFailed, err)
	}

	if _, err := os.Stat(dst); err != nil {
		return fmt.Errorf("%w: output not found after conversion", shared.ErrTranscodeFailed)
	}
	return nil
}

// Duration asks ffprobe for the container duration.
func (f *FFmpeg) Duration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, f.Probe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return 0, fmt.Errorf("ffprobe failed: %v: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	return ParseSeconds(string(output))
}

// ParseSeconds converts ffprobe's fractional seconds output into a duration with millisecond precision.
func ParseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0, fmt.Errorf("no duration reported")
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return time.Duration(secs*1000+0.5) * time.Millisecond, nil
}
