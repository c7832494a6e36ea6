// YouTube Music implementation of [Provider]
//
// Searches go through the ytmusicapi proxy (GET /api/search); audio streams are resolved with github.com/kkdai/youtube.
package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spoti/internal/models"
	"github.com/desertthunder/spoti/internal/shared"
	"github.com/kkdai/youtube/v2"
)

const defaultYTBaseURL string = "http://localhost:8080"

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a song in proxy search responses.
type YouTubeTrack struct {
	VideoID     string          `json:"videoId"`
	Title       string          `json:"title"`
	Artists     []YouTubeArtist `json:"artists"`
	Duration    string          `json:"duration"`
	DurationSec int             `json:"duration_seconds"`
}

// Candidate converts the proxy payload into a search candidate.
func (t YouTubeTrack) Candidate() models.Candidate {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}

	seconds := t.DurationSec
	if seconds == 0 {
		seconds = parseClock(t.Duration)
	}

	return models.Candidate{
		ID:         t.VideoID,
		Title:      t.Title,
		Artist:     strings.Join(names, ", "),
		DurationMS: seconds * 1000,
	}
}

// parseClock reads "m:ss" or "h:mm:ss" into seconds, returning 0 when malformed.
func parseClock(s string) int {
	if s == "" {
		return 0
	}
	total := 0
	for part := range strings.SplitSeq(s, ":") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// videoClient is the subset of [youtube.Client] used for downloads.
type videoClient interface {
	GetVideoContext(ctx context.Context, id string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

// YouTubeService implements [Provider].
type YouTubeService struct {
	api    *APIService
	videos videoClient
	logger *log.Logger
}

// NewYouTubeService creates a provider backed by the proxy at baseURL.
func NewYouTubeService(api *APIService, logger *log.Logger) *YouTubeService {
	if api == nil {
		api = NewAPIService(defaultYTBaseURL, nil)
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &YouTubeService{
		api:    api,
		videos: &youtube.Client{},
		logger: logger,
	}
}

// Search calls GET /api/search?q={query}&filter=songs on the proxy.
func (y *YouTubeService) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	endpoint := fmt.Sprintf("/api/search?q=%s&filter=songs", url.QueryEscape(query))

	var results []YouTubeTrack
	if err := y.api.GetJSON(ctx, endpoint, &results); err != nil {
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(results))
	for _, r := range results {
		if r.VideoID == "" {
			continue
		}
		candidates = append(candidates, r.Candidate())
	}

	y.logger.Debug("searched", "query", query, "results", len(candidates))
	return candidates, nil
}

// Download resolves the best audio-only mp4 stream for the candidate, falling back to a muxed mp4.
func (y *YouTubeService) Download(ctx context.Context, candidate models.Candidate) (*models.Stream, error) {
	video, err := y.videos.GetVideoContext(ctx, candidate.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: video %s: %v", shared.ErrServiceUnavailable, candidate.ID, err)
	}

	format, container := pickFormat(video.Formats)
	if format == nil {
		return nil, fmt.Errorf("%w: no mp4 audio stream for %s", shared.ErrUnsupportedFormat, candidate.ID)
	}

	body, size, err := y.videos.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("%w: stream %s: %v", shared.ErrServiceUnavailable, candidate.ID, err)
	}
	if size <= 0 {
		size = format.ContentLength
	}

	bitrate := format.AverageBitrate
	if bitrate == 0 {
		bitrate = format.Bitrate
	}

	y.logger.Debug("opened stream", "id", candidate.ID, "itag", format.ItagNo, "size", size, "bitrate", bitrate)
	return &models.Stream{Body: body, Size: size, Bitrate: bitrate, Format: container}, nil
}

func pickFormat(formats youtube.FormatList) (*youtube.Format, models.AudioFormat) {
	withAudio := formats.WithAudioChannels()
	for _, choice := range []struct {
		mime      string
		container models.AudioFormat
	}{
		{"audio/mp4", models.M4A},
		{"video/mp4", models.MP4},
	} {
		list := withAudio.Type(choice.mime)
		var best *youtube.Format
		for i := range list {
			if best == nil || list[i].Bitrate > best.Bitrate {
				best = &list[i]
			}
		}
		if best != nil {
			return best, choice.container
		}
	}
	return nil, ""
}
