// Spotify Web API implementation of [Catalog]
//
// Authenticates with the client credentials flow; no user scopes are needed to read public tracks, albums and playlists.
package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spoti/internal/models"
	"github.com/desertthunder/spoti/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// tracks per GetTracks call
const trackBatch = 50

// SpotifyService implements [Catalog] over github.com/zmb3/spotify.
type SpotifyService struct {
	client *spotify.Client
	logger *log.Logger
}

// SpotifyOptions configures [NewSpotifyService]. TokenURL and BaseURL default to Spotify's production endpoints.
type SpotifyOptions struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	BaseURL      string
	Logger       *log.Logger
}

// NewSpotifyService exchanges the client credentials for a token and returns an authenticated catalog.
func NewSpotifyService(ctx context.Context, opts SpotifyOptions) (*SpotifyService, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyauth.TokenURL
	}

	config := &clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     opts.TokenURL,
	}
	if _, err := config.Token(ctx); err != nil {
		return nil, fmt.Errorf("%w: spotify token exchange: %v", shared.ErrMissingCredentials, err)
	}

	var clientOpts []spotify.ClientOption
	clientOpts = append(clientOpts, spotify.WithRetry(true))
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, spotify.WithBaseURL(opts.BaseURL))
	}

	return NewSpotifyServiceWithClient(config.Client(ctx), opts.Logger, clientOpts...), nil
}

// NewSpotifyServiceWithClient wraps an already authenticated HTTP client.
func NewSpotifyServiceWithClient(httpClient *http.Client, logger *log.Logger, opts ...spotify.ClientOption) *SpotifyService {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &SpotifyService{client: spotify.New(httpClient, opts...), logger: logger}
}

func (s *SpotifyService) Track(ctx context.Context, id string) (*models.Track, error) {
	t, err := s.client.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return nil, fmt.Errorf("%w: track %s: %v", shared.ErrTrackNotFound, id, err)
	}
	track := trackFromFull(t)
	return &track, nil
}

func (s *SpotifyService) Album(ctx context.Context, id string) (*models.Album, []models.Track, error) {
	a, err := s.client.GetAlbum(ctx, spotify.ID(id))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: album %s: %v", shared.ErrAPIRequest, id, err)
	}
	album := albumFromSimple(a.SimpleAlbum)

	ids := make([]spotify.ID, 0, int(a.Tracks.Total))
	for _, t := range a.Tracks.Tracks {
		ids = append(ids, t.ID)
	}
	for offset := len(ids); offset < int(a.Tracks.Total); {
		page, err := s.client.GetAlbumTracks(ctx, spotify.ID(id), spotify.Limit(PageSize), spotify.Offset(offset))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: album %s tracks: %v", shared.ErrAPIRequest, id, err)
		}
		if len(page.Tracks) == 0 {
			break
		}
		for _, t := range page.Tracks {
			ids = append(ids, t.ID)
		}
		offset += len(page.Tracks)
	}

	tracks := make([]models.Track, 0, len(ids))
	for start := 0; start < len(ids); start += trackBatch {
		end := min(start+trackBatch, len(ids))
		full, err := s.client.GetTracks(ctx, ids[start:end])
		if err != nil {
			return nil, nil, fmt.Errorf("%w: album %s tracks: %v", shared.ErrAPIRequest, id, err)
		}
		for _, t := range full {
			if t != nil {
				tracks = append(tracks, trackFromFull(t))
			}
		}
	}

	s.logger.Debug("fetched album", "id", id, "tracks", len(tracks))
	return &album, tracks, nil
}

func (s *SpotifyService) Playlist(ctx context.Context, id string) (*models.Playlist, error) {
	p, err := s.client.GetPlaylist(ctx, spotify.ID(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrPlaylistNotFound, id, err)
	}
	return &models.Playlist{
		ID:    p.ID.String(),
		Name:  p.Name,
		Owner: p.Owner.DisplayName,
		URL:   p.ExternalURLs["spotify"],
		Total: int(p.Tracks.Total),
	}, nil
}

func (s *SpotifyService) PlaylistTracks(ctx context.Context, id string, offset, limit int) ([]models.Track, error) {
	if limit <= 0 || limit > PageSize {
		limit = PageSize
	}
	page, err := s.client.GetPlaylistItems(ctx, spotify.ID(id), spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return nil, fmt.Errorf("%w: playlist %s offset %d: %v", shared.ErrAPIRequest, id, offset, err)
	}

	tracks := make([]models.Track, 0, len(page.Items))
	for _, item := range page.Items {
		// episodes and local files carry no catalog track
		if item.Track.Track == nil || item.Track.Track.ID == "" {
			continue
		}
		tracks = append(tracks, trackFromFull(item.Track.Track))
	}
	return tracks, nil
}

func (s *SpotifyService) AudioFeatures(ctx context.Context, ids []string) (map[string]models.Features, error) {
	if len(ids) > FeatureBatch {
		return nil, fmt.Errorf("%w: at most %d ids per request", shared.ErrInvalidInput, FeatureBatch)
	}
	sids := make([]spotify.ID, len(ids))
	for i, id := range ids {
		sids[i] = spotify.ID(id)
	}

	features, err := s.client.GetAudioFeatures(ctx, sids...)
	if err != nil {
		return nil, fmt.Errorf("%w: audio features: %v", shared.ErrAPIRequest, err)
	}

	out := make(map[string]models.Features, len(features))
	for _, f := range features {
		if f == nil {
			continue
		}
		out[f.ID.String()] = models.Features{Tempo: float64(f.Tempo), Key: int(f.Key), Mode: int(f.Mode)}
	}
	return out, nil
}

func trackFromFull(t *spotify.FullTrack) models.Track {
	return models.Track{
		ID:          t.ID.String(),
		URI:         string(t.URI),
		URL:         t.ExternalURLs["spotify"],
		Name:        t.Name,
		Artists:     artistsFromSimple(t.Artists),
		Album:       albumFromSimple(t.Album),
		DurationMS:  int(t.Duration),
		TrackNumber: int(t.TrackNumber),
		ISRC:        t.ExternalIDs["isrc"],
	}
}

func albumFromSimple(a spotify.SimpleAlbum) models.Album {
	images := make([]models.Image, 0, len(a.Images))
	for _, img := range a.Images {
		images = append(images, models.Image{URL: img.URL, Width: int(img.Width), Height: int(img.Height)})
	}
	return models.Album{
		ID:          a.ID.String(),
		Name:        a.Name,
		Artists:     artistsFromSimple(a.Artists),
		ReleaseDate: a.ReleaseDate,
		Images:      images,
	}
}

func artistsFromSimple(artists []spotify.SimpleArtist) []models.Artist {
	out := make([]models.Artist, 0, len(artists))
	for _, a := range artists {
		out = append(out, models.Artist{ID: a.ID.String(), Name: a.Name})
	}
	return out
}
