// package services defines the capability interfaces the pipeline consumes from remote systems
//
// Spotify (catalog), YouTube (search via proxy, download)
package services

import (
	"context"

	"github.com/desertthunder/spoti/internal/models"
)

// PageSize is the number of playlist items requested per catalog call.
const PageSize = 50

// FeatureBatch is the maximum number of track IDs per audio-features request.
const FeatureBatch = 100

// Catalog looks up track metadata.
type Catalog interface {
	// Track fetches a single track.
	Track(ctx context.Context, id string) (*models.Track, error)

	// Album fetches an album and every track on it.
	Album(ctx context.Context, id string) (*models.Album, []models.Track, error)

	// Playlist fetches the playlist header, including its total track count.
	Playlist(ctx context.Context, id string) (*models.Playlist, error)

	// PlaylistTracks fetches one page of playlist tracks.
	PlaylistTracks(ctx context.Context, id string, offset, limit int) ([]models.Track, error)

	// AudioFeatures fetches features for up to [FeatureBatch] tracks. Tracks without features are absent from the map.
	AudioFeatures(ctx context.Context, ids []string) (map[string]models.Features, error)
}

// Provider searches for and downloads audio.
type Provider interface {
	// Search returns raw candidates in provider relevance order.
	Search(ctx context.Context, query string) ([]models.Candidate, error)

	// Download opens the audio stream for a candidate. The caller closes Body.
	Download(ctx context.Context, candidate models.Candidate) (*models.Stream, error)
}
