package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spoti/internal/models"
	"github.com/desertthunder/spoti/internal/services"
	"github.com/desertthunder/spoti/internal/shared"
)

// Source is everything fetched from the catalog for one target.
type Source struct {
	Target models.Target  `json:"target"`
	Name   string         `json:"name"`
	Tracks []models.Track `json:"tracks"`
}

// Fetch resolves target into its tracks. Playlists are paged [services.PageSize] items at a time.
// Audio features are attached on a best-effort basis: a failure is logged and the tracks are returned without them.
func Fetch(ctx context.Context, catalog services.Catalog, target models.Target, progress chan<- ProgressUpdate, logger *log.Logger) (*Source, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	src := &Source{Target: target}
	sendProgress(progress, fetchCatalogUpdate(0, 0, target.Type, ""))

	switch target.Type {
	case models.TargetTrack:
		track, err := catalog.Track(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		src.Name = track.JoinedArtists() + " - " + track.Name
		src.Tracks = []models.Track{*track}
	case models.TargetAlbum:
		album, tracks, err := catalog.Album(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		src.Name = album.Name
		src.Tracks = tracks
	case models.TargetPlaylist:
		pl, err := catalog.Playlist(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		src.Name = pl.Name
		tracks, err := playlistTracks(ctx, catalog, pl, progress)
		if err != nil {
			return nil, err
		}
		src.Tracks = tracks
	default:
		return nil, fmt.Errorf("%w: %s", shared.ErrUnsupportedType, target.Type)
	}

	sendProgress(progress, fetchCatalogUpdate(len(src.Tracks), len(src.Tracks), target.Type, src.Name))

	if err := attachFeatures(ctx, catalog, src.Tracks, progress); err != nil {
		logger.Warn("audio features unavailable", "err", err)
	}
	return src, nil
}

func playlistTracks(ctx context.Context, catalog services.Catalog, pl *models.Playlist, progress chan<- ProgressUpdate) ([]models.Track, error) {
	tracks := make([]models.Track, 0, pl.Total)
	for offset := 0; ; offset += services.PageSize {
		page, err := catalog.PlaylistTracks(ctx, pl.ID, offset, services.PageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch playlist page at offset %d: %w", offset, err)
		}
		tracks = append(tracks, page...)
		sendProgress(progress, fetchCatalogUpdate(min(offset+services.PageSize, pl.Total), pl.Total, models.TargetPlaylist, pl.Name))

		// pages skip local and removed tracks, so a short page is not the end
		if offset+services.PageSize >= pl.Total {
			break
		}
	}
	return tracks, nil
}

func attachFeatures(ctx context.Context, catalog services.Catalog, tracks []models.Track, progress chan<- ProgressUpdate) error {
	for start := 0; start < len(tracks); start += services.FeatureBatch {
		end := min(start+services.FeatureBatch, len(tracks))

		ids := make([]string, 0, end-start)
		for _, t := range tracks[start:end] {
			ids = append(ids, t.ID)
		}

		features, err := catalog.AudioFeatures(ctx, ids)
		if err != nil {
			return err
		}
		for i := start; i < end; i++ {
			if f, ok := features[tracks[i].ID]; ok {
				tracks[i].Features = &f
			}
		}
		sendProgress(progress, fetchFeaturesUpdate(end, len(tracks)))
	}
	return nil
}
