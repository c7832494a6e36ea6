package tags

import (
	"math"
	"strconv"
	"strings"

	"github.com/desertthunder/spoti/internal/models"
)

// FromTrack composes the descriptive tags for a catalog track. Identity, duration and artwork are added by the caller.
func FromTrack(t models.Track) *Tags {
	out := &Tags{
		Title:  t.Name,
		Artist: t.JoinedArtists(),
		Album:  t.Album.Name,
		Genre:  strings.Join(t.Genres(), ", "),
		Year:   t.Year(),
		ISRC:   t.ISRC,
	}

	names := make([]string, 0, len(t.Album.Artists))
	for _, a := range t.Album.Artists {
		names = append(names, a.Name)
	}
	out.AlbumArtist = strings.Join(names, ", ")

	if t.TrackNumber > 0 {
		out.TrackNumber = strconv.Itoa(t.TrackNumber)
	}
	if t.Features != nil {
		if t.Features.Tempo > 0 {
			out.BPM = strconv.Itoa(int(math.Round(t.Features.Tempo)))
		}
		out.Key = t.Features.InitialKey()
	}
	if t.URL != "" {
		out.Set(URLKey, t.URL)
	}
	return out
}
