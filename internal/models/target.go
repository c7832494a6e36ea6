package models

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/spoti/internal/shared"
)

// TargetType is the kind of catalog object a sync points at.
type TargetType string

const (
	TargetTrack    TargetType = "track"
	TargetAlbum    TargetType = "album"
	TargetPlaylist TargetType = "playlist"
)

// Target is the content of a metadata file: what was synced and from where.
type Target struct {
	Type TargetType `json:"type"`
	ID   string     `json:"id"`
	URL  string     `json:"url"`
}

// ParseTarget accepts open.spotify.com URLs (with or without a locale segment) and spotify: URIs.
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)

	if rest, ok := strings.CutPrefix(s, "spotify:"); ok {
		parts := strings.Split(rest, ":")
		if len(parts) != 2 {
			return Target{}, fmt.Errorf("%w: %s", shared.ErrInvalidURL, s)
		}
		return newTarget(parts[0], parts[1], s)
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return Target{}, fmt.Errorf("%w: %s", shared.ErrInvalidURL, s)
	}
	if !strings.HasSuffix(u.Host, "spotify.com") {
		return Target{}, fmt.Errorf("%w: unexpected host %s", shared.ErrInvalidURL, u.Host)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) > 0 && strings.HasPrefix(segments[0], "intl-") {
		segments = segments[1:]
	}
	if len(segments) < 2 {
		return Target{}, fmt.Errorf("%w: %s", shared.ErrInvalidURL, s)
	}
	return newTarget(segments[0], segments[1], s)
}

func newTarget(kind, id, raw string) (Target, error) {
	if id == "" {
		return Target{}, fmt.Errorf("%w: missing id in %s", shared.ErrInvalidURL, raw)
	}
	switch t := TargetType(kind); t {
	case TargetTrack, TargetAlbum, TargetPlaylist:
		return Target{Type: t, ID: id, URL: fmt.Sprintf("https://open.spotify.com/%s/%s", t, id)}, nil
	default:
		return Target{}, fmt.Errorf("%w: %s", shared.ErrUnsupportedType, kind)
	}
}
