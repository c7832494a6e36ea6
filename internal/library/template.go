package library

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/desertthunder/spoti/internal/models"
)

// DefaultTemplate names files "Katy Perry, Juicy J - Dark Horse.mp3".
const DefaultTemplate = "{artists} - {song}.{ext}"

var placeholder = regexp.MustCompile(`\{[a-z-]+\}`)

// Placeholders maps every supported template placeholder to its value for a track.
var Placeholders = map[string]func(t models.Track, ext models.AudioFormat) string{
	"{album}": func(t models.Track, _ models.AudioFormat) string { return t.Album.Name },
	"{album-artist}": func(t models.Track, _ models.AudioFormat) string {
		if len(t.Album.Artists) == 0 {
			return ""
		}
		return t.Album.Artists[0].Name
	},
	"{album-artists}": func(t models.Track, _ models.AudioFormat) string {
		names := make([]string, 0, len(t.Album.Artists))
		for _, a := range t.Album.Artists {
			names = append(names, a.Name)
		}
		return strings.Join(names, ", ")
	},
	"{artist}":  func(t models.Track, _ models.AudioFormat) string { return t.PrimaryArtist() },
	"{artists}": func(t models.Track, _ models.AudioFormat) string { return t.JoinedArtists() },
	"{duration}": func(t models.Track, _ models.AudioFormat) string {
		d := t.Duration()
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	},
	"{ext}": func(_ models.Track, ext models.AudioFormat) string { return ext.String() },
	"{genre}": func(t models.Track, _ models.AudioFormat) string {
		if g := t.Genres(); len(g) > 0 {
			return g[0]
		}
		return ""
	},
	"{genres}": func(t models.Track, _ models.AudioFormat) string { return strings.Join(t.Genres(), ", ") },
	"{id}":     func(t models.Track, _ models.AudioFormat) string { return t.ID },
	"{isrc}":   func(t models.Track, _ models.AudioFormat) string { return t.ISRC },
	"{song}":   func(t models.Track, _ models.AudioFormat) string { return t.Name },
	"{track-number}": func(t models.Track, _ models.AudioFormat) string {
		if t.TrackNumber <= 0 {
			return ""
		}
		return fmt.Sprintf("%02d", t.TrackNumber)
	},
	"{year}": func(t models.Track, _ models.AudioFormat) string { return t.Year() },
}

func expand(s string, t models.Track, ext models.AudioFormat) string {
	return placeholder.ReplaceAllStringFunc(s, func(p string) string {
		if fn, ok := Placeholders[p]; ok {
			return fn(t, ext)
		}
		return p
	})
}

// Render applies template to track. Everything before the last "." is the title and is sanitized;
// the remainder is the extension. Unknown placeholders are kept literally.
func Render(template string, t models.Track, ext models.AudioFormat) string {
	if template == "" {
		template = DefaultTemplate
	}
	base, suffix := template, "{ext}"
	if i := strings.LastIndex(template, "."); i >= 0 {
		base, suffix = template[:i], template[i+1:]
	}

	title := Sanitize(expand(base, t, ext))
	// separators left dangling by empty placeholders
	title = strings.Trim(title, " -_,")
	return title + "." + expand(suffix, t, ext)
}
