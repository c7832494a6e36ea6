package models

import (
	"io"
	"path/filepath"
	"strings"
	"time"
)

// AudioFormat is a container format identified by its file extension.
type AudioFormat string

const (
	MP3  AudioFormat = "mp3"
	FLAC AudioFormat = "flac"
	WAV  AudioFormat = "wav"
	AAC  AudioFormat = "aac"
	M4A  AudioFormat = "m4a"
	MP4  AudioFormat = "mp4"
)

// OutputFormats are the formats a finished library file may have.
var OutputFormats = []AudioFormat{MP3, FLAC, WAV, AAC}

// WorkingFormats are the formats downloads arrive in, in source preference order.
var WorkingFormats = []AudioFormat{M4A, MP4}

// ParseAudioFormat detects a format from a file name or bare extension.
func ParseAudioFormat(s string) (AudioFormat, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(s), "."))
	if ext == "" {
		ext = strings.ToLower(strings.TrimPrefix(s, "."))
	}
	switch f := AudioFormat(ext); f {
	case MP3, FLAC, WAV, AAC, M4A, MP4:
		return f, true
	}
	return "", false
}

// Working reports whether the format is an intermediate download format.
func (f AudioFormat) Working() bool {
	return f == M4A || f == MP4
}

func (f AudioFormat) String() string {
	return string(f)
}

// Artist is a catalog artist. Genres are only populated when the catalog returns them.
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres,omitempty"`
}

// Image is album artwork at a given resolution.
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Album is the catalog album a track belongs to.
type Album struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []Artist `json:"artists"`
	ReleaseDate string   `json:"release_date"`
	Images      []Image  `json:"images,omitempty"`
}

// Features holds audio analysis values. Key is a pitch class (0 = C) or -1 when unknown; Mode is 1 for major, 0 for minor.
type Features struct {
	Tempo float64 `json:"tempo"`
	Key   int     `json:"key"`
	Mode  int     `json:"mode"`
}

var pitchClasses = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// InitialKey renders the key in standard notation ("Am", "F#"), or "" when unknown.
func (f *Features) InitialKey() string {
	if f == nil || f.Key < 0 || f.Key >= len(pitchClasses) {
		return ""
	}
	if f.Mode == 0 {
		return pitchClasses[f.Key] + "m"
	}
	return pitchClasses[f.Key]
}

// Track describes a catalog track. It is never mutated after the catalog fetch, apart from attaching Features.
type Track struct {
	ID          string    `json:"id"`
	URI         string    `json:"uri"`
	URL         string    `json:"url"`
	Name        string    `json:"name"`
	Artists     []Artist  `json:"artists"`
	Album       Album     `json:"album"`
	DurationMS  int       `json:"duration_ms"`
	TrackNumber int       `json:"track_number"`
	ISRC        string    `json:"isrc,omitempty"`
	Features    *Features `json:"features,omitempty"`
}

// Duration returns the catalog duration.
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationMS) * time.Millisecond
}

// ArtistNames returns the artist names in catalog order.
func (t Track) ArtistNames() []string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return names
}

// JoinedArtists returns every artist name separated by ", ".
func (t Track) JoinedArtists() string {
	return strings.Join(t.ArtistNames(), ", ")
}

// PrimaryArtist returns the first artist name, or "".
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}

// Genres returns the primary artist's genres.
func (t Track) Genres() []string {
	if len(t.Artists) == 0 {
		return nil
	}
	return t.Artists[0].Genres
}

// Year returns the year portion of the album release date.
func (t Track) Year() string {
	year, _, _ := strings.Cut(t.Album.ReleaseDate, "-")
	return year
}

// ArtURL returns the largest album image URL, or "" when the album has none.
func (t Track) ArtURL() string {
	best := -1
	url := ""
	for _, img := range t.Album.Images {
		if area := img.Width * img.Height; area > best {
			best = area
			url = img.URL
		}
	}
	return url
}

// Candidate is a raw search hit from the audio provider.
type Candidate struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	DurationMS int    `json:"duration_ms"`
}

// Duration returns the provider-reported duration.
func (c Candidate) Duration() time.Duration {
	return time.Duration(c.DurationMS) * time.Millisecond
}

// SearchResult records a provider lookup. A nil Candidate is a cached "nothing matched".
type SearchResult struct {
	Query     string     `json:"query"`
	Candidate *Candidate `json:"candidate,omitempty"`
}

// DownloadResult describes a file that satisfies a [Download].
type DownloadResult struct {
	File    string      `json:"file"`
	Path    string      `json:"path"`
	Format  AudioFormat `json:"format"`
	Bitrate int         `json:"bitrate,omitempty"`
}

// Download is the deterministic destination of a track in the library.
type Download struct {
	Title   string          `json:"title"`
	File    string          `json:"file"`
	Path    string          `json:"path"`
	Format  AudioFormat     `json:"format"`
	Bitrate int             `json:"bitrate,omitempty"`
	Result  *DownloadResult `json:"result,omitempty"`
}

// Playlist is the catalog playlist header. Tracks are fetched separately in pages.
type Playlist struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner string `json:"owner,omitempty"`
	URL   string `json:"url"`
	Total int    `json:"total"`
}

// Stream is an open audio download. Size is the expected byte count, or 0 when the provider gives no hint.
// Bitrate is in bits per second.
type Stream struct {
	Body    io.ReadCloser
	Size    int64
	Bitrate int
	Format  AudioFormat
}
