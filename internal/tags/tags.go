// Package tags reads and writes embedded audio metadata.
//
// A [Codec] is chosen per file format by [Registry]: ID3v2 for mp3, Vorbis comments for flac,
// and a read-only fallback for everything else. Free-form user text pairs carry the identity
// ([IdentityKey]) and duration ([DurationKey]) markers used for idempotency checks.
package tags

import (
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/spoti/internal/models"
	"github.com/desertthunder/spoti/internal/shared"
)

const (
	// IdentityKey holds the catalog track ID.
	IdentityKey = "spoti.id"

	// DurationKey holds the measured duration in milliseconds.
	DurationKey = "spoti.duration"

	// URLKey holds the catalog URL of the track.
	URLKey = "spoti.url"
)

// Picture is an embedded image.
type Picture struct {
	MIME        string
	Description string
	Data        []byte
}

// UserText is a free-form (description, value) pair.
type UserText struct {
	Description string
	Value       string
}

// Tags is the subset of metadata spoti reads and writes, independent of container.
type Tags struct {
	Title       string
	Artist      string
	Album       string
	AlbumArtist string
	Genre       string
	Year        string
	TrackNumber string
	BPM         string
	Key         string
	ISRC        string
	Picture     *Picture
	UserText    []UserText
}

// Get returns the user text value for description.
func (t *Tags) Get(description string) (string, bool) {
	if t == nil {
		return "", false
	}
	for _, ut := range t.UserText {
		if ut.Description == description {
			return ut.Value, true
		}
	}
	return "", false
}

// Set replaces the user text value for description, appending it when absent.
func (t *Tags) Set(description, value string) {
	for i := range t.UserText {
		if t.UserText[i].Description == description {
			t.UserText[i].Value = value
			return
		}
	}
	t.UserText = append(t.UserText, UserText{Description: description, Value: value})
}

// ID returns the embedded identity, or "".
func (t *Tags) ID() string {
	id, _ := t.Get(IdentityKey)
	return id
}

// Duration returns the embedded duration marker.
func (t *Tags) Duration() (time.Duration, bool) {
	v, ok := t.Get(DurationKey)
	if !ok {
		return 0, false
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms <= 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

// SetDuration stores d as whole milliseconds.
func (t *Tags) SetDuration(d time.Duration) {
	t.Set(DurationKey, strconv.FormatInt(d.Milliseconds(), 10))
}

// Merge returns a copy of t overlaid with every non-empty field of over.
func (t *Tags) Merge(over *Tags) *Tags {
	out := &Tags{}
	if t != nil {
		*out = *t
		out.UserText = append([]UserText(nil), t.UserText...)
	}
	if over == nil {
		return out
	}

	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&out.Title, over.Title)
	pick(&out.Artist, over.Artist)
	pick(&out.Album, over.Album)
	pick(&out.AlbumArtist, over.AlbumArtist)
	pick(&out.Genre, over.Genre)
	pick(&out.Year, over.Year)
	pick(&out.TrackNumber, over.TrackNumber)
	pick(&out.BPM, over.BPM)
	pick(&out.Key, over.Key)
	pick(&out.ISRC, over.ISRC)
	if over.Picture != nil {
		out.Picture = over.Picture
	}
	for _, ut := range over.UserText {
		out.Set(ut.Description, ut.Value)
	}
	return out
}

// Codec reads and writes tags for one container format.
type Codec interface {
	Read(path string) (*Tags, error)
	Write(path string, t *Tags) error
}

// Registry dispatches to a [Codec] by file extension.
type Registry struct {
	codecs   map[models.AudioFormat]Codec
	fallback Codec
}

// NewRegistry returns a registry with the mp3 and flac writers and the read-only fallback.
func NewRegistry() *Registry {
	return &Registry{
		codecs: map[models.AudioFormat]Codec{
			models.MP3:  ID3Codec{},
			models.FLAC: FLACCodec{},
		},
		fallback: GenericCodec{},
	}
}

func (r *Registry) codec(path string) (Codec, error) {
	format, ok := models.ParseAudioFormat(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnsupportedFormat, path)
	}
	if c, ok := r.codecs[format]; ok {
		return c, nil
	}
	return r.fallback, nil
}

func (r *Registry) Read(path string) (*Tags, error) {
	c, err := r.codec(path)
	if err != nil {
		return nil, err
	}
	return c.Read(path)
}

func (r *Registry) Write(path string, t *Tags) error {
	c, err := r.codec(path)
	if err != nil {
		return err
	}
	return c.Write(path, t)
}

// Writable reports whether tags can be written for the given file.
func (r *Registry) Writable(path string) bool {
	format, ok := models.ParseAudioFormat(path)
	if !ok {
		return false
	}
	_, ok = r.codecs[format]
	return ok
}
