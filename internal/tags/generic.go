package tags

import (
	"fmt"
	"os"
	"strconv"

	"github.com/desertthunder/spoti/internal/shared"
	"github.com/dhowden/tag"
)

// GenericCodec reads common fields from any container dhowden/tag understands (MP4/M4A, OGG, ...).
// It cannot write.
type GenericCodec struct{}

func (GenericCodec) Read(path string) (*Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	t := &Tags{
		Title:       m.Title(),
		Artist:      m.Artist(),
		Album:       m.Album(),
		AlbumArtist: m.AlbumArtist(),
		Genre:       m.Genre(),
	}
	if y := m.Year(); y > 0 {
		t.Year = strconv.Itoa(y)
	}
	if n, _ := m.Track(); n > 0 {
		t.TrackNumber = strconv.Itoa(n)
	}
	if p := m.Picture(); p != nil {
		t.Picture = &Picture{MIME: p.MIMEType, Description: p.Description, Data: p.Data}
	}
	return t, nil
}

func (GenericCodec) Write(path string, _ *Tags) error {
	return fmt.Errorf("%w: cannot write tags to %s", shared.ErrUnsupportedFormat, path)
}
