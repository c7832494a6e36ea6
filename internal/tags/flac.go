package tags

import (
	"fmt"
	"strings"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"
)

const userTextPrefix = "SPOTI."

// FLACCodec reads and writes Vorbis comments and PICTURE blocks.
type FLACCodec struct{}

// vorbis field names handled by this codec; anything else is preserved on write.
var managedFields = map[string]bool{
	flacvorbis.FIELD_TITLE:       true,
	flacvorbis.FIELD_ARTIST:      true,
	flacvorbis.FIELD_ALBUM:       true,
	"ALBUMARTIST":                true,
	flacvorbis.FIELD_GENRE:       true,
	flacvorbis.FIELD_DATE:        true,
	flacvorbis.FIELD_TRACKNUMBER: true,
	"BPM":                        true,
	"INITIALKEY":                 true,
	flacvorbis.FIELD_ISRC:        true,
}

func (FLACCodec) Read(path string) (*Tags, error) {
	f, err := goflac.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	t := &Tags{}
	for _, meta := range f.Meta {
		switch meta.Type {
		case goflac.VorbisComment:
			cmt, err := flacvorbis.ParseFromMetaDataBlock(*meta)
			if err != nil {
				continue
			}
			for _, c := range cmt.Comments {
				key, value, ok := strings.Cut(c, "=")
				if !ok {
					continue
				}
				assignVorbis(t, strings.ToUpper(key), value)
			}
		case goflac.Picture:
			if t.Picture != nil {
				continue
			}
			pic, err := flacpicture.ParseFromMetaDataBlock(*meta)
			if err != nil {
				continue
			}
			t.Picture = &Picture{MIME: pic.MIME, Description: pic.Description, Data: pic.ImageData}
		}
	}
	return t, nil
}

func assignVorbis(t *Tags, key, value string) {
	switch key {
	case flacvorbis.FIELD_TITLE:
		t.Title = value
	case flacvorbis.FIELD_ARTIST:
		t.Artist = value
	case flacvorbis.FIELD_ALBUM:
		t.Album = value
	case "ALBUMARTIST":
		t.AlbumArtist = value
	case flacvorbis.FIELD_GENRE:
		t.Genre = value
	case flacvorbis.FIELD_DATE:
		t.Year = value
	case flacvorbis.FIELD_TRACKNUMBER:
		t.TrackNumber = value
	case "BPM":
		t.BPM = value
	case "INITIALKEY":
		t.Key = value
	case flacvorbis.FIELD_ISRC:
		t.ISRC = value
	default:
		if desc, ok := strings.CutPrefix(key, userTextPrefix); ok {
			t.UserText = append(t.UserText, UserText{Description: "spoti." + strings.ToLower(desc), Value: value})
		}
	}
}

// Write replaces the managed Vorbis fields and front cover, keeping unrelated comments and blocks.
func (FLACCodec) Write(path string, t *Tags) error {
	f, err := goflac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	existing := &Tags{}
	var kept []string
	vendor := ""
	commentIndex := -1
	for i, meta := range f.Meta {
		if meta.Type != goflac.VorbisComment {
			continue
		}
		commentIndex = i
		cmt, err := flacvorbis.ParseFromMetaDataBlock(*meta)
		if err != nil {
			break
		}
		vendor = cmt.Vendor
		for _, c := range cmt.Comments {
			key, value, ok := strings.Cut(c, "=")
			if !ok {
				continue
			}
			upper := strings.ToUpper(key)
			if managedFields[upper] || strings.HasPrefix(upper, userTextPrefix) {
				assignVorbis(existing, upper, value)
				continue
			}
			kept = append(kept, c)
		}
		break
	}

	merged := existing.Merge(t)

	cmt := flacvorbis.New()
	if vendor != "" {
		cmt.Vendor = vendor
	}
	cmt.Comments = append(cmt.Comments, kept...)
	for _, field := range []struct{ key, value string }{
		{flacvorbis.FIELD_TITLE, merged.Title},
		{flacvorbis.FIELD_ARTIST, merged.Artist},
		{flacvorbis.FIELD_ALBUM, merged.Album},
		{"ALBUMARTIST", merged.AlbumArtist},
		{flacvorbis.FIELD_GENRE, merged.Genre},
		{flacvorbis.FIELD_DATE, merged.Year},
		{flacvorbis.FIELD_TRACKNUMBER, merged.TrackNumber},
		{"BPM", merged.BPM},
		{"INITIALKEY", merged.Key},
		{flacvorbis.FIELD_ISRC, merged.ISRC},
	} {
		if field.value != "" {
			if err := cmt.Add(field.key, field.value); err != nil {
				return fmt.Errorf("failed to add %s comment: %w", field.key, err)
			}
		}
	}
	for _, ut := range merged.UserText {
		key := userTextPrefix + strings.ToUpper(strings.TrimPrefix(ut.Description, "spoti."))
		if err := cmt.Add(key, ut.Value); err != nil {
			return fmt.Errorf("failed to add %s comment: %w", key, err)
		}
	}

	block := cmt.Marshal()
	if commentIndex >= 0 {
		f.Meta[commentIndex] = &block
	} else {
		f.Meta = append(f.Meta, &block)
	}

	if t.Picture != nil && len(t.Picture.Data) > 0 {
		pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, t.Picture.Description, t.Picture.Data, t.Picture.MIME)
		if err != nil {
			return fmt.Errorf("failed to build picture block: %w", err)
		}
		meta := f.Meta[:0]
		for _, m := range f.Meta {
			if m.Type != goflac.Picture {
				meta = append(meta, m)
			}
		}
		picBlock := pic.Marshal()
		f.Meta = append(meta, &picBlock)
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("failed to save FLAC file: %w", err)
	}
	return nil
}
