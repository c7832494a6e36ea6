package tags

import (
	"fmt"

	"github.com/bogem/id3v2/v2"
)

// ID3v2.4 frame IDs not covered by the id3v2 convenience setters.
const (
	frameAlbumArtist = "TPE2"
	frameTrack       = "TRCK"
	frameBPM         = "TBPM"
	frameKey         = "TKEY"
	frameISRC        = "TSRC"
	frameUserText    = "TXXX"
	framePicture     = "APIC"
)

// ID3Codec reads and writes ID3v2.4 tags.
type ID3Codec struct{}

func (ID3Codec) Read(path string) (*Tags, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read id3 tags: %w", err)
	}
	defer tag.Close()

	t := &Tags{
		Title:       tag.Title(),
		Artist:      tag.Artist(),
		Album:       tag.Album(),
		AlbumArtist: tag.GetTextFrame(frameAlbumArtist).Text,
		Genre:       tag.Genre(),
		Year:        tag.Year(),
		TrackNumber: tag.GetTextFrame(frameTrack).Text,
		BPM:         tag.GetTextFrame(frameBPM).Text,
		Key:         tag.GetTextFrame(frameKey).Text,
		ISRC:        tag.GetTextFrame(frameISRC).Text,
	}

	for _, f := range tag.GetFrames(frameUserText) {
		if udtf, ok := f.(id3v2.UserDefinedTextFrame); ok {
			t.UserText = append(t.UserText, UserText{Description: udtf.Description, Value: udtf.Value})
		}
	}

	for _, f := range tag.GetFrames(framePicture) {
		if pic, ok := f.(id3v2.PictureFrame); ok {
			t.Picture = &Picture{MIME: pic.MimeType, Description: pic.Description, Data: pic.Picture}
			break
		}
	}

	return t, nil
}

// Write stores every non-empty field of t. Existing tags that fail to parse are discarded.
func (ID3Codec) Write(path string, t *Tags) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		tag, err = id3v2.Open(path, id3v2.Options{Parse: false})
		if err != nil {
			return fmt.Errorf("failed to open %s for tagging: %w", path, err)
		}
	}
	defer tag.Close()

	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	enc := tag.DefaultEncoding()

	if t.Title != "" {
		tag.SetTitle(t.Title)
	}
	if t.Artist != "" {
		tag.SetArtist(t.Artist)
	}
	if t.Album != "" {
		tag.SetAlbum(t.Album)
	}
	if t.Genre != "" {
		tag.SetGenre(t.Genre)
	}
	if t.Year != "" {
		tag.SetYear(t.Year)
	}

	for id, value := range map[string]string{
		frameAlbumArtist: t.AlbumArtist,
		frameTrack:       t.TrackNumber,
		frameBPM:         t.BPM,
		frameKey:         t.Key,
		frameISRC:        t.ISRC,
	} {
		if value != "" {
			tag.AddTextFrame(id, enc, value)
		}
	}

	if len(t.UserText) > 0 {
		// TXXX frames can only be dropped as a group.
		existing := &Tags{}
		for _, f := range tag.GetFrames(frameUserText) {
			if udtf, ok := f.(id3v2.UserDefinedTextFrame); ok {
				existing.UserText = append(existing.UserText, UserText{Description: udtf.Description, Value: udtf.Value})
			}
		}
		merged := existing.Merge(&Tags{UserText: t.UserText})

		tag.DeleteFrames(frameUserText)
		for _, ut := range merged.UserText {
			tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
				Encoding:    enc,
				Description: ut.Description,
				Value:       ut.Value,
			})
		}
	}

	if t.Picture != nil && len(t.Picture.Data) > 0 {
		tag.DeleteFrames(framePicture)
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    enc,
			MimeType:    t.Picture.MIME,
			PictureType: id3v2.PTFrontCover,
			Description: t.Picture.Description,
			Picture:     t.Picture.Data,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save id3 tags: %w", err)
	}
	return nil
}
