// Package artwork fetches album covers and normalizes them for embedding.
package artwork

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spoti/internal/services"
	"github.com/desertthunder/spoti/internal/shared"
	"github.com/desertthunder/spoti/internal/tags"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

// DefaultSize is the edge length covers are scaled down to.
const DefaultSize = 500

// Getter performs an HTTP GET against an absolute URL.
type Getter interface {
	Get(ctx context.Context, url string) (*services.APIResponse, error)
}

// Fetcher downloads cover images and re-encodes them as JPEG no larger than Size on either edge.
type Fetcher struct {
	client Getter
	size   uint
	logger *log.Logger
}

func NewFetcher(client Getter, size int, logger *log.Logger) *Fetcher {
	if size <= 0 {
		size = DefaultSize
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Fetcher{client: client, size: uint(size), logger: logger}
}

// Fetch returns the cover at url as a front-cover picture.
func (f *Fetcher) Fetch(ctx context.Context, url, description string) (*tags.Picture, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty artwork URL", shared.ErrInvalidInput)
	}

	resp, err := f.client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to download artwork: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: artwork download returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	data, err := Normalize(resp.Body, f.size)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("fetched artwork", "url", url, "bytes", len(data))
	return &tags.Picture{MIME: "image/jpeg", Description: description, Data: data}, nil
}

// Normalize decodes any supported image and re-encodes it as JPEG, shrinking it to fit within max x max.
// Images already within bounds are not upscaled.
func Normalize(data []byte, max uint) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork image: %w", err)
	}

	if max > 0 {
		b := img.Bounds()
		if uint(b.Dx()) > max || uint(b.Dy()) > max {
			img = resize.Thumbnail(max, max, img, resize.Lanczos3)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode artwork image: %w", err)
	}
	return buf.Bytes(), nil
}
