package workflows

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Preview defaults
const (
	PreviewMaxHeight = 720
	PreviewQuality   = 85
)

// Previewer turns an image URL into a compact inline data URL
type Previewer struct {
	fetcher   ImageFetcher
	maxHeight int
	quality   int
}

// NewPreviewer creates a previewer with the default size and quality
func NewPreviewer(fetcher ImageFetcher) *Previewer {
	return &Previewer{
		fetcher:   fetcher,
		maxHeight: PreviewMaxHeight,
		quality:   PreviewQuality,
	}
}

// DataURL fetches the image, scales it down to the preview height and
// re-encodes it as JPEG. Formats Go cannot decode are passed through as served.
func (p *Previewer) DataURL(ctx context.Context, rawURL string) (string, error) {
	data, meta, err := p.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch image: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		mime := ""
		if meta != nil {
			mime = strings.TrimSpace(strings.SplitN(meta.ContentType, ";", 2)[0])
		}
		if !strings.HasPrefix(mime, "image/") {
			return "", fmt.Errorf("image decode failed: %w", err)
		}
		return encodeDataURL(mime, data), nil
	}

	out, err := p.encode(img)
	if err != nil {
		return "", err
	}
	return encodeDataURL("image/jpeg", out), nil
}

func (p *Previewer) encode(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	if bounds.Dy() > p.maxHeight {
		img = imaging.Fit(img, bounds.Dx(), p.maxHeight, imaging.Lanczos)
	}

	// JPEG has no alpha channel
	flat := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), color.White)
	flat = imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return nil, fmt.Errorf("JPEG encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
