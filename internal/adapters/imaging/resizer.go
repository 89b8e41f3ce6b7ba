// Package imaging re-encodes uploaded offer images.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	// Registered decoders for uploads.
	_ "image/gif"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

var _ domain.ImageResizer = JPEGResizer{}

// MaxPixels bounds the decoded canvas of an upload, whatever its file size.
const MaxPixels = 40_000_000

// JPEGResizer scales images down to fit a bounding box and writes JPEG.
// Images that already fit are re-encoded at their original size.
type JPEGResizer struct{}

func NewJPEGResizer() JPEGResizer {
	return JPEGResizer{}
}

func (JPEGResizer) Resize(data []byte, maxWidth, maxHeight, quality int) ([]byte, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds %d pixels", domain.ErrInvalidImage, cfg.Width, cfg.Height, MaxPixels)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}

	b := src.Bounds()
	w, h := fit(b.Dx(), b.Dy(), maxWidth, maxHeight)
	if w == 0 || h == 0 {
		return nil, "", fmt.Errorf("%w: empty image", domain.ErrInvalidImage)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// JPEG has no alpha; transparent areas become white.
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)

	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, "", fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), "jpg", nil
}

// fit returns the largest size with the aspect ratio of w x h that fits
// inside maxW x maxH without upscaling. A non-positive bound is ignored.
func fit(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	scale := 1.0
	if maxW > 0 && w > maxW {
		scale = float64(maxW) / float64(w)
	}
	if maxH > 0 && float64(h)*scale > float64(maxH) {
		scale = float64(maxH) / float64(h)
	}
	nw := int(float64(w)*scale + 0.5)
	nh := int(float64(h)*scale + 0.5)
	return max(nw, 1), max(nh, 1)
}
