package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels matches PIL's MAX_IMAGE_PIXELS (1024*1024*1024/4/3).
const DefaultMaxPixels int64 = 178956970

// ErrDecode marks uploads that are not a supported image.
var ErrDecode = errors.New("invalid image")

// Decode reads an encoded image (JPEG, PNG, GIF, BMP, TIFF or WebP) of at
// most DefaultMaxPixels and returns it with its format name.
func Decode(r io.Reader) (image.Image, string, error) {
	return DecodeLimited(r, DefaultMaxPixels)
}

// DecodeLimited is Decode with an explicit pixel cap. The header is checked
// before any pixel data is decoded; maxPixels <= 0 disables the check.
func DecodeLimited(r io.Reader, maxPixels int64) (image.Image, string, error) {
	var header bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &header))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", fmt.Errorf("%w: image has no pixels", ErrDecode)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); maxPixels > 0 && pixels > maxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds the %d pixel limit", ErrDecode, cfg.Width, cfg.Height, maxPixels)
	}

	img, format, err := image.Decode(io.MultiReader(&header, r))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if img.Bounds().Empty() {
		return nil, "", fmt.Errorf("%w: image has no pixels", ErrDecode)
	}
	return img, format, nil
}
