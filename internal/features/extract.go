package features

import (
	"errors"
	"fmt"
	"image"
)

// DefaultSize is the spatial edge length the bundled model was trained on.
const DefaultSize = 256

var (
	ErrEmptyImage         = errors.New("image has no pixels")
	ErrBackendUnavailable = errors.New("extractor backend not compiled into this binary")
)

// Extractor turns a decoded colour image into the fused model input plus the
// normalised edge-intensity map used for visualisation.
type Extractor interface {
	Extract(img image.Image) (*Tensor, *image.Gray, error)
}

// NewExtractor returns the extractor for backend ("native" or "opencv").
func NewExtractor(backend string, size int) (Extractor, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid tensor size %d", size)
	}
	switch backend {
	case "", "native":
		return NewNativeExtractor(size), nil
	case "opencv":
		return newOpenCVExtractor(size)
	default:
		return nil, fmt.Errorf("unknown extractor backend %q", backend)
	}
}

type NativeExtractor struct {
	size int
}

func NewNativeExtractor(size int) *NativeExtractor {
	return &NativeExtractor{size: size}
}

func (e *NativeExtractor) Extract(img image.Image) (*Tensor, *image.Gray, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, nil, ErrEmptyImage
	}

	resized := resizeLinear(toRGB(img), e.size, e.size)
	hsv := resized.hsv()
	edges := normalizeEdges(laplacian(resized.gray()), e.size, e.size)

	return fuse(resized.pix, hsv, edges.Pix, e.size), edges, nil
}

// fuse packs interleaved RGB and HSV rasters and the edge plane into a
// channel-first tensor scaled to [0,1].
func fuse(rgb, hsv, edges []uint8, size int) *Tensor {
	t := newTensor(size)
	plane := size * size

	for p := 0; p < plane; p++ {
		i := p * 3
		t.Data[p] = float32(rgb[i]) / 255
		t.Data[plane+p] = float32(rgb[i+1]) / 255
		t.Data[2*plane+p] = float32(rgb[i+2]) / 255
		t.Data[3*plane+p] = float32(hsv[i]) / 255
		t.Data[4*plane+p] = float32(hsv[i+1]) / 255
		t.Data[5*plane+p] = float32(hsv[i+2]) / 255
		t.Data[6*plane+p] = float32(edges[p]) / 255
	}
	return t
}
