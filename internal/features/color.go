package features

import (
	"image"
	"image/color"
	"math"
)

// rgbImage is a packed 8-bit RGB raster.
type rgbImage struct {
	w, h int
	pix  []uint8
}

func newRGBImage(w, h int) *rgbImage {
	return &rgbImage{w: w, h: h, pix: make([]uint8, w*h*3)}
}

// toRGB flattens any image into packed RGB. Alpha is dropped without
// compositing, so transparent pixels keep their stored colour.
func toRGB(img image.Image) *rgbImage {
	b := img.Bounds()
	out := newRGBImage(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < out.h; y++ {
			row := src.Pix[y*src.Stride:]
			for x := 0; x < out.w; x++ {
				i := (y*out.w + x) * 3
				copy(out.pix[i:i+3], row[x*4:x*4+3])
			}
		}
		return out
	case *image.Gray:
		for y := 0; y < out.h; y++ {
			for x := 0; x < out.w; x++ {
				v := src.Pix[y*src.Stride+x]
				i := (y*out.w + x) * 3
				out.pix[i], out.pix[i+1], out.pix[i+2] = v, v, v
			}
		}
		return out
	}

	for y := 0; y < out.h; y++ {
		for x := 0; x < out.w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			i := (y*out.w + x) * 3
			out.pix[i], out.pix[i+1], out.pix[i+2] = c.R, c.G, c.B
		}
	}
	return out
}

const hsvShift = 12

var (
	sdivTable [256]int
	hdivTable [256]int
)

func init() {
	for i := 1; i < 256; i++ {
		sdivTable[i] = int(math.RoundToEven(float64(255<<hsvShift) / float64(i)))
		hdivTable[i] = int(math.RoundToEven(float64(180<<hsvShift) / (6 * float64(i))))
	}
}

// rgbToHSV converts one 8-bit pixel to OpenCV's 8-bit HSV encoding
// (H in [0,180), S and V in [0,255]) using the same fixed-point tables.
func rgbToHSV(r, g, b int) (h, s, v int) {
	v = max(r, g, b)
	vmin := min(r, g, b)
	diff := v - vmin

	s = (diff*sdivTable[v] + (1 << (hsvShift - 1))) >> hsvShift

	switch {
	case v == r:
		h = g - b
	case v == g:
		h = b - r + 2*diff
	default:
		h = r - g + 4*diff
	}
	h = (h*hdivTable[diff] + (1 << (hsvShift - 1))) >> hsvShift
	if h < 0 {
		h += 180
	}
	return h, s, v
}

// Fixed-point BT.601 luma weights, scaled by 1<<14.
const (
	lumaShift = 14
	lumaR     = 4899
	lumaG     = 9617
	lumaB     = 1868
)

func rgbToGray(r, g, b int) uint8 {
	return uint8((r*lumaR + g*lumaG + b*lumaB + (1 << (lumaShift - 1))) >> lumaShift)
}

func (m *rgbImage) hsv() []uint8 {
	out := make([]uint8, len(m.pix))
	for i := 0; i < len(m.pix); i += 3 {
		h, s, v := rgbToHSV(int(m.pix[i]), int(m.pix[i+1]), int(m.pix[i+2]))
		out[i], out[i+1], out[i+2] = uint8(h), uint8(s), uint8(v)
	}
	return out
}

func (m *rgbImage) gray() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.w, m.h))
	for p := 0; p < m.w*m.h; p++ {
		i := p * 3
		out.Pix[p] = rgbToGray(int(m.pix[i]), int(m.pix[i+1]), int(m.pix[i+2]))
	}
	return out
}
