package features

import "math"

const (
	resizeCoefBits  = 11
	resizeCoefScale = 1 << resizeCoefBits
)

// linearTaps holds, per destination coordinate, the first source index and
// the two fixed-point weights of the bilinear kernel.
type linearTaps struct {
	ofs   []int
	alpha [][2]int32
}

func computeTaps(srcLen, dstLen int) linearTaps {
	scale := float64(srcLen) / float64(dstLen)
	taps := linearTaps{ofs: make([]int, dstLen), alpha: make([][2]int32, dstLen)}

	for d := 0; d < dstLen; d++ {
		f := float32((float64(d)+0.5)*scale - 0.5)
		s := int(math.Floor(float64(f)))
		f -= float32(s)

		if s < 0 {
			f, s = 0, 0
		}
		if s >= srcLen-1 {
			f, s = 0, srcLen-1
		}

		taps.ofs[d] = s
		taps.alpha[d] = [2]int32{
			int32(math.RoundToEven(float64((1 - f) * resizeCoefScale))),
			int32(math.RoundToEven(float64(f * resizeCoefScale))),
		}
	}
	return taps
}

// resizeLinear scales src to w x h with half-pixel-centred bilinear
// interpolation in 11-bit fixed point. An exact 2x reduction on both axes
// averages 2x2 blocks instead.
func resizeLinear(src *rgbImage, w, h int) *rgbImage {
	if src.w == w && src.h == h {
		out := newRGBImage(w, h)
		copy(out.pix, src.pix)
		return out
	}
	if src.w == 2*w && src.h == 2*h {
		return halve(src)
	}

	xt := computeTaps(src.w, w)
	yt := computeTaps(src.h, h)

	// Horizontal pass for every source row that the vertical taps touch.
	rows := make(map[int][]int32, h+1)
	hresize := func(sy int) []int32 {
		if row, ok := rows[sy]; ok {
			return row
		}
		row := make([]int32, w*3)
		in := src.pix[sy*src.w*3:]
		for dx := 0; dx < w; dx++ {
			sx := xt.ofs[dx] * 3
			a := xt.alpha[dx]
			for c := 0; c < 3; c++ {
				v := int32(in[sx+c]) * a[0]
				if a[1] != 0 {
					v += int32(in[sx+3+c]) * a[1]
				}
				row[dx*3+c] = v
			}
		}
		rows[sy] = row
		return row
	}

	out := newRGBImage(w, h)
	for dy := 0; dy < h; dy++ {
		sy := yt.ofs[dy]
		b := yt.alpha[dy]
		s0 := hresize(sy)
		s1 := s0
		if sy+1 < src.h {
			s1 = hresize(sy + 1)
		}

		dst := out.pix[dy*w*3 : (dy+1)*w*3]
		for i := range dst {
			v := ((b[0]*(s0[i]>>4))>>16 + (b[1]*(s1[i]>>4))>>16 + 2) >> 2
			dst[i] = clampUint8(v)
		}
	}
	return out
}

func halve(src *rgbImage) *rgbImage {
	w, h := src.w/2, src.h/2
	out := newRGBImage(w, h)
	stride := src.w * 3
	for y := 0; y < h; y++ {
		r0 := src.pix[2*y*stride:]
		r1 := src.pix[(2*y+1)*stride:]
		for x := 0; x < w; x++ {
			for c := 0; c < 3; c++ {
				i := 2*x*3 + c
				sum := int(r0[i]) + int(r0[i+3]) + int(r1[i]) + int(r1[i+3])
				out.pix[(y*w+x)*3+c] = uint8((sum + 2) >> 2)
			}
		}
	}
	return out
}

func clampUint8(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
