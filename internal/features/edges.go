package features

import "image"

// normEpsilon keeps min-max normalisation finite on constant images.
const normEpsilon = 1e-6

// reflect101 mirrors an out-of-range index without repeating the border
// sample: -1 -> 1, n -> n-2.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		} else {
			i = 2*n - 2 - i
		}
	}
	return i
}

// laplacian applies the 4-neighbour kernel [0 1 0; 1 -4 1; 0 1 0] and returns
// the absolute response.
func laplacian(gray *image.Gray) []float32 {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	at := func(x, y int) int {
		return int(gray.Pix[reflect101(y, h)*gray.Stride+reflect101(x, w)])
	}

	out := make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := at(x, y-1) + at(x-1, y) + at(x+1, y) + at(x, y+1) - 4*at(x, y)
			if v < 0 {
				v = -v
			}
			out[y*w+x] = float32(v)
		}
	}
	return out
}

// normalizeEdges rescales an absolute edge response to 8 bits via
// (x - min) / (max - min + eps) * 255, truncating toward zero.
func normalizeEdges(edges []float32, w, h int) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, w, h))
	if len(edges) == 0 {
		return out
	}

	lo, hi := edges[0], edges[0]
	for _, v := range edges[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	den := float32(float64(hi-lo) + normEpsilon)
	for i, v := range edges {
		out.Pix[i] = uint8((v - lo) / den * 255)
	}
	return out
}
