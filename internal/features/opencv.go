//go:build opencv

package features

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// OpenCVExtractor runs resize, colour conversion and the Laplacian through
// OpenCV so the tensor matches a cv2-based training pipeline bit for bit.
type OpenCVExtractor struct {
	size int
}

func newOpenCVExtractor(size int) (Extractor, error) {
	return &OpenCVExtractor{size: size}, nil
}

func (e *OpenCVExtractor) Extract(img image.Image) (*Tensor, *image.Gray, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, nil, ErrEmptyImage
	}

	bgr, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, nil, fmt.Errorf("convert image to mat: %w", err)
	}
	defer bgr.Close()

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(bgr, &rgb, gocv.ColorBGRToRGB)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(rgb, &resized, image.Pt(e.size, e.size), 0, 0, gocv.InterpolationLinear)

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(resized, &hsv, gocv.ColorRGBToHSV)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(resized, &gray, gocv.ColorRGBToGray)

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV32F, 1, 1, 0, gocv.BorderDefault)

	raw, err := lap.DataPtrFloat32()
	if err != nil {
		return nil, nil, fmt.Errorf("read laplacian: %w", err)
	}
	abs := make([]float32, len(raw))
	for i, v := range raw {
		if v < 0 {
			v = -v
		}
		abs[i] = v
	}

	edges := normalizeEdges(abs, e.size, e.size)
	return fuse(resized.ToBytes(), hsv.ToBytes(), edges.Pix, e.size), edges, nil
}
