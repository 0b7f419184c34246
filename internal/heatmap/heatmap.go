// Package heatmap renders edge-intensity maps as false-colour JPEG data URIs.
package heatmap

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
)

const (
	DataURIPrefix = "data:image/jpeg;base64,"

	// DefaultQuality matches the usual OpenCV imencode default.
	DefaultQuality = 95
)

var ErrEmptyMap = errors.New("edge map has no pixels")

// Heatmap is an encoded visualisation, produced once per request.
type Heatmap struct {
	JPEG    []byte
	DataURI string
}

// jet is a 256-entry blue -> cyan -> yellow -> red lookup table.
var jet = buildJet()

func buildJet() [256]color.RGBA {
	var lut [256]color.RGBA
	channel := func(x, centre float64) uint8 {
		v := 1.5 - math.Abs(4*x-centre)
		v = math.Max(0, math.Min(1, v))
		return uint8(math.Round(v * 255))
	}
	for i := range lut {
		x := float64(i) / 255
		lut[i] = color.RGBA{R: channel(x, 3), G: channel(x, 2), B: channel(x, 1), A: 255}
	}
	return lut
}

// Jet returns the colour assigned to an 8-bit intensity.
func Jet(v uint8) color.RGBA {
	return jet[v]
}

// Colorize maps every intensity through the jet table.
func Colorize(edges *image.Gray) *image.RGBA {
	b := edges.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.SetRGBA(x, y, jet[edges.GrayAt(b.Min.X+x, b.Min.Y+y).Y])
		}
	}
	return out
}

type Visualizer struct {
	quality int
}

func NewVisualizer(quality int) *Visualizer {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Visualizer{quality: quality}
}

// Visualize colour-maps edges and encodes the result as JPEG plus data URI.
func (v *Visualizer) Visualize(edges *image.Gray) (*Heatmap, error) {
	if edges == nil || edges.Bounds().Empty() {
		return nil, ErrEmptyMap
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Colorize(edges), &jpeg.Options{Quality: v.quality}); err != nil {
		return nil, fmt.Errorf("encode heatmap: %w", err)
	}

	return &Heatmap{
		JPEG:    buf.Bytes(),
		DataURI: DataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}
