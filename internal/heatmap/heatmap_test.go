package heatmap

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/jpeg"
	"strings"
	"testing"
)

func rampMap(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 256)
	}
	return img
}

func TestJetEndpoints(t *testing.T) {
	low := Jet(0)
	if low.R != 0 || low.G != 0 || low.B < 120 {
		t.Fatalf("expected dark blue at 0, got %+v", low)
	}
	high := Jet(255)
	if high.R < 120 || high.G != 0 || high.B != 0 {
		t.Fatalf("expected dark red at 255, got %+v", high)
	}
	mid := Jet(128)
	if mid.G != 255 {
		t.Fatalf("expected full green near the middle, got %+v", mid)
	}
}

func TestColorizeKeepsSize(t *testing.T) {
	edges := rampMap(64, 32)
	out := Colorize(edges)
	if out.Bounds().Dx() != 64 || out.Bounds().Dy() != 32 {
		t.Fatalf("unexpected bounds %v", out.Bounds())
	}
	if got := out.RGBAAt(5, 0); got != Jet(5) {
		t.Fatalf("expected %+v, got %+v", Jet(5), got)
	}
}

func TestVisualize(t *testing.T) {
	hm, err := NewVisualizer(0).Visualize(rampMap(256, 256))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(hm.DataURI, "data:image/jpeg;base64,") {
		t.Fatalf("unexpected data URI prefix: %.40s", hm.DataURI)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(hm.DataURI, DataURIPrefix))
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	if !bytes.Equal(raw, hm.JPEG) {
		t.Fatal("data URI payload does not match JPEG bytes")
	}

	img, err := jpeg.Decode(bytes.NewReader(hm.JPEG))
	if err != nil {
		t.Fatalf("payload is not a JPEG: %v", err)
	}
	if img.Bounds().Dx() != 256 || img.Bounds().Dy() != 256 {
		t.Fatalf("unexpected decoded size %v", img.Bounds())
	}
}

func TestVisualizeDeterministic(t *testing.T) {
	v := NewVisualizer(DefaultQuality)
	a, err := v.Visualize(rampMap(40, 40))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := v.Visualize(rampMap(40, 40))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.DataURI != b.DataURI {
		t.Fatal("expected identical output for identical input")
	}
}

func TestVisualizeRejectsEmpty(t *testing.T) {
	if _, err := NewVisualizer(DefaultQuality).Visualize(image.NewGray(image.Rect(0, 0, 0, 0))); !errors.Is(err, ErrEmptyMap) {
		t.Fatalf("expected ErrEmptyMap, got %v", err)
	}
}
