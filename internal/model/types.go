package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// Metadata describes the tensors the session binds. It is read from a JSON
// sidecar when one is configured, otherwise introspected from the model file.
type Metadata struct {
	InputName   string  `json:"input_name"`
	OutputName  string  `json:"output_name"`
	InputShape  []int64 `json:"input_shape"`
	OutputShape []int64 `json:"output_shape"`
	ImageSize   int     `json:"image_size"`
}

func loadMetadata(path string) (*Metadata, error) {
	metaFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &metadata, nil
}

// validate checks the input binding against the fused feature layout
// (1, channels, size, size) and resolves dynamic dimensions to 1.
func (m *Metadata) validate(channels, size int) error {
	if m.InputName == "" || m.OutputName == "" {
		return fmt.Errorf("metadata must name one input and one output")
	}

	m.InputShape = fixDynamic(m.InputShape)
	m.OutputShape = fixDynamic(m.OutputShape)

	want := []int64{1, int64(channels), int64(size), int64(size)}
	if len(m.InputShape) != len(want) {
		return fmt.Errorf("input %q has shape %v, want %v", m.InputName, m.InputShape, want)
	}
	for i := range want {
		if m.InputShape[i] != want[i] {
			return fmt.Errorf("input %q has shape %v, want %v", m.InputName, m.InputShape, want)
		}
	}

	if len(m.OutputShape) == 0 {
		m.OutputShape = []int64{1, 1}
	}
	if m.ImageSize == 0 {
		m.ImageSize = size
	}
	return nil
}

func fixDynamic(shape []int64) []int64 {
	out := make([]int64, len(shape))
	for i, d := range shape {
		if d <= 0 {
			d = 1
		}
		out[i] = d
	}
	return out
}
