package features

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ChannelStats describes one tensor plane.
type ChannelStats struct {
	Name   string  `json:"name"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Summarize computes per-channel statistics, mostly for diagnostics and
// debug logging.
func Summarize(t *Tensor) []ChannelStats {
	out := make([]ChannelStats, 0, Channels)
	for c := 0; c < Channels; c++ {
		plane := t.Channel(c)
		values := make([]float64, len(plane))
		for i, v := range plane {
			values[i] = float64(v)
		}

		mean, std := stat.MeanStdDev(values, nil)
		out = append(out, ChannelStats{
			Name:   ChannelNames[c],
			Min:    floats.Min(values),
			Max:    floats.Max(values),
			Mean:   mean,
			StdDev: std,
		})
	}
	return out
}
