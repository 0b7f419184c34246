package scoring

import (
	"errors"
	"math"

	"github.com/Brownie44l1/freshness-api/internal/features"
	"github.com/Brownie44l1/freshness-api/internal/model"
)

const (
	MinScore = 0.0
	MaxScore = 100.0
)

// ErrNaNScore is returned instead of a score when the model outputs NaN.
// Infinities are clamped like any other out-of-range value.
var ErrNaNScore = errors.New("model returned NaN")

// Scorer wraps the regression model and clamps its output to [0,100].
type Scorer struct {
	model model.Model
}

// NewScorer binds m. A nil model behaves like one that failed to load.
func NewScorer(m model.Model) *Scorer {
	if m == nil {
		m = model.Unavailable(nil)
	}
	return &Scorer{model: m}
}

// Score runs inference and returns the clamped score along with the raw output.
func (s *Scorer) Score(t *features.Tensor) (clamped, raw float64, err error) {
	outputs, err := s.model.Infer(t)
	if err != nil {
		return 0, 0, err
	}
	if len(outputs) == 0 {
		return 0, 0, errors.New("model returned no outputs")
	}

	raw = float64(outputs[0])
	if math.IsNaN(raw) {
		return 0, raw, ErrNaNScore
	}
	return Clamp(raw), raw, nil
}

func Clamp(raw float64) float64 {
	return math.Max(MinScore, math.Min(MaxScore, raw))
}

// Available reports whether the underlying model loaded.
func (s *Scorer) Available() bool {
	return model.IsAvailable(s.model)
}
