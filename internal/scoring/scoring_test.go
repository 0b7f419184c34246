package scoring

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/Brownie44l1/freshness-api/internal/features"
	"github.com/Brownie44l1/freshness-api/internal/model"
)

type stubModel struct {
	outputs []float32
	err     error
	calls   int
}

func (s *stubModel) Infer(*features.Tensor) ([]float32, error) {
	s.calls++
	return s.outputs, s.err
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  Category
	}{
		{0, Rotten},
		{39.99, Rotten},
		{40.0, MidRotten},
		{50, MidRotten},
		{60.0, MidRotten},
		{60.01, Fresh},
		{100, Fresh},
	}

	for _, tt := range tests {
		if got := Classify(tt.score); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestCategoryLabels(t *testing.T) {
	labels := map[Category]string{Rotten: "Rotten", MidRotten: "Mid-Rotten", Fresh: "Fresh"}
	for c, want := range labels {
		if c.String() != want {
			t.Errorf("expected %q, got %q", want, c.String())
		}
	}

	body, err := json.Marshal(map[string]Category{"class": MidRotten})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(body) != `{"class":"Mid-Rotten"}` {
		t.Fatalf("unexpected JSON %s", body)
	}
}

func TestScoreClamps(t *testing.T) {
	tests := []struct {
		raw  float32
		want float64
	}{
		{75, 75},
		{-10, 0},
		{250, 100},
		{0, 0},
		{100, 100},
		{float32(math.Inf(1)), 100},
		{float32(math.Inf(-1)), 0},
	}

	for _, tt := range tests {
		s := NewScorer(&stubModel{outputs: []float32{tt.raw}})
		got, raw, err := s.Score(&features.Tensor{})
		if err != nil {
			t.Fatalf("raw %v: unexpected error: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("raw %v: expected %v, got %v", tt.raw, tt.want, got)
		}
		if got < MinScore || got > MaxScore {
			t.Errorf("raw %v: score %v out of range", tt.raw, got)
		}
		if raw != float64(tt.raw) {
			t.Errorf("expected raw %v to be reported, got %v", tt.raw, raw)
		}
	}
}

func TestScoreUsesFirstOutput(t *testing.T) {
	s := NewScorer(&stubModel{outputs: []float32{42, 99}})
	got, _, err := s.Score(&features.Tensor{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected first output 42, got %v", got)
	}
}

func TestScoreErrors(t *testing.T) {
	if _, _, err := NewScorer(&stubModel{}).Score(&features.Tensor{}); err == nil {
		t.Fatal("expected error for empty outputs")
	}
	if _, _, err := NewScorer(&stubModel{outputs: []float32{float32(math.NaN())}}).Score(&features.Tensor{}); !errors.Is(err, ErrNaNScore) {
		t.Fatalf("expected ErrNaNScore, got %v", err)
	}

	boom := errors.New("boom")
	if _, _, err := NewScorer(&stubModel{err: boom}).Score(&features.Tensor{}); !errors.Is(err, boom) {
		t.Fatalf("expected model error, got %v", err)
	}
}

func TestScoreModelUnavailable(t *testing.T) {
	for _, s := range []*Scorer{NewScorer(nil), NewScorer(model.Unavailable(errors.New("load failed")))} {
		if _, _, err := s.Score(&features.Tensor{}); !errors.Is(err, model.ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	}
}

func TestFormatScore(t *testing.T) {
	if got := FormatScore(75); got != "75.00" {
		t.Fatalf("expected 75.00, got %s", got)
	}
}

func TestScoreClampsInfinities(t *testing.T) {
	tests := []struct {
		raw  float32
		want float64
	}{
		{float32(math.Inf(1)), MaxScore},
		{float32(math.Inf(-1)), MinScore},
	}
	for _, tt := range tests {
		got, _, err := NewScorer(&stubModel{outputs: []float32{tt.raw}}).Score(&features.Tensor{})
		if err != nil {
			t.Fatalf("raw %v: unexpected error %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("raw %v: got %v, want %v", tt.raw, got, tt.want)
		}
	}
}
