// Package pipeline composes feature extraction, scoring, classification and
// visualisation behind the single entry point shared by every front-end.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/Brownie44l1/freshness-api/internal/features"
	"github.com/Brownie44l1/freshness-api/internal/heatmap"
	"github.com/Brownie44l1/freshness-api/internal/logging"
	"github.com/Brownie44l1/freshness-api/internal/model"
	"github.com/Brownie44l1/freshness-api/internal/scoring"
)

const (
	opDecode    = "pipeline.decode"
	opExtract   = "pipeline.extract"
	opScore     = "pipeline.score"
	opVisualize = "pipeline.visualize"
)

// Result is the outcome of one prediction. Heatmap is nil unless requested.
type Result struct {
	Score    float64
	RawScore float64
	Category scoring.Category
	Heatmap  *heatmap.Heatmap
}

// Orchestrator holds only read-only collaborators, so one instance serves
// concurrent requests.
type Orchestrator struct {
	extractor  features.Extractor
	scorer     *scoring.Scorer
	visualizer *heatmap.Visualizer
	logger     *zap.Logger
	maxPixels  int64
}

type Option func(*Orchestrator)

// WithMaxPixels caps the decoded size of images passed to PredictEncoded.
func WithMaxPixels(n int64) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxPixels = n
		}
	}
}

func New(extractor features.Extractor, scorer *scoring.Scorer, visualizer *heatmap.Visualizer, logger *zap.Logger, opts ...Option) *Orchestrator {
	if visualizer == nil {
		visualizer = heatmap.NewVisualizer(heatmap.DefaultQuality)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		extractor:  extractor,
		scorer:     scorer,
		visualizer: visualizer,
		logger:     logger.Named("pipeline"),
		maxPixels:  DefaultMaxPixels,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Ready reports whether predictions can succeed at all.
func (o *Orchestrator) Ready() bool {
	return o.scorer.Available()
}

// Predict scores img and classifies the score.
func (o *Orchestrator) Predict(ctx context.Context, img image.Image) (*Result, error) {
	return o.run(ctx, img, false)
}

// PredictWithVisualization is Predict plus the encoded edge heatmap.
func (o *Orchestrator) PredictWithVisualization(ctx context.Context, img image.Image) (*Result, error) {
	return o.run(ctx, img, true)
}

// PredictEncoded decodes r and runs the full pipeline on it. Images larger
// than the pixel cap fail with ErrDecode before their pixels are decoded.
func (o *Orchestrator) PredictEncoded(ctx context.Context, r io.Reader, withHeatmap bool) (*Result, error) {
	requestID := logging.RequestIDFromContext(ctx)
	if !o.Ready() {
		return nil, logging.NewOperationError(opScore, requestID, model.ErrUnavailable)
	}

	img, format, err := DecodeLimited(r, o.maxPixels)
	if err != nil {
		return nil, logging.NewOperationError(opDecode, requestID, err)
	}
	logging.WithOperation(o.logger, opDecode, requestID).Debug("image decoded",
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))

	return o.run(ctx, img, withHeatmap)
}

func (o *Orchestrator) run(ctx context.Context, img image.Image, withHeatmap bool) (*Result, error) {
	requestID := logging.RequestIDFromContext(ctx)
	opLogger := logging.WithOperation(o.logger, "pipeline.predict", requestID)

	// A missing model fails before any feature work.
	if !o.Ready() {
		return nil, logging.NewOperationError(opScore, requestID, model.ErrUnavailable)
	}

	if err := ctx.Err(); err != nil {
		return nil, logging.NewOperationError(opExtract, requestID, err)
	}
	start := time.Now()
	tensor, edges, err := o.extractor.Extract(img)
	if err != nil {
		return nil, logging.NewOperationError(opExtract, requestID, err)
	}
	extractDur := time.Since(start)

	if err := ctx.Err(); err != nil {
		return nil, logging.NewOperationError(opScore, requestID, err)
	}
	start = time.Now()
	score, raw, err := o.scorer.Score(tensor)
	if err != nil {
		return nil, logging.NewOperationError(opScore, requestID, err)
	}
	scoreDur := time.Since(start)

	result := &Result{
		Score:    score,
		RawScore: raw,
		Category: scoring.Classify(score),
	}

	var visualizeDur time.Duration
	if withHeatmap {
		if err := ctx.Err(); err != nil {
			return nil, logging.NewOperationError(opVisualize, requestID, err)
		}
		start = time.Now()
		hm, err := o.visualizer.Visualize(edges)
		if err != nil {
			return nil, logging.NewOperationError(opVisualize, requestID, fmt.Errorf("heatmap: %w", err))
		}
		result.Heatmap = hm
		visualizeDur = time.Since(start)
	}

	if ce := opLogger.Check(zap.DebugLevel, "prediction complete"); ce != nil {
		ce.Write(
			zap.Float64("score", result.Score),
			zap.Float64("raw_score", result.RawScore),
			zap.Stringer("class", result.Category),
			zap.Duration("extract", extractDur),
			zap.Duration("score_time", scoreDur),
			zap.Duration("visualize", visualizeDur),
			zap.Any("channels", features.Summarize(tensor)),
		)
	}
	return result, nil
}
