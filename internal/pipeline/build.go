package pipeline

import (
	"go.uber.org/zap"

	"github.com/Brownie44l1/freshness-api/internal/config"
	"github.com/Brownie44l1/freshness-api/internal/features"
	"github.com/Brownie44l1/freshness-api/internal/heatmap"
	"github.com/Brownie44l1/freshness-api/internal/model"
	"github.com/Brownie44l1/freshness-api/internal/scoring"
)

// FromConfig builds an orchestrator for cfg. Only an invalid extractor
// backend is fatal; a model that fails to load leaves the orchestrator
// not Ready. The returned func releases the model session.
func FromConfig(cfg *config.Config, logger *zap.Logger) (*Orchestrator, func(), error) {
	extractor, err := features.NewExtractor(string(cfg.ExtractorBackend), cfg.ImageSize)
	if err != nil {
		return nil, nil, err
	}
	m, closeModel := LoadModel(cfg, logger)
	o := New(extractor, scoring.NewScorer(m), heatmap.NewVisualizer(heatmap.DefaultQuality), logger,
		WithMaxPixels(cfg.MaxImagePixels))
	return o, closeModel, nil
}

// LoadModel never fails: a model that cannot be loaded is replaced by one
// that reports "model unavailable" on every request.
func LoadModel(cfg *config.Config, logger *zap.Logger) (model.Model, func()) {
	logger.Info("loading model", zap.String("model_path", cfg.Model.Path))

	session, err := model.Load(model.Options{
		Path:           cfg.Model.Path,
		MetadataPath:   cfg.Model.MetadataPath,
		RuntimeLibrary: cfg.Model.RuntimeLibrary,
		IntraOpThreads: cfg.Model.IntraOpThreads,
		ImageSize:      cfg.ImageSize,
	})
	if err != nil {
		logger.Error("error loading model", zap.Error(err), zap.String("model_path", cfg.Model.Path))
		return model.Unavailable(err), func() {}
	}

	logger.Info("model loaded",
		zap.String("model_path", session.Path),
		zap.String("input", session.Metadata.InputName),
		zap.Int64s("input_shape", session.Metadata.InputShape),
		zap.String("output", session.Metadata.OutputName))
	return session, session.Close
}
