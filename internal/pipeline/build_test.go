package pipeline

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/Brownie44l1/freshness-api/internal/config"
	"github.com/Brownie44l1/freshness-api/internal/model"
)

func TestLoadModelFallsBackToUnavailable(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Model.Path = filepath.Join(t.TempDir(), "missing.onnx")

	m, closeModel := LoadModel(cfg, zap.NewNop())
	defer closeModel()

	if model.IsAvailable(m) {
		t.Fatal("expected unavailable model for missing file")
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Model.Path = filepath.Join(t.TempDir(), "missing.onnx")

	o, closeModel, err := FromConfig(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	defer closeModel()
	if o.Ready() {
		t.Fatal("orchestrator without a model must not be ready")
	}

	cfg.ExtractorBackend = "bogus"
	if _, _, err := FromConfig(cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
