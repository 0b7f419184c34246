package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Brownie44l1/freshness-api/internal/config"
)

func TestRunReportsMissingModel(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Model.Path = filepath.Join(t.TempDir(), "missing.onnx")

	var out bytes.Buffer
	if err := run(&out, cfg, zap.NewNop(), "", ""); err != nil {
		t.Fatalf("run: %v", err)
	}
	report := out.String()
	for _, want := range []string{"model path:", "missing.onnx", "model loaded:      false"} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}
}

func TestRunRejectsUnknownBackend(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Model.Path = filepath.Join(t.TempDir(), "missing.onnx")
	cfg.ExtractorBackend = "bogus"

	var out bytes.Buffer
	if err := run(&out, cfg, zap.NewNop(), "", ""); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
