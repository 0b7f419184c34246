// Command diagnose checks that the ONNX runtime and model are usable and can
// score a single image file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/Brownie44l1/freshness-api/internal/config"
	"github.com/Brownie44l1/freshness-api/internal/features"
	"github.com/Brownie44l1/freshness-api/internal/logging"
	"github.com/Brownie44l1/freshness-api/internal/model"
	"github.com/Brownie44l1/freshness-api/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "", "path to the JSON config file")
	imagePath := flag.String("image", "", "optional image to score")
	heatmapPath := flag.String("heatmap", "heatmap.jpg", "where to write the heatmap JPEG when -image is set")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(os.Stdout, cfg, logger, *imagePath, *heatmapPath); err != nil {
		fmt.Fprintln(os.Stderr, "FAIL:", err)
		os.Exit(1)
	}
}

func run(out io.Writer, cfg *config.Config, logger *zap.Logger, imagePath, heatmapPath string) error {
	runtimeLib := cfg.Model.RuntimeLibrary
	if runtimeLib == "" {
		runtimeLib = "(onnxruntime default)"
	}
	fmt.Fprintf(out, "runtime library:   %s\n", runtimeLib)
	fmt.Fprintf(out, "model path:        %s\n", cfg.Model.Path)
	fmt.Fprintf(out, "extractor backend: %s\n", cfg.ExtractorBackend)
	fmt.Fprintf(out, "image size:        %d\n", cfg.ImageSize)

	inputs, outputs, err := model.Inspect(cfg.Model.Path, cfg.Model.RuntimeLibrary)
	if err != nil {
		fmt.Fprintf(out, "inspect:           %v\n", err)
	} else {
		writeIO(out, "inputs", inputs)
		writeIO(out, "outputs", outputs)
	}

	orchestrator, closeModel, err := pipeline.FromConfig(cfg, logger)
	if err != nil {
		return err
	}
	defer closeModel()
	fmt.Fprintf(out, "model loaded:      %t\n", orchestrator.Ready())

	if imagePath == "" {
		return nil
	}
	return scoreFile(out, orchestrator, imagePath, heatmapPath, cfg)
}

func writeIO(out io.Writer, title string, infos []model.IOInfo) {
	fmt.Fprintf(out, "%s:\n", title)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, info := range infos {
		fmt.Fprintf(tw, "  %s\t%v\t%s\n", info.Name, info.Dimensions, info.DataType)
	}
	tw.Flush()
}

func scoreFile(out io.Writer, o *pipeline.Orchestrator, imagePath, heatmapPath string, cfg *config.Config) error {
	f, err := os.Open(imagePath)
	if err != nil {
		return err
	}
	defer f.Close()

	img, format, err := pipeline.Decode(f)
	if err != nil {
		return err
	}
	b := img.Bounds()
	fmt.Fprintf(out, "image:             %s (%s, %dx%d)\n", imagePath, format, b.Dx(), b.Dy())

	extractor, err := features.NewExtractor(string(cfg.ExtractorBackend), cfg.ImageSize)
	if err != nil {
		return err
	}
	tensor, _, err := extractor.Extract(img)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "tensor shape:      %v\n", tensor.Shape)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  channel\tmin\tmax\tmean\tstd")
	for _, s := range features.Summarize(tensor) {
		fmt.Fprintf(tw, "  %s\t%.4f\t%.4f\t%.4f\t%.4f\n", s.Name, s.Min, s.Max, s.Mean, s.StdDev)
	}
	tw.Flush()

	result, err := o.PredictWithVisualization(context.Background(), img)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "score:             %.2f (raw %.4f)\n", result.Score, result.RawScore)
	fmt.Fprintf(out, "class:             %s\n", result.Category)

	if err := os.WriteFile(heatmapPath, result.Heatmap.JPEG, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(out, "heatmap:           %s\n", heatmapPath)
	return nil
}
