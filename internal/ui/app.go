// Package ui is the desktop front-end: open an image, preview it and score it.
package ui

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"go.uber.org/zap"

	"github.com/Brownie44l1/freshness-api/internal/logging"
	"github.com/Brownie44l1/freshness-api/internal/pipeline"
	"github.com/Brownie44l1/freshness-api/internal/scoring"
)

const (
	previewWidth  = 400
	previewHeight = 400
)

type FreshnessApp struct {
	fyneApp fyne.App
	mainWin fyne.Window

	orchestrator *pipeline.Orchestrator
	logger       *zap.Logger

	image image.Image

	pathLabel     *widget.Label
	preview       *canvas.Image
	heatmap       *canvas.Image
	scoreLabel    *widget.Label
	categoryText  *canvas.Text
	progress      *widget.ProgressBar
	analyzeButton *widget.Button
}

func CreateApp(o *pipeline.Orchestrator, logger *zap.Logger) *FreshnessApp {
	a := app.New()
	w := a.NewWindow("Fruit Freshness")
	w.Resize(fyne.NewSize(900, 600))

	return &FreshnessApp{
		fyneApp:      a,
		mainWin:      w,
		orchestrator: o,
		logger:       logger.Named("ui"),
	}
}

func (a *FreshnessApp) Run() {
	a.pathLabel = widget.NewLabel("No image selected")

	a.preview = canvas.NewImageFromImage(nil)
	a.preview.FillMode = canvas.ImageFillContain
	a.preview.SetMinSize(fyne.NewSize(previewWidth, previewHeight))

	a.heatmap = canvas.NewImageFromImage(nil)
	a.heatmap.FillMode = canvas.ImageFillContain
	a.heatmap.SetMinSize(fyne.NewSize(previewWidth/2, previewHeight/2))

	a.scoreLabel = widget.NewLabelWithStyle(scoreText(nil), fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	a.categoryText = canvas.NewText(categoryText(nil), theme.Color(theme.ColorNameForeground))
	a.categoryText.TextSize = theme.TextSize() * 1.2

	a.progress = widget.NewProgressBar()
	a.progress.Max = scoring.MaxScore

	openButton := widget.NewButtonWithIcon("Open Image", theme.FolderOpenIcon(), a.openImage)
	a.analyzeButton = widget.NewButtonWithIcon("Analyze Freshness", theme.SearchIcon(), a.analyze)
	a.analyzeButton.Disable()

	status := "Model loaded"
	if !a.orchestrator.Ready() {
		status = "Model unavailable"
	}

	sidebar := container.NewVBox(
		widget.NewLabelWithStyle("Freshness Analysis", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewLabel(status),
		widget.NewSeparator(),
		openButton,
		a.pathLabel,
		a.analyzeButton,
		widget.NewSeparator(),
		a.scoreLabel,
		a.categoryText,
		a.progress,
		widget.NewSeparator(),
		widget.NewLabel("Edge heatmap:"),
		a.heatmap,
	)

	split := container.NewHSplit(
		container.NewPadded(sidebar),
		container.NewPadded(a.preview),
	)
	split.SetOffset(0.35)

	a.mainWin.SetContent(split)
	a.mainWin.CenterOnScreen()
	a.mainWin.ShowAndRun()
}

func (a *FreshnessApp) openImage() {
	open := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWin)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()

		img, _, err := pipeline.Decode(reader)
		if err != nil {
			dialog.ShowError(err, a.mainWin)
			return
		}

		a.image = img
		a.pathLabel.SetText(reader.URI().Name())
		a.preview.Image = Thumbnail(img, previewWidth, previewHeight)
		a.preview.Refresh()
		a.heatmap.Image = nil
		a.heatmap.Refresh()
		a.showResult(nil)
		a.analyzeButton.Enable()
	}, a.mainWin)
	open.SetFilter(storage.NewExtensionFileFilter([]string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".webp", ".tif", ".tiff"}))
	open.Show()
}

func (a *FreshnessApp) analyze() {
	if a.image == nil {
		return
	}
	img := a.image
	a.analyzeButton.Disable()

	go func() {
		requestID := uuid.NewString()
		ctx := logging.ContextWithRequestID(context.Background(), requestID)
		result, err := a.orchestrator.PredictWithVisualization(ctx, img)

		var heat image.Image
		if err == nil && result.Heatmap != nil {
			heat, err = jpeg.Decode(bytes.NewReader(result.Heatmap.JPEG))
		}
		if err != nil {
			logging.WithOperation(a.logger, "ui.analyze", requestID).Error("analysis failed", logging.ErrorFields(err)...)
		}

		fyne.Do(func() {
			a.analyzeButton.Enable()
			if err != nil {
				dialog.ShowError(err, a.mainWin)
				return
			}
			a.showResult(result)
			a.heatmap.Image = heat
			a.heatmap.Refresh()
		})
	}()
}

func (a *FreshnessApp) showResult(result *pipeline.Result) {
	a.scoreLabel.SetText(scoreText(result))
	a.categoryText.Text = categoryText(result)
	if result != nil {
		a.categoryText.Color = categoryColor(result.Category)
		a.progress.SetValue(float64(progressValue(result.Score)))
	} else {
		a.categoryText.Color = theme.Color(theme.ColorNameForeground)
		a.progress.SetValue(0)
	}
	a.categoryText.Refresh()
}

// Thumbnail scales img to fit within maxWidth x maxHeight, keeping its aspect
// ratio. Images that already fit are returned unchanged.
func Thumbnail(img image.Image, maxWidth, maxHeight uint) image.Image {
	return resize.Thumbnail(maxWidth, maxHeight, img, resize.Bilinear)
}

func scoreText(result *pipeline.Result) string {
	if result == nil {
		return "Freshness Score: -- / 100"
	}
	return fmt.Sprintf("Freshness Score: %s / 100", scoring.FormatScore(result.Score))
}

func categoryText(result *pipeline.Result) string {
	if result == nil {
		return "Category: --"
	}
	return "Category: " + result.Category.String()
}

// progressValue is the whole-number part of the score.
func progressValue(score float64) int {
	return int(score)
}

func categoryColor(c scoring.Category) color.Color {
	if rgba, ok := parseHexColor(c.Color()); ok {
		return rgba
	}
	return theme.Color(theme.ColorNameForeground)
}

func parseHexColor(s string) (color.NRGBA, bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.NRGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
}
