// Package chart renders a plotter snapshot to an image with go-chart: one
// line per visible band coloured by group, dashed threshold lines and a legend.
package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"msgeq7-viz/src/models"
	"msgeq7-viz/src/plotter"
)

const (
	ThresholdAlpha = 150
	LineWidth      = 2.0
)

// Labels for the threshold lines
const (
	BassThresholdLabel   = "Bass Threshold"
	TrebleThresholdLabel = "Treble Threshold"
)

var (
	gridStyle = gochart.Style{StrokeColor: drawing.Color{R: 220, G: 220, B: 220, A: 255}, StrokeWidth: 1}
	dashStyle = []float64{6, 4}
)

// Build assembles the go-chart definition for snap
func Build(snap plotter.Snapshot, width, height int) gochart.Chart {
	xMax := float64(snap.WindowSize - 1)
	if xMax < 1 {
		xMax = 1
	}

	series := make([]gochart.Series, 0, models.NumBands+3)
	for _, s := range snap.Series {
		if !s.Visible || len(s.Values) == 0 {
			continue
		}
		xs, ys := points(s.Values)
		series = append(series, gochart.ContinuousSeries{
			Name:    s.Label,
			XValues: xs,
			YValues: ys,
			Style: gochart.Style{
				StrokeColor: groupColor(s.Group, 255),
				StrokeWidth: LineWidth,
			},
		})
	}

	series = append(series,
		thresholdSeries(BassThresholdLabel, snap.BassThreshold, xMax, models.GroupBass),
		thresholdSeries(TrebleThresholdLabel, snap.TrebleThreshold, xMax, models.GroupTreble),
		gochart.AnnotationSeries{
			Annotations: []gochart.Value2{
				{XValue: 0, YValue: snap.BassThreshold, Label: BassThresholdLabel},
				{XValue: 0, YValue: snap.TrebleThreshold, Label: TrebleThresholdLabel},
			},
		},
	)

	ch := gochart.Chart{
		Width:      width,
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 20, Left: 16, Right: 16, Bottom: 16}},
		XAxis: gochart.XAxis{
			Name:  "Sample",
			Range: &gochart.ContinuousRange{Min: 0, Max: xMax},
		},
		YAxis: gochart.YAxis{
			Name:           "Level",
			Range:          &gochart.ContinuousRange{Min: models.MinLevel, Max: models.MaxLevel},
			GridMajorStyle: gridStyle,
		},
		Series: series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	return ch
}

// WritePNG renders snap as PNG into w
func WritePNG(w io.Writer, snap plotter.Snapshot, width, height int) error {
	ch := Build(snap, width, height)
	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// Render draws snap into an image. On failure a blank image of the requested
// size is returned together with the error so callers can keep drawing.
func Render(snap plotter.Snapshot, width, height int) (image.Image, error) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, snap, width, height); err != nil {
		return Blank(width, height), err
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return Blank(width, height), fmt.Errorf("decode chart: %w", err)
	}
	return img, nil
}

// SavePNG writes snap to a timestamped PNG in dir and returns its path
func SavePNG(snap plotter.Snapshot, dir string, width, height int) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("msgeq7-%s.png", time.Now().Format("20060102-150405.000")))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	if err := WritePNG(f, snap, width, height); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close snapshot: %w", err)
	}
	slog.Debug("snapshot saved", "path", path)
	return path, nil
}

// Blank returns a white image
func Blank(width, height int) image.Image {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

// ToColor converts a group colour for image/color consumers
func ToColor(g models.BandGroup) color.NRGBA {
	c := g.Color()
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

func groupColor(g models.BandGroup, alpha uint8) drawing.Color {
	c := g.Color()
	return drawing.Color{R: c.R, G: c.G, B: c.B, A: alpha}
}

func thresholdSeries(name string, y, xMax float64, g models.BandGroup) gochart.ContinuousSeries {
	return gochart.ContinuousSeries{
		Name:    name,
		XValues: []float64{0, xMax},
		YValues: []float64{y, y},
		Style: gochart.Style{
			StrokeColor:     groupColor(g, ThresholdAlpha),
			StrokeWidth:     LineWidth,
			StrokeDashArray: dashStyle,
		},
	}
}

// points maps a window to x = sample index. A single sample is widened to a
// flat segment so the line has a visible extent.
func points(values []float64) (xs, ys []float64) {
	if len(values) == 1 {
		return []float64{0, 1}, []float64{values[0], values[0]}
	}
	xs = make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}
	return xs, values
}
