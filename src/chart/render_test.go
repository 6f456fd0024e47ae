package chart

import (
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gochart "github.com/wcharczuk/go-chart/v2"

	"msgeq7-viz/src/models"
	"msgeq7-viz/src/plotter"
)

func snapshotWith(t *testing.T, lines ...string) plotter.Snapshot {
	t.Helper()
	st := plotter.NewState(plotter.DefaultWindowSize)
	for _, l := range lines {
		_, err := st.ProcessLine(l)
		require.NoError(t, err)
	}
	return st.Snapshot()
}

func seriesNames(ch gochart.Chart) []string {
	var names []string
	for _, s := range ch.Series {
		if _, ok := s.(gochart.AnnotationSeries); ok {
			continue
		}
		names = append(names, s.GetName())
	}
	return names
}

func TestBuildSkipsHiddenBands(t *testing.T) {
	st := plotter.NewState(plotter.DefaultWindowSize)
	_, err := st.ProcessLine("10,20,30,40,50,60,70,100,200")
	require.NoError(t, err)
	st.SetVisible(3, false)

	ch := Build(st.Snapshot(), 800, 400)
	names := seriesNames(ch)
	assert.Len(t, names, models.NumBands-1+2)
	assert.NotContains(t, names, models.BandLabel(3))
	assert.Contains(t, names, BassThresholdLabel)
	assert.Contains(t, names, TrebleThresholdLabel)

	require.NotNil(t, ch.YAxis.Range)
	assert.Equal(t, 0.0, ch.YAxis.Range.GetMin())
	assert.Equal(t, 1023.0, ch.YAxis.Range.GetMax())
}

func TestBuildColoursAndDashes(t *testing.T) {
	ch := Build(snapshotWith(t, "1,2,3,4,5,6,7,8,9"), 800, 400)

	byName := map[string]gochart.ContinuousSeries{}
	for _, s := range ch.Series {
		if cs, ok := s.(gochart.ContinuousSeries); ok {
			byName[cs.Name] = cs
		}
	}

	bass := byName[models.BandLabel(0)]
	assert.Equal(t, uint8(255), bass.Style.StrokeColor.R)
	assert.Empty(t, bass.Style.StrokeDashArray)

	treble := byName[models.BandLabel(6)]
	assert.Equal(t, uint8(255), treble.Style.StrokeColor.B)

	th := byName[BassThresholdLabel]
	assert.Equal(t, uint8(ThresholdAlpha), th.Style.StrokeColor.A)
	assert.NotEmpty(t, th.Style.StrokeDashArray)
	assert.Equal(t, []float64{8, 8}, th.YValues)
}

func TestPointsWidensSingleSample(t *testing.T) {
	xs, ys := points([]float64{42})
	assert.Equal(t, []float64{0, 1}, xs)
	assert.Equal(t, []float64{42, 42}, ys)

	xs, ys = points([]float64{1, 2, 3})
	assert.Equal(t, []float64{0, 1, 2}, xs)
	assert.Equal(t, []float64{1, 2, 3}, ys)
}

func TestRenderSizes(t *testing.T) {
	tests := map[string]plotter.Snapshot{
		"empty":  plotter.NewState(plotter.DefaultWindowSize).Snapshot(),
		"single": snapshotWith(t, "100,200,300,400,500,600,700,50,900"),
		"several": snapshotWith(t,
			"100,200,300,400,500,600,700,50,900",
			"110,210,310,410,510,610,710,60,800",
			"120,220,320,420,520,620,720,70,700"),
	}
	for name, snap := range tests {
		t.Run(name, func(t *testing.T) {
			img, err := Render(snap, 640, 360)
			require.NoError(t, err)
			assert.Equal(t, 640, img.Bounds().Dx())
			assert.Equal(t, 360, img.Bounds().Dy())
		})
	}
}

func TestSavePNG(t *testing.T) {
	dir := t.TempDir()
	path, err := SavePNG(snapshotWith(t, "1,2,3,4,5,6,7,8,9"), dir, 320, 200)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
}

func TestBlank(t *testing.T) {
	img := Blank(0, 5)
	assert.Equal(t, 1, img.Bounds().Dx())
	assert.Equal(t, 5, img.Bounds().Dy())
}

func TestToColor(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, ToColor(models.GroupBass))
	assert.Equal(t, color.NRGBA{G: 200, A: 255}, ToColor(models.GroupMid))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, ToColor(models.GroupTreble))
}
