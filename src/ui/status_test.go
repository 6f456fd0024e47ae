package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgeq7-viz/src/plotter"
	"msgeq7-viz/src/stats"
)

func TestStatusLine(t *testing.T) {
	st := plotter.NewState(plotter.DefaultWindowSize)
	_, err := st.ProcessLine("10,20,30,40,50,900,70,120,300")
	require.NoError(t, err)
	_, err = st.ProcessLine("1,2,x")
	require.Error(t, err)

	snap := st.Snapshot()
	line := StatusLine(snap, stats.NewCalculator(2).Calculate(snap.Raw))
	assert.Contains(t, line, "frames 1")
	assert.Contains(t, line, "skipped 1")
	assert.Contains(t, line, "bass thr 120")
	assert.Contains(t, line, "treble thr 300")
	assert.Contains(t, line, "loudest Band 5 (Treble) 450")
}

func TestStatusLineWithoutData(t *testing.T) {
	snap := plotter.NewState(plotter.DefaultWindowSize).Snapshot()
	line := StatusLine(snap, stats.NewCalculator(2).Calculate(snap.Raw))
	assert.NotContains(t, line, "loudest")
}

func TestBandSummary(t *testing.T) {
	assert.Contains(t, BandSummary(stats.BandStats{Band: 2}), "--")
	s := BandSummary(stats.BandStats{Band: 0, Last: 512, Mean: 400, Max: 600, Active: true})
	assert.Contains(t, s, "Band 0 (Bass)")
	assert.Contains(t, s, "512")
	assert.Contains(t, s, "max  600")
}

func TestDeviceLineAndModes(t *testing.T) {
	assert.Empty(t, DeviceLine(plotter.Snapshot{}))
	assert.Equal(t, "device: Music mode", DeviceLine(plotter.Snapshot{DeviceMessage: "Music mode"}))

	names := ModeNames()
	assert.Equal(t, "music", names[0])
	assert.Contains(t, names, "rainbow")
	assert.Contains(t, names, "F")
}
