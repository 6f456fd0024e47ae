package plotter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgeq7-viz/src/frame"
	"msgeq7-viz/src/models"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

func TestWindowPushKeepsLength(t *testing.T) {
	w := NewWindow(4)
	assert.Equal(t, []float64{0, 0, 0, 0}, w.Values())

	for _, v := range []float64{1, 2, 3, 4, 5, 6} {
		w.Push(v)
		assert.Equal(t, 4, w.Len())
	}
	assert.Equal(t, []float64{3, 4, 5, 6}, w.Values())
	assert.Equal(t, 6.0, w.Last())
}

func TestWindowValuesIsCopy(t *testing.T) {
	w := NewWindow(3)
	w.Push(7)
	vals := w.Values()
	vals[2] = 99
	assert.Equal(t, 7.0, w.Last())
}

func TestProcessLineUpdatesAllBands(t *testing.T) {
	s := NewState(5)
	s.now = fixedClock()

	f, err := s.ProcessLine("10.00,20.00,30.00,40.00,50.00,60.00,70.00,122.76,300.50\r\n")
	require.NoError(t, err)
	assert.Equal(t, fixedClock()(), f.ReceivedAt)

	for band := 0; band < models.NumBands; band++ {
		vals := s.Values(band)
		require.Len(t, vals, 5)
		assert.Equal(t, []float64{0, 0, 0, 0, float64((band + 1) * 10)}, vals)
	}
	bass, treble := s.Thresholds()
	assert.InDelta(t, 122.76, bass, 1e-9)
	assert.InDelta(t, 300.5, treble, 1e-9)

	accepted, rejected := s.Counts()
	assert.EqualValues(t, 1, accepted)
	assert.EqualValues(t, 0, rejected)
}

func TestProcessLineRejectsWithoutMutation(t *testing.T) {
	s := NewState(3)
	_, err := s.ProcessLine("1,2,3,4,5,6,7,8,9")
	require.NoError(t, err)
	before := s.Snapshot()

	bad := []string{
		"",
		"1,2,3,4,5,6,7,8",
		"1,2,3,4,5,6,7,8,9,10",
		"1,2,3,4,5,6,7,8,x",
		"1,2,3,-4,5,6,7,8,9",
		"1,2,3,4,5,6,7,8,1e3",
		"1,2,3,4.5.6,5,6,7,8,9",
		"1,2,,4,5,6,7,8,9",
	}
	for _, line := range bad {
		_, err := s.ProcessLine(line)
		require.Error(t, err, line)
		assert.True(t, errors.Is(err, frame.ErrMalformed), line)
	}

	after := s.Snapshot()
	assert.Equal(t, before.Raw, after.Raw)
	assert.Equal(t, before.BassThreshold, after.BassThreshold)
	assert.Equal(t, before.TrebleThreshold, after.TrebleThreshold)
	assert.EqualValues(t, len(bad), after.Rejected)
}

func TestProcessLineClampsThresholds(t *testing.T) {
	tests := []struct {
		name         string
		line         string
		bass, treble float64
	}{
		{"above range", "0,0,0,0,0,0,0,5000,1024", 1023, 1023},
		{"in range", "0,0,0,0,0,0,0,0,1023", 0, 1023},
		{"fractional", "0,0,0,0,0,0,0,12.5,0.25", 12.5, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState(2)
			_, err := s.ProcessLine(tt.line)
			require.NoError(t, err)
			bass, treble := s.Thresholds()
			assert.Equal(t, tt.bass, bass)
			assert.Equal(t, tt.treble, treble)
		})
	}
}

func TestApplyClampsNegativeThresholds(t *testing.T) {
	s := NewState(2)
	s.Apply(models.Frame{BassThreshold: -3, TrebleThreshold: 2000})
	bass, treble := s.Thresholds()
	assert.Equal(t, 0.0, bass)
	assert.Equal(t, 1023.0, treble)
}

func TestProcessLineDeviceMessage(t *testing.T) {
	s := NewState(2)
	_, err := s.ProcessLine("Mode set to BOUNCE\r\n")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeviceMessage))
	assert.Equal(t, "Mode set to BOUNCE", s.LastDeviceMessage())
	assert.Equal(t, []float64{0, 0}, s.Values(0))
}

func TestVisibilityHidesSeriesButKeepsSampling(t *testing.T) {
	s := NewState(3)
	assert.False(t, s.Toggle(2))
	assert.False(t, s.Visible(2))

	_, err := s.ProcessLine("1,2,3,4,5,6,7,0,0,")
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Empty(t, snap.Series[2].Values)
	assert.Equal(t, []float64{0, 0, 3}, snap.Raw[2])
	assert.Equal(t, "Band 2 (Mid)", snap.Series[2].Label)
	assert.Len(t, snap.Series[3].Values, 3)

	s.ShowAll()
	assert.Equal(t, []float64{0, 0, 3}, s.Snapshot().Series[2].Values)
}

func TestOutOfRangeBandIsIgnored(t *testing.T) {
	s := NewState(2)
	s.SetVisible(9, false)
	assert.False(t, s.Toggle(-1))
	assert.Nil(t, s.Values(7))
	assert.False(t, s.Visible(7))
}

func TestReset(t *testing.T) {
	s := NewState(2)
	s.SetVisible(0, false)
	_, err := s.ProcessLine("9,9,9,9,9,9,9,9,9")
	require.NoError(t, err)

	s.Reset()
	assert.Equal(t, []float64{0, 0}, s.Values(1))
	bass, treble := s.Thresholds()
	assert.Zero(t, bass)
	assert.Zero(t, treble)
	assert.False(t, s.Visible(0))
}
