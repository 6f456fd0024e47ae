package stats

import (
	"msgeq7-viz/src/models"

	"github.com/markcheno/go-talib"
)

// BandStats summarises one band's window
type BandStats struct {
	Band   int
	Last   float64 // newest sample
	Mean   float64 // SMA over the calculator period
	Max    float64 // window maximum
	Min    float64 // window minimum
	Active bool    // newest sample is above zero (over the firmware noise floor)
}

// Calculator handles per-band statistics over the rolling windows
type Calculator struct {
	period int // Number of samples the moving average covers
}

// NewCalculator creates a new band statistics calculator
func NewCalculator(period int) *Calculator {
	if period < 2 {
		period = 2
	}
	return &Calculator{
		period: period,
	}
}

// Period returns the moving average period
func (c *Calculator) Period() int {
	return c.period
}

// Calculate computes stats for every band. windows are ordered oldest first,
// as returned by plotter.State.Values.
func (c *Calculator) Calculate(windows [models.NumBands][]float64) [models.NumBands]BandStats {
	var out [models.NumBands]BandStats
	for band, values := range windows {
		out[band] = c.CalculateBand(band, values)
	}
	return out
}

// CalculateBand computes stats for a single window
func (c *Calculator) CalculateBand(band int, values []float64) BandStats {
	st := BandStats{Band: band}
	n := len(values)
	if n == 0 {
		return st
	}
	st.Last = values[n-1]
	st.Active = st.Last > 0

	// talib needs at least one full period
	if n >= c.period {
		st.Mean = getLast(talib.Sma(values, c.period))
	} else {
		st.Mean = mean(values)
	}
	if n >= 2 {
		st.Max = getLast(talib.Max(values, n))
		st.Min = getLast(talib.Min(values, n))
	} else {
		st.Max, st.Min = values[0], values[0]
	}
	return st
}

// Loudest returns the band with the highest mean
func Loudest(all [models.NumBands]BandStats) int {
	best := 0
	for band, st := range all {
		if st.Mean > all[best].Mean {
			best = band
		}
	}
	return best
}

// getLast safely gets the last value from a slice, returning 0 if empty
func getLast(slice []float64) float64 {
	if len(slice) == 0 {
		return 0
	}
	return slice[len(slice)-1]
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
