package plotter

import "msgeq7-viz/src/models"

// Series is one band's curve as handed to a renderer
type Series struct {
	Band    int
	Label   string
	Group   models.BandGroup
	Visible bool
	Values  []float64 // empty when the band is hidden
}

// Snapshot is an immutable copy of State for rendering
type Snapshot struct {
	Series          [models.NumBands]Series
	Raw             [models.NumBands][]float64 // samples regardless of visibility, for stats
	BassThreshold   float64
	TrebleThreshold float64
	WindowSize      int
	LastFrame       models.Frame
	DeviceMessage   string
	Accepted        uint64
	Rejected        uint64
}

// Snapshot copies the current state
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		BassThreshold:   s.bassThreshold,
		TrebleThreshold: s.trebleThreshold,
		WindowSize:      s.WindowSize(),
		LastFrame:       s.lastFrame,
		DeviceMessage:   s.lastDeviceMsg,
		Accepted:        s.accepted,
		Rejected:        s.rejected,
	}
	for band, w := range s.windows {
		values := w.Values()
		snap.Raw[band] = values
		series := Series{
			Band:    band,
			Label:   models.BandLabel(band),
			Group:   models.GroupOf(band),
			Visible: s.visible[band],
		}
		if series.Visible {
			series.Values = values
		} else {
			series.Values = []float64{}
		}
		snap.Series[band] = series
	}
	return snap
}
