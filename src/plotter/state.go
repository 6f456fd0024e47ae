// Package plotter holds the visualizer state: one rolling window per band, the
// two threshold levels and the per-band visibility flags.
//
// State has a single owner (the frontend's UI goroutine) and is not safe for
// concurrent use; readers on other goroutines get a Snapshot.
package plotter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"msgeq7-viz/src/frame"
	"msgeq7-viz/src/models"
)

// ErrDeviceMessage is returned by ProcessLine for firmware status lines
var ErrDeviceMessage = errors.New("device message")

// DefaultWindowSize is the number of samples kept per band
const DefaultWindowSize = 250

// State represents everything the renderers draw
type State struct {
	windows         [models.NumBands]*Window
	visible         [models.NumBands]bool
	bassThreshold   float64
	trebleThreshold float64
	lastFrame       models.Frame
	lastDeviceMsg   string
	accepted        uint64 // frames applied
	rejected        uint64 // malformed lines
	now             func() time.Time
}

// NewState creates a state with zero-filled windows and all bands visible
func NewState(windowSize int) *State {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	s := &State{now: time.Now}
	for i := range s.windows {
		s.windows[i] = NewWindow(windowSize)
		s.visible[i] = true
	}
	return s
}

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Apply shifts every band window by one sample and updates both thresholds,
// clamped to the plot range
func (s *State) Apply(f models.Frame) {
	for band, v := range f.Bands {
		s.windows[band].Push(v)
	}
	s.bassThreshold = Clamp(f.BassThreshold, models.MinLevel, models.MaxLevel)
	s.trebleThreshold = Clamp(f.TrebleThreshold, models.MinLevel, models.MaxLevel)
	if f.ReceivedAt.IsZero() {
		f.ReceivedAt = s.now()
	}
	s.lastFrame = f
	s.accepted++
}

// ProcessLine parses line and applies it. Rejected lines leave the windows
// and thresholds untouched. Firmware status lines are kept as the last device
// message and reported with ErrDeviceMessage.
func (s *State) ProcessLine(line string) (models.Frame, error) {
	f, err := frame.ParseLine(line)
	if err != nil {
		s.rejected++
		if frame.IsDeviceMessage(line) {
			s.lastDeviceMsg = strings.TrimSpace(line)
			return f, fmt.Errorf("%w: %s", ErrDeviceMessage, s.lastDeviceMsg)
		}
		return f, err
	}
	f.ReceivedAt = s.now()
	s.Apply(f)
	return s.lastFrame, nil
}

// Thresholds returns the clamped bass and treble thresholds
func (s *State) Thresholds() (bass, treble float64) {
	return s.bassThreshold, s.trebleThreshold
}

// Values returns a copy of a band's window, oldest first
func (s *State) Values(band int) []float64 {
	if !validBand(band) {
		return nil
	}
	return s.windows[band].Values()
}

// WindowSize returns the per-band sample count
func (s *State) WindowSize() int {
	return s.windows[0].Len()
}

// Visible reports whether a band is drawn
func (s *State) Visible(band int) bool {
	return validBand(band) && s.visible[band]
}

// SetVisible shows or hides a band; its samples keep updating either way
func (s *State) SetVisible(band int, on bool) {
	if validBand(band) {
		s.visible[band] = on
	}
}

// Toggle flips a band's visibility and returns the new value
func (s *State) Toggle(band int) bool {
	if !validBand(band) {
		return false
	}
	s.visible[band] = !s.visible[band]
	return s.visible[band]
}

// ShowAll makes every band visible
func (s *State) ShowAll() {
	for i := range s.visible {
		s.visible[i] = true
	}
}

// LastDeviceMessage returns the most recent firmware status line
func (s *State) LastDeviceMessage() string {
	return s.lastDeviceMsg
}

// Counts returns the number of applied frames and rejected lines
func (s *State) Counts() (accepted, rejected uint64) {
	return s.accepted, s.rejected
}

// Reset clears all samples and thresholds; visibility is kept
func (s *State) Reset() {
	for _, w := range s.windows {
		w.Reset()
	}
	s.bassThreshold, s.trebleThreshold = 0, 0
	s.lastFrame = models.Frame{}
}

func validBand(band int) bool {
	return band >= 0 && band < models.NumBands
}
