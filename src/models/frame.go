package models

import (
	"fmt"
	"time"
)

const (
	NumBands       = 7    // MSGEQ7 output bands
	FieldsPerFrame = 9    // 7 bands + bass threshold + treble threshold
	MinLevel       = 0.0  // lowest level the firmware reports
	MaxLevel       = 1023 // firmware rescales the 12-bit ADC down to 10 bits
)

// Frame represents a single reading line from the analyzer
type Frame struct {
	Bands           [NumBands]float64 // smoothed band levels, band 0 is lowest
	BassThreshold   float64           // dynamic bass trigger level
	TrebleThreshold float64           // adaptive treble trigger level
	ReceivedAt      time.Time         // local receive time
}

// BandGroup represents the frequency bucket a band is plotted under
type BandGroup int

const (
	GroupBass BandGroup = iota
	GroupMid
	GroupTreble
)

// String returns the legend name of the group
func (g BandGroup) String() string {
	switch g {
	case GroupBass:
		return "Bass"
	case GroupMid:
		return "Mid"
	case GroupTreble:
		return "Treble"
	default:
		return "Unknown"
	}
}

// RGBA colours shared by both renderers
type RGBA struct {
	R, G, B, A uint8
}

var (
	ColorBass   = RGBA{R: 255, A: 255}
	ColorMid    = RGBA{G: 200, A: 255}
	ColorTreble = RGBA{B: 255, A: 255}
)

// Color returns the plot colour of the group
func (g BandGroup) Color() RGBA {
	switch g {
	case GroupBass:
		return ColorBass
	case GroupMid:
		return ColorMid
	default:
		return ColorTreble
	}
}

var bandGroups = [NumBands]BandGroup{
	GroupBass, GroupBass,
	GroupMid, GroupMid, GroupMid,
	GroupTreble, GroupTreble,
}

// GroupOf returns the group a band belongs to
func GroupOf(band int) BandGroup {
	if band < 0 || band >= NumBands {
		return GroupTreble
	}
	return bandGroups[band]
}

// BandLabel returns the legend/checkbox label of a band, e.g. "Band 0 (Bass)"
func BandLabel(band int) string {
	return fmt.Sprintf("Band %d (%s)", band, GroupOf(band))
}

// DeviceMode is a command understood by the firmware's serial handler
type DeviceMode string

const (
	ModeMusic   DeviceMode = "music"
	ModeTreble  DeviceMode = "treble"
	ModeVibes   DeviceMode = "vibes"
	ModeRainbow DeviceMode = "rainbow"
	ModeBounce  DeviceMode = "bounce"
	ModeOff     DeviceMode = "off"
	ModeStrobe  DeviceMode = "s"
	ModeFlash   DeviceMode = "F"
)

// DeviceModes lists the commands in the order the UIs cycle through them
var DeviceModes = []DeviceMode{
	ModeMusic, ModeTreble, ModeVibes, ModeRainbow, ModeBounce, ModeOff, ModeStrobe, ModeFlash,
}

// NextMode returns the mode after m, wrapping around
func NextMode(m DeviceMode) DeviceMode {
	for i, mode := range DeviceModes {
		if mode == m {
			return DeviceModes[(i+1)%len(DeviceModes)]
		}
	}
	return DeviceModes[0]
}
