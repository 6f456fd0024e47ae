// Package ui holds text helpers shared by the graphical and terminal frontends.
package ui

import (
	"fmt"
	"strings"

	"msgeq7-viz/src/models"
	"msgeq7-viz/src/plotter"
	"msgeq7-viz/src/stats"
)

// StatusLine summarises the stream: counters, thresholds and the loudest band
func StatusLine(snap plotter.Snapshot, bands [models.NumBands]stats.BandStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "frames %d  skipped %d  bass thr %.0f  treble thr %.0f",
		snap.Accepted, snap.Rejected, snap.BassThreshold, snap.TrebleThreshold)
	if loud := stats.Loudest(bands); loud >= 0 && bands[loud].Active {
		fmt.Fprintf(&b, "  loudest %s %.0f", models.BandLabel(loud), bands[loud].Mean)
	}
	return b.String()
}

// BandSummary is one line per band: level, moving mean and window peak
func BandSummary(band stats.BandStats) string {
	if !band.Active {
		return fmt.Sprintf("%-18s --", models.BandLabel(band.Band))
	}
	return fmt.Sprintf("%-18s %4.0f  avg %4.0f  max %4.0f", models.BandLabel(band.Band), band.Last, band.Mean, band.Max)
}

// DeviceLine formats the last firmware message, if any
func DeviceLine(snap plotter.Snapshot) string {
	if snap.DeviceMessage == "" {
		return ""
	}
	return "device: " + snap.DeviceMessage
}

// ModeNames returns the device modes as strings for selection widgets
func ModeNames() []string {
	names := make([]string, len(models.DeviceModes))
	for i, m := range models.DeviceModes {
		names[i] = string(m)
	}
	return names
}
