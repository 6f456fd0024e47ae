package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"msgeq7-viz/src/chart"
	"msgeq7-viz/src/models"
	"msgeq7-viz/src/plotter"
)

var (
	groupStyles = map[models.BandGroup]lipgloss.Style{
		models.GroupBass:   lipgloss.NewStyle().Foreground(groupColor(models.GroupBass)),
		models.GroupMid:    lipgloss.NewStyle().Foreground(groupColor(models.GroupMid)),
		models.GroupTreble: lipgloss.NewStyle().Foreground(groupColor(models.GroupTreble)),
	}
	// thresholds are the group colour, dimmed like the chart's translucent lines
	thresholdStyles = map[models.BandGroup]lipgloss.Style{
		models.GroupBass:   lipgloss.NewStyle().Foreground(groupColor(models.GroupBass)).Faint(true),
		models.GroupTreble: lipgloss.NewStyle().Foreground(groupColor(models.GroupTreble)).Faint(true),
	}
	titleStyle  = lipgloss.NewStyle().Bold(true)
	axisStyle   = lipgloss.NewStyle().Faint(true)
	hiddenStyle = lipgloss.NewStyle().Faint(true)
)

// groupColor is the chart colour of g as a terminal colour
func groupColor(g models.BandGroup) lipgloss.Color {
	c := chart.ToColor(g)
	return lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B))
}

type cell struct {
	r     rune
	style *lipgloss.Style
}

// plotGrid lays out the newest width samples of every visible band. Row 0 is
// the top (MaxLevel). Later bands overwrite earlier ones where they cross and
// the threshold rows are drawn last.
func plotGrid(snap plotter.Snapshot, width, height int) [][]cell {
	grid := make([][]cell, height)
	for y := range grid {
		grid[y] = make([]cell, width)
		for x := range grid[y] {
			grid[y][x] = cell{r: ' '}
		}
	}
	if width <= 0 || height <= 0 {
		return grid
	}

	for _, s := range snap.Series {
		if !s.Visible || len(s.Values) == 0 {
			continue
		}
		st := groupStyles[s.Group]
		values := s.Values
		if len(values) > width {
			values = values[len(values)-width:]
		}
		offset := width - len(values)
		for i, v := range values {
			grid[levelRow(v, height)][offset+i] = cell{r: rune('0' + s.Band), style: &st}
		}
	}

	drawThreshold(grid, snap.BassThreshold, "Bass Threshold", models.GroupBass)
	drawThreshold(grid, snap.TrebleThreshold, "Treble Threshold", models.GroupTreble)
	return grid
}

func drawThreshold(grid [][]cell, level float64, label string, g models.BandGroup) {
	height, width := len(grid), len(grid[0])
	row := grid[levelRow(level, height)]
	st := thresholdStyles[g]
	for x := 0; x < width; x += 2 {
		row[x] = cell{r: '-', style: &st}
	}
	for i, r := range []rune(label) {
		if i >= width {
			break
		}
		row[i] = cell{r: r, style: &st}
	}
}

// levelRow maps a level in [MinLevel, MaxLevel] to a grid row
func levelRow(v float64, height int) int {
	v = plotter.Clamp(v, models.MinLevel, models.MaxLevel)
	frac := (v - models.MinLevel) / (models.MaxLevel - models.MinLevel)
	return height - 1 - int(math.Round(frac*float64(height-1)))
}

// renderPlot draws the plot area with a y axis of width yAxisWidth on the left
func renderPlot(snap plotter.Snapshot, width, height int) string {
	plotWidth := width - yAxisWidth
	if plotWidth < 1 || height < 2 {
		return ""
	}
	grid := plotGrid(snap, plotWidth, height)

	var b strings.Builder
	for y, row := range grid {
		label := ""
		switch y {
		case 0:
			label = fmt.Sprintf("%.0f", float64(models.MaxLevel))
		case height / 2:
			label = fmt.Sprintf("%.0f", float64(models.MaxLevel-models.MinLevel)/2)
		case height - 1:
			label = fmt.Sprintf("%.0f", float64(models.MinLevel))
		}
		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s |", yAxisWidth-2, label)))
		for _, c := range row {
			if c.style == nil {
				b.WriteRune(c.r)
				continue
			}
			b.WriteString(c.style.Render(string(c.r)))
		}
		if y < height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

const yAxisWidth = 7

// renderLegend lists the bands with their toggle key and visibility
func renderLegend(snap plotter.Snapshot) string {
	parts := make([]string, 0, models.NumBands)
	for _, s := range snap.Series {
		mark := "[ ]"
		st := hiddenStyle
		if s.Visible {
			mark = "[x]"
			st = groupStyles[s.Group]
		}
		parts = append(parts, st.Render(fmt.Sprintf("%d%s %s", s.Band+1, mark, s.Label)))
	}
	return strings.Join(parts[:4], "  ") + "\n" + strings.Join(parts[4:], "  ")
}
