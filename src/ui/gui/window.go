// Package gui is the desktop frontend: a live go-chart plot of the seven
// bands with a checkbox per band, a device mode selector and a status bar.
package gui

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	fyne "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"msgeq7-viz/src/chart"
	"msgeq7-viz/src/config"
	"msgeq7-viz/src/models"
	"msgeq7-viz/src/session"
	"msgeq7-viz/src/ui"
)

type window struct {
	app  fyne.App
	win  fyne.Window
	sess *session.Session
	cfg  config.UIConfig
	log  *slog.Logger

	plot    *canvas.Image
	checks  [models.NumBands]*widget.Check
	status  *widget.Label
	device  *widget.Label
	notice  *widget.Label // source state and saved snapshots
	summary *widget.Label

	dirty bool // state changed since the last redraw; UI goroutine only
}

// Run opens the window and blocks until it is closed or ctx ends
func Run(ctx context.Context, sess *session.Session, cfg config.UIConfig, sourceName string, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a := app.NewWithID("io.github.msgeq7.viz")
	w := a.NewWindow(cfg.Title)
	w.Resize(fyne.NewSize(float32(cfg.Width), float32(cfg.Height)))

	g := &window{app: a, win: w, sess: sess, cfg: cfg, log: log}
	w.SetContent(g.build(sourceName))
	w.SetOnClosed(cancel)

	pumpErr := make(chan error, 1)
	go func() {
		err := sess.Pump(ctx, cfg.TickInterval, func(line string) {
			fyne.Do(func() { g.apply(line) })
		})
		if err != nil {
			log.Error("source stopped", "err", err)
			fyne.Do(func() { g.notice.SetText(fmt.Sprintf("source stopped: %v", err)) })
		}
		pumpErr <- err
	}()

	go func() {
		t := time.NewTicker(cfg.RedrawInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				fyne.Do(a.Quit)
				return
			case <-t.C:
				fyne.Do(g.redraw)
			}
		}
	}()

	g.redraw()
	w.ShowAndRun()
	cancel()

	select {
	case err := <-pumpErr:
		return err
	case <-time.After(2 * time.Second):
		return nil
	}
}

func (g *window) build(sourceName string) fyne.CanvasObject {
	g.plot = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 100, 60)))
	g.plot.FillMode = canvas.ImageFillContain
	g.plot.SetMinSize(fyne.NewSize(640, 400))

	state := g.sess.State()
	bandBox := container.NewVBox(widget.NewLabelWithStyle("Show/Hide Bands:", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}))
	for band := range g.checks {
		chk := widget.NewCheck(models.BandLabel(band), func(on bool) {
			state.SetVisible(band, on)
			g.dirty = true
		})
		chk.SetChecked(true)
		g.checks[band] = chk
		bandBox.Add(chk)
	}
	showAll := widget.NewButton("Show all", func() {
		for _, chk := range g.checks {
			chk.SetChecked(true)
		}
	})

	clearPlot := widget.NewButton("Clear", func() {
		state.Reset()
		g.dirty = true
		g.notice.SetText("cleared")
	})

	modeSelect := widget.NewSelect(ui.ModeNames(), nil)
	modeSelect.SetSelected(string(models.ModeMusic))
	send := widget.NewButton("Send", func() {
		mode := models.DeviceMode(modeSelect.Selected)
		go func() {
			if err := g.sess.Send(mode); err != nil {
				fyne.Do(func() { dialog.ShowError(err, g.win) })
			}
		}()
	})

	snapshot := widget.NewButton("Save PNG", func() {
		path, err := chart.SavePNG(state.Snapshot(), g.cfg.SnapshotDir, g.cfg.Width, g.cfg.Height)
		if err != nil {
			dialog.ShowError(err, g.win)
			return
		}
		g.notice.SetText("saved " + path)
	})

	g.summary = widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Monospace: true})
	panel := container.NewVBox(
		bandBox,
		showAll,
		clearPlot,
		widget.NewSeparator(),
		widget.NewLabel("Device mode:"),
		container.NewBorder(nil, nil, nil, send, modeSelect),
		snapshot,
		widget.NewSeparator(),
		g.summary,
	)

	g.status = widget.NewLabel("")
	g.device = widget.NewLabel("")
	g.notice = widget.NewLabel(sourceName)
	bottom := container.NewVBox(g.device, g.status, g.notice)

	return container.NewBorder(nil, bottom, nil, panel, g.plot)
}

func (g *window) apply(line string) {
	if g.sess.Apply(line) != session.ResultIdle {
		g.dirty = true
	}
}

func (g *window) redraw() {
	if !g.dirty && g.plot.Image != nil && g.plot.Image.Bounds().Dx() > 100 {
		return
	}
	g.dirty = false

	snap := g.sess.State().Snapshot()
	w, h := g.chartSize()
	img, err := chart.Render(snap, w, h)
	if err != nil {
		g.log.Warn("chart render failed", "err", err)
	}
	g.plot.Image = img
	g.plot.Refresh()

	bands := g.sess.Stats(snap)
	g.status.SetText(ui.StatusLine(snap, bands))
	g.device.SetText(ui.DeviceLine(snap))

	var text string
	for _, b := range bands {
		text += ui.BandSummary(b) + "\n"
	}
	g.summary.SetText(text)
}

// chartSize follows the plot widget so the PNG is not scaled
func (g *window) chartSize() (int, int) {
	sz := g.plot.Size()
	w, h := int(sz.Width), int(sz.Height)
	if w < 200 || h < 150 {
		return max(g.cfg.Width-260, 320), max(g.cfg.Height-80, 200)
	}
	return w, h
}
