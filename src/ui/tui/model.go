// Package tui is the terminal frontend built on Bubble Tea. The model reads
// one line per tick through a command and applies it in Update, so the plot
// state is only touched by the program goroutine.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"msgeq7-viz/src/chart"
	"msgeq7-viz/src/config"
	"msgeq7-viz/src/models"
	"msgeq7-viz/src/session"
	"msgeq7-viz/src/ui"
)

type (
	tickMsg time.Time
	lineMsg struct {
		line string
		err  error
	}
	sentMsg struct {
		mode models.DeviceMode
		err  error
	}
	savedMsg struct {
		path string
		err  error
	}
)

// Model is the Bubble Tea model of the visualizer
type Model struct {
	ctx        context.Context
	sess       *session.Session
	cfg        config.UIConfig
	sourceName string
	log        *slog.Logger

	width  int
	height int
	mode   models.DeviceMode
	notice string
	done   bool // source exhausted or failed
}

// NewModel creates the model; ctx bounds the blocking reads
func NewModel(ctx context.Context, sess *session.Session, cfg config.UIConfig, sourceName string, log *slog.Logger) Model {
	if log == nil {
		log = slog.Default()
	}
	return Model{
		ctx:        ctx,
		sess:       sess,
		cfg:        cfg,
		sourceName: sourceName,
		log:        log,
		width:      80,
		height:     24,
		mode:       models.ModeMusic,
		notice:     sourceName,
	}
}

// Run starts the program and blocks until the user quits or ctx ends
func Run(ctx context.Context, sess *session.Session, cfg config.UIConfig, sourceName string, log *slog.Logger) error {
	p := tea.NewProgram(NewModel(ctx, sess, cfg, sourceName, log), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return m.readLine()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.cfg.TickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) readLine() tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		line, err := sess.ReadLine(ctx)
		return lineMsg{line: line, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, m.readLine()

	case lineMsg:
		if msg.err != nil {
			m.done = true
			switch {
			case m.ctx.Err() != nil:
			case errors.Is(msg.err, io.EOF):
				m.notice = "source exhausted"
				m.log.Info("source exhausted")
			default:
				m.notice = "source stopped: " + msg.err.Error()
				m.log.Error("source stopped", "err", msg.err)
			}
			return m, nil
		}
		m.sess.Apply(msg.line)
		return m, m.tick()

	case sentMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("send %s: %v", msg.mode, msg.err)
		} else {
			m.notice = "sent " + string(msg.mode)
		}
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.notice = "snapshot: " + msg.err.Error()
		} else {
			m.notice = "saved " + msg.path
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := m.sess.State()
	key := msg.String()
	switch key {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "a":
		state.ShowAll()
	case "r":
		state.Reset()
		m.notice = "cleared"
	case "m":
		m.mode = models.NextMode(m.mode)
		mode, sess := m.mode, m.sess
		return m, func() tea.Msg {
			return sentMsg{mode: mode, err: sess.Send(mode)}
		}
	case "p":
		snap := state.Snapshot()
		dir, w, h := m.cfg.SnapshotDir, m.cfg.Width, m.cfg.Height
		return m, func() tea.Msg {
			path, err := chart.SavePNG(snap, dir, w, h)
			return savedMsg{path: path, err: err}
		}
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] < '1'+models.NumBands {
			state.Toggle(int(key[0] - '1'))
		}
	}
	return m, nil
}

func (m Model) View() string {
	snap := m.sess.State().Snapshot()
	bands := m.sess.Stats(snap)

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.cfg.Title))
	b.WriteString("  ")
	b.WriteString(axisStyle.Render("mode " + string(m.mode)))
	b.WriteByte('\n')

	// title, legend (2), status, device, notice, help
	plotHeight := m.height - 7
	if plotHeight < 4 {
		plotHeight = 4
	}
	b.WriteString(renderPlot(snap, m.width, plotHeight))
	b.WriteByte('\n')
	b.WriteString(renderLegend(snap))
	b.WriteByte('\n')
	b.WriteString(ui.StatusLine(snap, bands))
	b.WriteByte('\n')
	b.WriteString(ui.DeviceLine(snap))
	b.WriteByte('\n')
	b.WriteString(m.notice)
	b.WriteByte('\n')
	b.WriteString(axisStyle.Render("1-7 toggle band  a show all  r clear  m next mode  p save png  q quit"))
	return b.String()
}
