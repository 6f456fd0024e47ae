// Package session glues a line source to the plot state: it is the update step
// the frontends call on every timer tick.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"msgeq7-viz/src/frame"
	"msgeq7-viz/src/models"
	"msgeq7-viz/src/plotter"
	"msgeq7-viz/src/source"
	"msgeq7-viz/src/stats"
)

// Metrics receives per-line outcomes
type Metrics interface {
	RecordFrame(f models.Frame, bass, treble float64)
	RecordMalformed()
	RecordDeviceMessage()
	RecordError()
	RecordCommand(mode string, err error)
}

// FrameRecorder persists accepted frames
type FrameRecorder interface {
	Record(f models.Frame) error
}

// Result is the outcome of one Apply
type Result int

const (
	ResultIdle      Result = iota // empty line, nothing arrived this tick
	ResultApplied                 // frame applied to the windows
	ResultMalformed               // line skipped
	ResultDevice                  // firmware status line
	ResultError                   // update step failed
)

// Session represents one visualizer run over one source
type Session struct {
	src      source.LineSource
	state    *plotter.State
	calc     *stats.Calculator
	log      *slog.Logger
	metrics  Metrics
	recorder FrameRecorder
	latest   atomic.Pointer[models.Frame]
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithMetrics sets the metrics sink
func WithMetrics(m Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithRecorder records every applied frame
func WithRecorder(r FrameRecorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithStatsPeriod sets the moving average period used by Stats
func WithStatsPeriod(period int) Option {
	return func(s *Session) { s.calc = stats.NewCalculator(period) }
}

// New creates a session. state is owned by whichever goroutine calls Apply.
func New(src source.LineSource, state *plotter.State, opts ...Option) *Session {
	s := &Session{
		src:     src,
		state:   state,
		calc:    stats.NewCalculator(20),
		log:     slog.Default(),
		metrics: nopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the plot state; only the Apply goroutine may use it
func (s *Session) State() *plotter.State {
	return s.state
}

// ReadLine reads one line from the source. It may block up to the source's
// read timeout and is safe to call off the UI goroutine.
func (s *Session) ReadLine(ctx context.Context) (string, error) {
	return s.src.ReadLine(ctx)
}

// Apply runs the update step for one line. It never panics: a failing step
// is logged and counted, and the next tick carries on.
func (s *Session) Apply(line string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("plot update error", "err", r, "line", line)
			s.metrics.RecordError()
			res = ResultError
		}
	}()

	if strings.TrimSpace(line) == "" {
		return ResultIdle
	}

	f, err := s.state.ProcessLine(line)
	switch {
	case err == nil:
		bass, treble := s.state.Thresholds()
		s.metrics.RecordFrame(f, bass, treble)
		latest := f
		latest.BassThreshold, latest.TrebleThreshold = bass, treble
		s.latest.Store(&latest)
		if s.recorder != nil {
			if err := s.recorder.Record(f); err != nil {
				s.log.Warn("record frame failed", "err", err)
			}
		}
		return ResultApplied
	case errors.Is(err, plotter.ErrDeviceMessage):
		s.log.Info("device message", "line", s.state.LastDeviceMessage())
		s.metrics.RecordDeviceMessage()
		return ResultDevice
	case errors.Is(err, frame.ErrMalformed):
		s.log.Warn("malformed line skipped", "line", line, "err", err)
		s.metrics.RecordMalformed()
		return ResultMalformed
	default:
		s.log.Error("plot update error", "err", err, "line", line)
		s.metrics.RecordError()
		return ResultError
	}
}

// Pump reads a line every interval and hands it to deliver, which must apply
// it on the state's owner goroutine. It returns nil when the source is
// exhausted or ctx ends, and the read error otherwise.
func (s *Session) Pump(ctx context.Context, interval time.Duration, deliver func(line string)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		line, err := s.ReadLine(ctx)
		switch {
		case err == nil:
			deliver(line)
		case errors.Is(err, io.EOF):
			s.log.Info("source exhausted")
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			s.metrics.RecordError()
			return fmt.Errorf("read line: %w", err)
		}
	}
}

// Send forwards a device mode command when the source can talk back
func (s *Session) Send(mode models.DeviceMode) error {
	sender, ok := s.src.(source.CommandSender)
	if !ok {
		s.metrics.RecordCommand(string(mode), source.ErrUnsupported)
		return source.ErrUnsupported
	}
	err := sender.Send(string(mode))
	s.metrics.RecordCommand(string(mode), err)
	if err != nil {
		s.log.Warn("send command failed", "mode", mode, "err", err)
		return err
	}
	s.log.Info("command sent", "mode", mode)
	return nil
}

// Latest returns the most recently applied frame with its thresholds clamped
// as plotted; safe from any goroutine
func (s *Session) Latest() (models.Frame, bool) {
	f := s.latest.Load()
	if f == nil {
		return models.Frame{}, false
	}
	return *f, true
}

// Stats computes per-band statistics over a snapshot
func (s *Session) Stats(snap plotter.Snapshot) [models.NumBands]stats.BandStats {
	return s.calc.Calculate(snap.Raw)
}

// Close closes the source
func (s *Session) Close() error {
	return s.src.Close()
}

type nopMetrics struct{}

func (nopMetrics) RecordFrame(models.Frame, float64, float64) {}
func (nopMetrics) RecordMalformed()                           {}
func (nopMetrics) RecordDeviceMessage()                       {}
func (nopMetrics) RecordError()                               {}
func (nopMetrics) RecordCommand(string, error)                {}
