// Package server exposes the running visualizer over HTTP: Prometheus
// metrics, the latest frame as JSON and a health probe.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"msgeq7-viz/src/models"
)

// Config holds HTTP settings; an empty Addr disables the server
type Config struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"5s" validate:"gt=0"`
}

// FrameSource returns the latest applied frame
type FrameSource interface {
	Latest() (models.Frame, bool)
}

// FrameResponse is the JSON body of GET /api/frame
type FrameResponse struct {
	Bands           []BandLevel `json:"bands"`
	BassThreshold   float64     `json:"bass_threshold"`
	TrebleThreshold float64     `json:"treble_threshold"`
	ReceivedAt      time.Time   `json:"received_at"`
}

// BandLevel is one band in FrameResponse
type BandLevel struct {
	Band  int     `json:"band"`
	Group string  `json:"group"`
	Level float64 `json:"level"`
}

// Server wraps the Echo HTTP server
type Server struct {
	echo   *echo.Echo
	config Config
	log    *slog.Logger
}

// New creates a server. gatherer may be nil to skip /metrics.
func New(cfg Config, frames FrameSource, gatherer prometheus.Gatherer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, config: cfg, log: log}
	e.Use(s.recoverPanic)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/api/frame", func(c echo.Context) error {
		f, ok := frames.Latest()
		if !ok {
			return c.NoContent(http.StatusNoContent)
		}
		return c.JSON(http.StatusOK, NewFrameResponse(f))
	})
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

// NewFrameResponse converts a frame for the API
func NewFrameResponse(f models.Frame) FrameResponse {
	resp := FrameResponse{
		Bands:           make([]BandLevel, 0, models.NumBands),
		BassThreshold:   f.BassThreshold,
		TrebleThreshold: f.TrebleThreshold,
		ReceivedAt:      f.ReceivedAt,
	}
	for band, v := range f.Bands {
		resp.Bands = append(resp.Bands, BandLevel{
			Band:  band,
			Group: models.GroupOf(band).String(),
			Level: v,
		})
	}
	return resp
}

// Handler returns the HTTP handler, for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.config.Addr)
		if err := s.echo.Start(s.config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) recoverPanic(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("http handler panic", "err", r, "path", c.Path())
				err = echo.NewHTTPError(http.StatusInternalServerError)
			}
		}()
		return next(c)
	}
}
