package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgeq7-viz/src/metrics"
	"msgeq7-viz/src/models"
	"msgeq7-viz/src/plotter"
	"msgeq7-viz/src/session"
)

type stubFrames struct {
	frame models.Frame
	ok    bool
}

func (s *stubFrames) Latest() (models.Frame, bool) { return s.frame, s.ok }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestFrameEndpoint(t *testing.T) {
	frames := &stubFrames{}
	s := New(Config{}, frames, nil, nil)

	rec := get(t, s.Handler(), "/api/frame")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	frames.frame = models.Frame{
		Bands:           [models.NumBands]float64{1, 2, 3, 4, 5, 6, 7},
		BassThreshold:   97.5,
		TrebleThreshold: 220,
		ReceivedAt:      time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	frames.ok = true

	rec = get(t, s.Handler(), "/api/frame")
	require.Equal(t, http.StatusOK, rec.Code)

	var body FrameResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Bands, models.NumBands)
	assert.Equal(t, BandLevel{Band: 5, Group: "Treble", Level: 6}, body.Bands[5])
	assert.Equal(t, 97.5, body.BassThreshold)
	assert.True(t, frames.frame.ReceivedAt.Equal(body.ReceivedAt))
}

func TestFrameEndpointMatchesPlottedThresholds(t *testing.T) {
	m := metrics.New()
	sess := session.New(nil, plotter.NewState(plotter.DefaultWindowSize), session.WithMetrics(m))
	require.Equal(t, session.ResultApplied, sess.Apply("1,2,3,4,5,6,7,2000,300"))
	s := New(Config{}, sess, m.Registry(), nil)

	rec := get(t, s.Handler(), "/api/frame")
	require.Equal(t, http.StatusOK, rec.Code)
	var body FrameResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1023.0, body.BassThreshold)
	assert.Equal(t, 300.0, body.TrebleThreshold)

	rec = get(t, s.Handler(), "/metrics")
	assert.Contains(t, rec.Body.String(), `msgeq7_threshold{kind="bass"} 1023`)
}

func TestMetricsAndHealth(t *testing.T) {
	m := metrics.New()
	m.RecordMalformed()
	s := New(Config{}, &stubFrames{}, m.Registry(), nil)

	rec := get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "msgeq7_malformed_lines_total 1")
}

func TestNoMetricsWithoutGatherer(t *testing.T) {
	s := New(Config{}, &stubFrames{}, nil, nil)
	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/metrics").Code)
}

type panicFrames struct{}

func (panicFrames) Latest() (models.Frame, bool) { panic("boom") }

func TestHandlerPanicIsRecovered(t *testing.T) {
	s := New(Config{}, panicFrames{}, nil, nil)
	rec := get(t, s.Handler(), "/api/frame")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s := New(Config{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second}, &stubFrames{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunReportsListenError(t *testing.T) {
	s := New(Config{Addr: "not-an-address"}, &stubFrames{}, nil, nil)
	err := s.Run(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "http server"))
}
