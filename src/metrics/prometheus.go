package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"msgeq7-viz/src/models"
)

// Recorder implements the session's metrics hooks using Prometheus.
// Each Recorder owns its registry so several can coexist (tests, tools).
type Recorder struct {
	registry       *prometheus.Registry
	framesTotal    prometheus.Counter
	malformedTotal prometheus.Counter
	deviceMsgTotal prometheus.Counter
	errorsTotal    prometheus.Counter
	commandsTotal  *prometheus.CounterVec
	bandLevel      *prometheus.GaugeVec
	threshold      *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		framesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "msgeq7_frames_total",
			Help: "Total number of frames applied to the plot",
		}),
		malformedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "msgeq7_malformed_lines_total",
			Help: "Total number of lines skipped as malformed",
		}),
		deviceMsgTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "msgeq7_device_messages_total",
			Help: "Total number of firmware status lines received",
		}),
		errorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "msgeq7_update_errors_total",
			Help: "Total number of failed update steps",
		}),
		commandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "msgeq7_commands_total",
				Help: "Device commands sent, by mode and result",
			},
			[]string{"mode", "result"},
		),
		bandLevel: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "msgeq7_band_level",
				Help: "Latest level per band (0-1023)",
			},
			[]string{"band", "group"},
		),
		threshold: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "msgeq7_threshold",
				Help: "Latest clamped threshold level",
			},
			[]string{"kind"},
		),
	}
}

// Registry returns the registry to expose over HTTP
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordFrame records an applied frame
func (r *Recorder) RecordFrame(f models.Frame, bass, treble float64) {
	r.framesTotal.Inc()
	for band, v := range f.Bands {
		r.bandLevel.WithLabelValues(strconv.Itoa(band), models.GroupOf(band).String()).Set(v)
	}
	r.threshold.WithLabelValues("bass").Set(bass)
	r.threshold.WithLabelValues("treble").Set(treble)
}

// RecordMalformed records a skipped line
func (r *Recorder) RecordMalformed() {
	r.malformedTotal.Inc()
}

// RecordDeviceMessage records a firmware status line
func (r *Recorder) RecordDeviceMessage() {
	r.deviceMsgTotal.Inc()
}

// RecordError records a failed update step
func (r *Recorder) RecordError() {
	r.errorsTotal.Inc()
}

// RecordCommand records a device command
func (r *Recorder) RecordCommand(mode string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.commandsTotal.WithLabelValues(mode, result).Inc()
}
