// Package simulator reproduces the analyzer firmware's output so the
// visualizer can run without the board attached. It follows the firmware's
// smoothing and threshold tracking; only the raw ADC signal is synthetic.
package simulator

import (
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"msgeq7-viz/src/models"
)

// Firmware constants
const (
	ADCMax              = 4095 // ESP32 12-bit ADC
	NoiseFloor          = 50
	SmoothingNew        = 0.8 // EMA weight of the new reading
	BassBand            = 1   // band driving the bass threshold
	TrebleBand          = 4   // band driving the treble threshold
	BassThresholdFactor = 0.12
	BassDecayInterval   = 100 * time.Millisecond
	TrebleDecayInterval = 120 * time.Millisecond
	DecayStep           = 4
	DynamicMaxFloor     = 10
	TrebleHistoryLen    = 75
	TrebleTrimFraction  = 0.05 // bottom share dropped before averaging
	TrebleMultiplier    = 2.5
)

// Simulator generates frames the way the firmware's main loop does
type Simulator struct {
	rng     *rand.Rand
	bpm     float64
	started time.Time

	smooth [models.NumBands]float64

	maxBand       int // firmware keeps these as ints
	maxTreble     int
	lastBassDecay time.Time
	lastTrebDecay time.Time

	trebleHistory [TrebleHistoryLen]float64
	trebleIdx     int

	bassThreshold   float64
	trebleThreshold float64

	mode models.DeviceMode
}

// New creates a simulator with a deterministic seed
func New(seed uint64, bpm float64) *Simulator {
	if bpm <= 0 {
		bpm = 120
	}
	return &Simulator{
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		bpm:  bpm,
		mode: models.ModeMusic,
	}
}

// Mode returns the current device mode
func (s *Simulator) Mode() models.DeviceMode {
	return s.mode
}

// Step synthesises one raw reading at now and runs it through the firmware
// pipeline
func (s *Simulator) Step(now time.Time) models.Frame {
	if s.started.IsZero() {
		s.started = now
	}
	return s.StepRaw(now, s.synthesize(now.Sub(s.started)))
}

// StepRaw runs one loop iteration on raw 0-4095 ADC readings
func (s *Simulator) StepRaw(now time.Time, raw [models.NumBands]int) models.Frame {
	s.readBands(raw)
	s.updateDynamicMaxBand(now)
	s.updateDynamicMaxTreble(now)

	f := models.Frame{
		Bands:           s.smooth,
		BassThreshold:   s.bassThreshold,
		TrebleThreshold: s.trebleThreshold,
		ReceivedAt:      now,
	}
	return f
}

func (s *Simulator) readBands(raw [models.NumBands]int) {
	for i, r := range raw {
		if r < 0 {
			r = 0
		}
		if r > ADCMax {
			r = ADCMax
		}
		scaled := r * models.MaxLevel / ADCMax
		s.smooth[i] = float64(scaled)*SmoothingNew + s.smooth[i]*(1-SmoothingNew)

		// history keeps the smoothed value before the noise floor is applied
		if i == TrebleBand {
			s.trebleHistory[s.trebleIdx] = s.smooth[i]
			s.trebleIdx = (s.trebleIdx + 1) % TrebleHistoryLen
		}
		if s.smooth[i] < NoiseFloor {
			s.smooth[i] = 0
		}
	}
}

func (s *Simulator) updateDynamicMaxBand(now time.Time) {
	current := s.smooth[BassBand]
	if current > float64(s.maxBand) {
		s.maxBand = int(math.Min(current, models.MaxLevel))
	}
	if now.Sub(s.lastBassDecay) > BassDecayInterval {
		s.lastBassDecay = now
		s.maxBand -= DecayStep
		if s.maxBand < DynamicMaxFloor {
			s.maxBand = DynamicMaxFloor
		}
	}
	s.bassThreshold = float64(s.maxBand) * BassThresholdFactor
}

func (s *Simulator) updateDynamicMaxTreble(now time.Time) {
	current := s.smooth[TrebleBand]
	if current > float64(s.maxTreble) {
		s.maxTreble = int(math.Min(current, models.MaxLevel))
	}
	if now.Sub(s.lastTrebDecay) > TrebleDecayInterval {
		s.lastTrebDecay = now
		s.maxTreble -= DecayStep
		if s.maxTreble < DynamicMaxFloor {
			s.maxTreble = DynamicMaxFloor
		}
	}
	s.trebleThreshold = AdaptiveThreshold(s.trebleHistory[:]) * TrebleMultiplier
}

// AdaptiveThreshold sorts the history, drops the bottom 5% and averages the
// rest
func AdaptiveThreshold(history []float64) float64 {
	if len(history) == 0 {
		return 0
	}
	sorted := make([]float64, len(history))
	copy(sorted, history)
	sort.Float64s(sorted)

	start := int(float64(len(sorted)) * TrebleTrimFraction)
	sum := 0.0
	for _, v := range sorted[start:] {
		sum += v
	}
	return sum / float64(len(sorted)-start)
}

// synthesize produces a beat-driven raw spectrum: kicks on the bass bands,
// hats on the treble bands between beats, a steady mid bed and noise
func (s *Simulator) synthesize(elapsed time.Duration) [models.NumBands]int {
	beat := 60.0 / s.bpm
	phase := math.Mod(elapsed.Seconds(), beat) / beat
	kick := math.Exp(-phase * 8)
	hat := math.Exp(-math.Abs(phase-0.5) * 20)
	swell := 0.5 + 0.5*math.Sin(elapsed.Seconds()*0.7)

	var raw [models.NumBands]int
	for i := range raw {
		var level float64
		switch models.GroupOf(i) {
		case models.GroupBass:
			level = 3400*kick + 300
		case models.GroupMid:
			level = 1200 + 900*swell
		case models.GroupTreble:
			level = 2600*hat + 150
		}
		level += s.rng.NormFloat64() * 120
		raw[i] = int(math.Max(0, math.Min(ADCMax, level)))
	}
	return raw
}

// SetMode handles a serial command like the firmware and returns the line it
// prints in reply
func (s *Simulator) SetMode(cmd string) string {
	switch strings.TrimSpace(cmd) {
	case "bounce":
		s.mode = models.ModeBounce
		return "Mode set to BOUNCE"
	case "rainbow":
		s.mode = models.ModeRainbow
		return "Mode set to RAINBOW"
	case "s":
		s.mode = models.ModeStrobe
		return "Strobe effect activated!"
	case "F", "f":
		s.mode = models.ModeFlash
		return "Flash effect activated!"
	case "vibes":
		s.mode = models.ModeVibes
		return "Vibes effect activated!"
	case "treble":
		s.mode = models.ModeTreble
		return "Treble mode activated!"
	case "music":
		s.mode = models.ModeMusic
		return "Music mode activated!"
	case "off":
		s.mode = models.ModeOff
		return "Lights off"
	default:
		return "Unknown command. Available: bounce, rainbow, vibes, music, treble, off, s, F"
	}
}
