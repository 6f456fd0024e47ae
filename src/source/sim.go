package source

import (
	"context"
	"sync"
	"time"

	"msgeq7-viz/src/frame"
	"msgeq7-viz/src/simulator"
)

// Sim feeds simulator frames through the same line interface as the board
type Sim struct {
	mu       sync.Mutex
	sim      *simulator.Simulator
	interval time.Duration
	next     time.Time
	replies  []string
	now      func() time.Time
}

// NewSim creates a simulator-backed source
func NewSim(cfg SimConfig) *Sim {
	return &Sim{
		sim:      simulator.New(cfg.Seed, cfg.BPM),
		interval: cfg.Interval,
		now:      time.Now,
	}
}

// ReadLine returns a pending command reply first, otherwise the next frame.
// Frames are paced at the configured interval like the firmware loop.
func (s *Sim) ReadLine(ctx context.Context) (string, error) {
	s.mu.Lock()
	if len(s.replies) > 0 {
		reply := s.replies[0]
		s.replies = s.replies[1:]
		s.mu.Unlock()
		return reply, nil
	}
	s.mu.Unlock()

	if s.interval > 0 {
		if wait := s.next.Sub(s.now()); wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-timer.C:
			}
		}
		s.next = s.now().Add(s.interval)
	} else if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return frame.FormatFrame(s.sim.Step(s.now())), nil
}

// Send hands a command to the simulated firmware; its reply is returned by
// the next ReadLine
func (s *Sim) Send(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, s.sim.SetMode(cmd))
	return nil
}

// Close is a no-op
func (s *Sim) Close() error {
	return nil
}
