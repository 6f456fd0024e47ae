package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// Replay plays back a file written by the recorder, one line per call
type Replay struct {
	file     *os.File
	scanner  *bufio.Scanner
	interval time.Duration
	loop     bool
	next     time.Time
}

// OpenReplay opens a recorded file
func OpenReplay(cfg ReplayConfig) (*Replay, error) {
	f, err := os.Open(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	return &Replay{
		file:     f,
		scanner:  bufio.NewScanner(f),
		interval: cfg.Interval,
		loop:     cfg.Loop,
	}, nil
}

// ReadLine returns the next recorded line, paced by the configured interval.
// At the end of the file it rewinds when looping, otherwise returns io.EOF.
func (r *Replay) ReadLine(ctx context.Context) (string, error) {
	if err := r.wait(ctx); err != nil {
		return "", err
	}
	for attempt := 0; attempt < 2; attempt++ {
		if r.scanner.Scan() {
			return cleanLine(r.scanner.Bytes()), nil
		}
		if err := r.scanner.Err(); err != nil {
			return "", fmt.Errorf("read replay file: %w", err)
		}
		if !r.loop {
			return "", io.EOF
		}
		if _, err := r.file.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("rewind replay file: %w", err)
		}
		r.scanner = bufio.NewScanner(r.file)
	}
	// file is empty
	return "", io.EOF
}

func (r *Replay) wait(ctx context.Context) error {
	if r.interval <= 0 {
		return ctx.Err()
	}
	now := time.Now()
	if r.next.After(now) {
		timer := time.NewTimer(r.next.Sub(now))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	r.next = time.Now().Add(r.interval)
	return nil
}

// Close closes the file
func (r *Replay) Close() error {
	return r.file.Close()
}
