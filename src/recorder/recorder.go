// Package recorder appends accepted frames to a file in the firmware's wire
// format so a session can be replayed later with the replay source.
package recorder

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"msgeq7-viz/src/frame"
	"msgeq7-viz/src/models"
)

// Recorder writes one line per frame
type Recorder struct {
	mu     sync.Mutex
	file   *os.File
	w      *bufio.Writer
	path   string
	frames int
}

// Open creates or appends to path
func Open(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open record file: %w", err)
	}
	return &Recorder{file: f, w: bufio.NewWriter(f), path: path}, nil
}

// Record appends f
func (r *Recorder) Record(f models.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.w.WriteString(frame.FormatFrame(f) + "\n"); err != nil {
		return fmt.Errorf("write %s: %w", r.path, err)
	}
	r.frames++
	return nil
}

// Frames returns how many frames were written
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Path returns the output file
func (r *Recorder) Path() string {
	return r.path
}

// Close flushes and closes the file
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.w.Flush(); err != nil {
		r.file.Close()
		return fmt.Errorf("flush %s: %w", r.path, err)
	}
	return r.file.Close()
}
