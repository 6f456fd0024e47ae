package plotter

// Window is a fixed-length sample buffer. It starts zero-filled and every Push
// drops the oldest sample, so the length never changes.
type Window struct {
	buf  []float64
	head int // index of the oldest sample
}

// NewWindow creates a zero-filled window of the given size
func NewWindow(size int) *Window {
	if size <= 0 {
		size = 1
	}
	return &Window{buf: make([]float64, size)}
}

// Push appends v and drops the oldest sample
func (w *Window) Push(v float64) {
	w.buf[w.head] = v
	w.head = (w.head + 1) % len(w.buf)
}

// Len returns the window size
func (w *Window) Len() int {
	return len(w.buf)
}

// Last returns the newest sample
func (w *Window) Last() float64 {
	return w.buf[(w.head+len(w.buf)-1)%len(w.buf)]
}

// Values returns a copy of the samples ordered oldest to newest
func (w *Window) Values() []float64 {
	out := make([]float64, len(w.buf))
	n := copy(out, w.buf[w.head:])
	copy(out[n:], w.buf[:w.head])
	return out
}

// Reset zero-fills the window
func (w *Window) Reset() {
	for i := range w.buf {
		w.buf[i] = 0
	}
	w.head = 0
}
