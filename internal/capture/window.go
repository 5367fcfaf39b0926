package capture

import "time"

// FrameHandler receives every full window. It returns how long capture
// should pause; zero keeps streaming. The window is reused after the call
// returns.
type FrameHandler func(silent bool, window []float64) time.Duration

// Window accumulates little endian int16 samples until it holds exactly
// len(samples) of them.
type Window struct {
	samples []float64
	cursor  int
	silent  bool

	// Low byte of a sample split across two batches.
	pending    byte
	hasPending bool
}

// NewWindow allocates a window of size samples.
func NewWindow(size int) *Window {
	return &Window{samples: make([]float64, size), silent: true}
}

// Len returns the window size in samples.
func (w *Window) Len() int { return len(w.samples) }

// Reset empties the window and drops any half sample.
func (w *Window) Reset() {
	w.cursor = 0
	w.silent = true
	w.hasPending = false
}

// Fill appends the samples encoded in data and calls handle for every
// window that becomes full. A positive wait from handle stops the fill:
// the rest of data is dropped and the wait is returned.
func (w *Window) Fill(data []byte, handle FrameHandler) time.Duration {
	i := 0
	if w.hasPending && len(data) > 0 {
		w.hasPending = false
		if wait := w.push(int16(uint16(w.pending)|uint16(data[0])<<8), handle); wait > 0 {
			return wait
		}
		i = 1
	}

	for ; i+1 < len(data); i += 2 {
		if wait := w.push(int16(uint16(data[i])|uint16(data[i+1])<<8), handle); wait > 0 {
			return wait
		}
	}

	if i < len(data) {
		w.pending = data[i]
		w.hasPending = true
	}
	return 0
}

func (w *Window) push(s int16, handle FrameHandler) time.Duration {
	w.samples[w.cursor] = float64(s)
	w.silent = w.silent && s == 0
	w.cursor++
	if w.cursor < len(w.samples) {
		return 0
	}

	wait := handle(w.silent, w.samples)
	w.cursor = 0
	w.silent = true
	if wait > 0 {
		// Whatever is left of this batch predates the pause.
		w.hasPending = false
	}
	return wait
}
