package window

import "math"

// MinCapacity is the smallest usable window. One sample has no temporal
// structure to analyze.
const MinCapacity = 2

// ColorSample is the spatial mean of a stabilized ROI, one value per
// channel in B,G,R order on the full 0-255 scale.
type ColorSample struct {
	B, G, R float64
}

// TemporalWindow is a fixed-capacity FIFO of color samples. Once full,
// each Add evicts the oldest sample. Not safe for concurrent use; the
// owning pipeline feeds it from a single goroutine.
type TemporalWindow struct {
	samples  []ColorSample
	capacity int
	head     int // next write position
	size     int // samples currently stored
}

// CapacityFor derives the window capacity from a duration and sample
// rate: round(seconds * fps), clamped to MinCapacity.
func CapacityFor(windowSeconds, fps float64) int {
	n := int(math.Round(windowSeconds * fps))
	if n < MinCapacity {
		return MinCapacity
	}
	return n
}

// NewTemporalWindow creates a window with the given capacity, clamped
// to MinCapacity.
func NewTemporalWindow(capacity int) *TemporalWindow {
	if capacity < MinCapacity {
		capacity = MinCapacity
	}
	return &TemporalWindow{
		samples:  make([]ColorSample, capacity),
		capacity: capacity,
	}
}

// Add appends a sample, evicting the oldest when the window is full.
// Amortized O(1).
func (w *TemporalWindow) Add(s ColorSample) {
	w.samples[w.head] = s
	w.head = (w.head + 1) % w.capacity
	if w.size < w.capacity {
		w.size++
	}
}

// Len returns the number of samples currently held.
func (w *TemporalWindow) Len() int {
	return w.size
}

// Cap returns the window capacity.
func (w *TemporalWindow) Cap() int {
	return w.capacity
}

// Full reports whether the window holds capacity samples.
func (w *TemporalWindow) Full() bool {
	return w.size == w.capacity
}

// Samples returns the held samples ordered oldest to newest. The slice
// is a copy; mutating it does not affect the window.
func (w *TemporalWindow) Samples() []ColorSample {
	if w.size == 0 {
		return nil
	}
	out := make([]ColorSample, w.size)
	for i := 0; i < w.size; i++ {
		idx := (w.head - w.size + i + w.capacity) % w.capacity
		out[i] = w.samples[idx]
	}
	return out
}

// Reset discards all samples, keeping the capacity.
func (w *TemporalWindow) Reset() {
	w.head = 0
	w.size = 0
}
