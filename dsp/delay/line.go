// Package delay provides a fixed-size circular delay line, used for the
// limiter's lookahead path.
package delay

import (
	"fmt"
)

// Line is a circular delay line with integer-sample reads.
type Line struct {
	buffer   []float64
	writePos int
}

// New returns a delay line of fixed size. Reads up to size-1 samples
// back are valid.
func New(size int) (*Line, error) {
	if size <= 0 {
		return nil, fmt.Errorf("delay size must be > 0: %d", size)
	}
	return &Line{buffer: make([]float64, size)}, nil
}

// Len returns internal buffer size.
func (d *Line) Len() int {
	return len(d.buffer)
}

// Write writes one sample.
func (d *Line) Write(sample float64) {
	d.buffer[d.writePos] = sample
	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// Read reads an integer delay in samples. Read(1) returns the most
// recently written sample.
func (d *Line) Read(delay int) float64 {
	size := len(d.buffer)
	readPos := (d.writePos - delay + size) % size
	return d.buffer[readPos]
}

// Tick writes one sample and returns the sample delayed by the full
// line length. This is the single-call form used by lookahead paths.
func (d *Line) Tick(sample float64) float64 {
	out := d.buffer[d.writePos]
	d.buffer[d.writePos] = sample
	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
	return out
}

// Reset clears line state.
func (d *Line) Reset() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}
	d.writePos = 0
}
