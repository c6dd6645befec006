package dither

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-mastering/dsp/filter/biquad"
	"github.com/cwbudde/algo-mastering/dsp/filter/design"
)

const (
	iirShelfDefaultGainDB = -5.0
	iirShelfDefaultQ      = 0.707 // 1/sqrt(2), Butterworth slope
)

// IIRShelfShaper shapes quantization error with a biquad low-shelf
// applied in the feedback path. De-emphasizing the error below the
// corner pushes the residual noise upward in frequency, where hearing
// is less sensitive, at a fraction of the cost of a long FIR shaper.
type IIRShelfShaper struct {
	filter    *biquad.Section
	lastError float64
}

// NewIIRShelfShaper creates an IIR shelf noise shaper with the given
// corner frequency and sample rate. The shelf applies -5 dB of
// low-frequency de-emphasis to the error signal.
func NewIIRShelfShaper(freq, sampleRate float64) (*IIRShelfShaper, error) {
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return nil, fmt.Errorf("dither: IIR shelf frequency must be > 0 and finite: %f", freq)
	}

	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("dither: IIR shelf sample rate must be > 0 and finite: %f", sampleRate)
	}

	coeffs := design.LowShelf(freq, iirShelfDefaultGainDB, iirShelfDefaultQ, sampleRate)

	return &IIRShelfShaper{
		filter: biquad.NewSection(coeffs),
	}, nil
}

// Shape applies the shelf filter to the previous error and subtracts it
// from the input.
func (s *IIRShelfShaper) Shape(input float64) float64 {
	return input - s.filter.ProcessSample(s.lastError)
}

// RecordError stores the quantization error for the next Shape call.
func (s *IIRShelfShaper) RecordError(quantizationError float64) {
	s.lastError = quantizationError
}

// Reset clears the filter state and stored error.
func (s *IIRShelfShaper) Reset() {
	s.filter.Reset()
	s.lastError = 0
}
