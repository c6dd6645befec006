package spatial

import (
	"fmt"
	"math"
)

const (
	defaultCorrelationWindowMs = 300.0

	minCorrelationWindowMs = 10.0
	maxCorrelationWindowMs = 5000.0
)

// CorrelationMeter measures the correlation between the left and right
// channels over an exponentially weighted rolling window.
//
// The reading is in [-1, +1]: +1 for identical channels (mono), 0 for
// uncorrelated material, -1 for out-of-phase channels. Silence reads
// as +1 (no phase problem to report).
//
// Real-time safe, not thread-safe.
type CorrelationMeter struct {
	coeff float64

	sumLR float64
	sumLL float64
	sumRR float64
}

// NewCorrelationMeter creates a correlation meter with the given
// averaging window in milliseconds.
func NewCorrelationMeter(sampleRate, windowMs float64) (*CorrelationMeter, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("correlation meter sample rate must be > 0 and finite: %f", sampleRate)
	}

	if windowMs < minCorrelationWindowMs || windowMs > maxCorrelationWindowMs ||
		math.IsNaN(windowMs) || math.IsInf(windowMs, 0) {
		return nil, fmt.Errorf("correlation meter window must be in [%g, %g] ms: %f",
			minCorrelationWindowMs, maxCorrelationWindowMs, windowMs)
	}

	return &CorrelationMeter{
		coeff: math.Exp(-math.Ln2 / (windowMs * 0.001 * sampleRate)),
	}, nil
}

// Process feeds one stereo sample pair into the rolling window.
func (m *CorrelationMeter) Process(left, right float64) {
	m.sumLR = m.sumLR*m.coeff + left*right
	m.sumLL = m.sumLL*m.coeff + left*left
	m.sumRR = m.sumRR*m.coeff + right*right
}

// ProcessBlock feeds paired left/right buffers into the rolling window.
func (m *CorrelationMeter) ProcessBlock(left, right []float64) {
	for i := range left {
		m.Process(left[i], right[i])
	}
}

// Correlation returns the current correlation reading in [-1, +1].
func (m *CorrelationMeter) Correlation() float64 {
	denom := math.Sqrt(m.sumLL * m.sumRR)
	if denom <= 0 {
		return 1
	}

	corr := m.sumLR / denom
	if corr > 1 {
		return 1
	}

	if corr < -1 {
		return -1
	}

	return corr
}

// Reset clears the rolling window.
func (m *CorrelationMeter) Reset() {
	m.sumLR = 0
	m.sumLL = 0
	m.sumRR = 0
}
