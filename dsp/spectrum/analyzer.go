package spectrum

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
)

const (
	defaultAnalyzerFFTSize   = 2048
	defaultAnalyzerOverlap   = 0.5
	defaultAnalyzerSmoothing = 0.8

	analyzerFloorDB = -130.0
	analyzerEps     = 1e-12
)

// AnalyzerOption mutates analyzer construction parameters.
type AnalyzerOption func(*analyzerConfig) error

type analyzerConfig struct {
	fftSize   int
	overlap   float64
	smoothing float64
}

// WithFFTSize sets the FFT frame size (power of two, 256..8192,
// default 2048).
func WithFFTSize(size int) AnalyzerOption {
	return func(cfg *analyzerConfig) error {
		switch size {
		case 256, 512, 1024, 2048, 4096, 8192:
			cfg.fftSize = size
			return nil
		default:
			return fmt.Errorf("analyzer fft size must be a power of two in [256, 8192]: %d", size)
		}
	}
}

// WithOverlap sets the frame overlap fraction (0.25..0.95, default 0.5).
func WithOverlap(overlap float64) AnalyzerOption {
	return func(cfg *analyzerConfig) error {
		if overlap < 0.25 || overlap > 0.95 || math.IsNaN(overlap) {
			return fmt.Errorf("analyzer overlap must be in [0.25, 0.95]: %f", overlap)
		}

		cfg.overlap = overlap

		return nil
	}
}

// WithSmoothing sets the exponential smoothing applied between frames
// (0 = no smoothing, up to 0.95; default 0.8).
func WithSmoothing(smoothing float64) AnalyzerOption {
	return func(cfg *analyzerConfig) error {
		if smoothing < 0 || smoothing > 0.95 || math.IsNaN(smoothing) {
			return fmt.Errorf("analyzer smoothing must be in [0, 0.95]: %f", smoothing)
		}

		cfg.smoothing = smoothing

		return nil
	}
}

// Analyzer is a streaming spectrum analyzer for metering: samples are
// pushed through a ring buffer, Hann-windowed frames are transformed at
// the hop interval, and single-sided magnitudes are smoothed across
// frames in dBFS.
//
// The analyzer is a display meter, not part of the audio path; it is
// not thread-safe.
type Analyzer struct {
	sampleRate float64
	fftSize    int
	hopSize    int
	smoothing  float64

	window     []float64
	windowGain float64

	plan   *algofft.Plan[complex128]
	input  []complex128
	output []complex128

	ring         []float64
	writePos     int
	filled       int
	samplesToHop int

	// split re/im scratch for the vectorized magnitude kernel
	re   []float64
	im   []float64
	mags []float64

	db    []float64
	ready bool
}

// NewAnalyzer creates a streaming spectrum analyzer.
func NewAnalyzer(sampleRate float64, opts ...AnalyzerOption) (*Analyzer, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("analyzer sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := analyzerConfig{
		fftSize:   defaultAnalyzerFFTSize,
		overlap:   defaultAnalyzerOverlap,
		smoothing: defaultAnalyzerSmoothing,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	plan, err := algofft.NewPlan64(cfg.fftSize)
	if err != nil {
		return nil, fmt.Errorf("analyzer fft plan: %w", err)
	}

	win := hannWindow(cfg.fftSize)

	var sum float64
	for _, w := range win {
		sum += w
	}

	hop := int(math.Round(float64(cfg.fftSize) * (1 - cfg.overlap)))
	if hop < 1 {
		hop = 1
	}

	a := &Analyzer{
		sampleRate: sampleRate,
		fftSize:    cfg.fftSize,
		hopSize:    hop,
		smoothing:  cfg.smoothing,
		window:     win,
		windowGain: sum / float64(cfg.fftSize),
		plan:       plan,
		input:      make([]complex128, cfg.fftSize),
		output:     make([]complex128, cfg.fftSize),
		ring:       make([]float64, cfg.fftSize),
		re:         make([]float64, cfg.fftSize/2+1),
		im:         make([]float64, cfg.fftSize/2+1),
		mags:       make([]float64, cfg.fftSize/2+1),
		db:         make([]float64, cfg.fftSize/2+1),
	}

	for i := range a.db {
		a.db[i] = analyzerFloorDB
	}

	return a, nil
}

// hannWindow returns a periodic Hann window of the given length.
func hannWindow(length int) []float64 {
	win := make([]float64, length)
	for i := range win {
		win[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(length)))
	}

	return win
}

// Push feeds one sample into the analyzer, transforming a frame when a
// hop boundary is reached.
func (a *Analyzer) Push(x float64) {
	a.ring[a.writePos] = x

	a.writePos++
	if a.writePos >= a.fftSize {
		a.writePos = 0
	}

	if a.filled < a.fftSize {
		a.filled++
	}

	a.samplesToHop++
	if a.filled < a.fftSize || a.samplesToHop < a.hopSize {
		return
	}

	a.samplesToHop = 0
	a.updateFrame()
}

// PushBlock feeds a block of samples.
func (a *Analyzer) PushBlock(buf []float64) {
	for _, x := range buf {
		a.Push(x)
	}
}

func (a *Analyzer) updateFrame() {
	read := a.writePos
	for i := range a.fftSize {
		a.input[i] = complex(a.ring[read]*a.window[i], 0)

		read++
		if read >= a.fftSize {
			read = 0
		}
	}

	if err := a.plan.Forward(a.output, a.input); err != nil {
		return
	}

	// Normalize so a full-scale sine reads ~0 dBFS: window DC gain,
	// single-sided doubling for interior bins.
	norm := float64(a.fftSize) * math.Max(a.windowGain, analyzerEps)

	last := len(a.db) - 1
	for k := 0; k <= last; k++ {
		a.re[k] = real(a.output[k])
		a.im[k] = imag(a.output[k])
	}

	MagnitudeFromParts(a.mags, a.re, a.im)

	for k := 0; k <= last; k++ {
		mag := a.mags[k] / norm

		if k > 0 && k < last {
			mag *= 2
		}

		valDB := 20 * math.Log10(math.Max(analyzerEps, mag))
		if valDB < analyzerFloorDB {
			valDB = analyzerFloorDB
		}

		if !a.ready {
			a.db[k] = valDB
			continue
		}

		a.db[k] = a.smoothing*a.db[k] + (1-a.smoothing)*valDB
	}

	a.ready = true
}

// Ready reports whether at least one frame has been transformed.
func (a *Analyzer) Ready() bool { return a.ready }

// NumBins returns the number of single-sided spectrum bins
// (fftSize/2 + 1).
func (a *Analyzer) NumBins() int { return len(a.db) }

// BinFrequency returns the center frequency of bin k in Hz.
func (a *Analyzer) BinFrequency(k int) float64 {
	return float64(k) * a.sampleRate / float64(a.fftSize)
}

// FFTSize returns the frame size.
func (a *Analyzer) FFTSize() int { return a.fftSize }

// HopSize returns the hop interval in samples.
func (a *Analyzer) HopSize() int { return a.hopSize }

// MagnitudesDB copies the current smoothed single-sided magnitudes in
// dBFS into dst, which must have NumBins() elements. Returns false when
// no frame has been transformed yet (dst is filled with the floor).
func (a *Analyzer) MagnitudesDB(dst []float64) bool {
	copy(dst, a.db)

	return a.ready
}

// CurveDB interpolates the smoothed spectrum at the given frequencies,
// for log-spaced display curves.
func (a *Analyzer) CurveDB(freqs []float64) []float64 {
	out := make([]float64, len(freqs))

	if !a.ready {
		for i := range out {
			out[i] = analyzerFloorDB
		}

		return out
	}

	nyquist := a.sampleRate * 0.5
	binHz := a.sampleRate / float64(a.fftSize)
	lastBin := len(a.db) - 1

	for i, f := range freqs {
		if f < 0 {
			f = 0
		} else if f > nyquist {
			f = nyquist
		}

		bin := f / binHz
		if bin <= 0 {
			out[i] = a.db[0]
			continue
		}

		if bin >= float64(lastBin) {
			out[i] = a.db[lastBin]
			continue
		}

		base := int(bin)
		frac := bin - float64(base)
		out[i] = a.db[base] + frac*(a.db[base+1]-a.db[base])
	}

	return out
}

// Reset clears the ring buffer, smoothing state and readiness.
func (a *Analyzer) Reset() {
	for i := range a.ring {
		a.ring[i] = 0
	}

	for i := range a.db {
		a.db[i] = analyzerFloorDB
	}

	a.writePos = 0
	a.filled = 0
	a.samplesToHop = 0
	a.ready = false
}
