package dynamics

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-mastering/dsp/filter/crossover"
)

const (
	minMultibandOrder     = 2
	maxMultibandOrder     = 8
	maxMultibandBands     = 8
	minCrossoverFrequency = 20.0
)

// Band configures one frequency band of the multiband processor.
// CrossoverHz is the upper edge of the band; it is ignored for the
// highest band, which extends to Nyquist.
type Band struct {
	CrossoverHz float64 `json:"crossoverHz"`
	ThresholdDB float64 `json:"thresholdDb"`
	Ratio       float64 `json:"ratio"`
	AttackMs    float64 `json:"attackMs"`
	ReleaseMs   float64 `json:"releaseMs"`
	MakeupDB    float64 `json:"makeupDb"`
	Enabled     bool    `json:"enabled"`
}

// Multiband splits linked stereo input into frequency bands using
// Linkwitz-Riley crossovers and compresses each band independently
// before summing. Disabled bands pass through untouched (the band is
// still split and summed, preserving crossover phase alignment).
//
// Both channels share one detector per band (stereo-linked): the gain
// follows the louder channel.
type Multiband struct {
	xoverL *crossover.MultiBand
	xoverR *crossover.MultiBand

	compressors []*Compressor
	bands       []Band

	order      int
	sampleRate float64

	// Preallocated band buffers for the block path.
	bandL [][]float64
	bandR [][]float64
}

// NewMultiband creates a multiband processor from per-band settings.
// bands must have 2..8 entries; the CrossoverHz of all but the last
// band define the split points and must be strictly ascending, each in
// [20, sampleRate/2). order is the Linkwitz-Riley order (even, 2..8).
func NewMultiband(bands []Band, order int, sampleRate float64) (*Multiband, error) {
	if err := validateMultibandParams(bands, order, sampleRate); err != nil {
		return nil, err
	}

	freqs := make([]float64, len(bands)-1)
	for i := range freqs {
		freqs[i] = bands[i].CrossoverHz
	}

	xl, err := crossover.NewMultiBand(freqs, order, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("multiband: %w", err)
	}

	xr, err := crossover.NewMultiBand(freqs, order, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("multiband: %w", err)
	}

	compressors := make([]*Compressor, len(bands))
	for i := range compressors {
		c, err := NewCompressor(sampleRate)
		if err != nil {
			return nil, fmt.Errorf("multiband: band %d: %w", i, err)
		}

		if err := applyBandSettings(c, bands[i]); err != nil {
			return nil, fmt.Errorf("multiband: band %d: %w", i, err)
		}

		compressors[i] = c
	}

	stored := make([]Band, len(bands))
	copy(stored, bands)

	return &Multiband{
		xoverL:      xl,
		xoverR:      xr,
		compressors: compressors,
		bands:       stored,
		order:       order,
		sampleRate:  sampleRate,
		bandL:       make([][]float64, len(bands)),
		bandR:       make([][]float64, len(bands)),
	}, nil
}

func applyBandSettings(c *Compressor, b Band) error {
	if err := c.SetThreshold(b.ThresholdDB); err != nil {
		return err
	}
	if err := c.SetRatio(b.Ratio); err != nil {
		return err
	}
	if err := c.SetAttack(b.AttackMs); err != nil {
		return err
	}
	if err := c.SetRelease(b.ReleaseMs); err != nil {
		return err
	}

	return c.SetMakeupGain(b.MakeupDB)
}

// NumBands returns the number of frequency bands.
func (m *Multiband) NumBands() int { return len(m.compressors) }

// SampleRate returns the sample rate in Hz.
func (m *Multiband) SampleRate() float64 { return m.sampleRate }

// Order returns the Linkwitz-Riley crossover order.
func (m *Multiband) Order() int { return m.order }

// Bands returns a copy of the per-band settings.
func (m *Multiband) Bands() []Band {
	out := make([]Band, len(m.bands))
	copy(out, m.bands)

	return out
}

// Compressor returns the compressor for the given band index
// (0 = lowest frequency band), for inspection.
func (m *Multiband) Compressor(band int) *Compressor {
	return m.compressors[band]
}

// SetBand replaces the settings of one band. Changing CrossoverHz on
// any band other than the last retunes the corresponding crossover
// point; the retune preserves filter state.
func (m *Multiband) SetBand(band int, b Band) error {
	if band < 0 || band >= len(m.bands) {
		return fmt.Errorf("multiband: band index %d out of range [0, %d)", band, len(m.bands))
	}

	if err := applyBandSettings(m.compressors[band], b); err != nil {
		return fmt.Errorf("multiband: band %d: %w", band, err)
	}

	if band < len(m.bands)-1 && b.CrossoverHz != m.bands[band].CrossoverHz {
		trial := make([]Band, len(m.bands))
		copy(trial, m.bands)
		trial[band] = b

		freqs := make([]float64, len(trial)-1)
		for i := range freqs {
			freqs[i] = trial[i].CrossoverHz
		}

		if err := m.xoverL.SetFrequencies(freqs); err != nil {
			return fmt.Errorf("multiband: %w", err)
		}
		if err := m.xoverR.SetFrequencies(freqs); err != nil {
			return fmt.Errorf("multiband: %w", err)
		}
	}

	m.bands[band] = b

	return nil
}

// GainReductionDB returns the current gain reduction of each band in
// positive dB, for metering. The returned slice is newly allocated.
func (m *Multiband) GainReductionDB() []float64 {
	out := make([]float64, len(m.compressors))
	for i, c := range m.compressors {
		out[i] = c.GainReductionDB()
	}

	return out
}

// GainReductionInto fills dst with each band's current gain reduction
// in positive dB. dst must have NumBands() elements. Zero-alloc.
func (m *Multiband) GainReductionInto(dst []float64) {
	for i, c := range m.compressors {
		dst[i] = c.GainReductionDB()
	}
}

// ProcessStereoInPlace applies stereo-linked multiband compression in
// place. Slices must have the same length. Band buffers are reused
// between calls, so after the first call at a given block size this is
// zero-alloc.
func (m *Multiband) ProcessStereoInPlace(left, right []float64) error {
	if len(left) != len(right) {
		return fmt.Errorf("multiband: stereo buffers must have equal length, got %d and %d", len(left), len(right))
	}

	n := len(left)
	if n == 0 {
		return nil
	}

	m.ensureBandBuffers(n)
	m.xoverL.ProcessBlockInto(m.bandL, left)
	m.xoverR.ProcessBlockInto(m.bandR, right)

	for b, comp := range m.compressors {
		if !m.bands[b].Enabled {
			continue
		}

		comp.ProcessStereoInPlace(m.bandL[b][:n], m.bandR[b][:n])
	}

	for i := range n {
		var l, r float64
		for b := range m.compressors {
			l += m.bandL[b][i]
			r += m.bandR[b][i]
		}

		left[i] = l
		right[i] = r
	}

	return nil
}

func (m *Multiband) ensureBandBuffers(n int) {
	for b := range m.bandL {
		if cap(m.bandL[b]) < n {
			m.bandL[b] = make([]float64, n)
			m.bandR[b] = make([]float64, n)
		} else {
			m.bandL[b] = m.bandL[b][:n]
			m.bandR[b] = m.bandR[b][:n]
		}
	}
}

// Reset clears all crossover and compressor state.
func (m *Multiband) Reset() {
	m.xoverL.Reset()
	m.xoverR.Reset()

	for _, c := range m.compressors {
		c.Reset()
	}
}

func validateMultibandParams(bands []Band, order int, sampleRate float64) error {
	if err := validateSampleRate(sampleRate); err != nil {
		return fmt.Errorf("multiband: %w", err)
	}

	if len(bands) < 2 {
		return fmt.Errorf("multiband: at least two bands are required, got %d", len(bands))
	}

	if len(bands) > maxMultibandBands {
		return fmt.Errorf("multiband: maximum %d bands, got %d", maxMultibandBands, len(bands))
	}

	if order < minMultibandOrder || order > maxMultibandOrder || order%2 != 0 {
		return fmt.Errorf("multiband: order must be even and in [%d, %d], got %d",
			minMultibandOrder, maxMultibandOrder, order)
	}

	nyquist := sampleRate / 2
	for i := 0; i < len(bands)-1; i++ {
		f := bands[i].CrossoverHz
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("multiband: crossover frequency %d must be finite: %v", i, f)
		}

		if f < minCrossoverFrequency {
			return fmt.Errorf("multiband: crossover frequency %d must be >= %.0f Hz, got %.1f Hz",
				i, minCrossoverFrequency, f)
		}

		if f >= nyquist {
			return fmt.Errorf("multiband: crossover frequency %d must be < Nyquist (%.0f Hz), got %.1f Hz",
				i, nyquist, f)
		}

		if i > 0 && f <= bands[i-1].CrossoverHz {
			return fmt.Errorf("multiband: crossover frequencies must be strictly ascending, got %.1f after %.1f",
				f, bands[i-1].CrossoverHz)
		}
	}

	return nil
}
