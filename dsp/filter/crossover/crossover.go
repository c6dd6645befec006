package crossover

import (
	"fmt"

	"github.com/cwbudde/algo-mastering/dsp/core"
	"github.com/cwbudde/algo-mastering/dsp/filter/biquad"
	"github.com/cwbudde/algo-mastering/dsp/filter/design"
)

// Crossover is a two-way Linkwitz-Riley crossover network that splits
// an input signal into complementary lowpass and highpass outputs.
//
// The lowpass and highpass outputs sum to an allpass-filtered version
// of the input (flat magnitude response). Polarity correction for
// orders ≡ 2 mod 4 (LR2, LR6, …) is handled automatically.
type Crossover struct {
	lp    *biquad.Chain
	hp    *biquad.Chain
	freq  float64
	order int
	sr    float64
}

// New creates a two-way Linkwitz-Riley crossover at the given frequency
// and order. The order must be a positive even integer (2, 4, 6, 8, …).
//
// For orders ≡ 2 mod 4 (LR2, LR6, …), the HP polarity is automatically
// inverted so that LP + HP = allpass for all even orders.
//
// Returns an error for invalid parameters.
func New(freq float64, order int, sampleRate float64) (*Crossover, error) {
	lpCoeffs, hpCoeffs, err := designPair(freq, order, sampleRate)
	if err != nil {
		return nil, err
	}

	return &Crossover{
		lp:    biquad.NewChain(lpCoeffs),
		hp:    biquad.NewChain(hpCoeffs),
		freq:  freq,
		order: order,
		sr:    sampleRate,
	}, nil
}

func designPair(freq float64, order int, sampleRate float64) (lp, hp []biquad.Coefficients, err error) {
	if order <= 0 || order%2 != 0 {
		return nil, nil, fmt.Errorf("crossover: order must be a positive even integer, got %d", order)
	}
	if sampleRate <= 0 {
		return nil, nil, fmt.Errorf("crossover: sample rate must be positive, got %v", sampleRate)
	}
	if freq <= 0 || freq >= sampleRate/2 {
		return nil, nil, fmt.Errorf("crossover: frequency must be in (0, %v), got %v", sampleRate/2, freq)
	}

	lp = design.LinkwitzRileyLP(freq, order, sampleRate)
	if design.LinkwitzRileyNeedsHPInvert(order) {
		hp = design.LinkwitzRileyHPInverted(freq, order, sampleRate)
	} else {
		hp = design.LinkwitzRileyHP(freq, order, sampleRate)
	}
	if lp == nil || hp == nil {
		return nil, nil, fmt.Errorf("crossover: failed to design LR%d at %.1f Hz", order, freq)
	}

	return lp, hp, nil
}

// ProcessSample filters one input sample and returns the lowpass and
// highpass outputs. Their sum is allpass (flat magnitude response).
func (c *Crossover) ProcessSample(x float64) (lo, hi float64) {
	return c.lp.ProcessSample(x), c.hp.ProcessSample(x)
}

// ProcessBlock filters a block of input samples, writing the lowpass
// output to lo and the highpass output to hi. All three slices must
// have the same length. Zero-alloc.
func (c *Crossover) ProcessBlock(input, lo, hi []float64) {
	n := len(input)
	if n == 0 {
		return
	}
	_ = lo[n-1]
	_ = hi[n-1]
	copy(lo, input)
	copy(hi, input)
	c.lp.ProcessBlock(lo)
	c.hp.ProcessBlock(hi)
}

// SetFrequency retunes the crossover to a new frequency. The filter
// states are preserved, so retuning during streaming does not produce a
// discontinuity beyond the coefficient step itself.
func (c *Crossover) SetFrequency(freq float64) error {
	lpCoeffs, hpCoeffs, err := designPair(freq, c.order, c.sr)
	if err != nil {
		return err
	}

	c.lp.UpdateCoefficients(lpCoeffs, c.lp.Gain())
	c.hp.UpdateCoefficients(hpCoeffs, c.hp.Gain())
	c.freq = freq

	return nil
}

// LP returns the lowpass chain for direct inspection or analysis.
func (c *Crossover) LP() *biquad.Chain { return c.lp }

// HP returns the highpass chain for direct inspection or analysis.
// For orders ≡ 2 mod 4, this chain includes the polarity inversion.
func (c *Crossover) HP() *biquad.Chain { return c.hp }

// Freq returns the crossover frequency in Hz.
func (c *Crossover) Freq() float64 { return c.freq }

// Order returns the Linkwitz-Riley order (always even).
func (c *Crossover) Order() int { return c.order }

// SampleRate returns the sample rate in Hz.
func (c *Crossover) SampleRate() float64 { return c.sr }

// Reset clears the internal filter states of both LP and HP chains.
func (c *Crossover) Reset() {
	c.lp.Reset()
	c.hp.Reset()
}

// MultiBand is a multi-way crossover network built from cascaded two-way
// Linkwitz-Riley crossovers. It splits an input signal into N+1 frequency
// bands for N crossover frequencies.
//
// The bands are ordered from lowest to highest frequency. The cascade
// topology passes each stage's highpass output as the next stage's input:
// band b sees the highpass of every crossover below it and the lowpass of
// its own. Each band is additionally passed through the allpass of every
// crossover point above it, so all bands carry the same phase rotation
// and their unity-gain sum is allpass (flat magnitude response).
type MultiBand struct {
	stages []*Crossover
	comp   []*biquad.Chain // per-band phase compensation, nil where none is needed
	bands  int

	remainder []float64
	hi        []float64
}

// NewMultiBand creates a multi-way crossover from the given crossover
// frequencies and order. Frequencies must be in strictly ascending order
// and all within (0, sampleRate/2). The order applies to all crossover
// points and must be a positive even integer.
//
// For N frequencies, the crossover produces N+1 output bands.
func NewMultiBand(freqs []float64, order int, sampleRate float64) (*MultiBand, error) {
	if len(freqs) == 0 {
		return nil, fmt.Errorf("crossover: at least one frequency is required")
	}
	for i := 1; i < len(freqs); i++ {
		if freqs[i] <= freqs[i-1] {
			return nil, fmt.Errorf("crossover: frequencies must be strictly ascending, got %.1f after %.1f", freqs[i], freqs[i-1])
		}
	}

	stages := make([]*Crossover, len(freqs))
	for i, f := range freqs {
		xo, err := New(f, order, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("crossover: stage %d: %w", i, err)
		}
		stages[i] = xo
	}

	// Bands below the top two pick up the phase rotation of the
	// crossover points above them through a compensation allpass.
	comp := make([]*biquad.Chain, len(freqs)+1)
	for b := 0; b < len(freqs)-1; b++ {
		comp[b] = biquad.NewChain(compensationCoeffs(stages, b))
	}

	return &MultiBand{
		stages: stages,
		comp:   comp,
		bands:  len(freqs) + 1,
	}, nil
}

// compensationCoeffs returns the allpass cascade matching the combined
// phase response of every crossover stage above the given band.
func compensationCoeffs(stages []*Crossover, band int) []biquad.Coefficients {
	var coeffs []biquad.Coefficients
	for j := band + 1; j < len(stages); j++ {
		s := stages[j]
		coeffs = append(coeffs, design.LinkwitzRileyAllpass(s.Freq(), s.Order(), s.SampleRate())...)
	}
	return coeffs
}

// NumBands returns the number of output bands.
func (m *MultiBand) NumBands() int { return m.bands }

// Stages returns the underlying two-way crossover stages.
func (m *MultiBand) Stages() []*Crossover { return m.stages }

// ProcessSample filters one input sample and returns per-band outputs.
// The returned slice has NumBands() elements, ordered from lowest to
// highest frequency band.
func (m *MultiBand) ProcessSample(x float64) []float64 {
	out := make([]float64, m.bands)
	remainder := x
	for i, stage := range m.stages {
		lo, hi := stage.ProcessSample(remainder)
		if c := m.comp[i]; c != nil {
			lo = c.ProcessSample(lo)
		}
		out[i] = lo
		remainder = hi
	}
	out[m.bands-1] = remainder
	return out
}

// ProcessBlock filters a block of input samples and returns per-band
// output blocks. The returned slice has NumBands() elements, each of
// the same length as input. Allocates; streaming callers should use
// [MultiBand.ProcessBlockInto].
func (m *MultiBand) ProcessBlock(input []float64) [][]float64 {
	out := make([][]float64, m.bands)
	for i := range out {
		out[i] = make([]float64, len(input))
	}
	m.ProcessBlockInto(out, input)
	return out
}

// ProcessBlockInto filters a block of input samples into preallocated
// per-band output slices. out must have NumBands() elements, each at
// least len(input) long. Scratch buffers are reused between calls, so
// after the first call at a given block size this is zero-alloc.
func (m *MultiBand) ProcessBlockInto(out [][]float64, input []float64) {
	n := len(input)
	if n == 0 {
		return
	}

	m.remainder = core.EnsureLen(m.remainder, n)
	m.hi = core.EnsureLen(m.hi, n)
	copy(m.remainder, input)

	for i, stage := range m.stages {
		stage.ProcessBlock(m.remainder[:n], out[i][:n], m.hi[:n])
		if c := m.comp[i]; c != nil {
			c.ProcessBlock(out[i][:n])
		}
		copy(m.remainder, m.hi[:n])
	}
	copy(out[m.bands-1][:n], m.remainder[:n])
}

// SetFrequencies retunes all crossover points, preserving filter state.
// The slice length must match the number of stages and the frequencies
// must be strictly ascending.
func (m *MultiBand) SetFrequencies(freqs []float64) error {
	if len(freqs) != len(m.stages) {
		return fmt.Errorf("crossover: got %d frequencies, want %d", len(freqs), len(m.stages))
	}
	for i := 1; i < len(freqs); i++ {
		if freqs[i] <= freqs[i-1] {
			return fmt.Errorf("crossover: frequencies must be strictly ascending, got %.1f after %.1f", freqs[i], freqs[i-1])
		}
	}

	for i, f := range freqs {
		if err := m.stages[i].SetFrequency(f); err != nil {
			return fmt.Errorf("crossover: stage %d: %w", i, err)
		}
	}

	// The compensation allpasses track the retuned stages; the section
	// counts are unchanged, so the chain states are preserved.
	for b, c := range m.comp {
		if c == nil {
			continue
		}
		c.UpdateCoefficients(compensationCoeffs(m.stages, b), c.Gain())
	}

	return nil
}

// Reset clears all internal filter states.
func (m *MultiBand) Reset() {
	for _, s := range m.stages {
		s.Reset()
	}
	for _, c := range m.comp {
		if c != nil {
			c.Reset()
		}
	}
}
