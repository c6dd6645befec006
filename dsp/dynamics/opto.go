package dynamics

import (
	"fmt"
	"math"
)

const (
	// Peak reduction maps 0..100 onto threshold 0..-40 dB.
	optoThresholdPerStep = -0.4

	// Ratio grows with peak reduction toward these maxima.
	optoCompressMaxRatio = 4.0
	optoLimitMaxRatio    = 15.0

	optoKneeDB   = 10.0
	optoAttackMs = 10.0

	// Two-stage photocell release: a fast stage always present, blended
	// toward the slow stage by the gain-reduction memory.
	optoFastReleaseMs = 60.0
	optoSlowReleaseMs = 2500.0

	// Memory charges while compressing and discharges slowly after.
	optoMemoryChargeMs    = 200.0
	optoMemoryDischargeMs = 2000.0

	// Gain reduction (dB) at which the memory saturates.
	optoMemoryFullDB = 10.0
)

// OptoMode selects the compressor's transfer character.
type OptoMode int

const (
	// OptoCompress is the gentle program-compression mode.
	OptoCompress OptoMode = iota
	// OptoLimit raises the effective ratio for peak control.
	OptoLimit
)

// OptoCompressor models an optical compressor: a single peak-reduction
// control jointly sets threshold and ratio, and the release is
// level-dependent in two stages. The photocell "remembers" sustained
// gain reduction, stretching the release the longer and deeper the
// compression has been.
type OptoCompressor struct {
	core *core

	peakReduction float64
	mode          OptoMode
	gainDB        float64
	gainLin       float64

	fastReleaseCoeff float64
	slowReleaseCoeff float64
	memoryCharge     float64
	memoryDischarge  float64

	memory   float64
	lastGain float64
}

// NewOptoCompressor creates an optical compressor.
//
// Defaults: peak reduction 50, compress mode, no output gain.
func NewOptoCompressor(sampleRate float64) (*OptoCompressor, error) {
	c, err := newCore(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("opto compressor: %w", err)
	}

	if err := c.setKnee(optoKneeDB); err != nil {
		return nil, err
	}
	if err := c.setAttack(optoAttackMs); err != nil {
		return nil, err
	}

	coeff := func(ms float64) float64 {
		return math.Exp(-math.Ln2 / (ms * 0.001 * sampleRate))
	}

	o := &OptoCompressor{
		core:             c,
		mode:             OptoCompress,
		gainLin:          1,
		fastReleaseCoeff: coeff(optoFastReleaseMs),
		slowReleaseCoeff: coeff(optoSlowReleaseMs),
		memoryCharge:     1 - coeff(optoMemoryChargeMs),
		memoryDischarge:  1 - coeff(optoMemoryDischargeMs),
		lastGain:         1,
	}

	if err := o.SetPeakReduction(50); err != nil {
		return nil, err
	}

	return o, nil
}

// SetPeakReduction sets the peak-reduction control (0..100). Higher
// values lower the threshold and raise the ratio at the same time.
func (o *OptoCompressor) SetPeakReduction(v float64) error {
	if v < 0 || v > 100 || !isFinite(v) {
		return fmt.Errorf("opto peak reduction must be in [0, 100]: %f", v)
	}

	o.peakReduction = v

	return o.applyMapping()
}

// SetMode selects compress or limit behavior.
func (o *OptoCompressor) SetMode(mode OptoMode) error {
	if mode != OptoCompress && mode != OptoLimit {
		return fmt.Errorf("opto mode out of range: %d", mode)
	}

	o.mode = mode

	return o.applyMapping()
}

// SetGain sets output gain in dB.
func (o *OptoCompressor) SetGain(dB float64) error {
	if !isFinite(dB) {
		return fmt.Errorf("opto gain must be finite: %f", dB)
	}

	o.gainDB = dB
	o.gainLin = mathPower10(dB / 20)

	return nil
}

// PeakReduction returns the peak-reduction setting (0..100).
func (o *OptoCompressor) PeakReduction() float64 { return o.peakReduction }

// Mode returns the current mode.
func (o *OptoCompressor) Mode() OptoMode { return o.mode }

// Gain returns output gain in dB.
func (o *OptoCompressor) Gain() float64 { return o.gainDB }

// GainReductionDB returns the gain reduction applied to the most
// recent sample, in positive dB.
func (o *OptoCompressor) GainReductionDB() float64 {
	return gainToReductionDB(o.lastGain)
}

func (o *OptoCompressor) applyMapping() error {
	threshold := optoThresholdPerStep * o.peakReduction

	maxR := optoCompressMaxRatio
	if o.mode == OptoLimit {
		maxR = optoLimitMaxRatio
	}

	ratio := 1 + (o.peakReduction/100)*(maxR-1)
	if ratio < minRatio {
		ratio = minRatio
	}

	if err := o.core.setThreshold(threshold); err != nil {
		return err
	}

	return o.core.setRatio(ratio)
}

// advanceRelease updates the photocell memory from the current gain
// reduction and blends the release coefficient between the fast and
// slow stages. Deeper and longer compression means slower recovery.
func (o *OptoCompressor) advanceRelease() {
	depth := gainToReductionDB(o.lastGain) / optoMemoryFullDB
	if depth > 1 {
		depth = 1
	}

	if depth > o.memory {
		o.memory += (depth - o.memory) * o.memoryCharge
	} else {
		o.memory += (depth - o.memory) * o.memoryDischarge
	}

	o.core.releaseCoeff = o.fastReleaseCoeff +
		(o.slowReleaseCoeff-o.fastReleaseCoeff)*o.memory
}

// ProcessSample processes one mono sample.
func (o *OptoCompressor) ProcessSample(input float64) float64 {
	o.advanceRelease()

	gain := o.core.processGain(math.Abs(input))
	o.lastGain = gain

	return input * gain * o.gainLin
}

// ProcessStereoSample processes one linked stereo sample pair.
func (o *OptoCompressor) ProcessStereoSample(l, r float64) (outL, outR float64) {
	o.advanceRelease()

	detector := math.Max(math.Abs(l), math.Abs(r))
	gain := o.core.processGain(detector)
	o.lastGain = gain

	g := gain * o.gainLin

	return l * g, r * g
}

// ProcessInPlace processes buf in place.
func (o *OptoCompressor) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = o.ProcessSample(buf[i])
	}
}

// Reset clears envelope and photocell memory.
func (o *OptoCompressor) Reset() {
	o.core.reset()
	o.memory = 0
	o.lastGain = 1
}
