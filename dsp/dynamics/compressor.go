package dynamics

import (
	"fmt"
	"math"
)

// Metrics holds metering information for visualization and analysis.
type Metrics struct {
	InputPeak        float64 // Maximum input magnitude since last reset
	OutputPeak       float64 // Maximum output magnitude since last reset
	MaxGainReduction float64 // Maximum gain reduction in dB since last reset
}

// Compressor is a soft-knee compressor with logarithmic-domain gain
// calculation. It processes mono via [Compressor.ProcessSample] or
// linked stereo via [Compressor.ProcessStereoSample], where the
// detector follows the louder channel and the same gain is applied to
// both, preserving the stereo image.
//
// Single-threaded; parameter changes must not race processing calls.
type Compressor struct {
	core *core

	lastGain float64
	metrics  Metrics
}

// NewCompressor creates a soft-knee compressor.
//
// Defaults: threshold -20 dB, ratio 4:1, knee 6 dB, attack 10 ms,
// release 100 ms, no makeup gain.
func NewCompressor(sampleRate float64) (*Compressor, error) {
	c, err := newCore(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("compressor: %w", err)
	}

	return &Compressor{core: c, lastGain: 1}, nil
}

// SetThreshold sets compression threshold in dB.
func (c *Compressor) SetThreshold(dB float64) error { return c.core.setThreshold(dB) }

// SetRatio sets compression ratio in [1, 100].
func (c *Compressor) SetRatio(ratio float64) error { return c.core.setRatio(ratio) }

// SetKnee sets soft-knee width in dB (0 = hard knee).
func (c *Compressor) SetKnee(kneeDB float64) error { return c.core.setKnee(kneeDB) }

// SetAttack sets attack time in milliseconds.
func (c *Compressor) SetAttack(ms float64) error { return c.core.setAttack(ms) }

// SetRelease sets release time in milliseconds.
func (c *Compressor) SetRelease(ms float64) error { return c.core.setRelease(ms) }

// SetMakeupGain sets manual makeup gain in dB and disables auto makeup.
func (c *Compressor) SetMakeupGain(dB float64) error { return c.core.setMakeupGain(dB) }

// SetAutoMakeup enables automatic makeup gain compensating for the
// gain reduction at threshold.
func (c *Compressor) SetAutoMakeup(enable bool) { c.core.setAutoMakeup(enable) }

// SetSampleRate updates sample rate and recalculates time constants.
func (c *Compressor) SetSampleRate(sampleRate float64) error { return c.core.setSampleRate(sampleRate) }

// Threshold returns the current threshold in dB.
func (c *Compressor) Threshold() float64 { return c.core.thresholdDB }

// Ratio returns the current compression ratio.
func (c *Compressor) Ratio() float64 { return c.core.ratio }

// Knee returns the current knee width in dB.
func (c *Compressor) Knee() float64 { return c.core.kneeDB }

// Attack returns the current attack time in milliseconds.
func (c *Compressor) Attack() float64 { return c.core.attackMs }

// Release returns the current release time in milliseconds.
func (c *Compressor) Release() float64 { return c.core.releaseMs }

// MakeupGain returns the current makeup gain in dB.
func (c *Compressor) MakeupGain() float64 { return c.core.makeupGainDB }

// SampleRate returns the current sample rate in Hz.
func (c *Compressor) SampleRate() float64 { return c.core.sampleRate }

// GainReductionDB returns the gain reduction applied to the most recent
// sample, in positive dB.
func (c *Compressor) GainReductionDB() float64 {
	return gainToReductionDB(c.lastGain)
}

// ProcessSample processes one mono sample through the compressor.
func (c *Compressor) ProcessSample(input float64) float64 {
	gain := c.core.processGain(math.Abs(input))
	c.lastGain = gain

	output := input * gain * c.core.makeupGainLin
	c.updateMetrics(math.Abs(input), math.Abs(output), gain)

	return output
}

// ProcessStereoSample processes one linked stereo sample pair. The
// detector follows max(|l|, |r|) and the same gain is applied to both
// channels.
func (c *Compressor) ProcessStereoSample(l, r float64) (outL, outR float64) {
	detector := math.Max(math.Abs(l), math.Abs(r))
	gain := c.core.processGain(detector)
	c.lastGain = gain

	g := gain * c.core.makeupGainLin
	outL = l * g
	outR = r * g
	c.updateMetrics(detector, math.Max(math.Abs(outL), math.Abs(outR)), gain)

	return outL, outR
}

// ProcessInPlace applies compression to buf in place.
func (c *Compressor) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = c.ProcessSample(buf[i])
	}
}

// ProcessStereoInPlace applies linked stereo compression in place.
// Slices must have the same length.
func (c *Compressor) ProcessStereoInPlace(left, right []float64) {
	for i := range left {
		left[i], right[i] = c.ProcessStereoSample(left[i], right[i])
	}
}

// CalculateOutputLevel computes the steady-state output level for a
// given input magnitude, for visualizing the compression curve.
func (c *Compressor) CalculateOutputLevel(inputMagnitude float64) float64 {
	inputMagnitude = math.Abs(inputMagnitude)

	return inputMagnitude * c.core.gainForLevel(inputMagnitude) * c.core.makeupGainLin
}

// Reset clears envelope follower and metrics.
func (c *Compressor) Reset() {
	c.core.reset()
	c.lastGain = 1
	c.metrics = Metrics{}
}

// GetMetrics returns current metering values.
func (c *Compressor) GetMetrics() Metrics { return c.metrics }

// ResetMetrics clears metering state without touching the envelope.
func (c *Compressor) ResetMetrics() { c.metrics = Metrics{} }

func (c *Compressor) updateMetrics(inputLevel, outputLevel, gain float64) {
	if inputLevel > c.metrics.InputPeak {
		c.metrics.InputPeak = inputLevel
	}

	if outputLevel > c.metrics.OutputPeak {
		c.metrics.OutputPeak = outputLevel
	}

	if reduction := gainToReductionDB(gain); reduction > c.metrics.MaxGainReduction {
		c.metrics.MaxGainReduction = reduction
	}
}
