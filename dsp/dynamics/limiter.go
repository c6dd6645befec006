package dynamics

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-mastering/dsp/delay"
)

const (
	defaultLimiterCeilingDB   = -1.0
	defaultLimiterReleaseMs   = 100.0
	defaultLimiterLookaheadMs = 3.0
	defaultLimiterOversample  = 4

	minLimiterCeilingDB   = -24.0
	maxLimiterCeilingDB   = 0.0
	minLimiterLookaheadMs = 0.0
	maxLimiterLookaheadMs = 10.0

	limiterRatio    = 100.0
	limiterAttackMs = 0.05

	// The soft-clip knee starts at this fraction of the linear ceiling.
	limiterKneeFraction = 0.9
)

// Limiter is a stereo brick-wall limiter: a hard-knee, high-ratio gain
// computer fed by a lookahead detector, followed by an oversampled
// tanh soft clipper that shapes inter-sample peaks under the ceiling.
//
// The program path is delayed by the lookahead plus the clipper group
// delay; see [Limiter.LatencySamples].
type Limiter struct {
	core *core

	sampleRate  float64
	ceilingDB   float64
	ceilingLin  float64
	releaseMs   float64
	lookaheadMs float64
	oversample  int

	delayL *delay.Line
	delayR *delay.Line

	clipL *oversampledClipper
	clipR *oversampledClipper

	lastGain float64
}

// NewLimiter creates a brick-wall limiter with mastering defaults:
// ceiling -1 dBFS, release 100 ms, lookahead 3 ms, 4x oversampled clip.
func NewLimiter(sampleRate float64) (*Limiter, error) {
	c, err := newCore(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("limiter: %w", err)
	}

	// Hard knee, near-infinite ratio, fast attack; the lookahead gives
	// the detector its head start.
	if err := c.setRatio(limiterRatio); err != nil {
		return nil, err
	}
	if err := c.setKnee(0); err != nil {
		return nil, err
	}
	if err := c.setAttack(limiterAttackMs); err != nil {
		return nil, err
	}

	l := &Limiter{
		core:        c,
		sampleRate:  sampleRate,
		releaseMs:   defaultLimiterReleaseMs,
		lookaheadMs: defaultLimiterLookaheadMs,
		oversample:  defaultLimiterOversample,
		lastGain:    1,
	}

	if err := l.SetCeiling(defaultLimiterCeilingDB); err != nil {
		return nil, err
	}
	if err := l.SetRelease(defaultLimiterReleaseMs); err != nil {
		return nil, err
	}
	if err := l.SetLookahead(defaultLimiterLookaheadMs); err != nil {
		return nil, err
	}
	if err := l.SetOversampling(defaultLimiterOversample); err != nil {
		return nil, err
	}

	return l, nil
}

// SetCeiling sets the output ceiling in dBFS.
func (l *Limiter) SetCeiling(dB float64) error {
	if dB < minLimiterCeilingDB || dB > maxLimiterCeilingDB || !isFinite(dB) {
		return fmt.Errorf("limiter ceiling must be in [%g, %g] dB: %f",
			minLimiterCeilingDB, maxLimiterCeilingDB, dB)
	}

	if err := l.core.setThreshold(dB); err != nil {
		return err
	}

	l.ceilingDB = dB
	l.ceilingLin = mathPower10(dB / 20)

	return nil
}

// SetRelease sets release time in milliseconds.
func (l *Limiter) SetRelease(ms float64) error {
	if err := l.core.setRelease(ms); err != nil {
		return fmt.Errorf("limiter %w", err)
	}

	l.releaseMs = ms

	return nil
}

// SetLookahead sets lookahead time in milliseconds (0..10).
func (l *Limiter) SetLookahead(ms float64) error {
	if ms < minLimiterLookaheadMs || ms > maxLimiterLookaheadMs || !isFinite(ms) {
		return fmt.Errorf("limiter lookahead must be in [%g, %g] ms: %f",
			minLimiterLookaheadMs, maxLimiterLookaheadMs, ms)
	}

	samples := int(math.Round(ms*l.sampleRate/1000.0)) + 1

	dl, err := delay.New(samples)
	if err != nil {
		return fmt.Errorf("limiter: %w", err)
	}

	dr, err := delay.New(samples)
	if err != nil {
		return fmt.Errorf("limiter: %w", err)
	}

	l.lookaheadMs = ms
	l.delayL = dl
	l.delayR = dr

	return nil
}

// SetOversampling sets the soft-clip oversampling factor: 1 (clip at
// the base rate), 2, 4 or 8.
func (l *Limiter) SetOversampling(factor int) error {
	switch factor {
	case 1:
		l.clipL = nil
		l.clipR = nil
	case 2, 4, 8:
		l.clipL = newOversampledClipper(factor)
		l.clipR = newOversampledClipper(factor)
	default:
		return fmt.Errorf("limiter oversampling must be 1, 2, 4 or 8: %d", factor)
	}

	l.oversample = factor

	return nil
}

// Ceiling returns the output ceiling in dBFS.
func (l *Limiter) Ceiling() float64 { return l.ceilingDB }

// Release returns release time in milliseconds.
func (l *Limiter) Release() float64 { return l.releaseMs }

// Lookahead returns lookahead time in milliseconds.
func (l *Limiter) Lookahead() float64 { return l.lookaheadMs }

// Oversampling returns the soft-clip oversampling factor.
func (l *Limiter) Oversampling() int { return l.oversample }

// SampleRate returns the sample rate in Hz.
func (l *Limiter) SampleRate() float64 { return l.sampleRate }

// GainReductionDB returns the gain reduction applied to the most
// recent sample, in positive dB.
func (l *Limiter) GainReductionDB() float64 {
	return gainToReductionDB(l.lastGain)
}

// LatencySamples returns the program-path delay in samples (lookahead
// plus clipper group delay).
func (l *Limiter) LatencySamples() int {
	latency := l.delayL.Len()
	if l.clipL != nil {
		latency += l.clipL.latencySamples()
	}

	return latency
}

// ProcessStereoSample limits one linked stereo sample pair.
func (l *Limiter) ProcessStereoSample(inL, inR float64) (outL, outR float64) {
	// The undelayed input drives the detector while the program is
	// still inside the lookahead delay.
	detector := math.Max(math.Abs(inL), math.Abs(inR))
	gain := l.core.processGain(detector)
	l.lastGain = gain

	outL = l.delayL.Tick(inL) * gain
	outR = l.delayR.Tick(inR) * gain

	knee := limiterKneeFraction * l.ceilingLin
	if l.clipL != nil {
		outL = l.clipL.processSample(outL, knee, l.ceilingLin)
		outR = l.clipR.processSample(outR, knee, l.ceilingLin)
	} else {
		outL = softClip(outL, knee, l.ceilingLin)
		outR = softClip(outR, knee, l.ceilingLin)
	}

	return outL, outR
}

// ProcessStereoInPlace limits a stereo block in place. Slices must
// have the same length. Zero-alloc.
func (l *Limiter) ProcessStereoInPlace(left, right []float64) {
	for i := range left {
		left[i], right[i] = l.ProcessStereoSample(left[i], right[i])
	}
}

// Reset clears envelope, delay and clipper state.
func (l *Limiter) Reset() {
	l.core.reset()
	l.delayL.Reset()
	l.delayR.Reset()
	l.lastGain = 1

	if l.clipL != nil {
		l.clipL.reset()
		l.clipR.reset()
	}
}
