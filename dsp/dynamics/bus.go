package dynamics

import (
	"fmt"
	"math"
)

// Stepped bus-compressor controls, matching the classic console center
// section.
var (
	busRatios     = [3]float64{2, 4, 10}
	busAttacksMs  = [6]float64{0.1, 0.3, 1, 3, 10, 30}
	busReleasesMs = [4]float64{100, 300, 600, 1200}
)

// BusReleaseAuto selects the program-dependent release instead of a
// fixed step.
const BusReleaseAuto = -1

const (
	busKneeDB        = 3.0
	busAutoMinMs     = 50.0
	busAutoMaxMs     = 1200.0
	busAutoUpdateHop = 32
)

// BusCompressor models a stereo bus ("glue") compressor: stepped ratio,
// attack and release controls, a gentle fixed knee, stereo-linked
// detection and an optional program-dependent auto release.
type BusCompressor struct {
	core *core
	auto *autoRelease

	ratioStep   int
	attackStep  int
	releaseStep int // BusReleaseAuto when auto mode is active

	makeupDB  float64
	makeupLin float64

	autoCountdown int
	lastGain      float64
}

// NewBusCompressor creates a bus compressor.
//
// Defaults: threshold -10 dB, ratio 4:1, attack 10 ms, release auto,
// no makeup gain.
func NewBusCompressor(sampleRate float64) (*BusCompressor, error) {
	c, err := newCore(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("bus compressor: %w", err)
	}

	if err := c.setThreshold(-10); err != nil {
		return nil, err
	}
	if err := c.setKnee(busKneeDB); err != nil {
		return nil, err
	}

	auto, err := newAutoRelease(busAutoMinMs, busAutoMaxMs, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("bus compressor: %w", err)
	}

	b := &BusCompressor{
		core:      c,
		auto:      auto,
		makeupLin: 1,
		lastGain:  1,
	}

	if err := b.SetRatioStep(1); err != nil { // 4:1
		return nil, err
	}
	if err := b.SetAttackStep(4); err != nil { // 10 ms
		return nil, err
	}
	if err := b.SetReleaseStep(BusReleaseAuto); err != nil {
		return nil, err
	}

	return b, nil
}

// SetThreshold sets compression threshold in dB.
func (b *BusCompressor) SetThreshold(dB float64) error { return b.core.setThreshold(dB) }

// SetRatioStep selects the ratio switch position (0..2 for 2:1, 4:1,
// 10:1).
func (b *BusCompressor) SetRatioStep(step int) error {
	if step < 0 || step >= len(busRatios) {
		return fmt.Errorf("bus ratio step must be in [0, %d): %d", len(busRatios), step)
	}

	if err := b.core.setRatio(busRatios[step]); err != nil {
		return err
	}

	b.ratioStep = step

	return nil
}

// SetAttackStep selects the attack switch position (0..5 for 0.1, 0.3,
// 1, 3, 10, 30 ms).
func (b *BusCompressor) SetAttackStep(step int) error {
	if step < 0 || step >= len(busAttacksMs) {
		return fmt.Errorf("bus attack step must be in [0, %d): %d", len(busAttacksMs), step)
	}

	if err := b.core.setAttack(busAttacksMs[step]); err != nil {
		return err
	}

	b.attackStep = step

	return nil
}

// SetReleaseStep selects the release switch position (0..3 for 100,
// 300, 600, 1200 ms) or [BusReleaseAuto] for program-dependent release.
func (b *BusCompressor) SetReleaseStep(step int) error {
	if step == BusReleaseAuto {
		b.releaseStep = BusReleaseAuto
		b.auto.reset()
		b.autoCountdown = 0
		b.core.setReleaseUnchecked(b.auto.currentMs)

		return nil
	}

	if step < 0 || step >= len(busReleasesMs) {
		return fmt.Errorf("bus release step must be in [0, %d) or auto: %d", len(busReleasesMs), step)
	}

	if err := b.core.setRelease(busReleasesMs[step]); err != nil {
		return err
	}

	b.releaseStep = step

	return nil
}

// SetMakeupGain sets makeup gain in dB.
func (b *BusCompressor) SetMakeupGain(dB float64) error {
	if !isFinite(dB) {
		return fmt.Errorf("bus makeup gain must be finite: %f", dB)
	}

	b.makeupDB = dB
	b.makeupLin = mathPower10(dB / 20)

	return nil
}

// Threshold returns the threshold in dB.
func (b *BusCompressor) Threshold() float64 { return b.core.thresholdDB }

// RatioStep returns the ratio switch position.
func (b *BusCompressor) RatioStep() int { return b.ratioStep }

// AttackStep returns the attack switch position.
func (b *BusCompressor) AttackStep() int { return b.attackStep }

// ReleaseStep returns the release switch position, or [BusReleaseAuto].
func (b *BusCompressor) ReleaseStep() int { return b.releaseStep }

// MakeupGain returns makeup gain in dB.
func (b *BusCompressor) MakeupGain() float64 { return b.makeupDB }

// ReleaseMs returns the release time currently in effect, which in auto
// mode is the estimator's smoothed value.
func (b *BusCompressor) ReleaseMs() float64 { return b.core.releaseMs }

// GainReductionDB returns the gain reduction applied to the most
// recent sample, in positive dB.
func (b *BusCompressor) GainReductionDB() float64 {
	return gainToReductionDB(b.lastGain)
}

// advanceAuto feeds the detector level into the release estimator and
// periodically applies the smoothed target. Recomputing the release
// coefficient involves an exp, so it is refreshed every few samples
// rather than per sample; the estimator itself moves far slower.
func (b *BusCompressor) advanceAuto(detector float64) {
	ms := b.auto.update(detector, gainToReductionDB(b.lastGain))

	if b.autoCountdown > 0 {
		b.autoCountdown--

		return
	}

	b.autoCountdown = busAutoUpdateHop - 1
	b.core.setReleaseUnchecked(ms)
}

// ProcessSample processes one mono sample.
func (b *BusCompressor) ProcessSample(input float64) float64 {
	detector := math.Abs(input)

	if b.releaseStep == BusReleaseAuto {
		b.advanceAuto(detector)
	}

	gain := b.core.processGain(detector)
	b.lastGain = gain

	return input * gain * b.makeupLin
}

// ProcessStereoSample processes one linked stereo sample pair.
func (b *BusCompressor) ProcessStereoSample(l, r float64) (outL, outR float64) {
	detector := math.Max(math.Abs(l), math.Abs(r))

	if b.releaseStep == BusReleaseAuto {
		b.advanceAuto(detector)
	}

	gain := b.core.processGain(detector)
	b.lastGain = gain

	g := gain * b.makeupLin

	return l * g, r * g
}

// ProcessStereoInPlace applies linked stereo compression in place.
// Slices must have the same length.
func (b *BusCompressor) ProcessStereoInPlace(left, right []float64) {
	for i := range left {
		left[i], right[i] = b.ProcessStereoSample(left[i], right[i])
	}
}

// Reset clears envelope and auto-release state.
func (b *BusCompressor) Reset() {
	b.core.reset()
	b.auto.reset()
	b.autoCountdown = 0
	b.lastGain = 1

	if b.releaseStep == BusReleaseAuto {
		b.core.setReleaseUnchecked(b.auto.currentMs)
	}
}
