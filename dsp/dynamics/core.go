package dynamics

import (
	"fmt"
	"math"
)

const (
	// Parameter validation ranges shared by all dynamics processors.
	minRatio     = 1.0
	maxRatio     = 100.0
	minAttackMs  = 0.01
	maxAttackMs  = 1000.0
	minReleaseMs = 1.0
	maxReleaseMs = 5000.0
	minKneeDB    = 0.0
	maxKneeDB    = 24.0

	// log2Of10Div20 is the conversion factor for dB to log2: log2(10) / 20.
	log2Of10Div20 = 0.166096404744
)

// core is the shared gain computer and envelope follower behind the
// compressor, the limiter and the vintage variants. The gain curve is
// evaluated in the log2 domain with a quadratic soft-knee blend around
// the threshold.
//
// It is mono by construction; stereo linking is done by feeding it a
// linked detector level (max of the channel magnitudes).
type core struct {
	sampleRate   float64
	thresholdDB  float64
	ratio        float64
	kneeDB       float64
	attackMs     float64
	releaseMs    float64
	makeupGainDB float64
	autoMakeup   bool

	// Envelope follower state
	envelope float64

	// Cached coefficients
	attackCoeff      float64
	releaseCoeff     float64
	thresholdLog2    float64
	kneeWidthLog2    float64
	invKneeWidthLog2 float64
	makeupGainLin    float64
}

func newCore(sampleRate float64) (*core, error) {
	if err := validateSampleRate(sampleRate); err != nil {
		return nil, err
	}

	c := &core{
		sampleRate:   sampleRate,
		thresholdDB:  -20.0,
		ratio:        4.0,
		kneeDB:       6.0,
		attackMs:     10.0,
		releaseMs:    100.0,
		makeupGainDB: 0.0,
		autoMakeup:   false,
	}
	c.updateCoefficients()

	return c, nil
}

func (c *core) setThreshold(dB float64) error {
	if !isFinite(dB) {
		return fmt.Errorf("threshold must be finite: %f", dB)
	}

	c.thresholdDB = dB
	c.updateCoefficients()

	return nil
}

func (c *core) setRatio(ratio float64) error {
	if ratio < minRatio || ratio > maxRatio || !isFinite(ratio) {
		return fmt.Errorf("ratio must be in [%g, %g]: %f", minRatio, maxRatio, ratio)
	}

	c.ratio = ratio
	c.updateCoefficients()

	return nil
}

func (c *core) setKnee(kneeDB float64) error {
	if kneeDB < minKneeDB || kneeDB > maxKneeDB || !isFinite(kneeDB) {
		return fmt.Errorf("knee must be in [%g, %g]: %f", minKneeDB, maxKneeDB, kneeDB)
	}

	c.kneeDB = kneeDB
	c.updateCoefficients()

	return nil
}

func (c *core) setAttack(ms float64) error {
	if ms < minAttackMs || ms > maxAttackMs || !isFinite(ms) {
		return fmt.Errorf("attack must be in [%g, %g] ms: %f", minAttackMs, maxAttackMs, ms)
	}

	c.attackMs = ms
	c.updateTimeConstants()

	return nil
}

func (c *core) setRelease(ms float64) error {
	if ms < minReleaseMs || ms > maxReleaseMs || !isFinite(ms) {
		return fmt.Errorf("release must be in [%g, %g] ms: %f", minReleaseMs, maxReleaseMs, ms)
	}

	c.releaseMs = ms
	c.updateTimeConstants()

	return nil
}

// setReleaseUnchecked updates the release time without range validation,
// for program-dependent release where the target is already bounded.
func (c *core) setReleaseUnchecked(ms float64) {
	c.releaseMs = ms
	c.updateTimeConstants()
}

func (c *core) setMakeupGain(dB float64) error {
	if !isFinite(dB) {
		return fmt.Errorf("makeup gain must be finite: %f", dB)
	}

	c.makeupGainDB = dB
	c.autoMakeup = false
	c.updateCoefficients()

	return nil
}

func (c *core) setAutoMakeup(enable bool) {
	c.autoMakeup = enable
	c.updateCoefficients()
}

func (c *core) setSampleRate(sampleRate float64) error {
	if err := validateSampleRate(sampleRate); err != nil {
		return err
	}

	c.sampleRate = sampleRate
	c.updateTimeConstants()

	return nil
}

// envelopeLevel advances the envelope follower by one sample of detector
// input (a magnitude) and returns the smoothed level.
func (c *core) envelopeLevel(source float64) float64 {
	if source > c.envelope {
		c.envelope += (source - c.envelope) * c.attackCoeff
	} else {
		c.envelope = source + (c.envelope-source)*c.releaseCoeff
	}

	return c.envelope
}

// gainForLevel computes the gain multiplier for a detector level using
// the log2-domain soft-knee formula.
func (c *core) gainForLevel(level float64) float64 {
	if level <= 0 {
		return 1.0
	}

	levelLog2 := mathLog2(level)
	overshoot := levelLog2 - c.thresholdLog2
	compressionFactor := 1.0 - 1.0/c.ratio

	if c.kneeDB <= 0 {
		if overshoot <= 0 {
			return 1.0
		}

		return mathPower2(-overshoot * compressionFactor)
	}

	halfWidth := c.kneeWidthLog2 * 0.5

	var effectiveOvershoot float64

	switch {
	case overshoot < -halfWidth:
		return 1.0
	case overshoot > halfWidth:
		effectiveOvershoot = overshoot
	default:
		// Quadratic blend: (overshoot + w/2)^2 / (2w)
		scratch := overshoot + halfWidth
		effectiveOvershoot = scratch * scratch * 0.5 * c.invKneeWidthLog2
	}

	return mathPower2(-effectiveOvershoot * compressionFactor)
}

// processGain runs the detector level through the envelope follower and
// gain computer and returns the gain to apply.
func (c *core) processGain(detectorLevel float64) float64 {
	return c.gainForLevel(c.envelopeLevel(detectorLevel))
}

func (c *core) reset() {
	c.envelope = 0
}

func (c *core) updateCoefficients() {
	c.thresholdLog2 = c.thresholdDB * log2Of10Div20

	c.kneeWidthLog2 = c.kneeDB * log2Of10Div20
	if c.kneeDB > 0 {
		c.invKneeWidthLog2 = 1.0 / c.kneeWidthLog2
	} else {
		c.invKneeWidthLog2 = 0
	}

	if c.autoMakeup {
		// Compensate for gain reduction at threshold.
		reductionDB := c.thresholdDB * (1.0 - 1.0/c.ratio)
		c.makeupGainDB = -reductionDB
	}

	c.makeupGainLin = mathPower10(c.makeupGainDB / 20.0)

	c.updateTimeConstants()
}

func (c *core) updateTimeConstants() {
	c.attackCoeff = 1.0 - math.Exp(-math.Ln2/(c.attackMs*0.001*c.sampleRate))
	c.releaseCoeff = math.Exp(-math.Ln2 / (c.releaseMs * 0.001 * c.sampleRate))
}

func validateSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || !isFinite(sampleRate) {
		return fmt.Errorf("sample rate must be positive and finite: %f", sampleRate)
	}

	return nil
}

func isFinite(v float64) bool {
	return !(math.IsNaN(v) || math.IsInf(v, 0))
}

// gainToReductionDB converts a gain multiplier to positive dB of reduction.
func gainToReductionDB(gain float64) float64 {
	if gain >= 1 || gain <= 0 {
		return 0
	}

	return -20 * math.Log10(gain)
}
