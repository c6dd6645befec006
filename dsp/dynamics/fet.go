package dynamics

import (
	"fmt"
	"math"
)

// Stepped time constants. Position 1 is the slowest, position 7 the
// fastest, matching the hardware convention of the classic FET units.
var (
	fetAttackMs  = [7]float64{0.8, 0.4, 0.2, 0.1, 0.05, 0.03, 0.02}
	fetReleaseMs = [7]float64{1100, 800, 500, 300, 200, 100, 50}
)

// FETRatio is one of the selectable ratio buttons.
type FETRatio int

const (
	FETRatio4 FETRatio = iota
	FETRatio8
	FETRatio12
	FETRatio20
)

var fetRatioValues = map[FETRatio]float64{
	FETRatio4:  4,
	FETRatio8:  8,
	FETRatio12: 12,
	FETRatio20: 20,
}

const (
	// The FET detector threshold is fixed; compression depth is driven
	// by input gain staging, as on the hardware.
	fetInternalThresholdDB = -10.0
	fetSaturationDrive     = 1.5
	fetSaturationAsymmetry = 1.08

	// All-buttons mode blends the main path with an extreme path.
	fetAllButtonsBlend     = 0.5
	fetAllButtonsHarmonics = 0.12
)

// FETCompressor models a fast FET-style compressor: microsecond-range
// stepped attack, stepped release, a fixed internal threshold driven by
// input gain, and an asymmetric tanh output saturation.
//
// The "all-buttons" mode parallel-blends a second, far more aggressive
// limiting path with added odd-harmonic shaping.
type FETCompressor struct {
	core    *core
	extreme *core // all-buttons path

	inputGainDB   float64
	outputGainDB  float64
	inputGainLin  float64
	outputGainLin float64

	ratio      FETRatio
	attackPos  int
	releasePos int
	allButtons bool

	lastGain float64
}

// NewFETCompressor creates a FET-style compressor.
//
// Defaults: ratio 4:1, attack position 4 (100 µs), release position 4
// (300 ms), no input or output gain, all-buttons off.
func NewFETCompressor(sampleRate float64) (*FETCompressor, error) {
	c, err := newCore(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("fet compressor: %w", err)
	}

	x, err := newCore(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("fet compressor: %w", err)
	}

	f := &FETCompressor{
		core:          c,
		extreme:       x,
		inputGainLin:  1,
		outputGainLin: 1,
		ratio:         FETRatio4,
		attackPos:     4,
		releasePos:    4,
		lastGain:      1,
	}

	for _, cc := range []*core{c, x} {
		if err := cc.setThreshold(fetInternalThresholdDB); err != nil {
			return nil, err
		}
		if err := cc.setKnee(2); err != nil {
			return nil, err
		}
	}

	// The extreme path limits hard with extra release snap.
	if err := x.setRatio(maxRatio); err != nil {
		return nil, err
	}

	if err := f.SetRatio(f.ratio); err != nil {
		return nil, err
	}
	if err := f.SetAttackPosition(f.attackPos); err != nil {
		return nil, err
	}
	if err := f.SetReleasePosition(f.releasePos); err != nil {
		return nil, err
	}

	return f, nil
}

// SetInputGain sets input gain in dB. Driving the input harder against
// the fixed threshold is the primary compression-depth control.
func (f *FETCompressor) SetInputGain(dB float64) error {
	if !isFinite(dB) {
		return fmt.Errorf("fet input gain must be finite: %f", dB)
	}

	f.inputGainDB = dB
	f.inputGainLin = mathPower10(dB / 20)

	return nil
}

// SetOutputGain sets output gain in dB.
func (f *FETCompressor) SetOutputGain(dB float64) error {
	if !isFinite(dB) {
		return fmt.Errorf("fet output gain must be finite: %f", dB)
	}

	f.outputGainDB = dB
	f.outputGainLin = mathPower10(dB / 20)

	return nil
}

// SetRatio selects one of the ratio buttons.
func (f *FETCompressor) SetRatio(r FETRatio) error {
	v, ok := fetRatioValues[r]
	if !ok {
		return fmt.Errorf("fet ratio selector out of range: %d", r)
	}

	if err := f.core.setRatio(v); err != nil {
		return err
	}

	f.ratio = r

	return nil
}

// SetAttackPosition selects the stepped attack time, position 1..7
// (1 = slowest = 800 µs, 7 = fastest = 20 µs).
func (f *FETCompressor) SetAttackPosition(pos int) error {
	if pos < 1 || pos > len(fetAttackMs) {
		return fmt.Errorf("fet attack position must be in [1, %d]: %d", len(fetAttackMs), pos)
	}

	ms := fetAttackMs[pos-1]
	if err := f.core.setAttack(ms); err != nil {
		return err
	}
	if err := f.extreme.setAttack(ms); err != nil {
		return err
	}

	f.attackPos = pos

	return nil
}

// SetReleasePosition selects the stepped release time, position 1..7
// (1 = slowest = 1100 ms, 7 = fastest = 50 ms).
func (f *FETCompressor) SetReleasePosition(pos int) error {
	if pos < 1 || pos > len(fetReleaseMs) {
		return fmt.Errorf("fet release position must be in [1, %d]: %d", len(fetReleaseMs), pos)
	}

	if err := f.core.setRelease(fetReleaseMs[pos-1]); err != nil {
		return err
	}

	// The extreme path recovers twice as fast, floor at the minimum.
	if err := f.extreme.setRelease(math.Max(fetReleaseMs[pos-1]/2, minReleaseMs)); err != nil {
		return err
	}

	f.releasePos = pos

	return nil
}

// SetAllButtons toggles the all-buttons-in mode.
func (f *FETCompressor) SetAllButtons(enable bool) { f.allButtons = enable }

// InputGain returns input gain in dB.
func (f *FETCompressor) InputGain() float64 { return f.inputGainDB }

// OutputGain returns output gain in dB.
func (f *FETCompressor) OutputGain() float64 { return f.outputGainDB }

// Ratio returns the selected ratio button.
func (f *FETCompressor) Ratio() FETRatio { return f.ratio }

// AttackPosition returns the stepped attack position (1..7).
func (f *FETCompressor) AttackPosition() int { return f.attackPos }

// ReleasePosition returns the stepped release position (1..7).
func (f *FETCompressor) ReleasePosition() int { return f.releasePos }

// AllButtons reports whether all-buttons mode is active.
func (f *FETCompressor) AllButtons() bool { return f.allButtons }

// GainReductionDB returns the gain reduction applied to the most
// recent sample, in positive dB.
func (f *FETCompressor) GainReductionDB() float64 {
	return gainToReductionDB(f.lastGain)
}

// ProcessSample processes one mono sample.
func (f *FETCompressor) ProcessSample(input float64) float64 {
	x := input * f.inputGainLin
	detector := math.Abs(x)

	gain := f.core.processGain(detector)
	y := x * gain

	if f.allButtons {
		extremeGain := f.extreme.processGain(detector)
		ye := x * extremeGain

		// Odd-harmonic shaping on the slammed path.
		ye += fetAllButtonsHarmonics * ye * ye * ye

		y = (1-fetAllButtonsBlend)*y + fetAllButtonsBlend*ye
		gain = (1-fetAllButtonsBlend)*gain + fetAllButtonsBlend*extremeGain
	}

	f.lastGain = gain

	return fetSaturate(y) * f.outputGainLin
}

// ProcessStereoSample processes one linked stereo sample pair.
func (f *FETCompressor) ProcessStereoSample(l, r float64) (outL, outR float64) {
	xl := l * f.inputGainLin
	xr := r * f.inputGainLin
	detector := math.Max(math.Abs(xl), math.Abs(xr))

	gain := f.core.processGain(detector)

	if f.allButtons {
		extremeGain := f.extreme.processGain(detector)
		gl := (1-fetAllButtonsBlend)*gain + fetAllButtonsBlend*extremeGain

		yl := xl * gl
		yr := xr * gl
		yl += fetAllButtonsHarmonics * fetAllButtonsBlend * yl * yl * yl
		yr += fetAllButtonsHarmonics * fetAllButtonsBlend * yr * yr * yr

		f.lastGain = gl

		return fetSaturate(yl) * f.outputGainLin, fetSaturate(yr) * f.outputGainLin
	}

	f.lastGain = gain

	return fetSaturate(xl*gain) * f.outputGainLin, fetSaturate(xr*gain) * f.outputGainLin
}

// ProcessInPlace processes buf in place.
func (f *FETCompressor) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = f.ProcessSample(buf[i])
	}
}

// Reset clears all envelope state.
func (f *FETCompressor) Reset() {
	f.core.reset()
	f.extreme.reset()
	f.lastGain = 1
}

// fetSaturate applies the asymmetric tanh curve. Positive and negative
// half-waves see slightly different drive, producing the even-harmonic
// coloration characteristic of the FET output stage.
func fetSaturate(x float64) float64 {
	if x >= 0 {
		return mathTanh(fetSaturationDrive*x) / fetSaturationDrive
	}

	d := fetSaturationDrive * fetSaturationAsymmetry

	return mathTanh(d*x) / d
}
