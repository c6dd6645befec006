package mastering

import (
	"fmt"

	"github.com/cwbudde/algo-mastering/dsp/filter/biquad"
	"github.com/cwbudde/algo-mastering/dsp/filter/design"
)

// equalizer is the EQ stage of the chain: identical biquad cascades on
// both channels, built from the configured shelving/peaking bands plus
// the optional group-delay compensation allpass.
type equalizer struct {
	sampleRate  float64
	left, right *biquad.Chain
}

func newEqualizer(sampleRate float64, cfg EQConfig) (*equalizer, error) {
	coeffs, err := eqCoefficients(sampleRate, cfg)
	if err != nil {
		return nil, err
	}

	return &equalizer{
		sampleRate: sampleRate,
		left:       biquad.NewChain(coeffs),
		right:      biquad.NewChain(coeffs),
	}, nil
}

func eqCoefficients(sampleRate float64, cfg EQConfig) ([]biquad.Coefficients, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	nyquist := sampleRate / 2

	coeffs := make([]biquad.Coefficients, 0, len(cfg.Bands)+1)

	for i, b := range cfg.Bands {
		if b.FreqHz >= nyquist {
			return nil, fmt.Errorf("eq band %d: frequency %f above Nyquist %f", i, b.FreqHz, nyquist)
		}

		switch b.Type {
		case EQLowShelf:
			coeffs = append(coeffs, design.LowShelf(b.FreqHz, b.GainDB, b.Q, sampleRate))
		case EQHighShelf:
			coeffs = append(coeffs, design.HighShelf(b.FreqHz, b.GainDB, b.Q, sampleRate))
		case EQPeak:
			coeffs = append(coeffs, design.Peak(b.FreqHz, b.GainDB, b.Q, sampleRate))
		}
	}

	if cfg.AllpassFreqHz > 0 {
		if cfg.AllpassFreqHz >= nyquist {
			return nil, fmt.Errorf("eq allpass frequency %f above Nyquist %f", cfg.AllpassFreqHz, nyquist)
		}

		coeffs = append(coeffs, design.Allpass(cfg.AllpassFreqHz, cfg.AllpassQ, sampleRate))
	}

	return coeffs, nil
}

// setConfig retunes the cascade. Section states survive when the band
// count is unchanged, so sweeping a gain does not click.
func (e *equalizer) setConfig(cfg EQConfig) error {
	coeffs, err := eqCoefficients(e.sampleRate, cfg)
	if err != nil {
		return err
	}

	e.left.UpdateCoefficients(coeffs, 1)
	e.right.UpdateCoefficients(coeffs, 1)

	return nil
}

func (e *equalizer) processStereoInPlace(left, right []float64) {
	e.left.ProcessBlock(left)
	e.right.ProcessBlock(right)
}

func (e *equalizer) reset() {
	e.left.Reset()
	e.right.Reset()
}
