package mastering

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-mastering/dsp/dither"
	"github.com/cwbudde/algo-mastering/dsp/dynamics"
)

// EQBandType selects the filter shape of one equalizer band.
type EQBandType string

const (
	EQLowShelf  EQBandType = "lowShelf"
	EQHighShelf EQBandType = "highShelf"
	EQPeak      EQBandType = "peak"
)

// EQBand configures one section of the mastering equalizer.
type EQBand struct {
	Type   EQBandType `json:"type"`
	FreqHz float64    `json:"freqHz"`
	GainDB float64    `json:"gainDb"`
	Q      float64    `json:"q"`
}

// EQConfig configures the equalizer stage: a cascade of shelving and
// peaking sections, optionally followed by an allpass that compensates
// part of the cascade's group-delay skew around the crossover region.
type EQConfig struct {
	Bands []EQBand `json:"bands"`

	// AllpassFreqHz places the compensation allpass; 0 disables it.
	AllpassFreqHz float64 `json:"allpassFreqHz"`
	AllpassQ      float64 `json:"allpassQ"`
}

// WidenerConfig configures the stereo widener stage.
type WidenerConfig struct {
	Width      float64 `json:"width"`
	BassMonoHz float64 `json:"bassMonoHz"`
}

// LimiterConfig configures the brick-wall limiter stage.
type LimiterConfig struct {
	CeilingDB    float64 `json:"ceilingDb"`
	ReleaseMs    float64 `json:"releaseMs"`
	LookaheadMs  float64 `json:"lookaheadMs"`
	Oversampling int     `json:"oversampling"`
}

// DitherConfig configures the output word-length reduction stage.
type DitherConfig struct {
	Enabled  bool   `json:"enabled"`
	BitDepth int    `json:"bitDepth"`
	Type     string `json:"type"` // "none", "rectangular", "triangular"

	// ShapingShelfHz enables high-shelf noise shaping; 0 disables it.
	ShapingShelfHz float64 `json:"shapingShelfHz"`
}

// Config is the complete mastering chain configuration. It is a plain
// value object: presets and callers build a Config, the processor takes
// it wholesale at a block boundary, and it is never mutated in place
// while audio renders.
type Config struct {
	InputGainDB    float64         `json:"inputGainDb"`
	EQ             EQConfig        `json:"eq"`
	Bands          []dynamics.Band `json:"bands"`
	CrossoverOrder int             `json:"crossoverOrder"`
	Widener        WidenerConfig   `json:"widener"`
	Limiter        LimiterConfig   `json:"limiter"`
	Dither         DitherConfig    `json:"dither"`
}

// DefaultConfig returns a transparent starting point: flat EQ, gentle
// wide-band glue compression, unity width, -1 dBTP limiting and 24-bit
// triangular dither.
func DefaultConfig() Config {
	return Config{
		InputGainDB: 0,
		EQ: EQConfig{
			Bands: []EQBand{
				{Type: EQLowShelf, FreqHz: 90, GainDB: 0, Q: 0.707},
				{Type: EQPeak, FreqHz: 800, GainDB: 0, Q: 1.0},
				{Type: EQHighShelf, FreqHz: 8000, GainDB: 0, Q: 0.707},
			},
		},
		Bands: []dynamics.Band{
			{CrossoverHz: 120, ThresholdDB: -28, Ratio: 2, AttackMs: 30, ReleaseMs: 200, Enabled: true},
			{CrossoverHz: 700, ThresholdDB: -26, Ratio: 2, AttackMs: 15, ReleaseMs: 150, Enabled: true},
			{CrossoverHz: 4000, ThresholdDB: -26, Ratio: 2, AttackMs: 10, ReleaseMs: 120, Enabled: true},
			{ThresholdDB: -24, Ratio: 2, AttackMs: 5, ReleaseMs: 100, Enabled: true},
		},
		CrossoverOrder: 4,
		Widener: WidenerConfig{
			Width:      1.0,
			BassMonoHz: 0,
		},
		Limiter: LimiterConfig{
			CeilingDB:    -1.0,
			ReleaseMs:    100,
			LookaheadMs:  3,
			Oversampling: 4,
		},
		Dither: DitherConfig{
			Enabled:  true,
			BitDepth: 24,
			Type:     "triangular",
		},
	}
}

// Validate rejects configurations the processor could not apply. The
// sample-rate-dependent checks (crossover frequencies against Nyquist)
// happen again at application time.
func (c Config) Validate() error {
	if !isFinite(c.InputGainDB) || c.InputGainDB < -48 || c.InputGainDB > 48 {
		return fmt.Errorf("input gain must be in [-48, 48] dB: %f", c.InputGainDB)
	}

	if err := c.EQ.validate(); err != nil {
		return err
	}

	if len(c.Bands) < 2 || len(c.Bands) > 8 {
		return fmt.Errorf("multiband config needs 2..8 bands: %d", len(c.Bands))
	}

	if c.CrossoverOrder < 2 || c.CrossoverOrder > 8 || c.CrossoverOrder%2 != 0 {
		return fmt.Errorf("crossover order must be even, 2..8: %d", c.CrossoverOrder)
	}

	if c.Widener.Width < 0 || c.Widener.Width > 2 || !isFinite(c.Widener.Width) {
		return fmt.Errorf("widener width must be in [0, 2]: %f", c.Widener.Width)
	}

	if c.Widener.BassMonoHz != 0 && (c.Widener.BassMonoHz < 20 || c.Widener.BassMonoHz > 500) {
		return fmt.Errorf("widener bass mono frequency must be 0 or in [20, 500] Hz: %f", c.Widener.BassMonoHz)
	}

	if err := c.Limiter.validate(); err != nil {
		return err
	}

	return c.Dither.validate()
}

func (c EQConfig) validate() error {
	for i, b := range c.Bands {
		switch b.Type {
		case EQLowShelf, EQHighShelf, EQPeak:
		default:
			return fmt.Errorf("eq band %d: unknown type %q", i, b.Type)
		}

		if b.FreqHz <= 0 || !isFinite(b.FreqHz) {
			return fmt.Errorf("eq band %d: frequency must be > 0: %f", i, b.FreqHz)
		}

		if b.Q <= 0 || !isFinite(b.Q) {
			return fmt.Errorf("eq band %d: Q must be > 0: %f", i, b.Q)
		}

		if !isFinite(b.GainDB) || b.GainDB < -24 || b.GainDB > 24 {
			return fmt.Errorf("eq band %d: gain must be in [-24, 24] dB: %f", i, b.GainDB)
		}
	}

	if c.AllpassFreqHz != 0 && (c.AllpassFreqHz < 0 || !isFinite(c.AllpassFreqHz)) {
		return fmt.Errorf("eq allpass frequency must be 0 or > 0: %f", c.AllpassFreqHz)
	}

	if c.AllpassFreqHz != 0 && (c.AllpassQ <= 0 || !isFinite(c.AllpassQ)) {
		return fmt.Errorf("eq allpass Q must be > 0: %f", c.AllpassQ)
	}

	return nil
}

func (c LimiterConfig) validate() error {
	if c.CeilingDB < -24 || c.CeilingDB > 0 || !isFinite(c.CeilingDB) {
		return fmt.Errorf("limiter ceiling must be in [-24, 0] dB: %f", c.CeilingDB)
	}

	if c.ReleaseMs < 1 || c.ReleaseMs > 5000 || !isFinite(c.ReleaseMs) {
		return fmt.Errorf("limiter release must be in [1, 5000] ms: %f", c.ReleaseMs)
	}

	if c.LookaheadMs < 0 || c.LookaheadMs > 10 || !isFinite(c.LookaheadMs) {
		return fmt.Errorf("limiter lookahead must be in [0, 10] ms: %f", c.LookaheadMs)
	}

	switch c.Oversampling {
	case 1, 2, 4, 8:
		return nil
	default:
		return fmt.Errorf("limiter oversampling must be 1, 2, 4 or 8: %d", c.Oversampling)
	}
}

func (c DitherConfig) validate() error {
	if !c.Enabled {
		return nil
	}

	if c.BitDepth < 1 || c.BitDepth > 32 {
		return fmt.Errorf("dither bit depth must be in [1, 32]: %d", c.BitDepth)
	}

	if _, err := c.ditherType(); err != nil {
		return err
	}

	if c.ShapingShelfHz != 0 && (c.ShapingShelfHz <= 0 || !isFinite(c.ShapingShelfHz)) {
		return fmt.Errorf("dither shaping shelf must be 0 or > 0: %f", c.ShapingShelfHz)
	}

	return nil
}

func (c DitherConfig) ditherType() (dither.DitherType, error) {
	switch c.Type {
	case "", "triangular":
		return dither.DitherTriangular, nil
	case "rectangular":
		return dither.DitherRectangular, nil
	case "none":
		return dither.DitherNone, nil
	default:
		return 0, fmt.Errorf("unknown dither type %q", c.Type)
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
