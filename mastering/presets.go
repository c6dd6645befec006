package mastering

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/cwbudde/algo-mastering/dsp/dynamics"
)

// Overlay is a partial configuration: nil fields keep the default.
// Sub-objects present in an overlay replace the default sub-object
// wholesale, so applying the same overlay twice yields the same Config.
// The JSON form doubles as the on-disk preset-file schema.
type Overlay struct {
	InputGainDB    *float64        `json:"inputGainDb,omitempty"`
	EQ             *EQConfig       `json:"eq,omitempty"`
	Bands          []dynamics.Band `json:"bands,omitempty"`
	CrossoverOrder *int            `json:"crossoverOrder,omitempty"`
	Widener        *WidenerConfig  `json:"widener,omitempty"`
	Limiter        *LimiterConfig  `json:"limiter,omitempty"`
	Dither         *DitherConfig   `json:"dither,omitempty"`
}

// Apply merges the overlay onto dst.
func (o *Overlay) Apply(dst *Config) {
	if o == nil {
		return
	}

	if o.InputGainDB != nil {
		dst.InputGainDB = *o.InputGainDB
	}

	if o.EQ != nil {
		dst.EQ = *o.EQ
	}

	if o.Bands != nil {
		dst.Bands = append([]dynamics.Band(nil), o.Bands...)
	}

	if o.CrossoverOrder != nil {
		dst.CrossoverOrder = *o.CrossoverOrder
	}

	if o.Widener != nil {
		dst.Widener = *o.Widener
	}

	if o.Limiter != nil {
		dst.Limiter = *o.Limiter
	}

	if o.Dither != nil {
		dst.Dither = *o.Dither
	}
}

func ptr[T any](v T) *T { return &v }

// presets holds the built-in preset table, keyed by category then name.
var presets = map[string]map[string]Overlay{
	"streaming": {
		// Transparent -14 LUFS oriented master.
		"default": {},
		"loud": {
			InputGainDB: ptr(3.0),
			Bands: []dynamics.Band{
				{CrossoverHz: 120, ThresholdDB: -24, Ratio: 3, AttackMs: 20, ReleaseMs: 150, Enabled: true},
				{CrossoverHz: 700, ThresholdDB: -22, Ratio: 3, AttackMs: 10, ReleaseMs: 120, Enabled: true},
				{CrossoverHz: 4000, ThresholdDB: -22, Ratio: 3, AttackMs: 8, ReleaseMs: 100, Enabled: true},
				{ThresholdDB: -20, Ratio: 3, AttackMs: 4, ReleaseMs: 80, Enabled: true},
			},
			Limiter: &LimiterConfig{CeilingDB: -1.0, ReleaseMs: 60, LookaheadMs: 3, Oversampling: 4},
		},
		"warm": {
			EQ: &EQConfig{
				Bands: []EQBand{
					{Type: EQLowShelf, FreqHz: 120, GainDB: 1.5, Q: 0.707},
					{Type: EQPeak, FreqHz: 3000, GainDB: -1.0, Q: 1.2},
					{Type: EQHighShelf, FreqHz: 10000, GainDB: -0.5, Q: 0.707},
				},
			},
			Widener: &WidenerConfig{Width: 1.1, BassMonoHz: 120},
		},
	},
	"broadcast": {
		"ebu": {
			InputGainDB: ptr(-6.0),
			Limiter:     &LimiterConfig{CeilingDB: -1.0, ReleaseMs: 200, LookaheadMs: 5, Oversampling: 4},
			Dither:      &DitherConfig{Enabled: true, BitDepth: 16, Type: "triangular", ShapingShelfHz: 8000},
		},
		"atsc": {
			InputGainDB: ptr(-7.0),
			Limiter:     &LimiterConfig{CeilingDB: -2.0, ReleaseMs: 200, LookaheadMs: 5, Oversampling: 4},
			Dither:      &DitherConfig{Enabled: true, BitDepth: 16, Type: "triangular", ShapingShelfHz: 8000},
		},
	},
	"cinema": {
		"default": {
			InputGainDB: ptr(-10.0),
			Widener:     &WidenerConfig{Width: 1.0, BassMonoHz: 0},
			Limiter:     &LimiterConfig{CeilingDB: -2.0, ReleaseMs: 300, LookaheadMs: 8, Oversampling: 4},
			Dither:      &DitherConfig{Enabled: true, BitDepth: 24, Type: "triangular"},
		},
	},
	"club": {
		"default": {
			InputGainDB: ptr(2.0),
			EQ: &EQConfig{
				Bands: []EQBand{
					{Type: EQLowShelf, FreqHz: 80, GainDB: 2.0, Q: 0.707},
					{Type: EQPeak, FreqHz: 400, GainDB: -1.0, Q: 1.0},
					{Type: EQHighShelf, FreqHz: 9000, GainDB: 1.0, Q: 0.707},
				},
			},
			Widener: &WidenerConfig{Width: 1.2, BassMonoHz: 150},
			Limiter: &LimiterConfig{CeilingDB: -0.5, ReleaseMs: 50, LookaheadMs: 2, Oversampling: 8},
		},
	},
}

// Preset resolves a named preset to a complete, validated Config.
// Unknown categories or names are errors, never silent fallbacks.
func Preset(category, name string) (Config, error) {
	group, ok := presets[category]
	if !ok {
		return Config{}, fmt.Errorf("unknown preset category %q", category)
	}

	overlay, ok := group[name]
	if !ok {
		return Config{}, fmt.Errorf("unknown preset %q in category %q", name, category)
	}

	cfg := DefaultConfig()
	overlay.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("preset %s/%s: %w", category, name, err)
	}

	return cfg, nil
}

// PresetNames lists all built-in presets as "category/name", sorted.
func PresetNames() []string {
	var names []string

	for category, group := range presets {
		for name := range group {
			names = append(names, category+"/"+name)
		}
	}

	sort.Strings(names)

	return names
}

// LoadConfigJSON reads an overlay file and applies it on top of the
// defaults, mirroring how named presets are resolved.
func LoadConfigJSON(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	return ParseConfigJSON(b)
}

// ParseConfigJSON builds a Config from overlay JSON.
func ParseConfigJSON(data []byte) (Config, error) {
	var overlay Overlay
	if err := json.Unmarshal(data, &overlay); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := DefaultConfig()
	overlay.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
