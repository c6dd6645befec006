package dynamics

import (
	"fmt"
	"sort"
)

// VintageVariant tags one of the analog compressor emulations.
type VintageVariant string

const (
	VariantFET  VintageVariant = "fet"
	VariantOpto VintageVariant = "opto"
	VariantBus  VintageVariant = "bus"
)

// FETParams configures a [FETCompressor].
type FETParams struct {
	InputGainDB     float64  `json:"inputGainDB"`
	OutputGainDB    float64  `json:"outputGainDB"`
	Ratio           FETRatio `json:"ratio"`
	AttackPosition  int      `json:"attackPosition"`
	ReleasePosition int      `json:"releasePosition"`
	AllButtons      bool     `json:"allButtons"`
}

// OptoParams configures an [OptoCompressor].
type OptoParams struct {
	PeakReduction float64  `json:"peakReduction"`
	Mode          OptoMode `json:"mode"`
	GainDB        float64  `json:"gainDB"`
}

// BusParams configures a [BusCompressor]. ReleaseStep may be
// [BusReleaseAuto] for the program-dependent release.
type BusParams struct {
	ThresholdDB  float64 `json:"thresholdDB"`
	RatioStep    int     `json:"ratioStep"`
	AttackStep   int     `json:"attackStep"`
	ReleaseStep  int     `json:"releaseStep"`
	MakeupGainDB float64 `json:"makeupGainDB"`
}

// VintageConfig selects a vintage compressor variant and its parameter
// set. Only the parameter block matching Variant is consulted; a nil
// block means the variant's construction defaults.
type VintageConfig struct {
	Variant VintageVariant `json:"variant"`
	FET     *FETParams     `json:"fet,omitempty"`
	Opto    *OptoParams    `json:"opto,omitempty"`
	Bus     *BusParams     `json:"bus,omitempty"`
}

// VintageProcessor is the interface shared by the three vintage
// compressor variants.
type VintageProcessor interface {
	ProcessSample(input float64) float64
	ProcessStereoSample(l, r float64) (outL, outR float64)
	GainReductionDB() float64
	Reset()
}

// NewVintage constructs the vintage compressor selected by cfg.Variant
// and applies its parameter block.
func NewVintage(sampleRate float64, cfg VintageConfig) (VintageProcessor, error) {
	switch cfg.Variant {
	case VariantFET:
		return newVintageFET(sampleRate, cfg.FET)
	case VariantOpto:
		return newVintageOpto(sampleRate, cfg.Opto)
	case VariantBus:
		return newVintageBus(sampleRate, cfg.Bus)
	default:
		return nil, fmt.Errorf("vintage variant must be one of %q, %q, %q: %q",
			VariantFET, VariantOpto, VariantBus, cfg.Variant)
	}
}

func newVintageFET(sampleRate float64, p *FETParams) (*FETCompressor, error) {
	f, err := NewFETCompressor(sampleRate)
	if err != nil {
		return nil, err
	}

	if p == nil {
		return f, nil
	}

	if err := f.SetInputGain(p.InputGainDB); err != nil {
		return nil, err
	}
	if err := f.SetOutputGain(p.OutputGainDB); err != nil {
		return nil, err
	}
	if err := f.SetRatio(p.Ratio); err != nil {
		return nil, err
	}
	if err := f.SetAttackPosition(p.AttackPosition); err != nil {
		return nil, err
	}
	if err := f.SetReleasePosition(p.ReleasePosition); err != nil {
		return nil, err
	}

	f.SetAllButtons(p.AllButtons)

	return f, nil
}

func newVintageOpto(sampleRate float64, p *OptoParams) (*OptoCompressor, error) {
	o, err := NewOptoCompressor(sampleRate)
	if err != nil {
		return nil, err
	}

	if p == nil {
		return o, nil
	}

	if err := o.SetPeakReduction(p.PeakReduction); err != nil {
		return nil, err
	}
	if err := o.SetMode(p.Mode); err != nil {
		return nil, err
	}
	if err := o.SetGain(p.GainDB); err != nil {
		return nil, err
	}

	return o, nil
}

func newVintageBus(sampleRate float64, p *BusParams) (*BusCompressor, error) {
	b, err := NewBusCompressor(sampleRate)
	if err != nil {
		return nil, err
	}

	if p == nil {
		return b, nil
	}

	if err := b.SetThreshold(p.ThresholdDB); err != nil {
		return nil, err
	}
	if err := b.SetRatioStep(p.RatioStep); err != nil {
		return nil, err
	}
	if err := b.SetAttackStep(p.AttackStep); err != nil {
		return nil, err
	}
	if err := b.SetReleaseStep(p.ReleaseStep); err != nil {
		return nil, err
	}
	if err := b.SetMakeupGain(p.MakeupGainDB); err != nil {
		return nil, err
	}

	return b, nil
}

// Named vintage presets, keyed variant then identifier.
var vintagePresets = map[VintageVariant]map[string]VintageConfig{
	VariantFET: {
		"default": {Variant: VariantFET},
		"vocal": {Variant: VariantFET, FET: &FETParams{
			InputGainDB:     6,
			OutputGainDB:    -3,
			Ratio:           FETRatio8,
			AttackPosition:  3,
			ReleasePosition: 5,
		}},
		"allbuttons": {Variant: VariantFET, FET: &FETParams{
			InputGainDB:     8,
			OutputGainDB:    -6,
			Ratio:           FETRatio20,
			AttackPosition:  6,
			ReleasePosition: 6,
			AllButtons:      true,
		}},
	},
	VariantOpto: {
		"default": {Variant: VariantOpto},
		"vocal": {Variant: VariantOpto, Opto: &OptoParams{
			PeakReduction: 65,
			Mode:          OptoCompress,
			GainDB:        4,
		}},
		"limit": {Variant: VariantOpto, Opto: &OptoParams{
			PeakReduction: 70,
			Mode:          OptoLimit,
			GainDB:        6,
		}},
	},
	VariantBus: {
		"default": {Variant: VariantBus},
		"glue": {Variant: VariantBus, Bus: &BusParams{
			ThresholdDB:  -12,
			RatioStep:    0,
			AttackStep:   4,
			ReleaseStep:  BusReleaseAuto,
			MakeupGainDB: 1.5,
		}},
		"drums": {Variant: VariantBus, Bus: &BusParams{
			ThresholdDB:  -15,
			RatioStep:    2,
			AttackStep:   1,
			ReleaseStep:  0,
			MakeupGainDB: 3,
		}},
	},
}

// VintagePreset resolves a named vintage preset. Unknown variants and
// names are errors.
func VintagePreset(variant VintageVariant, name string) (VintageConfig, error) {
	byName, ok := vintagePresets[variant]
	if !ok {
		return VintageConfig{}, fmt.Errorf("unknown vintage variant: %q", variant)
	}

	cfg, ok := byName[name]
	if !ok {
		return VintageConfig{}, fmt.Errorf("unknown vintage preset %q/%q", variant, name)
	}

	return cfg, nil
}

// VintagePresetNames returns all preset names as "variant/name", sorted.
func VintagePresetNames() []string {
	var names []string

	for variant, byName := range vintagePresets {
		for name := range byName {
			names = append(names, string(variant)+"/"+name)
		}
	}

	sort.Strings(names)

	return names
}
